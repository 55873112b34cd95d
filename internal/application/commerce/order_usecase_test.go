package commerce_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fatture-rf/internal/application/commerce"
	"github.com/jhoicas/fatture-rf/internal/application/dto"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/memory"
)

func seedOrders(t *testing.T, db *memory.DB) []string {
	t.Helper()
	var ids []string
	for i, date := range []string{"2025-03-01T08:00:00", "2025-03-03T08:00:00", "2025-03-02T08:00:00"} {
		o, err := commerce.NormalizeOrder("s1", raw(t, wooOrder(200+i, date, individualMeta())))
		require.NoError(t, err)
		_, err = db.Orders().Upsert(context.Background(), o)
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	return ids
}

func TestOrderUseCase_ListFiltraYOrdena(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDB()
	ids := seedOrders(t, db)
	require.NoError(t, db.Orders().LinkInvoice(ctx, ids[0], "inv-1"))
	uc := commerce.NewOrderUseCase(db.Orders())

	all, err := uc.List(ctx, dto.OrderListRequest{StoreID: "s1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "201", all[0].OrderNumber, "más reciente primero")
	assert.Equal(t, "Mario Rossi", all[0].CustomerName)

	pending, err := uc.List(ctx, dto.OrderListRequest{StoreID: "s1", Invoiced: "false"})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = uc.List(ctx, dto.OrderListRequest{Invoiced: "quizás"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOrderUseCase_StatsYDelete(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDB()
	ids := seedOrders(t, db)
	require.NoError(t, db.Orders().LinkInvoice(ctx, ids[1], "inv-1"))
	uc := commerce.NewOrderUseCase(db.Orders())

	stats, err := uc.Stats(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Invoiced)
	assert.Equal(t, 2, stats.Pending)

	assert.ErrorIs(t, uc.Delete(ctx, ids[1]), domain.ErrConflict, "facturado")
	assert.NoError(t, uc.Delete(ctx, ids[0]))
	_, err = uc.Get(ctx, ids[0])
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
