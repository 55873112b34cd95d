package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/fatture-rf/internal/application/auth"
	"github.com/jhoicas/fatture-rf/internal/application/dto"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/pkg/jwt"
)

const secret = "test-secret"

func newUseCase(t *testing.T) *auth.AuthUseCase {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("supersegreta"), bcrypt.MinCost)
	require.NoError(t, err)
	return auth.NewAuthUseCase(
		auth.OperatorConfig{Email: "Titolare@Example.it", PasswordHash: string(hash)},
		auth.JWTConfig{Secret: secret, ExpMinutes: 60, Issuer: "fatture-rf-test"},
	)
}

func TestLogin_CredencialesCorrectas(t *testing.T) {
	out, err := newUseCase(t).Login(dto.LoginRequest{Email: " titolare@example.it ", Password: "supersegreta"})
	require.NoError(t, err)
	assert.Equal(t, 3600, out.ExpiresIn)
	assert.Equal(t, "titolare@example.it", out.Email)

	email, err := jwt.Parse(secret, out.Token)
	require.NoError(t, err)
	assert.Equal(t, "titolare@example.it", email)
}

func TestLogin_Rechazos(t *testing.T) {
	uc := newUseCase(t)
	for _, in := range []dto.LoginRequest{
		{Email: "titolare@example.it", Password: "sbagliata"},
		{Email: "altro@example.it", Password: "supersegreta"},
	} {
		_, err := uc.Login(in)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, in.Email)
	}

	sinOperador := auth.NewAuthUseCase(auth.OperatorConfig{}, auth.JWTConfig{Secret: secret})
	_, err := sinOperador.Login(dto.LoginRequest{Email: "", Password: ""})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestHashPassword(t *testing.T) {
	h, err := auth.HashPassword("supersegreta")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("supersegreta")))

	_, err = auth.HashPassword("corta")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
