package entity

import "time"

// StoreStatus estado de la conexión con la tienda.
type StoreStatus string

const (
	StoreStatusActive   StoreStatus = "active"
	StoreStatusInactive StoreStatus = "inactive"
	StoreStatusError    StoreStatus = "error"
)

// ExternalStore conexión con una tienda WooCommerce (credenciales REST y ventana de sincronización).
type ExternalStore struct {
	ID             string
	Name           string
	StoreURL       string
	ConsumerKey    string
	ConsumerSecret string
	SyncFrom       *time.Time
	AutoSync       bool
	SyncInterval   int // minutos
	LastSyncAt     *time.Time
	LastError      string
	Status         StoreStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SyncDue indica si la sincronización automática toca en now.
func (s *ExternalStore) SyncDue(now time.Time) bool {
	if s.Status != StoreStatusActive || !s.AutoSync {
		return false
	}
	if s.LastSyncAt == nil {
		return true
	}
	interval := s.SyncInterval
	if interval <= 0 {
		interval = 60
	}
	return !s.LastSyncAt.Add(time.Duration(interval) * time.Minute).After(now)
}
