package cache

import (
	"context"
	"errors"

	d "github.com/fjod/go_pos/domain"
)

// SessionCache keeps the latest checkout snapshot per register so a customer display can
// render immediately after (re)connecting.
type SessionCache interface {
	Get(ctx context.Context, registerID string) (*d.CheckoutSession, error)
	Set(ctx context.Context, registerID string, session *d.CheckoutSession) error
	Delete(ctx context.Context, registerID string) error
}

var ErrCacheMiss = errors.New("cache miss")
