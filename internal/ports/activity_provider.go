package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// ActivityProvider obtiene la actividad de trading reciente de una cuenta líder.
type ActivityProvider interface {
	FetchActivity(ctx context.Context, userAddress string) ([]domain.Activity, error)
}
