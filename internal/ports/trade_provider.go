package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// TradeHistoryProvider obtiene el histórico paginado de trades de una cuenta.
// Lo usa el exportador CSV; el monitor usa ActivityProvider (solo lo reciente).
type TradeHistoryProvider interface {
	// FetchActivityPage devuelve una página del histórico. El llamador avanza
	// el offset según el tamaño real de la página devuelta.
	FetchActivityPage(ctx context.Context, userAddress string, limit, offset int) ([]domain.Activity, error)
}
