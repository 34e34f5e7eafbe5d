package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// PositionProvider consulta posiciones abiertas y saldo USDC de una cuenta.
type PositionProvider interface {
	// FetchPositions devuelve las posiciones abiertas de la dirección dada.
	FetchPositions(ctx context.Context, address string) ([]domain.Position, error)

	// FetchBalance devuelve el saldo USDC on-chain de la dirección dada.
	FetchBalance(ctx context.Context, address string) (float64, error)
}
