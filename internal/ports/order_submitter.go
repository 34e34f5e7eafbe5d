package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// OrderSubmitter envía al exchange la orden que espeja un trade del líder.
// El sizing y el precio límite son responsabilidad de la implementación.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order domain.CopyOrder) error
}
