package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// Notifier presenta el estado del pipeline al operador.
type Notifier interface {
	// NotifyCycle imprime el resumen de un ciclo del monitor.
	NotifyCycle(ctx context.Context, stats domain.CycleStats) error

	// NotifyPositions muestra las posiciones abiertas de cada líder observado.
	NotifyPositions(ctx context.Context, leaders map[string][]domain.Position) error
}
