package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// ExecutionStore persiste el rastro de auditoría de las ejecuciones.
type ExecutionStore interface {
	// SaveExecution registra un intento de copia (enviado, saltado o fallido).
	SaveExecution(ctx context.Context, rec domain.ExecutionRecord) error

	// RecentExecutions devuelve las últimas ejecuciones, más recientes primero.
	RecentExecutions(ctx context.Context, limit int) ([]domain.ExecutionRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
