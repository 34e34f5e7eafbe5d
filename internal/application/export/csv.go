package export

// csv.go — exportador del histórico de trades de un líder.
//
// Pagina la Data API hasta agotar el histórico y escribe un CSV RFC-4180.
// El offset avanza según el tamaño real de cada página devuelta, nunca según
// el limit pedido: si la API capa el limit internamente, avanzar por el limit
// saltaría filas. Se corta solo en página vacía (o en el tope de seguridad).

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

const (
	defaultPageSize = 100
	maxPages        = 50 // tope de seguridad: 5000 filas por export
)

var csvHeader = []string{
	"timestamp", "condition_id", "asset", "side",
	"price", "size", "usdc_size", "transaction_hash", "slug",
}

// Exporter vuelca el histórico de trades de una cuenta a CSV.
type Exporter struct {
	feed     ports.TradeHistoryProvider
	pageSize int
	logger   *slog.Logger
}

// NewExporter crea un exportador sobre el feed dado.
func NewExporter(feed ports.TradeHistoryProvider, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		feed:     feed,
		pageSize: defaultPageSize,
		logger:   logger.With("component", "export"),
	}
}

// Export escribe el histórico completo de userAddress en w y devuelve el
// número de filas escritas (sin contar la cabecera).
func (e *Exporter) Export(ctx context.Context, userAddress string, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("export: write header: %w", err)
	}

	rows := 0
	offset := 0
	for page := 0; page < maxPages; page++ {
		batch, err := e.feed.FetchActivityPage(ctx, userAddress, e.pageSize, offset)
		if err != nil {
			return rows, fmt.Errorf("export: page at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, a := range batch {
			if err := cw.Write(csvRow(a)); err != nil {
				return rows, fmt.Errorf("export: write row: %w", err)
			}
			rows++
		}

		e.logger.Debug("page exported", "offset", offset, "rows", len(batch))
		offset += len(batch)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("export: flush: %w", err)
	}

	e.logger.Info("export finished", "leader", userAddress, "rows", rows)
	return rows, nil
}

// csvRow formatea una activity. El timestamp sale normalizado a RFC3339 UTC
// cuando se puede interpretar; si no, se conserva el valor crudo del feed.
func csvRow(a domain.Activity) []string {
	ts := a.RawTimestamp
	if t := domain.ParseActivityTime(a.RawTimestamp); !t.IsZero() {
		ts = t.UTC().Format(time.RFC3339)
	}

	return []string{
		ts,
		a.ConditionID,
		a.Asset,
		a.Side,
		strconv.FormatFloat(a.Price, 'f', -1, 64),
		strconv.FormatFloat(a.Size, 'f', -1, 64),
		strconv.FormatFloat(a.UsdcSize, 'f', -1, 64),
		a.TransactionHash,
		a.Slug,
	}
}
