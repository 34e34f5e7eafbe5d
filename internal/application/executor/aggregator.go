package executor

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// Aggregator coalesce BUYs por debajo del mínimo del exchange sobre el mismo
// mercado hasta que la ventana expira. Vive dentro de un único worker.
type Aggregator struct {
	window   time.Duration
	records  map[string]*domain.AggregatedTrade
	flushing atomic.Bool
	logger   *slog.Logger
	now      func() time.Time
}

// NewAggregator crea el buffer con la ventana de agregación dada.
func NewAggregator(window time.Duration, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		window:  window,
		records: make(map[string]*domain.AggregatedTrade),
		logger:  logger,
		now:     time.Now,
	}
}

// Add incorpora un BUY sub-mínimo a su grupo, abriéndolo si es el primero.
func (g *Aggregator) Add(a domain.QueueActivity) {
	now := g.now()
	key := domain.AggregationKey(a.UserAddress, a.ConditionID, a.Asset, a.Side)

	rec, ok := g.records[key]
	if ok {
		rec.Add(a, now)
	} else {
		rec = domain.NewAggregatedTrade(a, now)
		g.records[key] = rec
	}
	g.logger.Debug("aggregation buffered",
		"market", a.ConditionID,
		"usdc", a.UsdcSize,
		"total", rec.TotalUsdcSize,
		"trades", len(rec.Trades),
	)
}

// FlushReady devuelve las activities sintéticas cuya ventana expiró y borra
// sus registros. Los grupos que no alcanzan el mínimo se descartan. Si un
// flush sigue en curso, el tick no hace nada.
func (g *Aggregator) FlushReady() []domain.QueueActivity {
	if !g.flushing.CompareAndSwap(false, true) {
		return nil
	}
	defer g.flushing.Store(false)

	now := g.now()
	var out []domain.QueueActivity
	for key, rec := range g.records {
		if !rec.Ready(now, g.window) {
			continue
		}
		delete(g.records, key)

		if !rec.Meets(domain.MinTotalUSD) {
			g.logger.Info("aggregation below minimum, dropped",
				"market", rec.ConditionID,
				"total", rec.TotalUsdcSize,
				"trades", len(rec.Trades),
			)
			continue
		}
		out = append(out, rec.Synthetic())
	}
	return out
}

// Pending devuelve cuántos grupos siguen acumulando.
func (g *Aggregator) Pending() int { return len(g.records) }
