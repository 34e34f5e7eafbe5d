package monitor

// monitor.go — sondeo periódico de la actividad de los líderes.
//
// Cada ciclo: GET del feed por dirección, normalización de timestamps, filtro
// de edad, dedup y publicación hacia el pool de workers. Todo corre en una
// sola goroutine; los errores de red saltan la dirección, nunca paran el loop.

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

// Config contiene la configuración del monitor.
type Config struct {
	Addresses     []string      // líderes a observar, en orden
	FetchInterval time.Duration // pausa entre ciclos
	TooOld        time.Duration // edad máxima de una activity
	DedupTTL      time.Duration
	DedupMax      int
	FeedTimeout   time.Duration // por llamada al feed
	PositionTTL   time.Duration
	Once          bool // un solo ciclo y salir
}

func (c Config) withDefaults() Config {
	if c.FetchInterval <= 0 {
		c.FetchInterval = 2 * time.Second
	}
	if c.FeedTimeout <= 0 {
		c.FeedTimeout = 15 * time.Second
	}
	return c
}

// Publisher entrega activities aceptadas al pool. Lo implementa el
// distribuidor; los tests inyectan grabadores.
type Publisher interface {
	Publish(a domain.QueueActivity) error
	BacklogLen() int
}

// Monitor es el productor del pipeline: detecta trades frescos de los
// líderes y los publica exactamente una vez.
type Monitor struct {
	cfg       Config
	feed      ports.ActivityProvider
	positions ports.PositionProvider
	publisher Publisher
	dedup     *DedupCache
	poscache  *PositionCache
	notifier  ports.Notifier
	cycles    int64
	now       func() time.Time
}

// New crea un Monitor con todas las dependencias inyectadas. positions y
// notifier pueden ser nil.
func New(
	cfg Config,
	feed ports.ActivityProvider,
	positions ports.PositionProvider,
	publisher Publisher,
	notifier ports.Notifier,
) *Monitor {
	cfg = cfg.withDefaults()
	return &Monitor{
		cfg:       cfg,
		feed:      feed,
		positions: positions,
		publisher: publisher,
		dedup:     NewDedupCache(cfg.DedupTTL, cfg.DedupMax),
		poscache:  NewPositionCache(cfg.PositionTTL),
		notifier:  notifier,
		now:       time.Now,
	}
}

// Run ejecuta el loop de sondeo hasta que el contexto se cancele.
// Con cfg.Once activo ejecuta un único ciclo y devuelve.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor starting",
		"leaders", len(m.cfg.Addresses),
		"interval", m.cfg.FetchInterval,
		"too_old", m.cfg.TooOld,
		"dedup_ttl", m.cfg.DedupTTL,
	)

	m.runCycle(ctx)
	if m.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(m.cfg.FetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor stopped")
			return nil
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve sus estadísticas.
func (m *Monitor) RunOnce(ctx context.Context) domain.CycleStats {
	return m.runCycle(ctx)
}

// runCycle sondea todas las direcciones, refresca posiciones y notifica.
func (m *Monitor) runCycle(ctx context.Context) domain.CycleStats {
	start := m.now()
	m.cycles++
	stats := domain.CycleStats{
		Cycle:     m.cycles,
		Addresses: len(m.cfg.Addresses),
	}

	for _, addr := range m.cfg.Addresses {
		fctx, cancel := context.WithTimeout(ctx, m.cfg.FeedTimeout)
		acts, err := m.feed.FetchActivity(fctx, addr)
		cancel()
		if err != nil {
			stats.FeedErrors++
			slog.Warn("activity fetch failed, address skipped", "leader", addr, "err", err)
			continue
		}
		stats.Fetched += len(acts)
		m.ingest(addr, acts, &stats)
	}

	// refresco best-effort: nunca afecta a lo ya publicado
	m.refreshPositions(ctx)

	stats.Backlog = m.publisher.BacklogLen()
	stats.Elapsed = m.now().Sub(start)

	if m.notifier != nil {
		if err := m.notifier.NotifyCycle(ctx, stats); err != nil {
			slog.Debug("notifier error", "err", err)
		}
	}

	slog.Info("cycle complete",
		"cycle", stats.Cycle,
		"fetched", stats.Fetched,
		"published", stats.Published,
		"duplicates", stats.Duplicates,
		"too_old", stats.TooOld,
		"malformed", stats.Malformed,
		"feed_errors", stats.FeedErrors,
		"backlog", stats.Backlog,
		"elapsed", stats.Elapsed.Round(time.Millisecond),
	)
	return stats
}

// ingest filtra y publica las activities de una dirección en el orden en que
// llegaron del feed. Cada una acaba en exactamente uno de: descartada por
// timestamp, por edad, por duplicada, o publicada una sola vez.
func (m *Monitor) ingest(addr string, acts []domain.Activity, stats *domain.CycleStats) {
	for _, a := range acts {
		ts := domain.ParseActivityTime(a.RawTimestamp)
		if ts.IsZero() {
			stats.Malformed++
			continue
		}
		tsMS := ts.UnixMilli()
		nowMS := m.now().UnixMilli()

		if nowMS-tsMS > m.cfg.TooOld.Milliseconds() {
			stats.TooOld++
			continue
		}

		if !m.dedup.CheckAndRemember(a.DedupKey(addr, tsMS)) {
			stats.Duplicates++
			continue
		}

		qa := domain.QueueActivity{
			Activity:     a,
			UserAddress:  addr,
			TimestampMS:  tsMS,
			DetectedAtMS: nowMS,
		}
		if err := m.publisher.Publish(qa); err != nil {
			slog.Warn("publish failed, activity dropped",
				"tx", a.TransactionHash, "err", err)
			continue
		}
		stats.Published++

		slog.Debug("activity published",
			"leader", addr,
			"tx", a.TransactionHash,
			"side", a.Side,
			"usdc", a.UsdcSize,
			"age_ms", nowMS-tsMS,
		)
	}
}

// refreshPositions actualiza el cache de posiciones de cada líder y lo pasa
// al notifier. Best-effort: cualquier fallo se ignora este ciclo.
func (m *Monitor) refreshPositions(ctx context.Context) {
	if m.positions == nil {
		return
	}
	for _, addr := range m.cfg.Addresses {
		fctx, cancel := context.WithTimeout(ctx, m.cfg.FeedTimeout)
		positions, err := m.positions.FetchPositions(fctx, addr)
		cancel()
		if err != nil {
			slog.Debug("position refresh failed", "leader", addr, "err", err)
			continue
		}
		m.poscache.Update(addr, positions)
	}

	if m.notifier != nil {
		if err := m.notifier.NotifyPositions(ctx, m.poscache.Snapshot()); err != nil {
			slog.Debug("notifier error", "err", err)
		}
	}
}
