package executor

// worker.go — loop de ejecución por worker.
//
// Cada worker consume su cola FIFO local: agrega los BUY sub-mínimo y espeja
// el resto contra el exchange (o contra el simulador en paper trading). Los
// errores nunca paran el loop; el siguiente ciclo del monitor reintenta solo.

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/polycopy/internal/application/dispatch"
	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

// Config controla el comportamiento de los workers del pool.
type Config struct {
	Workers            int
	SinkBuffer         int
	ProxyWallet        string
	AggregationEnabled bool
	AggregationWindow  time.Duration
	FlushInterval      time.Duration // tick del flusher de agregación
	PaperEnabled       bool
	PaperBalance       float64
	LookupTimeout      time.Duration // posiciones, saldo, títulos
	SubmitTimeout      time.Duration // envío de la orden
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.SinkBuffer <= 0 {
		c.SinkBuffer = 256
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 500 * time.Millisecond
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = 10 * time.Second
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 15 * time.Second
	}
	return c
}

// Worker es un executor del pool. Es dueño exclusivo de su cola, su buffer de
// agregación y su paper trader; no comparte estado mutable con nadie.
type Worker struct {
	id        string
	inbox     <-chan dispatch.Message
	cfg       Config
	agg       *Aggregator
	paper     *PaperTrader
	positions ports.PositionProvider
	submitter ports.OrderSubmitter
	titles    ports.TitleResolver
	store     ports.ExecutionStore
	logger    *slog.Logger
	received  atomic.Int64
}

// NewWorker crea un worker que lee de inbox. titles y store pueden ser nil.
func NewWorker(
	id string,
	inbox <-chan dispatch.Message,
	cfg Config,
	positions ports.PositionProvider,
	submitter ports.OrderSubmitter,
	titles ports.TitleResolver,
	store ports.ExecutionStore,
	logger *slog.Logger,
) *Worker {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("worker", id)

	w := &Worker{
		id:        id,
		inbox:     inbox,
		cfg:       cfg,
		agg:       NewAggregator(cfg.AggregationWindow, logger),
		positions: positions,
		submitter: submitter,
		titles:    titles,
		store:     store,
		logger:    logger,
	}
	if cfg.PaperEnabled {
		w.paper = NewPaperTrader(cfg.PaperBalance, logger)
	}
	return w
}

// Received devuelve cuántas activities ha sacado el worker de su cola.
func (w *Worker) Received() int64 { return w.received.Load() }

// Paper expone el simulador del worker (nil fuera de paper trading).
func (w *Worker) Paper() *PaperTrader { return w.paper }

// Run consume la cola local hasta el apagado: mensaje shutdown, cierre del
// inbox o cancelación del contexto. El flusher de agregación comparte el
// mismo loop, así que nunca hay dos ejecuciones simultáneas en un worker.
func (w *Worker) Run(ctx context.Context) {
	flush := time.NewTicker(w.cfg.FlushInterval)
	defer flush.Stop()

	w.logger.Info("worker started",
		"aggregation", w.cfg.AggregationEnabled,
		"paper", w.cfg.PaperEnabled,
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", "reason", "context cancelled")
			return

		case msg, ok := <-w.inbox:
			if !ok {
				w.logger.Info("worker stopped", "reason", "inbox closed")
				return
			}
			if msg.Kind == dispatch.KindShutdown {
				w.logger.Info("shutdown-ack")
				return
			}
			w.handle(ctx, msg.Activity)

		case <-flush.C:
			for _, syn := range w.agg.FlushReady() {
				w.execute(ctx, syn)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, a domain.QueueActivity) {
	w.received.Add(1)
	w.logger.Debug("received",
		"tx", a.TransactionHash, "side", a.Side, "usdc", a.UsdcSize)

	if w.cfg.AggregationEnabled && a.Side == domain.SideBuy && a.UsdcSize < domain.MinTotalUSD {
		w.agg.Add(a)
		return
	}
	w.execute(ctx, a)
}

// execute espeja una activity (directa o sintética). Las llamadas HTTP usan
// context.WithoutCancel: una orden en vuelo termina aunque llegue el apagado,
// acotada solo por su timeout.
func (w *Worker) execute(ctx context.Context, a domain.QueueActivity) {
	receivedAt := time.Now()
	feedLagMS := receivedAt.UnixMilli() - a.TimestampMS
	queueMS := receivedAt.UnixMilli() - a.DetectedAtMS

	if a.Title == "" && w.titles != nil {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.LookupTimeout)
		if title, err := w.titles.ResolveTitle(tctx, a.ConditionID); err == nil {
			a.Title = title
		}
		cancel()
	}

	if w.cfg.PaperEnabled {
		w.executePaper(ctx, a, feedLagMS, queueMS)
		return
	}
	w.executeLive(ctx, a, receivedAt, feedLagMS, queueMS)
}

func (w *Worker) executeLive(ctx context.Context, a domain.QueueActivity, receivedAt time.Time, feedLagMS, queueMS int64) {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.LookupTimeout)
	defer cancel()

	var (
		ownPositions    []domain.Position
		leaderPositions []domain.Position
		ownBalance      float64
	)
	g, gctx := errgroup.WithContext(fetchCtx)
	g.Go(func() error {
		var err error
		ownPositions, err = w.positions.FetchPositions(gctx, w.cfg.ProxyWallet)
		return err
	})
	g.Go(func() error {
		var err error
		leaderPositions, err = w.positions.FetchPositions(gctx, a.UserAddress)
		return err
	})
	g.Go(func() error {
		var err error
		ownBalance, err = w.positions.FetchBalance(gctx, w.cfg.ProxyWallet)
		return err
	})
	if err := g.Wait(); err != nil {
		w.logger.Error("position fetch failed, trade skipped",
			"market", a.ConditionID, "err", err)
		w.record(ctx, a, domain.ModeLive, domain.StatusFailed)
		return
	}
	fetchMS := time.Since(receivedAt).Milliseconds()

	order := domain.CopyOrder{
		Side:           strings.ToLower(a.Side),
		Activity:       a,
		OwnPosition:    domain.FindByCondition(ownPositions, a.ConditionID),
		LeaderPosition: domain.FindByCondition(leaderPositions, a.ConditionID),
		OwnBalance:     ownBalance,
		LeaderValue:    domain.PortfolioValue(leaderPositions),
		LeaderAddress:  a.UserAddress,
	}

	orderStart := time.Now()
	submitCtx, cancelSubmit := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.SubmitTimeout)
	defer cancelSubmit()

	if err := w.submitter.SubmitOrder(submitCtx, order); err != nil {
		if errors.Is(err, domain.ErrOrderSkipped) {
			w.logger.Info("trade not mirrored",
				"market", a.ConditionID, "side", order.Side, "reason", err)
			w.record(ctx, a, domain.ModeLive, domain.StatusSkipped)
			return
		}
		w.logger.Error("order submission failed",
			"market", a.ConditionID, "side", order.Side, "err", err)
		w.record(ctx, a, domain.ModeLive, domain.StatusFailed)
		return
	}

	w.logger.Info("trade copied",
		"leader", a.UserAddress,
		"market", a.ConditionID,
		"title", a.Title,
		"side", a.Side,
		"usdc", a.UsdcSize,
		"price", a.Price,
		"aggregated_from", a.AggregatedFrom,
		"feed_lag_ms", feedLagMS,
		"queue_ms", queueMS,
		"fetch_ms", fetchMS,
		"order_ms", time.Since(orderStart).Milliseconds(),
		"total_ms", time.Now().UnixMilli()-a.TimestampMS,
	)
	w.record(ctx, a, domain.ModeLive, domain.StatusSubmitted)
}

func (w *Worker) executePaper(ctx context.Context, a domain.QueueActivity, feedLagMS, queueMS int64) {
	if !w.paper.ExecuteTrade(a) {
		w.logger.Warn("paper trade refused",
			"market", a.ConditionID, "side", a.Side, "usdc", a.UsdcSize,
			"balance", w.paper.Balance())
		w.record(ctx, a, domain.ModePaper, domain.StatusSkipped)
		return
	}

	w.logger.Info("paper trade executed",
		"leader", a.UserAddress,
		"market", a.ConditionID,
		"title", a.Title,
		"side", a.Side,
		"usdc", a.UsdcSize,
		"price", a.Price,
		"aggregated_from", a.AggregatedFrom,
		"balance", w.paper.Balance(),
		"portfolio", w.paper.PortfolioValue(),
		"feed_lag_ms", feedLagMS,
		"queue_ms", queueMS,
		"total_ms", time.Now().UnixMilli()-a.TimestampMS,
	)
	w.record(ctx, a, domain.ModePaper, domain.StatusSubmitted)
}

func (w *Worker) record(ctx context.Context, a domain.QueueActivity, mode, status string) {
	if w.store == nil {
		return
	}
	rec := domain.ExecutionRecord{
		ID:             uuid.NewString(),
		Mode:           mode,
		Status:         status,
		Leader:         a.UserAddress,
		ConditionID:    a.ConditionID,
		Asset:          a.Asset,
		Title:          a.Title,
		Side:           a.Side,
		Price:          a.Price,
		Size:           a.Size,
		UsdcSize:       a.UsdcSize,
		AggregatedFrom: a.AggregatedFrom,
		LatencyMS:      time.Now().UnixMilli() - a.TimestampMS,
		CreatedAt:      time.Now(),
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.store.SaveExecution(saveCtx, rec); err != nil {
		w.logger.Warn("execution record save failed", "err", err)
	}
}
