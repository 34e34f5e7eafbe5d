package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/polycopy/internal/application/dispatch"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

// Pool arranca N workers idénticos, registra sus sinks en el distribuidor y
// espera a que todos confirmen el apagado.
type Pool struct {
	dist    *dispatch.Distributor
	workers []*Worker
	sinks   []*dispatch.ChanSink
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewPool construye los workers del pool. titles y store pueden ser nil.
func NewPool(
	cfg Config,
	dist *dispatch.Distributor,
	positions ports.PositionProvider,
	submitter ports.OrderSubmitter,
	titles ports.TitleResolver,
	store ports.ExecutionStore,
	logger *slog.Logger,
) *Pool {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{dist: dist, logger: logger}
	for i := 1; i <= cfg.Workers; i++ {
		id := fmt.Sprintf("worker-%d", i)
		sink := dispatch.NewChanSink(cfg.SinkBuffer)
		w := NewWorker(id, sink.C(), cfg, positions, submitter, titles, store, logger)
		p.workers = append(p.workers, w)
		p.sinks = append(p.sinks, sink)
	}
	return p
}

// Start lanza las goroutines de los workers y después registra sus sinks:
// el backlog acumulado se drena hacia lectores que ya están corriendo.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	for i, w := range p.workers {
		p.dist.Register(w.id, p.sinks[i])
	}
	p.logger.Info("executor pool started", "workers", len(p.workers))
}

// Shutdown difunde el mensaje de apagado y bloquea hasta que cada worker
// sale de su loop. Las órdenes en vuelo terminan acotadas por sus timeouts.
func (p *Pool) Shutdown() {
	p.dist.BroadcastShutdown()
	p.wg.Wait()
	p.logger.Info("executor pool stopped")
}

// Workers expone los workers del pool.
func (p *Pool) Workers() []*Worker { return p.workers }
