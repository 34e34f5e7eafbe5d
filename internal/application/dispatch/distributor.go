package dispatch

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// ErrBacklogFull se devuelve cuando el backlog tiene límite y está lleno.
var ErrBacklogFull = errors.New("dispatch: backlog full")

type endpoint struct {
	id   string
	sink Sink
}

// Distributor reparte activities a los workers registrados por round-robin.
// Sin workers registrados, encola en un backlog FIFO que se drena al
// registrarse el primero. El registro solo se muta desde el supervisor.
type Distributor struct {
	mu         sync.Mutex
	registry   []endpoint
	next       uint64 // contador round-robin, solo avanza
	backlog    []domain.QueueActivity
	maxBacklog int // 0 = sin límite
	logger     *slog.Logger
}

// NewDistributor crea el distribuidor. maxBacklog 0 deja el backlog sin límite.
func NewDistributor(maxBacklog int, logger *slog.Logger) *Distributor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Distributor{
		maxBacklog: maxBacklog,
		logger:     logger.With("component", "distributor"),
	}
}

// Register añade un worker y drena el backlog pendiente por round-robin.
func (d *Distributor) Register(id string, sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.registry = append(d.registry, endpoint{id: id, sink: sink})
	d.logger.Debug("worker registered", "worker", id, "workers", len(d.registry))

	for len(d.backlog) > 0 && len(d.registry) > 0 {
		a := d.backlog[0]
		d.backlog = d.backlog[1:]
		d.selectNext().Send(Message{Kind: KindActivity, Activity: a})
	}
}

// Unregister quita un worker y cierra su sink. Los mensajes ya entregados
// no se recuperan: el worker los drena antes de salir.
func (d *Distributor) Unregister(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, ep := range d.registry {
		if ep.id == id {
			d.registry = append(d.registry[:i], d.registry[i+1:]...)
			ep.sink.Close()
			d.logger.Debug("worker unregistered", "worker", id, "workers", len(d.registry))
			return
		}
	}
}

// Publish entrega la activity al siguiente worker por round-robin, o la
// encola si no hay ninguno. Solo falla con backlog acotado y lleno.
func (d *Distributor) Publish(a domain.QueueActivity) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.registry) == 0 {
		if d.maxBacklog > 0 && len(d.backlog) >= d.maxBacklog {
			return ErrBacklogFull
		}
		d.backlog = append(d.backlog, a)
		d.logger.Debug("no workers, backlogged", "backlog", len(d.backlog), "tx", a.TransactionHash)
		return nil
	}

	d.selectNext().Send(Message{Kind: KindActivity, Activity: a})
	return nil
}

// BroadcastShutdown envía el mensaje de apagado a todos los workers
// registrados en este momento.
func (d *Distributor) BroadcastShutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ep := range d.registry {
		ep.sink.Send(Message{Kind: KindShutdown})
	}
	d.logger.Debug("shutdown broadcast", "workers", len(d.registry))
}

// BacklogLen devuelve cuántas activities esperan a que haya un worker.
func (d *Distributor) BacklogLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.backlog)
}

// Workers devuelve el número de workers registrados.
func (d *Distributor) Workers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.registry)
}

// selectNext elige el endpoint round-robin y avanza el contador. El índice
// se toma módulo el tamaño actual del registro; altas y bajas no lo resetean,
// así que el reparto es equitativo a la larga, no estrictamente balanceado.
// Llamar con el lock tomado y registro no vacío.
func (d *Distributor) selectNext() Sink {
	ep := d.registry[d.next%uint64(len(d.registry))]
	d.next++
	return ep.sink
}
