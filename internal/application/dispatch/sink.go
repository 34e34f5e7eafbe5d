package dispatch

import "github.com/alejandrodnm/polycopy/internal/domain"

// Kinds de mensaje del plano de control de los workers.
const (
	KindActivity = "activity"
	KindShutdown = "shutdown"
)

const defaultSinkBuffer = 256

// Message viaja del distribuidor a un worker. Cruza la frontera por valor.
type Message struct {
	Kind     string
	Activity domain.QueueActivity // válido cuando Kind == KindActivity
}

// Sink es la capacidad mínima de un endpoint de worker: entregar mensajes
// y señalar que no habrá más. El worker no guarda referencia al distribuidor.
type Sink interface {
	// Send entrega un mensaje en orden FIFO. Bloquea si el worker va saturado.
	Send(msg Message)

	// Close señala fin de entrega; tras Close no se llama más a Send.
	Close()
}

// ChanSink es el sink en-proceso: un canal con buffer del que lee el worker.
type ChanSink struct {
	ch chan Message
}

// NewChanSink crea un sink con el buffer dado (256 si buffer <= 0).
func NewChanSink(buffer int) *ChanSink {
	if buffer <= 0 {
		buffer = defaultSinkBuffer
	}
	return &ChanSink{ch: make(chan Message, buffer)}
}

func (s *ChanSink) Send(msg Message) { s.ch <- msg }

func (s *ChanSink) Close() { close(s.ch) }

// C expone el lado de lectura para el loop del worker.
func (s *ChanSink) C() <-chan Message { return s.ch }
