package domain

import (
	"errors"
	"time"
)

// Modos y estados de un intento de copia.
const (
	ModeLive  = "live"
	ModePaper = "paper"

	StatusSubmitted = "submitted"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// ErrOrderSkipped la devuelve el submitter cuando decide no espejar un trade
// (sin posición propia que vender, tamaño bajo mínimo tras el sizing, etc.).
// No es un fallo: el worker lo registra como "skipped".
var ErrOrderSkipped = errors.New("order skipped")

// ExecutionRecord es el rastro de auditoría de un intento de copiar un trade.
type ExecutionRecord struct {
	ID             string
	Mode           string // "live" o "paper"
	Status         string // "submitted", "skipped" o "failed"
	Leader         string
	ConditionID    string
	Asset          string
	Title          string
	Side           string
	Price          float64
	Size           float64
	UsdcSize       float64
	AggregatedFrom int   // trades coalescidos detrás de esta orden, 0 si fue directa
	LatencyMS      int64 // timestamp del líder → orden enviada
	CreatedAt      time.Time
}

// ExecutionStats resume el histórico de ejecuciones persistido.
type ExecutionStats struct {
	Total         int
	Submitted     int
	Skipped       int
	Failed        int
	SubmittedUsdc float64 // Σ usdc de las órdenes enviadas
	AvgLatencyMS  float64 // latencia media de las enviadas
}

// CopyOrder es la petición que recibe el cliente CLOB para espejar un trade.
// El sizing vive en el cliente, no en el pipeline.
type CopyOrder struct {
	Side           string // "buy" o "sell"
	Activity       QueueActivity
	OwnPosition    *Position // posición propia en el mercado, nil si no existe
	LeaderPosition *Position // posición del líder en el mercado, nil si no existe
	OwnBalance     float64   // USDC disponible del operador
	LeaderValue    float64   // Σ currentValue de todas las posiciones del líder
	LeaderAddress  string
}
