package domain

// PaperPosition es el estado simulado de una posición durante paper trading.
// Invariantes: Size ≥ 0; AvgPrice = Invested/Size mientras Size > 0.
type PaperPosition struct {
	Asset    string
	Size     float64 // tokens
	Invested float64 // USDC aportado neto
	AvgPrice float64
}
