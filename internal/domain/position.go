package domain

// Position es una posición abierta según la Data API de posiciones.
type Position struct {
	ConditionID  string
	Asset        string // token id del outcome
	Title        string
	Size         float64 // tokens
	AvgPrice     float64
	InitialValue float64 // USDC invertido
	CurrentValue float64 // valor de mercado actual en USDC
	CurPrice     float64
	PercentPnl   float64
}

// PortfolioValue suma el valor de mercado de un conjunto de posiciones.
func PortfolioValue(positions []Position) float64 {
	var total float64
	for _, p := range positions {
		total += p.CurrentValue
	}
	return total
}

// FindByCondition devuelve la primera posición del mercado dado, o nil.
func FindByCondition(positions []Position, conditionID string) *Position {
	for i := range positions {
		if positions[i].ConditionID == conditionID {
			return &positions[i]
		}
	}
	return nil
}
