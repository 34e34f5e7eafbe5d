package executor

import (
	"log/slog"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// PaperTrader simula el camino de órdenes en memoria: saldo USDC y posiciones
// por mercado. Cada worker es dueño de su instancia, no hay estado compartido.
type PaperTrader struct {
	balance   float64
	positions map[string]domain.PaperPosition // conditionId → posición
	logger    *slog.Logger
}

// NewPaperTrader crea el simulador con el saldo inicial dado.
func NewPaperTrader(initialBalance float64, logger *slog.Logger) *PaperTrader {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaperTrader{
		balance:   initialBalance,
		positions: make(map[string]domain.PaperPosition),
		logger:    logger,
	}
}

// Balance devuelve el saldo USDC simulado.
func (p *PaperTrader) Balance() float64 { return p.balance }

// PortfolioValue devuelve Σ invested: una marca conservadora que ignora el
// precio actual de mercado.
func (p *PaperTrader) PortfolioValue() float64 {
	var total float64
	for _, pos := range p.positions {
		total += pos.Invested
	}
	return total
}

// Positions devuelve una copia del estado simulado.
func (p *PaperTrader) Positions() map[string]domain.PaperPosition {
	out := make(map[string]domain.PaperPosition, len(p.positions))
	for k, v := range p.positions {
		out[k] = v
	}
	return out
}

// ExecuteTrade aplica el trade al estado simulado. Devuelve false si no hay
// saldo suficiente (BUY) o posición suficiente (SELL); en ese caso el estado
// no cambia.
func (p *PaperTrader) ExecuteTrade(a domain.QueueActivity) bool {
	switch a.Side {
	case domain.SideBuy:
		if a.UsdcSize > p.balance {
			p.logger.Debug("paper buy refused",
				"usdc", a.UsdcSize, "balance", p.balance, "market", a.ConditionID)
			return false
		}
		pos := p.positions[a.ConditionID]
		pos.Asset = a.Asset
		pos.Size += a.Size
		pos.Invested += a.UsdcSize
		if pos.Size > 0 {
			pos.AvgPrice = pos.Invested / pos.Size
		}
		p.positions[a.ConditionID] = pos
		p.balance -= a.UsdcSize
		return true

	case domain.SideSell:
		pos, ok := p.positions[a.ConditionID]
		if !ok || pos.Size < a.Size {
			p.logger.Debug("paper sell refused",
				"size", a.Size, "held", pos.Size, "market", a.ConditionID)
			return false
		}
		p.balance += a.UsdcSize
		pos.Invested -= a.Size * pos.AvgPrice
		pos.Size -= a.Size
		if pos.Size <= 1e-9 {
			delete(p.positions, a.ConditionID)
		} else {
			p.positions[a.ConditionID] = pos
		}
		return true
	}
	return false
}
