package executor

import (
	"testing"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paperTrade(side, cond string, usdc, size, price float64) domain.QueueActivity {
	return domain.QueueActivity{
		Activity: domain.Activity{
			Side:        side,
			ConditionID: cond,
			Asset:       "tok1",
			UsdcSize:    usdc,
			Size:        size,
			Price:       price,
		},
		UserAddress: "0xleader",
	}
}

func TestPaperTrader_BuyUpdatesState(t *testing.T) {
	p := NewPaperTrader(100, nil)

	require.True(t, p.ExecuteTrade(paperTrade(domain.SideBuy, "0xc1", 40, 80, 0.5)))

	assert.InDelta(t, 60.0, p.Balance(), 1e-9)
	pos := p.Positions()["0xc1"]
	assert.InDelta(t, 80.0, pos.Size, 1e-9)
	assert.InDelta(t, 40.0, pos.Invested, 1e-9)
	assert.InDelta(t, 0.5, pos.AvgPrice, 1e-9)

	// segunda compra a otro precio: el avg se recalcula sobre lo invertido
	require.True(t, p.ExecuteTrade(paperTrade(domain.SideBuy, "0xc1", 30, 50, 0.6)))
	pos = p.Positions()["0xc1"]
	assert.InDelta(t, 130.0, pos.Size, 1e-9)
	assert.InDelta(t, 70.0, pos.Invested, 1e-9)
	assert.InDelta(t, 70.0/130.0, pos.AvgPrice, 1e-9)

	// balance + Σ invested se conserva bajo BUY
	assert.InDelta(t, 100.0, p.Balance()+p.PortfolioValue(), 1e-9)
}

func TestPaperTrader_BuyRefusedWithoutBalance(t *testing.T) {
	p := NewPaperTrader(10, nil)

	assert.False(t, p.ExecuteTrade(paperTrade(domain.SideBuy, "0xc1", 10.01, 20, 0.5)))
	assert.InDelta(t, 10.0, p.Balance(), 1e-9)
	assert.Empty(t, p.Positions())

	// usdcSize == balance sí se acepta
	assert.True(t, p.ExecuteTrade(paperTrade(domain.SideBuy, "0xc1", 10, 20, 0.5)))
	assert.InDelta(t, 0.0, p.Balance(), 1e-9)
}

func TestPaperTrader_SellPartial(t *testing.T) {
	p := NewPaperTrader(100, nil)
	require.True(t, p.ExecuteTrade(paperTrade(domain.SideBuy, "0xc1", 40, 80, 0.5)))

	before := p.Balance() + p.PortfolioValue()

	// vende 40 tokens a 0.6: entra 24 USDC, salen 20 de coste base
	require.True(t, p.ExecuteTrade(paperTrade(domain.SideSell, "0xc1", 24, 40, 0.6)))

	assert.InDelta(t, 84.0, p.Balance(), 1e-9)
	pos := p.Positions()["0xc1"]
	assert.InDelta(t, 40.0, pos.Size, 1e-9)
	assert.InDelta(t, 20.0, pos.Invested, 1e-9)
	assert.InDelta(t, 0.5, pos.AvgPrice, 1e-9)

	// balance + Σ invested crece exactamente usdcSize − size·avgPrice
	assert.InDelta(t, 24.0-40.0*0.5, p.Balance()+p.PortfolioValue()-before, 1e-9)
}

func TestPaperTrader_SellFullDeletesPosition(t *testing.T) {
	p := NewPaperTrader(100, nil)
	require.True(t, p.ExecuteTrade(paperTrade(domain.SideBuy, "0xc1", 40, 80, 0.5)))

	require.True(t, p.ExecuteTrade(paperTrade(domain.SideSell, "0xc1", 48, 80, 0.6)))

	assert.InDelta(t, 108.0, p.Balance(), 1e-9)
	assert.Empty(t, p.Positions())
	assert.InDelta(t, 0.0, p.PortfolioValue(), 1e-9)
}

func TestPaperTrader_SellRefused(t *testing.T) {
	p := NewPaperTrader(100, nil)

	// sin posición
	assert.False(t, p.ExecuteTrade(paperTrade(domain.SideSell, "0xc1", 24, 40, 0.6)))

	// con posición insuficiente
	require.True(t, p.ExecuteTrade(paperTrade(domain.SideBuy, "0xc1", 40, 80, 0.5)))
	assert.False(t, p.ExecuteTrade(paperTrade(domain.SideSell, "0xc1", 60, 100, 0.6)))

	pos := p.Positions()["0xc1"]
	assert.InDelta(t, 80.0, pos.Size, 1e-9)
	assert.InDelta(t, 60.0, p.Balance(), 1e-9)
}

func TestPaperTrader_UnknownSideIgnored(t *testing.T) {
	p := NewPaperTrader(100, nil)
	assert.False(t, p.ExecuteTrade(paperTrade("REDEEM", "0xc1", 10, 10, 1.0)))
	assert.InDelta(t, 100.0, p.Balance(), 1e-9)
}
