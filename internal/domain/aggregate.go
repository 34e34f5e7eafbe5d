package domain

import (
	"strings"
	"time"
)

// MinTotalUSD es el nocional mínimo que acepta el exchange por orden.
// Los BUY por debajo entran al buffer de agregación.
const MinTotalUSD = 1.00

// AggregationKey agrupa trades coalescibles: mismo líder, mercado, token y lado.
func AggregationKey(userAddress, conditionID, asset, side string) string {
	return strings.ToLower(userAddress + "|" + conditionID + "|" + asset + "|" + side)
}

// AggregatedTrade acumula BUYs pequeños de un mismo grupo hasta que la
// ventana de agregación expira.
type AggregatedTrade struct {
	UserAddress    string
	ConditionID    string
	Asset          string
	Side           string
	Trades         []QueueActivity
	TotalUsdcSize  float64
	AveragePrice   float64 // media ponderada por nocional
	FirstTradeTime time.Time
	LastTradeTime  time.Time
}

// NewAggregatedTrade abre un registro de agregación con su primer trade.
func NewAggregatedTrade(a QueueActivity, now time.Time) *AggregatedTrade {
	t := &AggregatedTrade{
		UserAddress:    a.UserAddress,
		ConditionID:    a.ConditionID,
		Asset:          a.Asset,
		Side:           a.Side,
		FirstTradeTime: now,
	}
	t.Add(a, now)
	return t
}

// Add incorpora un trade y recalcula la media ponderada:
// averagePrice = Σ(usdcSize_i · price_i) / Σ(usdcSize_i).
func (t *AggregatedTrade) Add(a QueueActivity, now time.Time) {
	t.Trades = append(t.Trades, a)
	t.TotalUsdcSize += a.UsdcSize
	if t.TotalUsdcSize > 0 {
		var notional float64
		for _, tr := range t.Trades {
			notional += tr.UsdcSize * tr.Price
		}
		t.AveragePrice = notional / t.TotalUsdcSize
	}
	t.LastTradeTime = now
}

// Ready indica si la ventana expiró para este registro.
func (t *AggregatedTrade) Ready(now time.Time, window time.Duration) bool {
	return now.Sub(t.FirstTradeTime) >= window
}

// Meets indica si el total acumulado alcanza el mínimo del exchange.
func (t *AggregatedTrade) Meets(minUSD float64) bool {
	return t.TotalUsdcSize >= minUSD
}

// Synthetic construye la activity agregada para enviar como una sola orden.
// Hereda los campos del primer trade y sustituye los valores agregados.
func (t *AggregatedTrade) Synthetic() QueueActivity {
	a := t.Trades[0]
	a.UsdcSize = t.TotalUsdcSize
	a.Price = t.AveragePrice
	if t.AveragePrice > 0 {
		a.Size = t.TotalUsdcSize / t.AveragePrice
	}
	a.Side = t.Side
	a.AggregatedFrom = len(t.Trades)
	return a
}
