package polymarket

import "encoding/json"

// DTOs raw de las APIs de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Data API ---

// rawActivity es un item de GET /activity. El timestamp llega como número
// (segundos o milisegundos) o como string ISO según la antigüedad del dato,
// así que se conserva crudo y lo normaliza el monitor.
type rawActivity struct {
	ProxyWallet     string          `json:"proxyWallet"`
	Side            string          `json:"side"`
	ConditionID     string          `json:"conditionId"`
	Asset           string          `json:"asset"`
	Size            json.Number     `json:"size"`
	UsdcSize        json.Number     `json:"usdcSize"`
	Price           json.Number     `json:"price"`
	Timestamp       json.RawMessage `json:"timestamp"`
	TransactionHash string          `json:"transactionHash"`
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	EventSlug       string          `json:"eventSlug"`
	Outcome         string          `json:"outcome"`
	OutcomeIndex    int             `json:"outcomeIndex"`
	Type            string          `json:"type"`
}

// rawPosition es un item de GET /positions.
type rawPosition struct {
	ConditionID  string      `json:"conditionId"`
	Asset        string      `json:"asset"`
	Title        string      `json:"title"`
	Size         json.Number `json:"size"`
	AvgPrice     json.Number `json:"avgPrice"`
	InitialValue json.Number `json:"initialValue"`
	CurrentValue json.Number `json:"currentValue"`
	CurPrice     json.Number `json:"curPrice"`
	PercentPnl   json.Number `json:"percentPnl"`
}

// --- Gamma API ---

// gammaMarket es la metadata mínima que pedimos a GET /markets de Gamma.
type gammaMarket struct {
	ConditionID string `json:"conditionId"`
	Question    string `json:"question"`
	Slug        string `json:"slug"`
}

// --- CLOB API ---

// bookResponse es la respuesta de GET /book para un token.
type bookResponse struct {
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
