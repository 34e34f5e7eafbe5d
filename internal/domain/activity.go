package domain

import (
	"strconv"
	"strings"
	"time"
)

// Lados de un trade tal como los reporta el feed de actividad.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Activity es un trade individual de un líder según la Data API.
// Inmutable dentro del pipeline: se crea en el adapter y solo se lee.
type Activity struct {
	ProxyWallet     string
	Side            string  // "BUY" o "SELL"
	ConditionID     string  // identificador del mercado
	Asset           string  // token id del outcome
	Size            float64 // unidades de token
	UsdcSize        float64 // nocional en USDC
	Price           float64 // probabilidad en [0,1]
	TransactionHash string
	Title           string
	Slug            string
	EventSlug       string
	Outcome         string
	OutcomeIndex    int
	RawTimestamp    string // tal cual llega del feed; ver ParseActivityTime
}

// QueueActivity es una Activity aceptada por el monitor, anotada con los
// timestamps que necesita el executor. Se pasa por valor entre goroutines:
// solo contiene escalares y strings.
type QueueActivity struct {
	Activity
	UserAddress    string // dirección del líder consultada
	TimestampMS    int64  // timestamp del trade normalizado a milisegundos
	DetectedAtMS   int64  // wall clock del monitor al aceptarla
	AggregatedFrom int    // número de trades coalescidos si es sintética, 0 si no
}

// ParseActivityTime normaliza el timestamp del feed. Valores numéricos
// mayores que 1e12 se interpretan como milisegundos, el resto como segundos.
// Strings ISO-8601 se parsean directamente. Devuelve el cero de time.Time
// cuando no se puede interpretar.
func ParseActivityTime(raw string) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.Unix(n/1000, (n%1000)*int64(time.Millisecond))
		}
		return time.Unix(n, 0)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f > 1e12 {
			ms := int64(f)
			return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond))
		}
		sec := int64(f)
		nsec := int64((f - float64(sec)) * 1e9)
		return time.Unix(sec, nsec)
	}
	for _, layout := range []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02T15:04:05.000Z", "2006-01-02T15:04:05Z",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DedupKey calcula la identidad canónica de la activity para el cache de
// duplicados. Prefiere el hash de transacción; sin él usa una clave compuesta
// estable entre ciclos (el timestamp ya normalizado a ms).
func (a Activity) DedupKey(userAddress string, timestampMS int64) string {
	if a.TransactionHash != "" {
		return strings.ToLower(a.TransactionHash)
	}
	return strings.ToLower(strings.Join([]string{
		userAddress,
		a.ConditionID,
		strconv.FormatInt(timestampMS, 10),
		a.Side,
		strconv.FormatFloat(a.UsdcSize, 'f', -1, 64),
		strconv.FormatFloat(a.Price, 'f', -1, 64),
	}, "|"))
}
