package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultDataBase  = "https://data-api.polymarket.com"
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Rate limits al 60% de los límites reales documentados.
	// Data API pública: 100/10s → 60/10s → 6/s
	dataRatePerSec = 6
	// Gamma /markets: 300/10s → 180/10s → 18/s
	gammaRatePerSec = 18
	// CLOB general (/order, /book, etc.): 9000/10s → 5400/10s → 540/s
	clobRatePerSec = 540

	defaultRetries = 3
	baseRetryWait  = 500 * time.Millisecond
)

// Client es el HTTP client de Polymarket con rate limiting y retries.
// Cubre la Data API (activity, positions), Gamma (títulos) y los endpoints
// públicos del CLOB; el saldo USDC se lee on-chain vía RPC opcional.
type Client struct {
	http         *http.Client
	dataBase     string
	clobBase     string
	gammaBase    string
	dataLimiter  *rate.Limiter
	gammaLimiter *rate.Limiter
	clobLimiter  *rate.Limiter
	retries      int

	rpc *ethclient.Client // nil hasta ConnectChain

	titleMu  sync.Mutex
	titles   map[string]titleEntry
	titleSF  singleflight.Group
	titleTTL time.Duration
}

// NewClient crea un Client con los base URLs dados. Los vacíos usan los URLs
// de producción; retries <= 0 usa el default.
func NewClient(dataBase, clobBase, gammaBase string, retries int) *Client {
	if dataBase == "" {
		dataBase = defaultDataBase
	}
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	if retries <= 0 {
		retries = defaultRetries
	}
	return &Client{
		// El timeout del transporte es el techo; cada llamada lleva su
		// propio deadline por contexto (feed 15s, lookups 10s).
		http:         &http.Client{Timeout: 15 * time.Second},
		dataBase:     dataBase,
		clobBase:     clobBase,
		gammaBase:    gammaBase,
		dataLimiter:  rate.NewLimiter(dataRatePerSec, 10),
		gammaLimiter: rate.NewLimiter(gammaRatePerSec, 10),
		clobLimiter:  rate.NewLimiter(clobRatePerSec, 50),
		retries:      retries,
		titles:       make(map[string]titleEntry),
		titleTTL:     10 * time.Minute,
	}
}

// ConnectChain abre la conexión RPC de Polygon que usa FetchBalance.
// Sin ella el cliente funciona igual para feed, posiciones y títulos.
func (c *Client) ConnectChain(rpcURL string) error {
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return fmt.Errorf("polymarket.ConnectChain: dial %q: %w", rpcURL, err)
	}
	c.rpc = rpc
	return nil
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, url string, body, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial y jitter.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == c.retries {
				return fmt.Errorf("request failed after %d retries: %w", c.retries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == c.retries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, c.retries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", c.retries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
