package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const gammaMarketsPath = "/markets"

type titleEntry struct {
	title string
	at    time.Time
}

// ResolveTitle devuelve el título humano de un mercado a partir de su
// condition id, consultando Gamma. Los resultados se cachean con TTL y las
// consultas concurrentes por la misma clave se colapsan en una sola request,
// así el logging de los workers nunca produce estampidas contra la API.
func (c *Client) ResolveTitle(ctx context.Context, conditionID string) (string, error) {
	if conditionID == "" {
		return "", nil
	}

	c.titleMu.Lock()
	if e, ok := c.titles[conditionID]; ok && time.Since(e.at) <= c.titleTTL {
		c.titleMu.Unlock()
		return e.title, nil
	}
	c.titleMu.Unlock()

	v, err, _ := c.titleSF.Do(conditionID, func() (any, error) {
		title, err := c.fetchTitle(ctx, conditionID)
		if err != nil {
			return "", err
		}
		c.titleMu.Lock()
		c.titles[conditionID] = titleEntry{title: title, at: time.Now()}
		c.titleMu.Unlock()
		return title, nil
	})
	if err != nil {
		return "", fmt.Errorf("gamma.ResolveTitle: %w", err)
	}
	return v.(string), nil
}

// fetchTitle consulta Gamma por un único condition id. Un mercado que Gamma
// no conoce no es un error: se cachea el título vacío.
func (c *Client) fetchTitle(ctx context.Context, conditionID string) (string, error) {
	u := fmt.Sprintf("%s%s?condition_ids=%s&limit=1", c.gammaBase, gammaMarketsPath, conditionID)

	var resp []gammaMarket
	if err := c.get(ctx, c.gammaLimiter, u, &resp); err != nil {
		return "", err
	}
	if len(resp) == 0 {
		slog.Debug("market unknown to gamma", "condition_id", conditionID)
		return "", nil
	}
	return resp[0].Question, nil
}
