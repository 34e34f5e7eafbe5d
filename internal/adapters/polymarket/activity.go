package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const (
	activityPath  = "/activity"
	activityLimit = 100 // suficiente para un ciclo de sondeo de pocos segundos
)

// FetchActivity devuelve los trades más recientes de una cuenta líder según
// la Data API pública. El feed los entrega en orden más reciente primero; el
// pipeline los publica tal cual llegan.
func (c *Client) FetchActivity(ctx context.Context, userAddress string) ([]domain.Activity, error) {
	acts, err := c.fetchActivityPage(ctx, userAddress, activityLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("data-api.FetchActivity: %w", err)
	}

	slog.Debug("activity fetched", "leader", userAddress, "count", len(acts))
	return acts, nil
}

// FetchActivityPage devuelve una página del histórico de trades de una
// cuenta. La usa el exportador CSV; el llamador avanza el offset según el
// tamaño real de la página devuelta, no según el limit pedido.
func (c *Client) FetchActivityPage(ctx context.Context, userAddress string, limit, offset int) ([]domain.Activity, error) {
	acts, err := c.fetchActivityPage(ctx, userAddress, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("data-api.FetchActivityPage: %w", err)
	}
	return acts, nil
}

func (c *Client) fetchActivityPage(ctx context.Context, userAddress string, limit, offset int) ([]domain.Activity, error) {
	u := fmt.Sprintf("%s%s?user=%s&type=TRADE&limit=%d&offset=%d",
		c.dataBase, activityPath, url.QueryEscape(userAddress), limit, offset)

	var resp []rawActivity
	if err := c.get(ctx, c.dataLimiter, u, &resp); err != nil {
		return nil, err
	}
	return mapActivities(resp), nil
}
