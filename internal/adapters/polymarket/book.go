package polymarket

import (
	"context"
	"fmt"
	"net/url"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const bookPath = "/book"

// FetchBook obtiene el libro de órdenes de un token. Lo usa el trader para
// poner el precio límite cruzando el spread real en vez de fiarse del precio
// al que ejecutó el líder.
func (c *Client) FetchBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	u := fmt.Sprintf("%s%s?token_id=%s", c.clobBase, bookPath, url.QueryEscape(tokenID))

	var resp bookResponse
	if err := c.get(ctx, c.clobLimiter, u, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("clob.FetchBook: %w", err)
	}
	return mapBook(resp), nil
}
