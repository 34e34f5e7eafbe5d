package polymarket

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const (
	positionsPath = "/positions"

	// USDC.e en Polygon — el colateral del exchange.
	usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
)

var balanceOfABI abi.ABI

func init() {
	var err error
	balanceOfABI, err = abi.JSON(strings.NewReader(`[{
		"name":"balanceOf","type":"function",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]
	}]`))
	if err != nil {
		panic("balanceOf abi: " + err.Error())
	}
}

// FetchPositions devuelve las posiciones abiertas de una cuenta según la
// Data API pública.
func (c *Client) FetchPositions(ctx context.Context, address string) ([]domain.Position, error) {
	u := fmt.Sprintf("%s%s?user=%s", c.dataBase, positionsPath, url.QueryEscape(address))

	var resp []rawPosition
	if err := c.get(ctx, c.dataLimiter, u, &resp); err != nil {
		return nil, fmt.Errorf("data-api.FetchPositions: %w", err)
	}
	return mapPositions(resp), nil
}

// FetchBalance devuelve el saldo USDC.e on-chain de una dirección.
// Requiere ConnectChain previo; en paper trading nunca se llama.
func (c *Client) FetchBalance(ctx context.Context, address string) (float64, error) {
	if c.rpc == nil {
		return 0, fmt.Errorf("polymarket.FetchBalance: rpc not configured")
	}

	callData, err := balanceOfABI.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return 0, fmt.Errorf("polymarket.FetchBalance: pack: %w", err)
	}

	token := common.HexToAddress(usdcEAddress)
	result, err := c.rpc.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: callData,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("polymarket.FetchBalance: rpc call: %w", err)
	}

	vals, err := balanceOfABI.Unpack("balanceOf", result)
	if err != nil || len(vals) == 0 {
		return 0, fmt.Errorf("polymarket.FetchBalance: unpack: %w", err)
	}

	raw := vals[0].(*big.Int)
	bal, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), big.NewFloat(1e6)).Float64()
	return bal, nil
}
