package polymarket

// trading.go — Real order submission via Polymarket CLOB API.
//
// Implements ports.OrderSubmitter using AuthClient for L1/L2 auth. Copy
// orders go out as FAK (fill-and-kill) marketable limit orders: the goal is
// to mirror the leader's fill now, not to rest on the book earning spread.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"net/http"
	"net/url"

	gomodel "github.com/polymarket/go-order-utils/pkg/model"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// clobOrderRequest is the JSON body sent to POST /order.
type clobOrderRequest struct {
	Order     clobOrderBody `json:"order"`
	Owner     string        `json:"owner"`
	OrderType string        `json:"orderType"`
}

type clobOrderBody struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

type clobOrderResponse struct {
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	TakingAmount string `json:"takingAmount"`
	MakingAmount string `json:"makingAmount"`
	Status       string `json:"status"`
	Success      bool   `json:"success"`
}

type clobNegRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

// priceTolerance is how far past the touch the limit price goes, so the
// order still crosses if the book moves between the read and the submit.
const priceTolerance = 0.02

// Trader sizes and submits real CLOB orders mirroring a leader's trade.
type Trader struct {
	auth   *AuthClient
	logger *slog.Logger
}

// NewTrader creates a Trader on top of an authenticated CLOB client.
func NewTrader(auth *AuthClient, logger *slog.Logger) *Trader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trader{auth: auth, logger: logger.With("component", "trader")}
}

// SubmitOrder sizes the copy, picks a marketable limit price, signs the
// order and posts it FAK. Returns domain.ErrOrderSkipped (wrapped) when the
// trade should not be mirrored; any other error is a real failure.
func (t *Trader) SubmitOrder(ctx context.Context, order domain.CopyOrder) error {
	if err := t.auth.EnsureCreds(ctx); err != nil {
		return fmt.Errorf("trader: creds: %w", err)
	}

	a := order.Activity

	// Sizing primero: un skip no debe gastar requests de libro ni de neg-risk.
	var (
		side   gomodel.Side
		usdc   float64 // notional del BUY
		shares float64 // shares del SELL
	)
	switch order.Side {
	case "buy":
		side = gomodel.BUY
		n, err := buyNotional(order)
		if err != nil {
			return err
		}
		usdc = n
	case "sell":
		side = gomodel.SELL
		s, err := sellShares(order)
		if err != nil {
			return err
		}
		shares = s
	default:
		return fmt.Errorf("trader: unknown side %q", order.Side)
	}

	limit := t.limitPrice(ctx, a, order.Side)
	if side == gomodel.BUY {
		shares = usdc / limit
	} else if shares*limit < domain.MinTotalUSD {
		return fmt.Errorf("sell of %.2f shares at %.2f below exchange minimum: %w",
			shares, limit, domain.ErrOrderSkipped)
	}

	negRisk, err := t.IsNegRisk(ctx, a.Asset)
	if err != nil {
		return fmt.Errorf("trader: %w", err)
	}

	signed, err := t.auth.buildSignedOrder(a.Asset, side, limit, shares, negRisk)
	if err != nil {
		return fmt.Errorf("trader: sign: %w", err)
	}

	body := clobOrderRequest{
		Order: clobOrderBody{
			Salt:          json.Number(signed.Order.Salt.String()),
			Maker:         signed.Order.Maker.Hex(),
			Signer:        signed.Order.Signer.Hex(),
			Taker:         signed.Order.Taker.Hex(),
			TokenID:       a.Asset,
			MakerAmount:   signed.Order.MakerAmount.String(),
			TakerAmount:   signed.Order.TakerAmount.String(),
			Expiration:    signed.Order.Expiration.String(),
			Nonce:         signed.Order.Nonce.String(),
			FeeRateBps:    signed.Order.FeeRateBps.String(),
			Side:          sideWord(side),
			SignatureType: int(signed.Order.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     t.auth.credentials().APIKey,
		OrderType: "FAK",
	}

	var resp clobOrderResponse
	if err := t.auth.doL2(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		return fmt.Errorf("trader: post order: %w", err)
	}
	if !resp.Success || resp.ErrorMsg != "" {
		return fmt.Errorf("trader: clob rejected order: %s", resp.ErrorMsg)
	}

	t.logger.Info("order placed",
		"order_id", resp.OrderID,
		"status", resp.Status,
		"token", a.Asset,
		"side", order.Side,
		"limit", limit,
		"shares", shares,
		"taking", parseUSDC(resp.TakingAmount),
		"making", parseUSDC(resp.MakingAmount),
		"neg_risk", negRisk,
	)
	return nil
}

// buyNotional scales the leader's notional by ownBalance/leaderValue,
// floors it at the exchange minimum and caps it by available balance.
func buyNotional(order domain.CopyOrder) (float64, error) {
	if order.LeaderValue <= 0 {
		return 0, fmt.Errorf("leader portfolio value unavailable: %w", domain.ErrOrderSkipped)
	}

	usdc := order.Activity.UsdcSize * (order.OwnBalance / order.LeaderValue)
	if usdc < domain.MinTotalUSD {
		usdc = domain.MinTotalUSD
	}
	if usdc > order.OwnBalance {
		usdc = order.OwnBalance
	}
	if usdc < domain.MinTotalUSD {
		return 0, fmt.Errorf("balance %.2f below exchange minimum: %w",
			order.OwnBalance, domain.ErrOrderSkipped)
	}
	return usdc, nil
}

// sellShares mirrors the fraction of the position the leader just sold.
// The leader's reported position already reflects the sale, so the sold
// fraction is size/(remaining+size); a vanished position means full close.
func sellShares(order domain.CopyOrder) (float64, error) {
	own := order.OwnPosition
	if own == nil || own.Size <= 0 {
		return 0, fmt.Errorf("no own position to sell: %w", domain.ErrOrderSkipped)
	}

	a := order.Activity
	fraction := 1.0
	if lp := order.LeaderPosition; lp != nil && lp.Size > 0 {
		fraction = a.Size / (lp.Size + a.Size)
	}

	shares := own.Size * fraction
	if fraction >= 0.999 || shares > own.Size {
		shares = own.Size
	}
	return shares, nil
}

// limitPrice picks a marketable limit: cross the current best level plus a
// small tolerance. Falls back to the leader's fill price if the book is
// unavailable. Always rounded to cents and clamped to the valid range.
func (t *Trader) limitPrice(ctx context.Context, a domain.QueueActivity, side string) float64 {
	ref := a.Price
	if book, err := t.auth.FetchBook(ctx, a.Asset); err == nil {
		if side == "buy" {
			if ask := book.BestAsk(); ask > 0 {
				ref = ask
			}
		} else {
			if bid := book.BestBid(); bid > 0 {
				ref = bid
			}
		}
	} else {
		t.logger.Warn("book unavailable, pricing off leader fill",
			"token", a.Asset, "err", err)
	}

	if side == "buy" {
		ref += priceTolerance
	} else {
		ref -= priceTolerance
	}
	return clampPrice(math.Round(ref*100) / 100)
}

// clampPrice keeps a limit price inside the CLOB's valid (0,1) band.
func clampPrice(p float64) float64 {
	if p < 0.01 {
		return 0.01
	}
	if p > 0.99 {
		return 0.99
	}
	return p
}

// IsNegRisk queries the CLOB to determine if a token uses the NegRisk adapter.
func (t *Trader) IsNegRisk(ctx context.Context, tokenID string) (bool, error) {
	u := fmt.Sprintf("%s/neg-risk?token_id=%s", t.auth.clobBase, url.QueryEscape(tokenID))

	var resp clobNegRiskResponse
	if err := t.auth.get(ctx, t.auth.clobLimiter, u, &resp); err != nil {
		return false, fmt.Errorf("neg-risk check: %w", err)
	}
	return resp.NegRisk, nil
}

func sideWord(s gomodel.Side) string {
	if s == gomodel.SELL {
		return "SELL"
	}
	return "BUY"
}

// parseUSDC converts a micro-USDC string (e.g., "1000000") to USDC float.
func parseUSDC(s string) float64 {
	if s == "" {
		return 0
	}
	n := new(big.Int)
	n.SetString(s, 10)
	f, _ := new(big.Float).SetInt(n).Float64()
	return f / 1_000_000
}
