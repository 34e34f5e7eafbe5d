package polymarket

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// mapActivities convierte los DTOs de /activity a domain.Activity.
func mapActivities(raw []rawActivity) []domain.Activity {
	acts := make([]domain.Activity, 0, len(raw))
	for _, r := range raw {
		acts = append(acts, mapActivity(r))
	}
	return acts
}

// mapActivity convierte un rawActivity a domain.Activity. El timestamp se
// propaga sin interpretar: normalizarlo es trabajo del monitor.
func mapActivity(r rawActivity) domain.Activity {
	price, _ := r.Price.Float64()
	size, _ := r.Size.Float64()
	usdc, _ := r.UsdcSize.Float64()

	return domain.Activity{
		ProxyWallet:     r.ProxyWallet,
		Side:            r.Side,
		ConditionID:     r.ConditionID,
		Asset:           r.Asset,
		Size:            size,
		UsdcSize:        usdc,
		Price:           price,
		TransactionHash: r.TransactionHash,
		Title:           r.Title,
		Slug:            r.Slug,
		EventSlug:       r.EventSlug,
		Outcome:         r.Outcome,
		OutcomeIndex:    r.OutcomeIndex,
		RawTimestamp:    rawTimestampString(r.Timestamp),
	}
}

// rawTimestampString deja el timestamp JSON como string plano: los números
// tal cual, los strings sin comillas.
func rawTimestampString(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		if s, err := strconv.Unquote(string(raw)); err == nil {
			return s
		}
	}
	return string(raw)
}

// mapPositions convierte los DTOs de /positions a domain.Position.
func mapPositions(raw []rawPosition) []domain.Position {
	positions := make([]domain.Position, 0, len(raw))
	for _, r := range raw {
		size, _ := r.Size.Float64()
		avg, _ := r.AvgPrice.Float64()
		initial, _ := r.InitialValue.Float64()
		current, _ := r.CurrentValue.Float64()
		cur, _ := r.CurPrice.Float64()
		pnl, _ := r.PercentPnl.Float64()

		positions = append(positions, domain.Position{
			ConditionID:  r.ConditionID,
			Asset:        r.Asset,
			Title:        r.Title,
			Size:         size,
			AvgPrice:     avg,
			InitialValue: initial,
			CurrentValue: current,
			CurPrice:     cur,
			PercentPnl:   pnl,
		})
	}
	return positions
}

// mapBook convierte la respuesta de /book a domain.OrderBook.
func mapBook(r bookResponse) domain.OrderBook {
	return domain.OrderBook{
		TokenID: r.AssetID,
		Bids:    mapBookEntries(r.Bids, false),
		Asks:    mapBookEntries(r.Asks, true),
	}
}

// mapBookEntries convierte entries raw a domain.BookEntry y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
func mapBookEntries(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price, _ := strconv.ParseFloat(r.Price, 64)
		size, _ := strconv.ParseFloat(r.Size, 64)
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})

	return entries
}
