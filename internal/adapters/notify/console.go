package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyCycle imprime el resumen de un ciclo del monitor en una línea.
func (c *Console) NotifyCycle(_ context.Context, stats domain.CycleStats) error {
	now := time.Now().Format("15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] cycle %d: %d addrs | %d fetched → %d published (%d dup, %d old)",
		now, stats.Cycle, stats.Addresses, stats.Fetched, stats.Published,
		stats.Duplicates, stats.TooOld)

	if stats.Malformed > 0 {
		fmt.Fprintf(&sb, " | %d malformed", stats.Malformed)
	}
	if stats.FeedErrors > 0 {
		fmt.Fprintf(&sb, " | %d feed errors", stats.FeedErrors)
	}
	if stats.Backlog > 0 {
		fmt.Fprintf(&sb, " | backlog %d", stats.Backlog)
	}
	fmt.Fprintf(&sb, " | %dms", stats.Elapsed.Milliseconds())

	fmt.Fprintln(c.out, sb.String())
	return nil
}

// NotifyPositions muestra las posiciones abiertas de cada líder. Solo en modo
// tabla — en modo compacto sería ruido en cada refresh.
func (c *Console) NotifyPositions(_ context.Context, leaders map[string][]domain.Position) error {
	if !c.table || len(leaders) == 0 {
		return nil
	}

	addrs := make([]string, 0, len(leaders))
	for addr := range leaders {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	fmt.Fprintf(c.out, "\n[%s] leader positions\n", time.Now().Format("15:04:05"))

	table := tablewriter.NewWriter(c.out)
	table.Header("Leader", "Market", "Size", "AvgPx", "CurPx", "Value", "PnL%")

	for _, addr := range addrs {
		positions := leaders[addr]
		for _, p := range positions {
			table.Append(
				shortAddr(addr),
				marketLabel(p),
				fmt.Sprintf("%.2f", p.Size),
				fmt.Sprintf("%.3f", p.AvgPrice),
				fmt.Sprintf("%.3f", p.CurPrice),
				fmt.Sprintf("$%.2f", p.CurrentValue),
				fmt.Sprintf("%+.1f", p.PercentPnl),
			)
		}
	}
	table.Render()

	for _, addr := range addrs {
		fmt.Fprintf(c.out, "  %s: %d positions, $%.2f total\n",
			shortAddr(addr), len(leaders[addr]), domain.PortfolioValue(leaders[addr]))
	}
	fmt.Fprintln(c.out)
	return nil
}

// PrintExecutions vuelca el histórico de ejecuciones al apagar: resumen
// agregado más las últimas filas del rastro de auditoría.
func (c *Console) PrintExecutions(stats domain.ExecutionStats, recs []domain.ExecutionRecord) {
	fmt.Fprintf(c.out, "\n=== EXECUTIONS — %d total: %d submitted, %d skipped, %d failed ===\n",
		stats.Total, stats.Submitted, stats.Skipped, stats.Failed)
	if stats.Submitted > 0 {
		fmt.Fprintf(c.out, "  $%.2f copied | avg latency %.0fms (leader fill → our order)\n",
			stats.SubmittedUsdc, stats.AvgLatencyMS)
	}
	if len(recs) == 0 {
		fmt.Fprintln(c.out)
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Mode", "Status", "Leader", "Market", "Side", "Px", "USDC", "Agg", "Lat ms")

	for _, rec := range recs {
		agg := "-"
		if rec.AggregatedFrom > 0 {
			agg = fmt.Sprintf("%d", rec.AggregatedFrom)
		}

		market := rec.Title
		if market == "" {
			market = rec.ConditionID
		}

		table.Append(
			rec.CreatedAt.Local().Format("15:04:05"),
			rec.Mode,
			rec.Status,
			shortAddr(rec.Leader),
			compactName(market, 38),
			rec.Side,
			fmt.Sprintf("%.3f", rec.Price),
			fmt.Sprintf("$%.2f", rec.UsdcSize),
			agg,
			fmt.Sprintf("%d", rec.LatencyMS),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// PrintPaperSummary imprime el estado final de los simuladores al apagar.
func (c *Console) PrintPaperSummary(balance, portfolio float64, positions map[string]domain.PaperPosition) {
	fmt.Fprintf(c.out, "\n=== PAPER — balance $%.2f | invested $%.2f | %d open positions ===\n",
		balance, portfolio, len(positions))
	if len(positions) == 0 {
		fmt.Fprintln(c.out)
		return
	}

	assets := make([]string, 0, len(positions))
	for asset := range positions {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	table := tablewriter.NewWriter(c.out)
	table.Header("Token", "Size", "AvgPx", "Invested")

	for _, asset := range assets {
		p := positions[asset]
		table.Append(
			truncate(asset, 20),
			fmt.Sprintf("%.2f", p.Size),
			fmt.Sprintf("%.3f", p.AvgPrice),
			fmt.Sprintf("$%.2f", p.Invested),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// --- helpers ---

func marketLabel(p domain.Position) string {
	if p.Title != "" {
		return truncate(p.Title, 38)
	}
	if len(p.ConditionID) > 14 {
		return p.ConditionID[:12] + "..."
	}
	return p.ConditionID
}

// shortAddr comprime una dirección 0x… para que quepa en una tabla.
func shortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
