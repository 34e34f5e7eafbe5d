package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polycopy/internal/adapters/notify"
	"github.com/alejandrodnm/polycopy/internal/domain"
)

func TestConsole_NotifyCycle(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	err := n.NotifyCycle(context.Background(), domain.CycleStats{
		Cycle:      7,
		Addresses:  3,
		Fetched:    45,
		Published:  2,
		Duplicates: 40,
		TooOld:     3,
		Elapsed:    312 * time.Millisecond,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "cycle 7")
	assert.Contains(t, out, "45 fetched")
	assert.Contains(t, out, "2 published")
	assert.Contains(t, out, "40 dup")
	assert.Contains(t, out, "3 old")
	assert.Contains(t, out, "312ms")
	// Sin errores ni backlog no se imprimen esos campos
	assert.NotContains(t, out, "feed errors")
	assert.NotContains(t, out, "backlog")
}

func TestConsole_NotifyCycle_WithProblems(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	err := n.NotifyCycle(context.Background(), domain.CycleStats{
		Cycle:      8,
		Addresses:  3,
		Fetched:    10,
		Published:  1,
		Malformed:  2,
		FeedErrors: 1,
		Backlog:    4,
		Elapsed:    time.Second,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "2 malformed")
	assert.Contains(t, out, "1 feed errors")
	assert.Contains(t, out, "backlog 4")
}

func TestConsole_NotifyPositions_TableMode(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	leaders := map[string][]domain.Position{
		"0x1234567890abcdef1234567890abcdef12345678": {
			{
				ConditionID:  "0xc1",
				Asset:        "tok1",
				Title:        "Will it rain tomorrow?",
				Size:         120,
				AvgPrice:     0.55,
				CurPrice:     0.6,
				CurrentValue: 72,
				PercentPnl:   9.1,
			},
		},
	}

	err := n.NotifyPositions(context.Background(), leaders)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "leader positions")
	assert.Contains(t, out, "Will it rain tomorrow?")
	assert.Contains(t, out, "0x1234…5678")
	assert.Contains(t, out, "$72.00")
}

func TestConsole_NotifyPositions_CompactModeSilent(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	leaders := map[string][]domain.Position{
		"0xleader": {{ConditionID: "0xc1", Size: 10}},
	}

	err := n.NotifyPositions(context.Background(), leaders)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestConsole_PrintExecutions(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	stats := domain.ExecutionStats{
		Total: 3, Submitted: 2, Skipped: 1,
		SubmittedUsdc: 13.0, AvgLatencyMS: 850,
	}
	recs := []domain.ExecutionRecord{
		{
			Mode: domain.ModeLive, Status: domain.StatusSubmitted,
			Leader: "0x1234567890abcdef1234567890abcdef12345678",
			Title:  "Will X happen?", Side: "BUY",
			Price: 0.6, UsdcSize: 5, AggregatedFrom: 3,
			LatencyMS: 900, CreatedAt: time.Now(),
		},
		{
			Mode: domain.ModeLive, Status: domain.StatusSkipped,
			Leader:      "0x1234567890abcdef1234567890abcdef12345678",
			ConditionID: "0xcond1", Side: "SELL",
			Price: 0.4, UsdcSize: 2, CreatedAt: time.Now(),
		},
	}

	n.PrintExecutions(stats, recs)

	out := buf.String()
	assert.Contains(t, out, "3 total")
	assert.Contains(t, out, "2 submitted")
	assert.Contains(t, out, "$13.00 copied")
	assert.Contains(t, out, "Will X happen?")
	assert.Contains(t, out, "BUY")
	assert.Contains(t, out, "skipped")
}

func TestConsole_PrintExecutions_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	n.PrintExecutions(domain.ExecutionStats{}, nil)
	assert.Contains(t, buf.String(), "0 total")
}

func TestConsole_PrintPaperSummary(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	n.PrintPaperSummary(94.5, 5.5, map[string]domain.PaperPosition{
		"tok1": {Asset: "tok1", Size: 11, Invested: 5.5, AvgPrice: 0.5},
	})

	out := buf.String()
	assert.Contains(t, out, "$94.50")
	assert.Contains(t, out, "$5.50")
	assert.Contains(t, out, "tok1")
}
