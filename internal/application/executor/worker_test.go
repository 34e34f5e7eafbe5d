package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/polycopy/internal/application/dispatch"
	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProxyWallet = "0xoperator"

type fakePositions struct {
	own     []domain.Position
	leader  []domain.Position
	balance float64
	err     error
}

func (f *fakePositions) FetchPositions(_ context.Context, addr string) ([]domain.Position, error) {
	if f.err != nil {
		return nil, f.err
	}
	if strings.EqualFold(addr, testProxyWallet) {
		return f.own, nil
	}
	return f.leader, nil
}

func (f *fakePositions) FetchBalance(_ context.Context, _ string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.balance, nil
}

type fakeSubmitter struct {
	mu     sync.Mutex
	orders []domain.CopyOrder
	err    error
}

func (f *fakeSubmitter) SubmitOrder(_ context.Context, o domain.CopyOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.orders = append(f.orders, o)
	return nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *fakeSubmitter) last() domain.CopyOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[len(f.orders)-1]
}

func queued(side, hash string, usdc, size, price float64) domain.QueueActivity {
	now := time.Now().UnixMilli()
	return domain.QueueActivity{
		Activity: domain.Activity{
			Side:            side,
			ConditionID:     "0xc1",
			Asset:           "tok1",
			UsdcSize:        usdc,
			Size:            size,
			Price:           price,
			TransactionHash: hash,
		},
		UserAddress:  "0xleader",
		TimestampMS:  now,
		DetectedAtMS: now,
	}
}

// runWorker lanza el worker y devuelve el sink de entrada y un canal cerrado
// cuando el loop termina.
func runWorker(t *testing.T, cfg Config, pos *fakePositions, sub *fakeSubmitter) (*Worker, *dispatch.ChanSink, <-chan struct{}) {
	t.Helper()
	cfg.ProxyWallet = testProxyWallet

	sink := dispatch.NewChanSink(16)
	w := NewWorker("worker-test", sink.C(), cfg, pos, sub, nil, nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(context.Background())
	}()
	return w, sink, done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_ExecutesLiveTrade(t *testing.T) {
	pos := &fakePositions{
		own:     []domain.Position{{ConditionID: "0xc1", Size: 5, CurrentValue: 3}},
		leader:  []domain.Position{{ConditionID: "0xc1", Size: 100, CurrentValue: 55}, {ConditionID: "0xc2", CurrentValue: 45}},
		balance: 250,
	}
	sub := &fakeSubmitter{}
	w, sink, done := runWorker(t, Config{}, pos, sub)

	sink.Send(dispatch.Message{Kind: dispatch.KindActivity, Activity: queued(domain.SideBuy, "0x01", 5, 10, 0.5)})
	sink.Send(dispatch.Message{Kind: dispatch.KindShutdown})
	waitDone(t, done)

	require.Equal(t, 1, sub.count())
	order := sub.last()
	assert.Equal(t, "buy", order.Side)
	assert.Equal(t, "0xleader", order.LeaderAddress)
	assert.InDelta(t, 250.0, order.OwnBalance, 1e-9)
	// el valor del líder es la suma de TODAS sus posiciones
	assert.InDelta(t, 100.0, order.LeaderValue, 1e-9)
	require.NotNil(t, order.OwnPosition)
	assert.InDelta(t, 5.0, order.OwnPosition.Size, 1e-9)
	require.NotNil(t, order.LeaderPosition)
	assert.InDelta(t, 100.0, order.LeaderPosition.Size, 1e-9)
	assert.Equal(t, int64(1), w.Received())
}

func TestWorker_ShutdownAck(t *testing.T) {
	_, sink, done := runWorker(t, Config{}, &fakePositions{}, &fakeSubmitter{})

	sink.Send(dispatch.Message{Kind: dispatch.KindShutdown})
	waitDone(t, done)
}

func TestWorker_InboxCloseStopsLoop(t *testing.T) {
	_, sink, done := runWorker(t, Config{}, &fakePositions{}, &fakeSubmitter{})

	sink.Close()
	waitDone(t, done)
}

func TestWorker_ContextCancelStopsLoop(t *testing.T) {
	sink := dispatch.NewChanSink(4)
	w := NewWorker("worker-test", sink.C(), Config{}, &fakePositions{}, &fakeSubmitter{}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	cancel()
	waitDone(t, done)
}

func TestWorker_RoutesSmallBuysToAggregation(t *testing.T) {
	sub := &fakeSubmitter{}
	cfg := Config{
		AggregationEnabled: true,
		AggregationWindow:  time.Hour,
		FlushInterval:      time.Hour,
	}
	w, sink, done := runWorker(t, cfg, &fakePositions{balance: 100}, sub)

	// BUY pequeño → buffer; BUY grande y SELL pequeño → ejecución directa
	sink.Send(dispatch.Message{Kind: dispatch.KindActivity, Activity: queued(domain.SideBuy, "0x01", 0.40, 0.8, 0.5)})
	sink.Send(dispatch.Message{Kind: dispatch.KindActivity, Activity: queued(domain.SideBuy, "0x02", 5, 10, 0.5)})
	sink.Send(dispatch.Message{Kind: dispatch.KindActivity, Activity: queued(domain.SideSell, "0x03", 0.40, 0.8, 0.5)})
	sink.Send(dispatch.Message{Kind: dispatch.KindShutdown})
	waitDone(t, done)

	assert.Equal(t, int64(3), w.Received())
	assert.Equal(t, 2, sub.count())
	assert.Equal(t, 1, w.agg.Pending())
}

func TestWorker_FlushSubmitsAggregate(t *testing.T) {
	sub := &fakeSubmitter{}
	cfg := Config{
		AggregationEnabled: true,
		AggregationWindow:  200 * time.Millisecond,
		FlushInterval:      10 * time.Millisecond,
	}
	_, sink, done := runWorker(t, cfg, &fakePositions{balance: 100}, sub)

	sink.Send(dispatch.Message{Kind: dispatch.KindActivity, Activity: queued(domain.SideBuy, "0x01", 0.40, 0.8, 0.5)})
	sink.Send(dispatch.Message{Kind: dispatch.KindActivity, Activity: queued(domain.SideBuy, "0x02", 0.30, 0.5, 0.6)})
	sink.Send(dispatch.Message{Kind: dispatch.KindActivity, Activity: queued(domain.SideBuy, "0x03", 0.40, 0.8, 0.5)})

	require.Eventually(t, func() bool { return sub.count() == 1 },
		3*time.Second, 10*time.Millisecond)

	order := sub.last()
	assert.Equal(t, "buy", order.Side)
	assert.InDelta(t, 1.10, order.Activity.UsdcSize, 1e-9)
	assert.InDelta(t, 0.5273, order.Activity.Price, 0.0001)
	assert.Equal(t, 3, order.Activity.AggregatedFrom)

	sink.Send(dispatch.Message{Kind: dispatch.KindShutdown})
	waitDone(t, done)
	assert.Equal(t, 1, sub.count())
}

func TestWorker_PaperModeNeverSubmits(t *testing.T) {
	sub := &fakeSubmitter{}
	cfg := Config{PaperEnabled: true, PaperBalance: 10}
	w, sink, done := runWorker(t, cfg, &fakePositions{}, sub)

	sink.Send(dispatch.Message{Kind: dispatch.KindActivity, Activity: queued(domain.SideBuy, "0x01", 6, 12, 0.5)})
	// segunda compra rechazada por saldo
	sink.Send(dispatch.Message{Kind: dispatch.KindActivity, Activity: queued(domain.SideBuy, "0x02", 6, 12, 0.5)})
	sink.Send(dispatch.Message{Kind: dispatch.KindShutdown})
	waitDone(t, done)

	assert.Equal(t, 0, sub.count())
	assert.Equal(t, int64(2), w.Received())
	assert.InDelta(t, 4.0, w.Paper().Balance(), 1e-9)
	assert.Len(t, w.Paper().Positions(), 1)
}

func TestWorker_SubmitErrorContinues(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("clob rejected")}
	w, sink, done := runWorker(t, Config{}, &fakePositions{balance: 50}, sub)

	sink.Send(dispatch.Message{Kind: dispatch.KindActivity, Activity: queued(domain.SideBuy, "0x01", 5, 10, 0.5)})
	sink.Send(dispatch.Message{Kind: dispatch.KindActivity, Activity: queued(domain.SideSell, "0x02", 5, 10, 0.5)})
	sink.Send(dispatch.Message{Kind: dispatch.KindShutdown})
	waitDone(t, done)

	// los fallos de envío no paran el loop
	assert.Equal(t, int64(2), w.Received())
	assert.Equal(t, 0, sub.count())
}

func TestWorker_FetchErrorSkipsTrade(t *testing.T) {
	sub := &fakeSubmitter{}
	pos := &fakePositions{err: errors.New("data-api timeout")}
	w, sink, done := runWorker(t, Config{}, pos, sub)

	sink.Send(dispatch.Message{Kind: dispatch.KindActivity, Activity: queued(domain.SideBuy, "0x01", 5, 10, 0.5)})
	sink.Send(dispatch.Message{Kind: dispatch.KindShutdown})
	waitDone(t, done)

	assert.Equal(t, int64(1), w.Received())
	assert.Equal(t, 0, sub.count())
}
