package dispatch

import (
	"fmt"
	"testing"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSink struct {
	msgs   []Message
	closed bool
}

func (s *recordSink) Send(msg Message) { s.msgs = append(s.msgs, msg) }
func (s *recordSink) Close()           { s.closed = true }

func txActivity(hash string) domain.QueueActivity {
	return domain.QueueActivity{
		Activity:    domain.Activity{TransactionHash: hash, Side: domain.SideBuy},
		UserAddress: "0xleader",
	}
}

func TestDistributor_RoundRobinEvenSplit(t *testing.T) {
	d := NewDistributor(0, nil)
	sinks := make([]*recordSink, 3)
	for i := range sinks {
		sinks[i] = &recordSink{}
		d.Register(fmt.Sprintf("w%d", i+1), sinks[i])
	}

	for i := 1; i <= 6; i++ {
		require.NoError(t, d.Publish(txActivity(fmt.Sprintf("0x0%d", i))))
	}

	total := 0
	for _, s := range sinks {
		assert.Len(t, s.msgs, 2)
		total += len(s.msgs)
	}
	assert.Equal(t, 6, total)

	// el reparto es por turnos: w1 recibe 0x01 y 0x04
	assert.Equal(t, "0x01", sinks[0].msgs[0].Activity.TransactionHash)
	assert.Equal(t, "0x04", sinks[0].msgs[1].Activity.TransactionHash)
}

func TestDistributor_PerWorkerFIFO(t *testing.T) {
	d := NewDistributor(0, nil)
	s := &recordSink{}
	d.Register("w1", s)

	for i := 1; i <= 4; i++ {
		require.NoError(t, d.Publish(txActivity(fmt.Sprintf("0x0%d", i))))
	}

	require.Len(t, s.msgs, 4)
	for i, msg := range s.msgs {
		assert.Equal(t, fmt.Sprintf("0x0%d", i+1), msg.Activity.TransactionHash)
	}
}

func TestDistributor_BacklogFlushOnRegister(t *testing.T) {
	d := NewDistributor(0, nil)

	require.NoError(t, d.Publish(txActivity("0xBUF")))
	assert.Equal(t, 1, d.BacklogLen())

	s := &recordSink{}
	d.Register("w1", s)

	assert.Equal(t, 0, d.BacklogLen())
	require.Len(t, s.msgs, 1)
	assert.Equal(t, "0xBUF", s.msgs[0].Activity.TransactionHash)
}

func TestDistributor_BacklogDrainsRoundRobin(t *testing.T) {
	d := NewDistributor(0, nil)
	for i := 1; i <= 4; i++ {
		require.NoError(t, d.Publish(txActivity(fmt.Sprintf("0x0%d", i))))
	}

	s := &recordSink{}
	d.Register("w1", s)

	// con un único worker, el drenaje le entrega todo en orden FIFO
	require.Len(t, s.msgs, 4)
	assert.Equal(t, "0x01", s.msgs[0].Activity.TransactionHash)
	assert.Equal(t, "0x04", s.msgs[3].Activity.TransactionHash)
}

func TestDistributor_UnregisterClosesSink(t *testing.T) {
	d := NewDistributor(0, nil)
	s1, s2 := &recordSink{}, &recordSink{}
	d.Register("w1", s1)
	d.Register("w2", s2)

	d.Unregister("w1")
	assert.True(t, s1.closed)
	assert.False(t, s2.closed)
	assert.Equal(t, 1, d.Workers())

	// lo publicado tras la baja va al worker que queda
	require.NoError(t, d.Publish(txActivity("0xAA")))
	assert.Empty(t, s1.msgs)
	assert.Len(t, s2.msgs, 1)
}

func TestDistributor_MembershipDoesNotResetIndex(t *testing.T) {
	d := NewDistributor(0, nil)
	s1, s2 := &recordSink{}, &recordSink{}
	d.Register("w1", s1)
	d.Register("w2", s2)

	require.NoError(t, d.Publish(txActivity("0x01"))) // w1
	d.Unregister("w1")
	require.NoError(t, d.Publish(txActivity("0x02")))
	require.NoError(t, d.Publish(txActivity("0x03")))

	// el contador sigue avanzando módulo el tamaño actual
	assert.Len(t, s1.msgs, 1)
	assert.Len(t, s2.msgs, 2)
}

func TestDistributor_BoundedBacklog(t *testing.T) {
	d := NewDistributor(2, nil)

	require.NoError(t, d.Publish(txActivity("0x01")))
	require.NoError(t, d.Publish(txActivity("0x02")))
	assert.ErrorIs(t, d.Publish(txActivity("0x03")), ErrBacklogFull)
	assert.Equal(t, 2, d.BacklogLen())
}

func TestDistributor_BroadcastShutdown(t *testing.T) {
	d := NewDistributor(0, nil)
	s1, s2 := &recordSink{}, &recordSink{}
	d.Register("w1", s1)
	d.Register("w2", s2)

	d.BroadcastShutdown()

	require.Len(t, s1.msgs, 1)
	require.Len(t, s2.msgs, 1)
	assert.Equal(t, KindShutdown, s1.msgs[0].Kind)
	assert.Equal(t, KindShutdown, s2.msgs[0].Kind)
}

func TestChanSink_SendAndClose(t *testing.T) {
	s := NewChanSink(4)
	s.Send(Message{Kind: KindActivity, Activity: txActivity("0x01")})
	s.Send(Message{Kind: KindShutdown})
	s.Close()

	var kinds []string
	for msg := range s.C() {
		kinds = append(kinds, msg.Kind)
	}
	assert.Equal(t, []string{KindActivity, KindShutdown}, kinds)
}
