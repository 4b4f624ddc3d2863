package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// recordingHub captures broadcast lines for assertions.
type recordingHub struct {
	mu    sync.Mutex
	lines []string
}

func (h *recordingHub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, string(msg))
}

func (h *recordingHub) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}

func TestRunner_EmptyCommandRejected(t *testing.T) {
	r := NewRunner(zap.NewNop(), &recordingHub{})

	err := r.Start(context.Background(), "backtest", nil)

	assert.ErrorIs(t, err, ErrNoCommand)
	assert.Empty(t, r.ActiveJob())
}

func TestRunner_StreamsOutputLines(t *testing.T) {
	hub := &recordingHub{}
	r := NewRunner(zap.NewNop(), hub)

	err := r.Start(context.Background(), "backtest", []string{"sh", "-c", "echo one; echo two"})
	assert.NoError(t, err)
	r.Wait()

	lines := hub.snapshot()
	assert.Contains(t, lines, "[backtest] started")
	assert.Contains(t, lines, "one")
	assert.Contains(t, lines, "two")
	assert.Contains(t, lines, "[backtest] finished")
	assert.Empty(t, r.ActiveJob())
}

func TestRunner_SecondStartRejectedWhileBusy(t *testing.T) {
	hub := &recordingHub{}
	r := NewRunner(zap.NewNop(), hub)

	assert.NoError(t, r.Start(context.Background(), "retrain", []string{"sh", "-c", "sleep 0.5"}))
	assert.Equal(t, "retrain", r.ActiveJob())

	err := r.Start(context.Background(), "backtest", []string{"sh", "-c", "echo nope"})
	assert.ErrorIs(t, err, ErrBusy)

	r.Wait()

	// The rejected job never produced output.
	assert.NotContains(t, hub.snapshot(), "nope")
}

func TestRunner_PermitReleasedAfterFailure(t *testing.T) {
	hub := &recordingHub{}
	r := NewRunner(zap.NewNop(), hub)

	assert.NoError(t, r.Start(context.Background(), "retrain", []string{"/nonexistent-binary"}))
	r.Wait()

	// A failed job must not leak the permit.
	assert.NoError(t, r.Start(context.Background(), "backtest", []string{"sh", "-c", "echo ok"}))
	r.Wait()

	assert.Contains(t, hub.snapshot(), "ok")
}

func TestRunner_CommandFailureBroadcast(t *testing.T) {
	hub := &recordingHub{}
	r := NewRunner(zap.NewNop(), hub)

	assert.NoError(t, r.Start(context.Background(), "backtest", []string{"sh", "-c", "exit 3"}))
	r.Wait()

	lines := hub.snapshot()
	assert.Contains(t, lines[len(lines)-1], "failed")
}
