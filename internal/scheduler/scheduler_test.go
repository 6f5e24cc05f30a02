package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement"
)

type staticSource struct {
	results []MarketResult
	err     error
	calls   atomic.Int32
}

func (s *staticSource) Resolved(context.Context) ([]MarketResult, error) {
	s.calls.Add(1)
	return s.results, s.err
}

type fakeSettler struct {
	mu       sync.Mutex
	calls    []settlement.Request
	failFor  map[string]error
	settled  map[string]int
	block    chan struct{}
	started  chan struct{}
	ctxErrAt []error
}

func (f *fakeSettler) SettleMarket(ctx context.Context, req settlement.Request) (settlement.Result, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	f.ctxErrAt = append(f.ctxErrAt, ctx.Err())
	if err := f.failFor[req.MarketID]; err != nil {
		return settlement.Result{MarketID: req.MarketID}, err
	}
	return settlement.Result{Success: true, MarketID: req.MarketID, SettledCount: f.settled[req.MarketID]}, nil
}

func (f *fakeSettler) markets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.MarketID)
	}
	return out
}

type setProcessed map[string]bool

func (p setProcessed) Processed(_ context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range ids {
		if p[id] {
			out[id] = true
		}
	}
	return out, nil
}

func TestRunCycleIsolatesMarketFailures(t *testing.T) {
	src := &staticSource{results: []MarketResult{
		{MarketID: "a", ResultCode: "HOME", Mode: settlement.ModeNormal},
		{MarketID: "b", ResultCode: "AWAY", Mode: settlement.ModeNormal},
		{MarketID: "c", Mode: settlement.ModeVoid},
	}}
	st := &fakeSettler{
		failFor: map[string]error{"a": &settlement.StorageError{Op: "find pending bets", Err: errors.New("db down")}},
		settled: map[string]int{"b": 3, "c": 2},
	}
	s := New(src, st, setProcessed{}, Config{Workers: 2}, zap.NewNop())

	rep := s.RunCycle(context.Background())
	assert.False(t, rep.Success)
	assert.Equal(t, 3, rep.Markets)
	assert.Equal(t, 5, rep.SettledCount)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "a", rep.Errors[0].MarketID)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, st.markets())

	for _, c := range st.calls {
		assert.Equal(t, settlement.TriggerScheduler, c.Trigger)
	}
}

func TestRunCycleSkipsProcessedAndDuplicates(t *testing.T) {
	src := &staticSource{results: []MarketResult{
		{MarketID: "a", ResultCode: "HOME", Mode: settlement.ModeNormal},
		{MarketID: "b", ResultCode: "HOME", Mode: settlement.ModeNormal},
		{MarketID: "b", ResultCode: "AWAY", Mode: settlement.ModeNormal},
	}}
	st := &fakeSettler{}
	s := New(src, st, setProcessed{"a": true}, Config{Workers: 4}, zap.NewNop())

	rep := s.RunCycle(context.Background())
	assert.True(t, rep.Success)
	assert.Equal(t, 2, rep.Markets)
	assert.Equal(t, 1, rep.Skipped)
	require.Equal(t, []string{"b"}, st.markets())
	assert.Equal(t, "HOME", st.calls[0].ResultCode)
}

func TestRunCycleFeedErrorSettlesNothing(t *testing.T) {
	src := &staticSource{err: ErrFeedUnavailable}
	st := &fakeSettler{}
	s := New(src, st, setProcessed{}, Config{}, zap.NewNop())

	rep := s.RunCycle(context.Background())
	assert.False(t, rep.Success)
	require.Len(t, rep.Errors, 1)
	assert.Empty(t, rep.Errors[0].MarketID)
	assert.Empty(t, st.markets())
	assert.Equal(t, int32(1), src.calls.Load(), "no in-cycle retry")
}

func TestRunCyclePanicInOneMarketIsContained(t *testing.T) {
	src := &staticSource{results: []MarketResult{
		{MarketID: "boom", ResultCode: "X", Mode: settlement.ModeNormal},
		{MarketID: "ok", ResultCode: "X", Mode: settlement.ModeNormal},
	}}
	s := New(src, panicky{"boom"}, setProcessed{}, Config{Workers: 1}, zap.NewNop())

	rep := s.RunCycle(context.Background())
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "boom", rep.Errors[0].MarketID)
	assert.Contains(t, rep.Errors[0].Error, "panic")
}

type panicky struct{ market string }

func (p panicky) SettleMarket(_ context.Context, req settlement.Request) (settlement.Result, error) {
	if req.MarketID == p.market {
		panic("unexpected nil")
	}
	return settlement.Result{Success: true, MarketID: req.MarketID}, nil
}

func TestStartRunsImmediatelyAndStopWaitsForInflight(t *testing.T) {
	src := &staticSource{results: []MarketResult{{MarketID: "a", ResultCode: "HOME", Mode: settlement.ModeNormal}}}
	st := &fakeSettler{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := New(src, st, setProcessed{}, Config{Interval: time.Hour, Workers: 1}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = s.Start(ctx)
		close(done)
	}()

	select {
	case <-st.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not start immediately")
	}

	// cancela com a liquidação em andamento
	cancel()

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before in-flight settlement finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(st.block)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	<-done

	require.Len(t, st.ctxErrAt, 1)
	assert.NoError(t, st.ctxErrAt[0], "in-flight settlement must not see the cancellation")
}

func TestStartTwiceFails(t *testing.T) {
	src := &staticSource{}
	s := New(src, &fakeSettler{}, setProcessed{}, Config{Interval: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = s.Start(ctx) }()
	require.Eventually(t, func() bool { return src.calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Error(t, s.Start(ctx))
	s.Stop()
}
