package bulk_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/mailshield/bulk"
	"github.com/prilive-com/mailshield/fault"
	"github.com/prilive-com/mailshield/internal/testutil"
	"github.com/prilive-com/mailshield/invoker"
)

var errBadEmail = fault.NewRemoteError("addSubscriber", 422, "invalid email")

// subscribe fails for the addresses in bad and echoes the index otherwise.
func subscribe(bad map[string]bool) func(testutil.Subscriber) invoker.Operation[string] {
	return func(s testutil.Subscriber) invoker.Operation[string] {
		return func(context.Context) (string, error) {
			if bad[s.Email] {
				return "", errBadEmail
			}
			return "id-" + s.Email, nil
		}
	}
}

func indexes(failed []bulk.ItemFailure) []int {
	out := make([]int, len(failed))
	for i, f := range failed {
		out[i] = f.Index
	}
	return out
}

func TestRun_IsolatesFailures(t *testing.T) {
	inv := testutil.NewRetryTestInvoker(t, &testutil.FakeSleeper{})
	subs := testutil.TestSubscribers(10)
	bad := map[string]bool{subs[2].Email: true, subs[5].Email: true}

	res := bulk.Run(context.Background(), inv, subs, subscribe(bad))

	require.Equal(t, 10, res.Len())
	assert.False(t, res.Aborted)
	assert.InDelta(t, 0.8, res.SuccessRate(), 1e-9)
	assert.Equal(t, []int{2, 5}, indexes(res.Failed))
	for _, f := range res.Failed {
		assert.Equal(t, fault.Validation, f.Failure.Kind)
		assert.Equal(t, 1, f.Failure.Attempts)
	}

	var want []bulk.Success[string]
	for i, s := range subs {
		if !bad[s.Email] {
			want = append(want, bulk.Success[string]{Index: i, Value: "id-" + s.Email})
		}
	}
	if diff := cmp.Diff(want, res.Succeeded); diff != "" {
		t.Errorf("Succeeded mismatch (-want +got):\n%s", diff)
	}

	_, err := uuid.Parse(res.RunID)
	assert.NoError(t, err)
}

func TestRun_KeepsInputOrderUnderConcurrency(t *testing.T) {
	inv := testutil.NewRetryTestInvoker(t, &testutil.FakeSleeper{})
	items := make([]int, 40)
	for i := range items {
		items[i] = i
	}

	res := bulk.Run(context.Background(), inv, items, func(n int) invoker.Operation[int] {
		return func(context.Context) (int, error) {
			time.Sleep(time.Duration(rand.IntN(3)) * time.Millisecond)
			if n%7 == 3 {
				return 0, errBadEmail
			}
			return n * n, nil
		}
	}, bulk.WithConcurrency(8))

	require.Equal(t, len(items), res.Len())
	for i := 1; i < len(res.Succeeded); i++ {
		assert.Less(t, res.Succeeded[i-1].Index, res.Succeeded[i].Index)
	}
	for _, s := range res.Succeeded {
		assert.Equal(t, s.Index*s.Index, s.Value)
	}
	assert.Equal(t, []int{3, 10, 17, 24, 31, 38}, indexes(res.Failed))
}

func TestRun_BoundsConcurrency(t *testing.T) {
	inv := testutil.NewRetryTestInvoker(t, &testutil.FakeSleeper{})
	var inFlight, peak atomic.Int32

	items := make([]struct{}, 24)
	res := bulk.Run(context.Background(), inv, items, func(struct{}) invoker.Operation[bool] {
		return func(context.Context) (bool, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)
			return true, nil
		}
	}, bulk.WithConcurrency(3))

	assert.Len(t, res.Succeeded, 24)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRun_AbortOnOpen(t *testing.T) {
	inv := testutil.NewBreakerTestInvoker(t, 2)
	spy := testutil.NewSpy(testutil.Fail[int](fault.NewRemoteError("addSubscriber", 503, "Service Unavailable")))

	items := make([]int, 10)
	res := bulk.Run(context.Background(), inv, items, func(int) invoker.Operation[int] {
		return spy.Call
	}, bulk.WithAbortOnOpen(true))

	assert.True(t, res.Aborted)
	assert.Empty(t, res.Succeeded)
	require.Len(t, res.Failed, 10, "every item is accounted for")
	assert.Equal(t, 2, spy.Calls())

	assert.Equal(t, fault.ServerError, res.Failed[0].Failure.Kind)
	assert.Equal(t, fault.ServerError, res.Failed[1].Failure.Kind)
	assert.True(t, res.Failed[2].Failure.IsCircuitOpen())
	assert.NotErrorIs(t, res.Failed[2].Failure, bulk.ErrAborted, "the item that saw the open circuit did start")
	for _, f := range res.Failed[3:] {
		assert.ErrorIs(t, f.Failure, bulk.ErrAborted)
		assert.True(t, f.Failure.IsCircuitOpen())
		assert.Equal(t, fault.Unknown, f.Failure.Kind)
	}

	tally := res.Tally()
	assert.Equal(t, 2, tally.ByKind[fault.ServerError])
	assert.Equal(t, 8, tally.CircuitOpen)
}

func TestRun_OpenCircuitWithoutAbort(t *testing.T) {
	inv := testutil.NewBreakerTestInvoker(t, 2)
	spy := testutil.NewSpy(testutil.Fail[int](fault.NewRemoteError("addSubscriber", 503, "Service Unavailable")))

	items := make([]int, 10)
	res := bulk.Run(context.Background(), inv, items, func(int) invoker.Operation[int] {
		return spy.Call
	})

	assert.False(t, res.Aborted)
	require.Len(t, res.Failed, 10)
	assert.Equal(t, 2, spy.Calls(), "open breaker never invokes the operation")
	for _, f := range res.Failed[2:] {
		assert.True(t, f.Failure.IsCircuitOpen())
		assert.NotErrorIs(t, f.Failure, bulk.ErrAborted)
	}
}

func TestRun_Cancellation(t *testing.T) {
	inv := testutil.NewRetryTestInvoker(t, &testutil.FakeSleeper{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	items := testutil.TestSubscribers(10)
	res := bulk.Run(ctx, inv, items, subscribe(nil), bulk.WithProgress(func(p bulk.Progress) {
		if p.Completed == 3 {
			cancel()
		}
	}))

	require.Equal(t, 10, res.Len())
	assert.Len(t, res.Succeeded, 3)
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9}, indexes(res.Failed))
	for _, f := range res.Failed {
		assert.True(t, f.Failure.IsCanceled())
		assert.ErrorIs(t, f.Failure, context.Canceled)
	}
	assert.False(t, res.Aborted)
}

func TestRun_DeadlineCancelsUnstartedItems(t *testing.T) {
	inv := testutil.NewRetryTestInvoker(t, &testutil.FakeSleeper{})
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	items := make([]int, 10)
	start := time.Now()
	res := bulk.Run(ctx, inv, items, func(int) invoker.Operation[int] {
		return testutil.NewSpy(testutil.Ok(1)).Call
	}, bulk.WithPacing(100*time.Millisecond))

	// Dispatch stops at the deadline, not when the next slot would miss it.
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	require.Equal(t, 10, res.Len())
	assert.NotEmpty(t, res.Succeeded)
	assert.GreaterOrEqual(t, len(res.Failed), 5)
	for _, f := range res.Failed {
		assert.True(t, f.Failure.IsCanceled(), "item %d", f.Index)
		assert.ErrorIs(t, f.Failure, context.DeadlineExceeded)
	}
	assert.False(t, res.Aborted)
}

func TestRun_RateLimitHoldsLaterItems(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.MaxAttempts = 1
	inv := testutil.NewTestInvoker(t, cfg, &testutil.FakeSleeper{})
	pacerSleeper := &testutil.FakeSleeper{}

	spy := testutil.NewSpy(
		testutil.Fail[int](fault.NewRemoteErrorWithRetry("addSubscriber", 429, "Too many requests", 5*time.Second)),
		testutil.Ok(1),
	)
	items := make([]int, 3)
	res := bulk.Run(context.Background(), inv, items, func(int) invoker.Operation[int] {
		return spy.Call
	}, bulk.WithPacing(0), bulk.WithSleeper(pacerSleeper))

	assert.Len(t, res.Succeeded, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, fault.RateLimited, res.Failed[0].Failure.Kind)

	require.Equal(t, 1, pacerSleeper.CallCount(), "the hold is served once")
	assert.InDelta(t, float64(5*time.Second), float64(pacerSleeper.LastCall()), float64(100*time.Millisecond))
}

func TestRun_Pacing(t *testing.T) {
	inv := testutil.NewRetryTestInvoker(t, &testutil.FakeSleeper{})
	items := make([]int, 4)

	start := time.Now()
	res := bulk.Run(context.Background(), inv, items, func(int) invoker.Operation[int] {
		return testutil.NewSpy(testutil.Ok(1)).Call
	}, bulk.WithPacing(20*time.Millisecond))

	assert.Len(t, res.Succeeded, 4)
	// First item starts immediately, the next three wait one interval each.
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestRun_Progress(t *testing.T) {
	inv := testutil.NewRetryTestInvoker(t, &testutil.FakeSleeper{})
	subs := testutil.TestSubscribers(5)
	bad := map[string]bool{subs[1].Email: true}

	var reports []bulk.Progress
	res := bulk.Run(context.Background(), inv, subs, subscribe(bad), bulk.WithProgress(func(p bulk.Progress) {
		reports = append(reports, p)
	}))

	require.Len(t, reports, 5)
	for i, p := range reports {
		assert.Equal(t, i+1, p.Completed)
		assert.Equal(t, 5, p.Total)
		assert.Equal(t, res.RunID, p.RunID)
	}
	assert.Nil(t, reports[0].Failure)
	require.NotNil(t, reports[1].Failure)
	assert.Equal(t, fault.Validation, reports[1].Failure.Kind)
}

type fakeRecorder struct {
	mu        sync.Mutex
	items     []*fault.Failure
	runs      int
	succeeded int
	failed    int
}

func (r *fakeRecorder) RecordItem(_ string, f *fault.Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, f)
}

func (r *fakeRecorder) RecordRun(_ string, succeeded, failed int, _ bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	r.succeeded = succeeded
	r.failed = failed
}

func TestRun_Recorder(t *testing.T) {
	inv := testutil.NewRetryTestInvoker(t, &testutil.FakeSleeper{})
	subs := testutil.TestSubscribers(4)
	rec := &fakeRecorder{}

	bulk.Run(context.Background(), inv, subs, subscribe(map[string]bool{subs[3].Email: true}),
		bulk.WithRecorder(rec), bulk.WithConcurrency(2))

	assert.Len(t, rec.items, 4)
	assert.Equal(t, 1, rec.runs)
	assert.Equal(t, 3, rec.succeeded)
	assert.Equal(t, 1, rec.failed)
}

func TestRun_Empty(t *testing.T) {
	inv := testutil.NewRetryTestInvoker(t, &testutil.FakeSleeper{})
	called := false

	res := bulk.Run(context.Background(), inv, []string(nil), func(string) invoker.Operation[int] {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.Equal(t, 0, res.Len())
	assert.Zero(t, res.SuccessRate())
	assert.Nil(t, res.FirstFailures(5))
}

func TestResult_Helpers(t *testing.T) {
	res := &bulk.Result[string]{
		Succeeded: []bulk.Success[string]{{Index: 0, Value: "a"}, {Index: 3, Value: "d"}},
		Failed: []bulk.ItemFailure{
			{Index: 1, Failure: &fault.Failure{Kind: fault.Validation}},
			{Index: 2, Failure: &fault.Failure{Kind: fault.ServerError, Exhausted: true}},
			{Index: 4, Failure: fault.CircuitOpen("acumbamail", nil)},
		},
	}

	assert.Equal(t, 5, res.Len())
	assert.InDelta(t, 0.4, res.SuccessRate(), 1e-9)
	assert.Equal(t, []string{"a", "d"}, res.Values())
	assert.Equal(t, []int{1, 2}, indexes(res.FirstFailures(2)))
	assert.Len(t, res.FirstFailures(10), 3)

	tally := res.Tally()
	assert.Equal(t, 1, tally.ByKind[fault.Validation])
	assert.Equal(t, 1, tally.ByKind[fault.ServerError])
	assert.Equal(t, 1, tally.CircuitOpen)
	assert.Equal(t, 1, tally.Exhausted)
	assert.Equal(t, 3, tally.Total)
}

func TestAbortedFailureMatchesSentinels(t *testing.T) {
	inv := testutil.NewBreakerTestInvoker(t, 1)
	_, _ = invoker.Do(context.Background(), inv, testutil.NewSpy(testutil.Fail[int](errors.New("boom"))).Call)
	require.Equal(t, invoker.StateOpen, inv.State())

	res := bulk.Run(context.Background(), inv, make([]int, 3), func(int) invoker.Operation[int] {
		return testutil.NewSpy(testutil.Ok(1)).Call
	}, bulk.WithAbortOnOpen(true))

	require.Len(t, res.Failed, 3)
	assert.True(t, res.Aborted)
	assert.NotErrorIs(t, res.Failed[0].Failure, bulk.ErrAborted)
	assert.ErrorIs(t, res.Failed[1].Failure, bulk.ErrAborted)
	assert.ErrorIs(t, res.Failed[2].Failure, fault.ErrCircuitOpen)
}
