package action

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tycoonplay/tycoon-server-go/internal/game/events"
	"github.com/tycoonplay/tycoon-server-go/internal/game/sched"
)

func newTestExecutor() (*Executor, *sched.Scheduler) {
	clock := sched.NewScheduler()
	return NewExecutor("role-1", events.NewBus(), clock, nil), clock
}

func TestExecuteRunsImmediatelyWhenIdle(t *testing.T) {
	exec, _ := newTestExecutor()

	ran := false
	result := exec.Execute(Request{Kind: KindInteract, Handler: func() error {
		ran = true
		return nil
	}})

	assert.True(t, result.Success)
	assert.True(t, ran)
	assert.Equal(t, StateReady, exec.State())
	assert.False(t, exec.IsExecuting())
}

func TestExecuteRejectsMissingHandler(t *testing.T) {
	exec, _ := newTestExecutor()
	result := exec.Execute(Request{Kind: KindMove})
	assert.False(t, result.Success)
}

func TestQueuedActionsRunInPriorityOrder(t *testing.T) {
	exec, clock := newTestExecutor()

	var order []Kind
	record := func(kind Kind) func() error {
		return func() error {
			order = append(order, kind)
			return nil
		}
	}

	// Hold the executor busy with a delayed Move so requests queue up.
	exec.Execute(Request{Kind: KindMove, Delay: 5, Handler: record(KindMove)})
	require.True(t, exec.IsExecuting())

	// Priorities: Move(5), UseSkill(10), Interact(8).
	exec.Execute(Request{Kind: KindMove, Handler: record(KindMove)})
	exec.Execute(Request{Kind: KindUseSkill, Handler: record(KindUseSkill)})
	exec.Execute(Request{Kind: KindInteract, Handler: record(KindInteract)})
	assert.Equal(t, 3, exec.QueueLen())

	clock.Advance(5)

	require.Len(t, order, 4)
	assert.Equal(t, []Kind{KindMove, KindUseSkill, KindInteract, KindMove}, order)
	assert.Equal(t, 0, exec.QueueLen())
}

func TestQueueTiesPreserveArrivalOrder(t *testing.T) {
	exec, clock := newTestExecutor()

	var order []string
	exec.Execute(Request{Kind: KindMove, Delay: 2, Handler: func() error { return nil }})

	for _, name := range []string{"first", "second", "third"} {
		name := name
		exec.Execute(Request{Kind: KindInteract, Handler: func() error {
			order = append(order, name)
			return nil
		}})
	}

	clock.Advance(2)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestQueueBoundRejects(t *testing.T) {
	exec, _ := newTestExecutor()
	exec.SetQueueLimit(2)

	exec.Execute(Request{Kind: KindMove, Delay: 10, Handler: func() error { return nil }})
	assert.True(t, exec.Execute(Request{Kind: KindIdle, Handler: func() error { return nil }}).Success)
	assert.True(t, exec.Execute(Request{Kind: KindIdle, Handler: func() error { return nil }}).Success)

	rejected := exec.Execute(Request{Kind: KindIdle, Handler: func() error { return nil }})
	assert.False(t, rejected.Success)
	assert.Contains(t, rejected.Message, "queue full")
}

func TestHandlerFailureReportsResult(t *testing.T) {
	exec, _ := newTestExecutor()

	var got Result
	exec.Execute(Request{
		Kind:    KindInteract,
		Handler: func() error { return errors.New("tile occupied") },
		OnDone:  func(r Result) { got = r },
	})

	assert.False(t, got.Success)
	assert.Equal(t, "tile occupied", got.Message)
	assert.Equal(t, StateReady, exec.State())
}

func TestCancelCurrentWhileIdleFails(t *testing.T) {
	exec, _ := newTestExecutor()
	assert.False(t, exec.CancelCurrent().Success)
}

func TestMoveIsNotInterruptible(t *testing.T) {
	exec, _ := newTestExecutor()

	exec.Execute(Request{Kind: KindMove, Delay: 10, Handler: func() error { return nil }})
	result := exec.CancelCurrent()
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "cannot be interrupted")
	assert.True(t, exec.IsExecuting())
}

func TestCancelDelayedInteract(t *testing.T) {
	exec, clock := newTestExecutor()

	ran := false
	var done Result
	exec.Execute(Request{
		Kind:    KindInteract,
		Delay:   10,
		Handler: func() error { ran = true; return nil },
		OnDone:  func(r Result) { done = r },
	})

	assert.True(t, exec.CancelCurrent().Success)
	clock.Advance(20)

	assert.False(t, ran)
	assert.False(t, done.Success)
	assert.False(t, exec.IsExecuting())
}

func TestCheckTimeoutCancelsOverrunningAction(t *testing.T) {
	exec, clock := newTestExecutor()
	exec.SetTimeoutTicks(50)

	ran := false
	exec.Execute(Request{Kind: KindMove, Delay: 100, Handler: func() error {
		ran = true
		return nil
	}})
	require.True(t, exec.IsExecuting())

	// Within the guard window nothing happens.
	clock.Advance(40)
	assert.True(t, exec.CheckTimeout().Success)
	assert.True(t, exec.IsExecuting())

	// Past the guard the stuck action is cancelled, Move or not.
	clock.Advance(20)
	result := exec.CheckTimeout()
	assert.True(t, result.Success)
	assert.Equal(t, "timed out", result.Message)
	assert.False(t, exec.IsExecuting())
	assert.False(t, ran)
}

func TestActionEventsEmitted(t *testing.T) {
	bus := events.NewBus()
	clock := sched.NewScheduler()
	exec := NewExecutor("role-1", bus, clock, nil)

	var seen []events.EventType
	bus.Subscribe(func(evt events.Event) { seen = append(seen, evt.Type) })

	exec.Execute(Request{Kind: KindUseCard, Handler: func() error { return nil }})

	assert.Equal(t, []events.EventType{events.EventActionStart, events.EventActionEnd}, seen)
}

func TestKindHooksBracketEveryAction(t *testing.T) {
	exec, clock := newTestExecutor()

	var calls []string
	exec.SetKindStartHook(func(kind Kind) { calls = append(calls, "start:"+string(kind)) })
	exec.SetKindEndHook(func(kind Kind) { calls = append(calls, "end:"+string(kind)) })

	exec.Execute(Request{Kind: KindInteract, Handler: func() error { return nil }})
	assert.Equal(t, []string{"start:INTERACT", "end:INTERACT"}, calls)

	// The end hook also fires for cancelled actions that never started.
	calls = nil
	exec.Execute(Request{Kind: KindUseCard, Delay: 5, Handler: func() error { return nil }})
	exec.CancelCurrent()
	clock.Advance(10)
	assert.Equal(t, []string{"end:USE_CARD"}, calls)
}

func TestCancelAllDropsQueue(t *testing.T) {
	exec, _ := newTestExecutor()

	exec.Execute(Request{Kind: KindInteract, Delay: 10, Handler: func() error { return nil }})
	exec.Execute(Request{Kind: KindIdle, Handler: func() error { return nil }})
	require.Equal(t, 1, exec.QueueLen())

	exec.CancelAll()
	assert.Equal(t, 0, exec.QueueLen())
	assert.False(t, exec.IsExecuting())
}
