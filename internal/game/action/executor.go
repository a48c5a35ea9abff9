package action

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tycoonplay/tycoon-server-go/internal/game/events"
	"github.com/tycoonplay/tycoon-server-go/internal/game/sched"
)

// Kind describes the type of action a role can perform.
type Kind string

const (
	KindIdle     Kind = "IDLE"
	KindMove     Kind = "MOVE"
	KindInteract Kind = "INTERACT"
	KindUseSkill Kind = "USE_SKILL"
	KindUseCard  Kind = "USE_CARD"
)

// Fixed priority table for queued actions. Higher runs first.
var kindPriorities = map[Kind]int{
	KindUseSkill: 10,
	KindUseCard:  9,
	KindInteract: 8,
	KindMove:     5,
	KindIdle:     1,
}

// Priority returns the queue priority for the kind (unknown kinds get 0).
func (k Kind) Priority() int {
	return kindPriorities[k]
}

// Interruptible reports whether an in-flight action of this kind may be
// cancelled by CancelCurrent. Movement must run to completion.
func (k Kind) Interruptible() bool {
	return k != KindMove
}

// State describes the lifecycle of the current action.
type State string

const (
	StateReady     State = "READY"
	StateExecuting State = "EXECUTING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
)

// Result is the typed outcome of an executor operation. Failures carry a
// message; nothing in this package panics or returns an error type.
type Result struct {
	Success bool
	Message string
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Request describes one action to execute.
type Request struct {
	Kind     Kind
	Delay    int64 // ticks to wait before starting when the executor is idle
	Priority int   // overrides the kind priority when > 0
	Handler  func() error
	OnDone   func(Result) // invoked after the action finishes, if set
}

func (r Request) priority() int {
	if r.Priority > 0 {
		return r.Priority
	}
	return r.Kind.Priority()
}

type queuedRequest struct {
	req      Request
	priority int
	seq      int64
}

// DefaultQueueLimit bounds the deferred-action backlog.
const DefaultQueueLimit = 8

// DefaultTimeoutTicks is the defensive guard against actions that never
// resolve. It is not a game rule.
const DefaultTimeoutTicks = 600

// Executor serializes actions for a single role: at most one action runs at
// a time, deferred requests wait in a bounded priority queue, and ties in
// priority preserve arrival order.
type Executor struct {
	ownerID      string
	bus          *events.Bus
	clock        *sched.Scheduler
	logger       *zap.Logger
	queueLimit   int
	timeoutTicks int64

	executing   bool
	state       State
	current     *Request
	startedTick int64
	delayHandle int

	queue   []queuedRequest
	nextSeq int64

	// onKindStart/onKindEnd let the owning role mirror the action kind
	// into its display state around the handler run.
	onKindStart func(Kind)
	onKindEnd   func(Kind)
}

// NewExecutor creates an idle executor for the given role.
func NewExecutor(ownerID string, bus *events.Bus, clock *sched.Scheduler, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		ownerID:      ownerID,
		bus:          bus,
		clock:        clock,
		logger:       logger,
		queueLimit:   DefaultQueueLimit,
		timeoutTicks: DefaultTimeoutTicks,
		state:        StateReady,
	}
}

// SetQueueLimit overrides the deferred-queue bound (minimum 1).
func (e *Executor) SetQueueLimit(limit int) {
	if limit >= 1 {
		e.queueLimit = limit
	}
}

// SetTimeoutTicks overrides the stuck-action guard.
func (e *Executor) SetTimeoutTicks(ticks int64) {
	if ticks > 0 {
		e.timeoutTicks = ticks
	}
}

// SetKindStartHook registers the owning role's display-state callback,
// invoked just before an action's handler runs.
func (e *Executor) SetKindStartHook(hook func(Kind)) {
	e.onKindStart = hook
}

// SetKindEndHook registers the counterpart callback, invoked after every
// action finishes (completed, failed or cancelled) and before the next
// queued request starts.
func (e *Executor) SetKindEndHook(hook func(Kind)) {
	e.onKindEnd = hook
}

// State returns the current action state.
func (e *Executor) State() State {
	return e.state
}

// CurrentKind returns the kind of the in-flight action, or KindIdle.
func (e *Executor) CurrentKind() Kind {
	if e.current == nil {
		return KindIdle
	}
	return e.current.Kind
}

// IsExecuting reports whether an action is in flight.
func (e *Executor) IsExecuting() bool {
	return e.executing
}

// QueueLen returns the number of deferred requests.
func (e *Executor) QueueLen() int {
	return len(e.queue)
}

// Execute runs the request now if the executor is idle, otherwise defers it
// into the priority queue. A full queue rejects the request.
func (e *Executor) Execute(req Request) Result {
	if req.Handler == nil {
		return failure("action %s has no handler", req.Kind)
	}

	if e.executing {
		if len(e.queue) >= e.queueLimit {
			return failure("action queue full (%d)", e.queueLimit)
		}
		e.nextSeq++
		e.queue = append(e.queue, queuedRequest{req: req, priority: req.priority(), seq: e.nextSeq})
		e.logger.Debug("action queued",
			zap.String("role", e.ownerID),
			zap.String("kind", string(req.Kind)),
			zap.Int("priority", req.priority()),
			zap.Int("queue_len", len(e.queue)),
		)
		return Result{Success: true, Message: "queued"}
	}

	// Reserve single-flight before any delay so a second Execute queues.
	e.executing = true
	e.current = &req
	if e.clock != nil {
		e.startedTick = e.clock.Now()
	}
	if req.Delay > 0 && e.clock != nil {
		e.delayHandle = e.clock.After(req.Delay, func() {
			e.delayHandle = 0
			e.startAction()
		})
		return Result{Success: true, Message: "scheduled"}
	}
	e.startAction()
	return Result{Success: true}
}

// startAction transitions to Executing, notifies the owner, runs the
// handler and finishes.
func (e *Executor) startAction() {
	req := e.current
	if req == nil {
		e.executing = false
		return
	}
	e.state = StateExecuting
	if e.clock != nil {
		e.startedTick = e.clock.Now()
	}
	if e.onKindStart != nil {
		e.onKindStart(req.Kind)
	}
	e.emit(events.EventActionStart, string(req.Kind))

	err := req.Handler()
	if e.current != req {
		// Handler cancelled itself via CancelCurrent; finish already ran.
		return
	}
	result := Result{Success: err == nil}
	if err != nil {
		result.Message = err.Error()
		e.state = StateFailed
		e.logger.Debug("action failed",
			zap.String("role", e.ownerID),
			zap.String("kind", string(req.Kind)),
			zap.Error(err),
		)
	} else {
		e.state = StateCompleted
	}
	e.finishAction(req, result)
}

// CancelCurrent cancels the in-flight action. Move actions are
// non-interruptible; cancelling while idle is a failure result.
func (e *Executor) CancelCurrent() Result {
	if !e.executing || e.current == nil {
		return failure("no action executing")
	}
	if !e.current.Kind.Interruptible() {
		return failure("action %s cannot be interrupted", e.current.Kind)
	}
	return e.cancel("cancelled")
}

// CheckTimeout cancels the current action when it has run past the timeout
// guard. Driven by an external scheduler tick; ignores interruptibility
// since a stuck Move is still stuck.
func (e *Executor) CheckTimeout() Result {
	if !e.executing || e.current == nil || e.clock == nil {
		return Result{Success: true}
	}
	if e.clock.Now()-e.startedTick <= e.timeoutTicks {
		return Result{Success: true}
	}
	e.logger.Warn("action timed out",
		zap.String("role", e.ownerID),
		zap.String("kind", string(e.current.Kind)),
		zap.Int64("started_tick", e.startedTick),
	)
	return e.cancel("timed out")
}

func (e *Executor) cancel(reason string) Result {
	req := e.current
	if e.delayHandle != 0 && e.clock != nil {
		e.clock.Cancel(e.delayHandle)
		e.delayHandle = 0
	}
	e.state = StateCancelled
	e.emit(events.EventActionCancelled, string(req.Kind))
	e.finishAction(req, failure("action %s %s", req.Kind, reason))
	return Result{Success: true, Message: reason}
}

// finishAction resets to idle, reports the result, emits ActionEnd and
// starts the next queued request, if any.
func (e *Executor) finishAction(req *Request, result Result) {
	e.emit(events.EventActionEnd, string(req.Kind))
	e.executing = false
	e.current = nil
	e.state = StateReady

	if e.onKindEnd != nil {
		e.onKindEnd(req.Kind)
	}

	if req.OnDone != nil {
		req.OnDone(result)
	}

	if next, ok := e.popNext(); ok {
		e.Execute(next)
	}
}

// popNext removes the highest-priority queued request; insertion order
// breaks ties.
func (e *Executor) popNext() (Request, bool) {
	if len(e.queue) == 0 {
		return Request{}, false
	}
	best := 0
	for i := 1; i < len(e.queue); i++ {
		q := e.queue[i]
		b := e.queue[best]
		if q.priority > b.priority || (q.priority == b.priority && q.seq < b.seq) {
			best = i
		}
	}
	req := e.queue[best].req
	e.queue = append(e.queue[:best], e.queue[best+1:]...)
	return req, true
}

// CancelAll drops the queue and cancels the current action regardless of
// interruptibility. Used on role destruction.
func (e *Executor) CancelAll() {
	e.queue = nil
	if e.executing && e.current != nil {
		e.cancel("cancelled")
	}
}

func (e *Executor) emit(eventType events.EventType, kind string) {
	if e.bus == nil {
		return
	}
	evt := events.NewEvent(eventType, e.ownerID)
	evt.Data = kind
	e.bus.Publish(evt)
}
