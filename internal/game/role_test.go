package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tycoonplay/tycoon-server-go/internal/game/action"
	"github.com/tycoonplay/tycoon-server-go/internal/game/attrs"
	"github.com/tycoonplay/tycoon-server-go/internal/game/events"
	"github.com/tycoonplay/tycoon-server-go/internal/game/sched"
	"github.com/tycoonplay/tycoon-server-go/internal/game/skill"
)

// stubProxy scripts presentation-side movement outcomes.
type stubProxy struct {
	moveErr error
	moves   int
	onMove  func()
}

func (s *stubProxy) MoveToTile(roleID string, fromTile, toTile int) error {
	s.moves++
	if s.onMove != nil {
		s.onMove()
	}
	return s.moveErr
}

func (s *stubProxy) PlayEffect(roleID, name string)    {}
func (s *stubProxy) PlayAnimation(roleID, name string) {}

func newTestRole(t *testing.T) (*Role, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	r := NewRole(RoleKindPlayer, bus, sched.NewScheduler(), nil)
	err := r.Initialize(RoleConfig{
		ID:        "role-1",
		Name:      "Tester",
		StartTile: 3,
		Attributes: map[attrs.Kind]int{
			attrs.KindMoney: 1000,
			attrs.KindLuck:  40,
		},
		CardIDs: []int{101, 102},
	}, nil)
	require.NoError(t, err)
	return r, bus
}

func TestInitializeAssignsIDWhenEmpty(t *testing.T) {
	r := NewRole(RoleKindNPC, nil, nil, nil)
	require.NoError(t, r.Initialize(RoleConfig{Name: "Anon"}, nil))
	assert.NotEmpty(t, r.ID())
	assert.True(t, r.Initialized())
}

func TestInitializeTwiceFails(t *testing.T) {
	r, _ := newTestRole(t)
	err := r.Initialize(RoleConfig{ID: "again"}, nil)
	assert.Error(t, err)
}

func TestGetAttrSumsPermanentAndTemporary(t *testing.T) {
	r, _ := newTestRole(t)

	assert.Equal(t, 40, r.GetAttr(attrs.KindLuck))
	r.AddTemporaryAttr(attrs.KindLuck, 20)
	assert.Equal(t, 60, r.GetAttr(attrs.KindLuck))

	r.ClearTemporaryAttr(attrs.KindLuck)
	assert.Equal(t, 40, r.GetAttr(attrs.KindLuck))
}

func TestAttributeChangeEmitsOncePerChange(t *testing.T) {
	r, bus := newTestRole(t)

	var changes []events.Event
	bus.SubscribeTyped(events.EventRoleAttributeChanged, func(evt events.Event) {
		changes = append(changes, evt)
	})

	r.SetAttr(attrs.KindMoney, 1500)
	require.Len(t, changes, 1)
	assert.Equal(t, 1000, changes[0].OldValue)
	assert.Equal(t, 1500, changes[0].NewValue)

	// Setting the same value again is silent.
	r.SetAttr(attrs.KindMoney, 1500)
	assert.Len(t, changes, 1)

	r.AddAttr(attrs.KindMoney, 0)
	assert.Len(t, changes, 1)
}

func TestSetStateEmitsTransition(t *testing.T) {
	r, bus := newTestRole(t)

	var seen []string
	bus.SubscribeTyped(events.EventRoleStateChanged, func(evt events.Event) {
		seen = append(seen, evt.Data)
	})

	r.SetState(RoleStateMoving)
	r.SetState(RoleStateMoving) // same state, no event
	r.SetState(RoleStateIdle)

	assert.Equal(t, []string{"IDLE->MOVING", "MOVING->IDLE"}, seen)
}

func TestMoveToUpdatesTile(t *testing.T) {
	r, bus := newTestRole(t)
	proxy := &stubProxy{}
	r.SetProxy(proxy)

	moved := false
	bus.SubscribeTyped(events.EventRolePositionChanged, func(evt events.Event) {
		moved = true
		assert.Equal(t, 3, evt.OldValue)
		assert.Equal(t, 8, evt.NewValue)
	})

	ok := r.MoveTo(MoveParams{TargetTile: 8})
	assert.True(t, ok)
	assert.Equal(t, 8, r.CurrentTile())
	assert.Equal(t, NoTargetTile, r.TargetTile())
	assert.Equal(t, RoleStateIdle, r.State())
	assert.Equal(t, 1, proxy.moves)
	assert.True(t, moved)
}

func TestMoveToProxyFailureReverts(t *testing.T) {
	r, _ := newTestRole(t)
	r.SetProxy(&stubProxy{moveErr: errors.New("path blocked")})

	ok := r.MoveTo(MoveParams{TargetTile: 8})
	assert.False(t, ok)
	assert.Equal(t, 3, r.CurrentTile())
	assert.Equal(t, NoTargetTile, r.TargetTile())
	assert.Equal(t, RoleStateIdle, r.State())
}

func TestMoveToSingleFlight(t *testing.T) {
	r, _ := newTestRole(t)

	var reentrant bool
	proxy := &stubProxy{}
	proxy.onMove = func() {
		// A second move issued mid-flight must be rejected.
		reentrant = r.MoveTo(MoveParams{TargetTile: 99})
	}
	r.SetProxy(proxy)

	assert.True(t, r.MoveTo(MoveParams{TargetTile: 8}))
	assert.False(t, reentrant)
	assert.Equal(t, 8, r.CurrentTile())
	assert.Equal(t, 1, proxy.moves)
}

func TestMoveToWithoutProxyCompletesDirectly(t *testing.T) {
	r, _ := newTestRole(t)
	assert.True(t, r.MoveTo(MoveParams{TargetTile: 5}))
	assert.Equal(t, 5, r.CurrentTile())
}

func TestCardCollection(t *testing.T) {
	r, _ := newTestRole(t)

	assert.Equal(t, []int{101, 102}, r.Cards())
	r.AddCard(103)
	assert.True(t, r.RemoveCard(102))
	assert.False(t, r.RemoveCard(102))
	assert.Equal(t, []int{101, 103}, r.Cards())
}

func TestSeedSkipsUnknownSkillIDs(t *testing.T) {
	registry := skill.NewRegistry(nil)
	registry.Register(skill.Config{ID: 1, Name: "Windfall"})

	r := NewRole(RoleKindPlayer, nil, nil, nil)
	require.NoError(t, r.Initialize(RoleConfig{
		ID:       "role-1",
		SkillIDs: []int{1, 42},
	}, registry))

	require.Len(t, r.Skills(), 1)
	assert.Equal(t, 1, r.Skills()[0].Def().ID)
	assert.NotNil(t, r.FindSkill(1))
	assert.Nil(t, r.FindSkill(42))
}

func TestResetRestoresSeededRole(t *testing.T) {
	r, bus := newTestRole(t)

	resets := 0
	bus.SubscribeTyped(events.EventRoleReset, func(events.Event) { resets++ })

	r.SetAttr(attrs.KindMoney, 50)
	r.AddTemporaryAttr(attrs.KindLuck, 99)
	r.SetCurrentTile(12)
	r.SetState(RoleStateThinking)
	r.RemoveCard(101)

	r.Reset()
	assert.Equal(t, 1000, r.GetAttr(attrs.KindMoney))
	assert.Equal(t, 40, r.GetAttr(attrs.KindLuck))
	assert.Equal(t, 3, r.CurrentTile())
	assert.Equal(t, RoleStateIdle, r.State())
	assert.Equal(t, []int{101, 102}, r.Cards())
	assert.Equal(t, 1, resets)
}

func TestDestroyIsIdempotent(t *testing.T) {
	r, bus := newTestRole(t)

	destroyed := 0
	bus.SubscribeTyped(events.EventRoleDestroyed, func(events.Event) { destroyed++ })

	r.Destroy()
	assert.True(t, r.Destroyed())
	assert.Nil(t, r.Executor())
	assert.Empty(t, r.Cards())
	assert.Equal(t, 0, r.GetAttr(attrs.KindMoney))

	r.Destroy()
	assert.Equal(t, 1, destroyed)

	// A destroyed role cannot be re-initialized.
	assert.Error(t, r.Initialize(RoleConfig{ID: "role-1"}, nil))
}

func TestExecutorReflectsActionKind(t *testing.T) {
	r, _ := newTestRole(t)
	require.NotNil(t, r.Executor())

	var during RoleState
	result := r.Executor().Execute(action.Request{
		Kind: action.KindInteract,
		Handler: func() error {
			during = r.State()
			return nil
		},
	})

	assert.True(t, result.Success)
	assert.Equal(t, RoleStateThinking, during)
}

func TestRoleIdleAgainAfterActionCompletes(t *testing.T) {
	r, _ := newTestRole(t)

	result := r.Executor().Execute(action.Request{
		Kind:    action.KindInteract,
		Handler: func() error { return nil },
	})
	require.True(t, result.Success)
	require.False(t, r.Executor().IsExecuting())

	assert.Equal(t, RoleStateIdle, r.State())
	assert.True(t, r.CanMove())

	// Same recovery after a failed action.
	r.Executor().Execute(action.Request{
		Kind:    action.KindUseCard,
		Handler: func() error { return errors.New("card rejected") },
	})
	assert.Equal(t, RoleStateIdle, r.State())
	assert.True(t, r.CanMove())
}

func TestRoleIdleAgainAfterActionCancelled(t *testing.T) {
	r, _ := newTestRole(t)

	r.Executor().Execute(action.Request{
		Kind:    action.KindInteract,
		Delay:   10,
		Handler: func() error { return nil },
	})
	require.True(t, r.Executor().CancelCurrent().Success)

	assert.Equal(t, RoleStateIdle, r.State())
	assert.True(t, r.CanMove())
}
