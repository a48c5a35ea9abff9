package game

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tycoonplay/tycoon-server-go/internal/game/action"
	"github.com/tycoonplay/tycoon-server-go/internal/game/attrs"
	"github.com/tycoonplay/tycoon-server-go/internal/game/events"
	"github.com/tycoonplay/tycoon-server-go/internal/game/sched"
	"github.com/tycoonplay/tycoon-server-go/internal/game/skill"
)

// RoleKind tags the concrete specialization of a role.
type RoleKind string

const (
	RoleKindPlayer RoleKind = "PLAYER"
	RoleKindNPC    RoleKind = "NPC"
)

// RoleState is the display/lifecycle state of a role.
type RoleState string

const (
	RoleStateIdle     RoleState = "IDLE"
	RoleStateMoving   RoleState = "MOVING"
	RoleStateThinking RoleState = "THINKING"
	RoleStateJailed   RoleState = "JAILED"
	RoleStateBankrupt RoleState = "BANKRUPT"
	RoleStateWinner   RoleState = "WINNER"
)

// NoTargetTile marks the absence of a movement target.
const NoTargetTile = -1

// PresentationProxy is the rendering-side counterpart of a role. The core
// never owns it; movement timing is delegated through it and animation
// playback is fire-and-forget.
type PresentationProxy interface {
	// MoveToTile plays the movement and returns when it completes.
	MoveToTile(roleID string, fromTile, toTile int) error
	PlayEffect(roleID, name string)
	PlayAnimation(roleID, name string)
}

// MoveParams describes one movement request.
type MoveParams struct {
	TargetTile int
	Animation  string
}

// RoleConfig seeds a role at initialization time.
type RoleConfig struct {
	ID         string
	Name       string
	TypeID     int
	StartTile  int
	Attributes map[attrs.Kind]int
	SkillIDs   []int
	CardIDs    []int
}

// Role is the base simulation entity shared by players and NPCs: identity,
// position, lifecycle state, an attribute store, skill and card collections
// and at most one in-flight action at a time.
type Role struct {
	id     string
	name   string
	kind   RoleKind
	typeID int

	state       RoleState
	currentTile int
	targetTile  int

	attributes *attrs.Store
	skills     []*skill.Skill
	cards      []int

	executor *action.Executor
	proxy    PresentationProxy

	bus    *events.Bus
	clock  *sched.Scheduler
	logger *zap.Logger

	config      RoleConfig
	initialized bool
	destroyed   bool
	moving      bool

	// Specialization hooks, set by Player/NPC constructors. Called after
	// the corresponding notification is emitted.
	onAttributeChanged func(kind attrs.Kind, oldValue, newValue int)
	onTileChanged      func(oldTile, newTile int)
}

// NewRole creates an uninitialized role shell. Initialize must be called
// before use.
func NewRole(kind RoleKind, bus *events.Bus, clock *sched.Scheduler, logger *zap.Logger) *Role {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Role{
		kind:       kind,
		state:      RoleStateIdle,
		targetTile: NoTargetTile,
		attributes: attrs.NewStore(),
		bus:        bus,
		clock:      clock,
		logger:     logger,
	}
}

// Initialize seeds the role from its config exactly once: identity,
// default attributes, skill instances issued by the registry and card ids.
func (r *Role) Initialize(cfg RoleConfig, registry *skill.Registry) error {
	if r.initialized {
		return fmt.Errorf("role %s already initialized", r.id)
	}
	if r.destroyed {
		return fmt.Errorf("role %s destroyed", r.id)
	}

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	r.config = cfg
	r.id = cfg.ID
	r.name = cfg.Name
	r.typeID = cfg.TypeID
	r.currentTile = cfg.StartTile
	r.targetTile = NoTargetTile

	r.seed(registry)

	r.executor = action.NewExecutor(r.id, r.bus, r.clock, r.logger)
	r.executor.SetKindStartHook(r.reflectActionKind)
	r.executor.SetKindEndHook(r.clearActionKind)

	r.initialized = true
	r.emit(events.NewEvent(events.EventRoleInitialized, r.id))
	r.logger.Debug("role initialized",
		zap.String("role", r.id),
		zap.String("kind", string(r.kind)),
		zap.Int("type_id", r.typeID),
	)
	return nil
}

// seed loads attributes, skills and cards from the stored config.
func (r *Role) seed(registry *skill.Registry) {
	for kind, value := range r.config.Attributes {
		r.attributes.SetPermanent(kind, value)
	}
	r.skills = r.skills[:0]
	if registry != nil {
		now := int64(0)
		if r.clock != nil {
			now = r.clock.Now()
		}
		for _, id := range r.config.SkillIDs {
			if instance := registry.Instance(r.id, id, now); instance != nil {
				r.skills = append(r.skills, instance)
			} else {
				r.logger.Warn("unknown skill id in role config",
					zap.String("role", r.id),
					zap.Int("skill", id),
				)
			}
		}
	}
	r.cards = append(r.cards[:0], r.config.CardIDs...)
}

// ID returns the unique role id.
func (r *Role) ID() string { return r.id }

// DisplayName returns the human-facing name.
func (r *Role) DisplayName() string { return r.name }

// Kind returns the specialization tag.
func (r *Role) Kind() RoleKind { return r.kind }

// TypeID returns the sub-config selector.
func (r *Role) TypeID() int { return r.typeID }

// State returns the current lifecycle state.
func (r *Role) State() RoleState { return r.state }

// CurrentTile returns the tile index the role stands on.
func (r *Role) CurrentTile() int { return r.currentTile }

// TargetTile returns the movement target, or NoTargetTile.
func (r *Role) TargetTile() int { return r.targetTile }

// Initialized reports whether Initialize has run.
func (r *Role) Initialized() bool { return r.initialized }

// Destroyed reports whether Destroy has run.
func (r *Role) Destroyed() bool { return r.destroyed }

// Skills returns the role's skill instances.
func (r *Role) Skills() []*skill.Skill { return r.skills }

// FindSkill returns the held instance for the skill id, or nil.
func (r *Role) FindSkill(skillID int) *skill.Skill {
	for _, s := range r.skills {
		if s.Def().ID == skillID {
			return s
		}
	}
	return nil
}

// Cards returns the owned card ids.
func (r *Role) Cards() []int { return r.cards }

// AddCard appends a card id to the collection.
func (r *Role) AddCard(cardID int) { r.cards = append(r.cards, cardID) }

// RemoveCard removes the first matching card id.
func (r *Role) RemoveCard(cardID int) bool {
	for i, id := range r.cards {
		if id == cardID {
			r.cards = append(r.cards[:i], r.cards[i+1:]...)
			return true
		}
	}
	return false
}

// Executor returns the role's action executor (nil before Initialize).
func (r *Role) Executor() *action.Executor { return r.executor }

// SetProxy attaches the presentation proxy. The proxy is opaque to the
// core and may be nil.
func (r *Role) SetProxy(proxy PresentationProxy) { r.proxy = proxy }

// Attributes exposes the raw store for snapshot/restore. Gameplay code
// goes through GetAttr/SetAttr/AddAttr so notifications fire.
func (r *Role) Attributes() *attrs.Store { return r.attributes }

// GetAttr returns the effective attribute value (permanent + temporary).
func (r *Role) GetAttr(kind attrs.Kind) int {
	return r.attributes.Get(kind)
}

// SetAttr replaces the permanent attribute value, emits AttributeChanged
// and invokes the specialization hook.
func (r *Role) SetAttr(kind attrs.Kind, value int) {
	oldValue := r.attributes.Get(kind)
	r.attributes.SetPermanent(kind, value)
	r.notifyAttr(kind, oldValue)
}

// AddAttr adjusts the permanent attribute value by delta.
func (r *Role) AddAttr(kind attrs.Kind, delta int) {
	oldValue := r.attributes.Get(kind)
	r.attributes.AddPermanent(kind, delta)
	r.notifyAttr(kind, oldValue)
}

// AddTemporaryAttr adjusts the temporary overlay by delta. Buffs and
// debuffs land here so the permanent layer stays untouched.
func (r *Role) AddTemporaryAttr(kind attrs.Kind, delta int) {
	oldValue := r.attributes.Get(kind)
	r.attributes.AddTemporary(kind, delta)
	r.notifyAttr(kind, oldValue)
}

// ClearTemporaryAttr drops the overlay for one kind.
func (r *Role) ClearTemporaryAttr(kind attrs.Kind) {
	oldValue := r.attributes.Get(kind)
	r.attributes.ClearTemporary(kind)
	r.notifyAttr(kind, oldValue)
}

func (r *Role) notifyAttr(kind attrs.Kind, oldValue int) {
	newValue := r.attributes.Get(kind)
	if newValue == oldValue {
		return
	}
	r.emit(events.NewAttributeEvent(r.id, string(kind), oldValue, newValue))
	if r.onAttributeChanged != nil {
		r.onAttributeChanged(kind, oldValue, newValue)
	}
}

// SetState transitions the display state and emits StateChanged. No
// transition table is enforced at this level.
func (r *Role) SetState(next RoleState) {
	if r.state == next {
		return
	}
	old := r.state
	r.state = next
	r.emit(events.NewStateEvent(r.id, string(old), string(next)))
}

// SetCurrentTile updates the position, emits PositionChanged and invokes
// the tile hook.
func (r *Role) SetCurrentTile(tileID int) {
	if tileID == r.currentTile {
		return
	}
	old := r.currentTile
	r.currentTile = tileID
	evt := events.NewEvent(events.EventRolePositionChanged, r.id)
	evt.OldValue = old
	evt.NewValue = tileID
	r.emit(evt)
	if r.onTileChanged != nil {
		r.onTileChanged(old, tileID)
	}
}

// CanMove reports whether the role may start moving: idle, not bankrupt,
// not jailed.
func (r *Role) CanMove() bool {
	return r.state == RoleStateIdle
}

// MoveTo moves the role to the target tile. Exactly one move may be in
// flight per role; a second call returns false immediately. Animation
// timing is delegated to the presentation proxy and awaited; any proxy
// failure reverts to Idle and returns false.
func (r *Role) MoveTo(params MoveParams) bool {
	if r.moving {
		return false
	}
	r.moving = true
	defer func() { r.moving = false }()

	r.targetTile = params.TargetTile
	r.SetState(RoleStateMoving)

	if r.proxy != nil {
		if err := r.proxy.MoveToTile(r.id, r.currentTile, params.TargetTile); err != nil {
			r.logger.Debug("move rejected by proxy",
				zap.String("role", r.id),
				zap.Int("target", params.TargetTile),
				zap.Error(err),
			)
			r.targetTile = NoTargetTile
			r.SetState(RoleStateIdle)
			return false
		}
	}

	r.SetCurrentTile(params.TargetTile)
	r.targetTile = NoTargetTile
	r.SetState(RoleStateIdle)
	return true
}

// reflectActionKind mirrors the running action kind into the display state.
func (r *Role) reflectActionKind(kind action.Kind) {
	switch kind {
	case action.KindMove:
		// MoveTo manages the Moving state itself.
	case action.KindUseSkill, action.KindUseCard, action.KindInteract:
		if r.state == RoleStateIdle {
			r.SetState(RoleStateThinking)
		}
	}
}

// clearActionKind restores Idle once the action mirrored by
// reflectActionKind finishes. Jailed/Bankrupt and the Moving state owned
// by MoveTo are left alone.
func (r *Role) clearActionKind(kind action.Kind) {
	switch kind {
	case action.KindUseSkill, action.KindUseCard, action.KindInteract:
		if r.state == RoleStateThinking {
			r.SetState(RoleStateIdle)
		}
	}
}

// Reset reinitializes attributes, state and collections in place for
// pooled reuse. Identity is preserved and no Destroyed event fires.
func (r *Role) Reset() {
	if !r.initialized || r.destroyed {
		return
	}
	if r.executor != nil {
		r.executor.CancelAll()
	}
	r.attributes.Reset()
	for kind, value := range r.config.Attributes {
		r.attributes.SetPermanent(kind, value)
	}
	for _, s := range r.skills {
		s.Reset()
	}
	r.cards = append(r.cards[:0], r.config.CardIDs...)
	r.state = RoleStateIdle
	r.currentTile = r.config.StartTile
	r.targetTile = NoTargetTile
	r.moving = false
	r.emit(events.NewEvent(events.EventRoleReset, r.id))
}

// Destroy tears the role down: pending actions are cancelled, collections
// and attributes cleared, the executor and proxy released. Idempotent.
func (r *Role) Destroy() {
	if r.destroyed {
		return
	}
	if r.executor != nil {
		r.executor.CancelAll()
		r.executor = nil
	}
	r.proxy = nil
	r.attributes.Reset()
	r.skills = nil
	r.cards = nil
	r.destroyed = true
	r.emit(events.NewEvent(events.EventRoleDestroyed, r.id))
	r.logger.Debug("role destroyed", zap.String("role", r.id))
}

func (r *Role) emit(evt events.Event) {
	if r.bus != nil {
		r.bus.Publish(evt)
	}
}
