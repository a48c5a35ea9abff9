package skill

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/tycoonplay/tycoon-server-go/internal/game/attrs"
	"github.com/tycoonplay/tycoon-server-go/internal/game/events"
	"github.com/tycoonplay/tycoon-server-go/internal/game/sched"
)

// Unit is the capability a skill needs from its caster or targets. Roles
// satisfy it; the skill package never depends on the game package.
type Unit interface {
	ID() string
	DisplayName() string
	GetAttr(attrs.Kind) int
	AddAttr(attrs.Kind, int)
	AddTemporaryAttr(attrs.Kind, int)
}

// Jailable is implemented by units whose jail sentence a JailEscape effect
// can clear.
type Jailable interface {
	ExitJail()
}

// Roster supplies concrete targets for list-scoped effects. The core does
// not own the player roster; the world (or a test double) provides it.
type Roster interface {
	Players() []Unit
	NPCs() []Unit
}

// Env bundles the collaborators a skill needs while resolving effects.
type Env struct {
	Bus    *events.Bus
	Clock  *sched.Scheduler
	Rand   *rand.Rand
	Roster Roster
	// OnComplete receives the final result of a cast-time use once the
	// wait elapses. Ignored for instant skills.
	OnComplete func(*UseResult)
}

// UseResult is the typed outcome of a Use call.
type UseResult struct {
	Success         bool
	Pending         bool // cast in progress; final result via Env.OnComplete
	Message         string
	SkillID         int
	AffectedTargets []string
	AppliedEffects  []string
	TriggeredEvents []events.EventType
}

func useFailure(id int, format string, args ...any) *UseResult {
	return &UseResult{SkillID: id, Message: fmt.Sprintf(format, args...)}
}

// Skill is a per-holder runtime instance over a shared immutable Config.
// Two holders of the same skill id never share cooldown or use-count state.
type Skill struct {
	def    *Config
	holder string
	logger *zap.Logger

	state             State
	remainingCooldown int64
	useCount          int
	lastUsedTick      int64
	applying          bool // effect-work flag, cleared unconditionally
}

// New creates a Ready instance of the definition for the given holder.
func New(def *Config, holderID string, logger *zap.Logger) *Skill {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Skill{
		def:    def,
		holder: holderID,
		logger: logger,
		state:  StateReady,
	}
}

// Def returns the shared definition.
func (s *Skill) Def() *Config { return s.def }

// HolderID returns the owning role id.
func (s *Skill) HolderID() string { return s.holder }

// State returns the runtime state.
func (s *Skill) State() State { return s.state }

// RemainingCooldown returns the ticks left before the skill is usable.
func (s *Skill) RemainingCooldown() int64 { return s.remainingCooldown }

// UseCount returns how many times the skill has been used.
func (s *Skill) UseCount() int { return s.useCount }

// LastUsedTick returns the tick of the most recent successful use.
func (s *Skill) LastUsedTick() int64 { return s.lastUsedTick }

// SetState forces the runtime state. Used for Disabled/Sealed transitions
// driven by external rules.
func (s *Skill) SetState(state State) { s.state = state }

// CanUse checks every precondition without mutating state: the instance is
// Ready, off cooldown, the caster can afford the cost and meets the level
// requirement, and a target is supplied when the effect set needs one.
func (s *Skill) CanUse(caster Unit, target Unit) (bool, string) {
	if caster == nil {
		return false, "no caster"
	}
	if s.state != StateReady {
		return false, fmt.Sprintf("skill not ready (state %s)", s.state)
	}
	if s.remainingCooldown > 0 {
		return false, fmt.Sprintf("on cooldown (%d ticks left)", s.remainingCooldown)
	}
	if cost := s.def.Cost(); cost > 0 && caster.GetAttr(attrs.KindMoney) < cost {
		return false, fmt.Sprintf("insufficient funds (need %d)", cost)
	}
	if min := s.def.MinLevel(); min > 0 && caster.GetAttr(attrs.KindLevel) < min {
		return false, fmt.Sprintf("requires level %d", min)
	}
	if s.def.RequiresTarget() && target == nil {
		return false, "target required"
	}
	return true, ""
}

// Use casts the skill. Preconditions are re-checked, the cost is deducted,
// and every effect entry resolves in declaration order with per-entry
// probability and delay. When the definition has a cast time the call
// returns a pending result and the final outcome is delivered through
// Env.OnComplete after the wait; an Interrupt during the wait fails the
// cast. State is guaranteed to leave Casting on every path.
func (s *Skill) Use(caster Unit, target Unit, env Env) *UseResult {
	if ok, reason := s.CanUse(caster, target); !ok {
		return useFailure(s.def.ID, "%s", reason)
	}

	s.state = StateCasting
	if cost := s.def.Cost(); cost > 0 {
		caster.AddAttr(attrs.KindMoney, -cost)
	}

	castTime := s.def.CastTime()
	if castTime > 0 {
		if env.Clock == nil {
			// No time driver available; recover to Ready per the
			// never-stuck-in-Casting guarantee.
			s.state = StateReady
			return useFailure(s.def.ID, "cast time %d but no clock", castTime)
		}
		env.Clock.After(castTime, func() {
			var result *UseResult
			if s.state != StateCasting {
				result = useFailure(s.def.ID, "casting interrupted")
			} else {
				result = s.resolve(caster, target, env)
			}
			if env.OnComplete != nil {
				env.OnComplete(result)
			}
		})
		return &UseResult{Success: true, Pending: true, SkillID: s.def.ID, Message: "casting"}
	}

	return s.resolve(caster, target, env)
}

// resolve applies the effect list and finishes the use. Only called while
// Casting.
func (s *Skill) resolve(caster Unit, target Unit, env Env) *UseResult {
	s.applying = true
	defer func() {
		s.applying = false
		if s.state == StateCasting {
			s.state = StateReady
		}
	}()

	result := &UseResult{Success: true, SkillID: s.def.ID}
	for i := range s.def.Effects {
		s.applyEffect(&s.def.Effects[i], caster, target, env, result)
	}

	s.useCount++
	if env.Clock != nil {
		s.lastUsedTick = env.Clock.Now()
	}
	s.emitUsed(caster, target, env)

	if cooldown := s.def.Cooldown(); cooldown > 0 {
		s.startCooldown(cooldown, env)
	}
	return result
}

// Interrupt aborts an in-progress cast. It only takes effect while Casting
// and the definition is interruptible; cooperative, checked at the
// post-wait boundary.
func (s *Skill) Interrupt(env Env) bool {
	if s.state != StateCasting || !s.def.Interruptible() {
		return false
	}
	s.state = StateReady
	if env.Bus != nil {
		evt := events.NewEvent(events.EventSkillInterrupted, s.holder)
		evt.SourceID = fmt.Sprintf("%d", s.def.ID)
		evt.Data = s.def.Name
		env.Bus.Publish(evt)
	}
	return true
}

// startCooldown enters CoolingDown. The countdown advances only through
// UpdateCooldown, driven by the external turn/tick loop.
func (s *Skill) startCooldown(ticks int64, env Env) {
	s.state = StateCoolingDown
	s.remainingCooldown = ticks
	if env.Bus != nil {
		evt := events.NewEvent(events.EventSkillCooldownStart, s.holder)
		evt.SourceID = fmt.Sprintf("%d", s.def.ID)
		evt.Amount = int(ticks)
		env.Bus.Publish(evt)
	}
}

// UpdateCooldown advances the cooldown countdown by the given ticks and
// returns the skill to Ready when it reaches zero. This is the only
// cooldown driver; there are no wall-clock timers.
func (s *Skill) UpdateCooldown(ticks int64, env Env) {
	if s.state != StateCoolingDown || ticks <= 0 {
		return
	}
	s.remainingCooldown -= ticks
	if s.remainingCooldown > 0 {
		return
	}
	s.remainingCooldown = 0
	s.state = StateReady
	if env.Bus != nil {
		evt := events.NewEvent(events.EventSkillCooldownEnd, s.holder)
		evt.SourceID = fmt.Sprintf("%d", s.def.ID)
		env.Bus.Publish(evt)
	}
}

// Reset restores the instance to Ready with cleared counters. Used for
// pooled reuse.
func (s *Skill) Reset() {
	s.state = StateReady
	s.remainingCooldown = 0
	s.useCount = 0
	s.lastUsedTick = 0
	s.applying = false
}

func (s *Skill) emitUsed(caster Unit, target Unit, env Env) {
	if env.Bus == nil {
		return
	}
	evt := events.NewEvent(events.EventSkillUsed, caster.ID())
	evt.SourceID = fmt.Sprintf("%d", s.def.ID)
	evt.Data = s.def.Name
	if target != nil {
		evt.TargetID = target.ID()
	}
	env.Bus.Publish(evt)
}
