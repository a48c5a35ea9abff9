package game

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/tycoonplay/tycoon-server-go/internal/game/attrs"
	"github.com/tycoonplay/tycoon-server-go/internal/game/events"
	"github.com/tycoonplay/tycoon-server-go/internal/game/sched"
	"github.com/tycoonplay/tycoon-server-go/internal/game/skill"
)

// NPCType is the closed set of NPC subtypes.
type NPCType string

const (
	NPCFortune NPCType = "FORTUNE"
	NPCBomb    NPCType = "BOMB"
	NPCAngel   NPCType = "ANGEL"
	NPCDevil   NPCType = "DEVIL"
	NPCBanker  NPCType = "BANKER"
	NPCThief   NPCType = "THIEF"
)

// NPCState is the NPC lifecycle; Dead is terminal.
type NPCState string

const (
	NPCStateSpawning    NPCState = "SPAWNING"
	NPCStateActive      NPCState = "ACTIVE"
	NPCStateTriggered   NPCState = "TRIGGERED"
	NPCStateCoolingDown NPCState = "COOLING_DOWN"
	NPCStateDying       NPCState = "DYING"
	NPCStateDead        NPCState = "DEAD"
)

// TriggerCondition is the game event that permits an NPC to fire.
type TriggerCondition string

const (
	TriggerOnEnter     TriggerCondition = "ON_ENTER"
	TriggerOnPass      TriggerCondition = "ON_PASS"
	TriggerOnTurnStart TriggerCondition = "ON_TURN_START"
	TriggerOnTurnEnd   TriggerCondition = "ON_TURN_END"
	TriggerOnDiceRoll  TriggerCondition = "ON_DICE_ROLL"
	TriggerOnTimer     TriggerCondition = "ON_TIMER"
	TriggerManual      TriggerCondition = "MANUAL"
)

// Unlimited marks a lifetime or trigger budget with no cap.
const Unlimited = -1

// npcDefaults are the per-subtype parameters fixed at construction.
type npcDefaults struct {
	lifeTime    int // turns; Unlimited = infinite
	radius      int
	condition   TriggerCondition
	maxTriggers int // Unlimited = no cap
	cooldown    int // turns between triggers
	consume     bool
}

var npcDefaultTable = map[NPCType]npcDefaults{
	NPCFortune: {lifeTime: 10, radius: 0, condition: TriggerOnEnter, maxTriggers: 1, cooldown: 0, consume: true},
	NPCBomb:    {lifeTime: 5, radius: 1, condition: TriggerOnEnter, maxTriggers: 1, cooldown: 0, consume: true},
	NPCAngel:   {lifeTime: 8, radius: 0, condition: TriggerOnEnter, maxTriggers: Unlimited, cooldown: 2, consume: false},
	NPCDevil:   {lifeTime: 8, radius: 0, condition: TriggerOnEnter, maxTriggers: 3, cooldown: 1, consume: false},
	NPCBanker:  {lifeTime: Unlimited, radius: 0, condition: TriggerManual, maxTriggers: Unlimited, cooldown: 0, consume: false},
	NPCThief:   {lifeTime: 8, radius: 2, condition: TriggerOnPass, maxTriggers: Unlimited, cooldown: 1, consume: false},
}

// Effect magnitude constants per subtype.
const (
	bombBaseDamage    = 1500
	bombLuckScale     = 5
	bombMinDamage     = 500
	bombRandomSpread  = 500
	fortuneBaseBonus  = 1000
	fortuneLuckScale  = 10
	fortuneSpread     = 500
	angelLuckBoost    = 5
	angelMoneyBoost   = 800
	devilLuckPenalty  = 5
	devilMoneyLoss    = 600
	bankerInterestPct = 5
	thiefStealPct     = 20
)

// NPCOverrides optionally replaces subtype defaults from a config.
type NPCOverrides struct {
	LifeTime    *int
	Radius      *int
	Condition   *TriggerCondition
	MaxTriggers *int
	Cooldown    *int
}

// TriggerResult is the typed outcome of a trigger attempt.
type TriggerResult struct {
	Success   bool
	Message   string
	NPCType   NPCType
	Condition TriggerCondition
	// MoneyDelta is the cash change applied to the target (negative for
	// losses).
	MoneyDelta int
	// LuckDelta is the permanent luck change applied to the target.
	LuckDelta int
	Consumed  bool // NPC transitioned to Dying as part of this trigger
}

func triggerFailure(npcType NPCType, format string, args ...any) *TriggerResult {
	return &TriggerResult{NPCType: npcType, Message: fmt.Sprintf(format, args...)}
}

// NPC is a role running the spawn/trigger/cooldown/death state machine.
// UpdateNPC is called once per game turn by the external turn controller;
// nothing in the NPC free-runs.
type NPC struct {
	*Role

	npcType  NPCType
	npcState NPCState

	lifeTime          int
	radius            int
	condition         TriggerCondition
	cooldownTurns     int
	remainingCooldown int
	maxTriggers       int
	triggerCount      int
	consume           bool
	lastTriggerTick   int64

	rng *rand.Rand
}

// NewNPC creates an NPC of the subtype with its default parameters,
// optionally overridden. The rand source is injected so trigger outcomes
// are reproducible under a fixed seed.
func NewNPC(npcType NPCType, overrides NPCOverrides, rng *rand.Rand, bus *events.Bus, clock *sched.Scheduler, logger *zap.Logger) *NPC {
	defaults, ok := npcDefaultTable[npcType]
	if !ok {
		defaults = npcDefaults{lifeTime: Unlimited, condition: TriggerManual, maxTriggers: Unlimited}
	}
	n := &NPC{
		Role:          NewRole(RoleKindNPC, bus, clock, logger),
		npcType:       npcType,
		npcState:      NPCStateSpawning,
		lifeTime:      defaults.lifeTime,
		radius:        defaults.radius,
		condition:     defaults.condition,
		cooldownTurns: defaults.cooldown,
		maxTriggers:   defaults.maxTriggers,
		consume:       defaults.consume,
		rng:           rng,
	}
	if overrides.LifeTime != nil {
		n.lifeTime = *overrides.LifeTime
	}
	if overrides.Radius != nil {
		n.radius = *overrides.Radius
	}
	if overrides.Condition != nil {
		n.condition = *overrides.Condition
	}
	if overrides.MaxTriggers != nil {
		n.maxTriggers = *overrides.MaxTriggers
	}
	if overrides.Cooldown != nil {
		n.cooldownTurns = *overrides.Cooldown
	}
	return n
}

// NPCType returns the subtype.
func (n *NPC) NPCType() NPCType { return n.npcType }

// NPCState returns the lifecycle state.
func (n *NPC) NPCState() NPCState { return n.npcState }

// RemainingLifetime returns the turns left, or Unlimited.
func (n *NPC) RemainingLifetime() int { return n.lifeTime }

// EffectRadius returns the trigger radius in tiles.
func (n *NPC) EffectRadius() int { return n.radius }

// Condition returns the configured trigger condition.
func (n *NPC) Condition() TriggerCondition { return n.condition }

// TriggerCount returns how many times the NPC has fired.
func (n *NPC) TriggerCount() int { return n.triggerCount }

// RemainingCooldown returns the turns before the NPC can fire again.
func (n *NPC) RemainingCooldown() int { return n.remainingCooldown }

// Spawn activates the NPC and emits NpcSpawned.
func (n *NPC) Spawn() {
	if n.npcState != NPCStateSpawning {
		return
	}
	n.npcState = NPCStateActive
	evt := events.NewEvent(events.EventNpcSpawned, n.ID())
	evt.Data = string(n.npcType)
	n.emit(evt)
}

// CanTrigger reports whether a trigger attempt under the condition is
// permitted: Active, off cooldown, under the trigger budget, and the
// condition matches the configuration (a Manual request always matches).
func (n *NPC) CanTrigger(condition TriggerCondition) bool {
	if n.npcState != NPCStateActive {
		return false
	}
	if n.remainingCooldown > 0 {
		return false
	}
	if n.maxTriggers >= 0 && n.triggerCount >= n.maxTriggers {
		return false
	}
	return condition == n.condition || condition == TriggerManual
}

// TriggerEffect fires the subtype's effect at the target. A disallowed
// attempt returns a failure result without mutating trigger state. On
// success the cooldown starts (if configured), and the NPC transitions to
// Dying when consumed or out of triggers, else back to Active.
func (n *NPC) TriggerEffect(target *Player, condition TriggerCondition) *TriggerResult {
	if !n.CanTrigger(condition) {
		return triggerFailure(n.npcType, "trigger not permitted (state %s, cooldown %d, count %d/%d)",
			n.npcState, n.remainingCooldown, n.triggerCount, n.maxTriggers)
	}
	if target == nil {
		return triggerFailure(n.npcType, "no target")
	}

	n.triggerCount++
	if n.clock != nil {
		n.lastTriggerTick = n.clock.Now()
	}
	n.npcState = NPCStateTriggered

	result := n.applySubtypeEffect(target)
	result.Success = true
	result.NPCType = n.npcType
	result.Condition = condition

	exhausted := n.consume || (n.maxTriggers >= 0 && n.triggerCount >= n.maxTriggers)
	switch {
	case exhausted:
		n.npcState = NPCStateDying
		result.Consumed = true
	case n.cooldownTurns > 0:
		n.remainingCooldown = n.cooldownTurns
		n.npcState = NPCStateCoolingDown
	default:
		n.npcState = NPCStateActive
	}

	evt := events.NewEvent(events.EventNpcTriggered, n.ID())
	evt.TargetID = target.ID()
	evt.Amount = result.MoneyDelta
	evt.Data = string(condition)
	evt.Metadata["npc_type"] = string(n.npcType)
	n.emit(evt)

	n.logger.Debug("npc triggered",
		zap.String("npc", n.ID()),
		zap.String("type", string(n.npcType)),
		zap.String("target", target.ID()),
		zap.Int("money_delta", result.MoneyDelta),
	)
	return result
}

// applySubtypeEffect runs the per-subtype effect routine against the
// target and returns the applied magnitudes.
func (n *NPC) applySubtypeEffect(target *Player) *TriggerResult {
	result := &TriggerResult{}
	luck := target.GetAttr(attrs.KindLuck)

	switch n.npcType {
	case NPCFortune:
		// Money bonus scaled up by target luck plus randomness.
		bonus := fortuneBaseBonus + luck*fortuneLuckScale + n.roll(fortuneSpread)
		target.ReceiveMoney(bonus, "fortune")
		result.MoneyDelta = bonus

	case NPCBomb:
		// Money loss scaled down by target luck, floored.
		damage := bombBaseDamage - luck*bombLuckScale + n.roll(bombRandomSpread)
		if damage < bombMinDamage {
			damage = bombMinDamage
		}
		if damage > target.Cash() {
			damage = target.Cash()
		}
		if damage > 0 {
			target.AddAttr(attrs.KindMoney, -damage)
		}
		result.MoneyDelta = -damage

	case NPCAngel:
		target.AddAttr(attrs.KindLuck, angelLuckBoost)
		target.ReceiveMoney(angelMoneyBoost, "angel")
		result.LuckDelta = angelLuckBoost
		result.MoneyDelta = angelMoneyBoost

	case NPCDevil:
		target.AddAttr(attrs.KindLuck, -devilLuckPenalty)
		loss := devilMoneyLoss
		if loss > target.Cash() {
			loss = target.Cash()
		}
		if loss > 0 {
			target.AddAttr(attrs.KindMoney, -loss)
		}
		result.LuckDelta = -devilLuckPenalty
		result.MoneyDelta = -loss

	case NPCBanker:
		interest := target.Cash() * bankerInterestPct / 100
		target.ReceiveMoney(interest, "interest")
		result.MoneyDelta = interest

	case NPCThief:
		stolen := target.Cash() * thiefStealPct / 100
		if stolen > 0 {
			target.AddAttr(attrs.KindMoney, -stolen)
		}
		result.MoneyDelta = -stolen
	}
	return result
}

// roll returns a uniform value in [0, spread). A missing rand source rolls
// zero so unseeded tests stay deterministic.
func (n *NPC) roll(spread int) int {
	if n.rng == nil || spread <= 0 {
		return 0
	}
	return n.rng.Intn(spread)
}

// UpdateNPC advances the state machine by one game turn: cooldown and
// lifetime decrement, Dying at lifetime zero, despawn when Dying. Called
// by the external turn controller, never a free-running timer.
func (n *NPC) UpdateNPC() {
	switch n.npcState {
	case NPCStateDead:
		return
	case NPCStateSpawning:
		n.npcState = NPCStateActive
		return
	case NPCStateDying:
		n.Despawn()
		return
	}

	if n.remainingCooldown > 0 {
		n.remainingCooldown--
		if n.remainingCooldown == 0 && n.npcState == NPCStateCoolingDown {
			n.npcState = NPCStateActive
		}
	}

	if n.lifeTime > 0 {
		n.lifeTime--
		if n.lifeTime == 0 {
			n.npcState = NPCStateDying
		}
	}
}

// Despawn finalizes the death transition and emits NpcDespawn. Idempotent.
func (n *NPC) Despawn() {
	if n.npcState == NPCStateDead {
		return
	}
	n.npcState = NPCStateDead
	evt := events.NewEvent(events.EventNpcDespawn, n.ID())
	evt.Data = string(n.npcType)
	n.emit(evt)
}

// Dead reports whether the NPC reached its terminal state.
func (n *NPC) Dead() bool { return n.npcState == NPCStateDead }

var _ skill.Unit = (*NPC)(nil)
var _ skill.Unit = (*Player)(nil)
var _ skill.Jailable = (*Player)(nil)
