package skill

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tycoonplay/tycoon-server-go/internal/game/attrs"
	"github.com/tycoonplay/tycoon-server-go/internal/game/events"
)

// applyEffect resolves one effect entry: rolls probability, resolves the
// target kind into concrete units, then applies the entry now or after the
// configured delay.
func (s *Skill) applyEffect(effect *EffectConfig, caster Unit, target Unit, env Env, result *UseResult) {
	if effect.Probability > 0 && effect.Probability < 1 {
		if env.Rand == nil || env.Rand.Float64() >= effect.Probability {
			result.AppliedEffects = append(result.AppliedEffects,
				fmt.Sprintf("%s:missed", effect.Kind))
			return
		}
	}

	targets, reason := s.resolveTargets(effect, caster, target, env)
	if reason != "" {
		result.AppliedEffects = append(result.AppliedEffects,
			fmt.Sprintf("%s:skipped:%s", effect.Kind, reason))
		return
	}

	apply := func() {
		for _, unit := range targets {
			s.applyEffectToTarget(effect, caster, unit, env, result)
		}
	}

	if effect.Delay > 0 && env.Clock != nil {
		env.Clock.After(effect.Delay, apply)
		result.AppliedEffects = append(result.AppliedEffects,
			fmt.Sprintf("%s:delayed:%d", effect.Kind, effect.Delay))
		return
	}
	apply()
}

// resolveTargets maps the entry's target kind to concrete units. Request-only
// kinds (Tile, Area) resolve to the caster so the request event carries an
// origin.
func (s *Skill) resolveTargets(effect *EffectConfig, caster Unit, target Unit, env Env) ([]Unit, string) {
	switch effect.Target {
	case TargetSelf:
		return []Unit{caster}, ""
	case TargetSinglePlayer:
		if target == nil {
			return nil, "no target"
		}
		return []Unit{target}, ""
	case TargetAllPlayers:
		if env.Roster == nil {
			return nil, "no roster"
		}
		return env.Roster.Players(), ""
	case TargetAllNPCs:
		if env.Roster == nil {
			return nil, "no roster"
		}
		return env.Roster.NPCs(), ""
	case TargetTile, TargetArea:
		return []Unit{caster}, ""
	default:
		return nil, fmt.Sprintf("unknown target kind %s", effect.Target)
	}
}

// applyEffectToTarget performs the kind-specific mutation on one unit. The
// switch is exhaustive over the closed EffectKind set; an unlisted kind is
// reported as a skipped effect, never applied silently.
func (s *Skill) applyEffectToTarget(effect *EffectConfig, caster Unit, target Unit, env Env, result *UseResult) {
	record := func(desc string) {
		result.AffectedTargets = appendUnique(result.AffectedTargets, target.ID())
		result.AppliedEffects = append(result.AppliedEffects, desc)
	}

	switch effect.Kind {
	case EffectDamage:
		target.AddAttr(attrs.KindHP, -effect.Value)
		record(fmt.Sprintf("DAMAGE:%d:%s", effect.Value, target.ID()))

	case EffectHeal:
		target.AddAttr(attrs.KindHP, effect.Value)
		record(fmt.Sprintf("HEAL:%d:%s", effect.Value, target.ID()))

	case EffectMoney:
		delta := effect.Value
		if delta < 0 {
			// Debits clamp at zero; skills never push cash negative.
			if cash := target.GetAttr(attrs.KindMoney); cash+delta < 0 {
				delta = -cash
			}
		}
		target.AddAttr(attrs.KindMoney, delta)
		record(fmt.Sprintf("MONEY:%+d:%s", delta, target.ID()))

	case EffectBuff:
		s.applyOverlay(effect, target, effect.Value, env)
		record(fmt.Sprintf("BUFF:%s:%+d:%s", effect.buffAttribute(), effect.Value, target.ID()))

	case EffectDebuff:
		s.applyOverlay(effect, target, -effect.Value, env)
		record(fmt.Sprintf("DEBUFF:%s:%+d:%s", effect.buffAttribute(), -effect.Value, target.ID()))

	case EffectJailEscape:
		if jailed, ok := target.(Jailable); ok {
			jailed.ExitJail()
			record(fmt.Sprintf("JAIL_ESCAPE:%s", target.ID()))
		} else {
			result.AppliedEffects = append(result.AppliedEffects,
				fmt.Sprintf("JAIL_ESCAPE:skipped:%s not jailable", target.ID()))
		}

	case EffectMove:
		s.emitRequest(events.EventMoveRequest, caster, target, effect.Value, env, result)

	case EffectTeleport:
		s.emitRequest(events.EventTeleportRequest, caster, target, effect.Value, env, result)

	case EffectRentFree:
		s.emitRequest(events.EventRentFreeRequest, caster, target, effect.Value, env, result)

	case EffectDiceControl:
		s.emitRequest(events.EventDiceControlRequest, caster, target, effect.Value, env, result)

	case EffectCardDraw:
		s.emitRequest(events.EventCardDrawRequest, caster, target, effect.Value, env, result)

	default:
		s.logger.Warn("effect kind without handler",
			zap.Int("skill", s.def.ID),
			zap.String("kind", string(effect.Kind)),
		)
		result.AppliedEffects = append(result.AppliedEffects,
			fmt.Sprintf("%s:skipped:no handler", effect.Kind))
	}
}

// applyOverlay adds a temporary attribute delta and schedules its removal
// when the entry carries a duration. Removal subtracts the same delta so
// stacked applications unwind independently.
func (s *Skill) applyOverlay(effect *EffectConfig, target Unit, delta int, env Env) {
	kind := effect.buffAttribute()
	target.AddTemporaryAttr(kind, delta)
	if effect.Duration > 0 && env.Clock != nil {
		env.Clock.After(effect.Duration, func() {
			target.AddTemporaryAttr(kind, -delta)
		})
	}
}

// emitRequest publishes a typed request event for an external system to
// fulfill. The core computes the magnitude; it does not move pieces, grant
// cards or adjust rent itself.
func (s *Skill) emitRequest(eventType events.EventType, caster, target Unit, value int, env Env, result *UseResult) {
	result.AffectedTargets = appendUnique(result.AffectedTargets, target.ID())
	result.TriggeredEvents = append(result.TriggeredEvents, eventType)
	result.AppliedEffects = append(result.AppliedEffects,
		fmt.Sprintf("%s:%d:%s", eventType, value, target.ID()))
	if env.Bus == nil {
		return
	}
	evt := events.NewEvent(eventType, target.ID())
	evt.SourceID = fmt.Sprintf("%d", s.def.ID)
	evt.TargetID = target.ID()
	evt.Amount = value
	evt.Metadata["caster"] = caster.ID()
	env.Bus.Publish(evt)
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}
