package skill

import (
	"fmt"
	"strings"

	"github.com/tycoonplay/tycoon-server-go/internal/game/attrs"
)

// Type categorizes how a skill is activated.
type Type string

const (
	TypePassive    Type = "PASSIVE"
	TypeActive     Type = "ACTIVE"
	TypeInstant    Type = "INSTANT"
	TypeChanneling Type = "CHANNELING"
	TypeToggle     Type = "TOGGLE"
	TypeCombo      Type = "COMBO"
)

// EffectKind is the closed set of atomic mutations a skill can apply.
// Every kind has a handler in applyEffectToTarget; adding a kind without
// one fails loudly at resolution time.
type EffectKind string

const (
	EffectDamage      EffectKind = "DAMAGE"
	EffectHeal        EffectKind = "HEAL"
	EffectMoney       EffectKind = "MONEY"
	EffectMove        EffectKind = "MOVE"
	EffectTeleport    EffectKind = "TELEPORT"
	EffectBuff        EffectKind = "BUFF"
	EffectDebuff      EffectKind = "DEBUFF"
	EffectJailEscape  EffectKind = "JAIL_ESCAPE"
	EffectRentFree    EffectKind = "RENT_FREE"
	EffectDiceControl EffectKind = "DICE_CONTROL"
	EffectCardDraw    EffectKind = "CARD_DRAW"
)

// TargetKind describes who an effect entry applies to.
type TargetKind string

const (
	TargetSelf         TargetKind = "SELF"
	TargetSinglePlayer TargetKind = "SINGLE_PLAYER"
	TargetAllPlayers   TargetKind = "ALL_PLAYERS"
	TargetAllNPCs      TargetKind = "ALL_NPCS"
	TargetTile         TargetKind = "TILE"
	TargetArea         TargetKind = "AREA"
)

// State is the runtime lifecycle of a skill instance.
type State string

const (
	StateReady       State = "READY"
	StateCasting     State = "CASTING"
	StateChanneling  State = "CHANNELING"
	StateCoolingDown State = "COOLING_DOWN"
	StateDisabled    State = "DISABLED"
	StateSealed      State = "SEALED"
)

// EffectConfig is one entry in a skill's ordered effect list.
type EffectConfig struct {
	Kind        EffectKind        `json:"type" mapstructure:"type"`
	Value       int               `json:"value" mapstructure:"value"`
	Target      TargetKind        `json:"target" mapstructure:"target"`
	Duration    int64             `json:"duration,omitempty" mapstructure:"duration"`       // ticks a buff/debuff persists; 0 = instant
	Probability float64           `json:"probability,omitempty" mapstructure:"probability"` // 0 or 1 = always
	Delay       int64             `json:"delay,omitempty" mapstructure:"delay"`             // ticks before application
	Stackable   bool              `json:"stackable,omitempty" mapstructure:"stackable"`
	MaxStacks   int               `json:"maxStacks,omitempty" mapstructure:"maxStacks"`
	Params      map[string]string `json:"params,omitempty" mapstructure:"params"`
}

// Config is the shared, immutable definition of a skill. Runtime state
// (cooldown, use count) lives on per-holder Skill instances, never here.
type Config struct {
	ID           int            `json:"id" mapstructure:"id"`
	Name         string         `json:"name" mapstructure:"name"`
	Description  string         `json:"description" mapstructure:"description"`
	Type         Type           `json:"type" mapstructure:"type"`
	IconPath     string         `json:"iconPath" mapstructure:"iconPath"`
	Level        int            `json:"level" mapstructure:"level"`
	Attributes   map[string]int `json:"attributes" mapstructure:"attributes"`
	Effects      []EffectConfig `json:"effects" mapstructure:"effects"`
	Requirements map[string]int `json:"requirements,omitempty" mapstructure:"requirements"`
	Upgrade      map[string]int `json:"upgradeConfig,omitempty" mapstructure:"upgradeConfig"`
}

// Well-known attribute table keys.
const (
	attrCost          = "cost"
	attrCooldown      = "cooldown"
	attrRange         = "range"
	attrCastTime      = "castTime"
	attrInterruptible = "interruptible"
)

// attr looks a table key up case-insensitively: viper lowercases yaml map
// keys while programmatic configs use the documented camelCase names.
func attr(table map[string]int, name string) (int, bool) {
	if v, ok := table[name]; ok {
		return v, true
	}
	for key, v := range table {
		if strings.EqualFold(key, name) {
			return v, true
		}
	}
	return 0, false
}

// Cost returns the money cost to use the skill.
func (c *Config) Cost() int {
	v, _ := attr(c.Attributes, attrCost)
	return v
}

// Cooldown returns the cooldown in ticks after a successful use.
func (c *Config) Cooldown() int64 {
	v, _ := attr(c.Attributes, attrCooldown)
	return int64(v)
}

// CastTime returns the cast duration in ticks (0 = instant).
func (c *Config) CastTime() int64 {
	v, _ := attr(c.Attributes, attrCastTime)
	return int64(v)
}

// Range returns the effect range in tiles (0 = unlimited).
func (c *Config) Range() int {
	v, _ := attr(c.Attributes, attrRange)
	return v
}

// Interruptible reports whether casting may be interrupted. Defaults to
// true when the attribute is absent.
func (c *Config) Interruptible() bool {
	v, ok := attr(c.Attributes, attrInterruptible)
	if !ok {
		return true
	}
	return v != 0
}

// MinLevel returns the caster level requirement (0 = none).
func (c *Config) MinLevel() int {
	v, _ := attr(c.Requirements, "minLevel")
	return v
}

// RequiresTarget reports whether any effect entry needs a supplied target.
func (c *Config) RequiresTarget() bool {
	for _, effect := range c.Effects {
		if effect.Target == TargetSinglePlayer {
			return true
		}
	}
	return false
}

// Validate checks the required fields of a definition. Missing id or name
// rejects the record; everything else defaults.
func (c *Config) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("skill config missing id")
	}
	if c.Name == "" {
		return fmt.Errorf("skill config %d missing name", c.ID)
	}
	for i, effect := range c.Effects {
		if effect.Kind == "" {
			return fmt.Errorf("skill %d effect %d missing type", c.ID, i)
		}
		if effect.Probability < 0 || effect.Probability > 1 {
			return fmt.Errorf("skill %d effect %d probability out of range", c.ID, i)
		}
	}
	return nil
}

// normalize fills defaults on an otherwise valid definition.
func (c *Config) normalize() {
	if c.Type == "" {
		c.Type = TypeActive
	}
	if c.Attributes == nil {
		c.Attributes = make(map[string]int)
	}
	for i := range c.Effects {
		if c.Effects[i].Target == "" {
			c.Effects[i].Target = TargetSelf
		}
	}
}

// buffAttribute resolves which attribute a buff/debuff entry modifies.
func (e *EffectConfig) buffAttribute() attrs.Kind {
	if name, ok := e.Params["attribute"]; ok && name != "" {
		return attrs.Kind(name)
	}
	return attrs.KindLuck
}
