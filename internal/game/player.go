package game

import (
	"go.uber.org/zap"

	"github.com/tycoonplay/tycoon-server-go/internal/game/attrs"
	"github.com/tycoonplay/tycoon-server-go/internal/game/events"
	"github.com/tycoonplay/tycoon-server-go/internal/game/sched"
	"github.com/tycoonplay/tycoon-server-go/internal/game/skill"
)

// JailSentenceTurns is the fixed sentence applied on jail entry.
const JailSentenceTurns = 3

// PropertySaleRate is the fraction of current value returned on sale.
const PropertySaleRate = 0.9

// Property is one owned board property.
type Property struct {
	ID               int
	Name             string
	PurchasePrice    int
	CurrentValue     int
	ImprovementLevel int
	Group            string
	TileID           int
}

// Player is a role with a financial ledger, a property portfolio, jail
// state and per-turn bookkeeping. Bankruptcy is a one-way transition after
// which no financial mutation is valid.
type Player struct {
	*Role

	cash          int // mirror of the effective MONEY attribute
	propertyValue int
	debt          int
	income        map[string]int
	expenses      map[string]int
	properties    []Property

	jailTurns     int
	hasEscapeCard bool

	hasRolled          bool
	movesThisTurn      int
	consecutiveDoubles int

	freeRentTurns int
	bankruptcies  int
}

// NewPlayer creates an uninitialized player shell.
func NewPlayer(bus *events.Bus, clock *sched.Scheduler, logger *zap.Logger) *Player {
	p := &Player{
		Role:     NewRole(RoleKindPlayer, bus, clock, logger),
		income:   make(map[string]int),
		expenses: make(map[string]int),
	}
	p.Role.onAttributeChanged = p.handleAttributeChanged
	return p
}

// handleAttributeChanged keeps the cash mirror consistent with the MONEY
// attribute no matter which layer changed it.
func (p *Player) handleAttributeChanged(kind attrs.Kind, oldValue, newValue int) {
	if kind == attrs.KindMoney {
		p.cash = newValue
	}
}

// Initialize seeds the role and syncs the cash mirror with the seeded
// MONEY attribute.
func (p *Player) Initialize(cfg RoleConfig, registry *skill.Registry) error {
	if err := p.Role.Initialize(cfg, registry); err != nil {
		return err
	}
	p.cash = p.GetAttr(attrs.KindMoney)
	return nil
}

// Cash returns the player's liquid money.
func (p *Player) Cash() int { return p.cash }

// PropertyValue returns the summed current value of owned properties.
func (p *Player) PropertyValue() int { return p.propertyValue }

// Debt returns outstanding debt.
func (p *Player) Debt() int { return p.debt }

// TotalAssets returns cash + property value - debt.
func (p *Player) TotalAssets() int {
	return p.cash + p.propertyValue - p.debt
}

// Properties returns the owned property records.
func (p *Player) Properties() []Property { return p.properties }

// Income returns the itemized income ledger.
func (p *Player) Income() map[string]int { return p.income }

// Expenses returns the itemized expense ledger.
func (p *Player) Expenses() map[string]int { return p.expenses }

// Bankrupt reports whether the player has gone bankrupt.
func (p *Player) Bankrupt() bool { return p.State() == RoleStateBankrupt }

// Bankruptcies returns how many times GoBankrupt has fired (0 or 1 for a
// single session; survives Reset for pooled reuse accounting).
func (p *Player) Bankruptcies() int { return p.bankruptcies }

// JailTurns returns the remaining jail sentence.
func (p *Player) JailTurns() int { return p.jailTurns }

// Jailed reports whether the player is serving a sentence.
func (p *Player) Jailed() bool { return p.jailTurns > 0 }

// HasEscapeCard reports whether a get-out-of-jail card is held.
func (p *Player) HasEscapeCard() bool { return p.hasEscapeCard }

// GrantEscapeCard gives the player a get-out-of-jail card.
func (p *Player) GrantEscapeCard() { p.hasEscapeCard = true }

// FreeRentTurns returns the remaining rent-free turns.
func (p *Player) FreeRentTurns() int { return p.freeRentTurns }

// SetFreeRentTurns grants rent-free turns (from a RentFree effect handler).
func (p *Player) SetFreeRentTurns(turns int) {
	if turns >= 0 {
		p.freeRentTurns = turns
	}
}

// HasRolled reports the per-turn dice flag.
func (p *Player) HasRolled() bool { return p.hasRolled }

// MarkRolled records a dice roll; doubles extend the streak.
func (p *Player) MarkRolled(isDouble bool) {
	p.hasRolled = true
	if isDouble {
		p.consecutiveDoubles++
	} else {
		p.consecutiveDoubles = 0
	}
}

// ConsecutiveDoubles returns the current doubles streak.
func (p *Player) ConsecutiveDoubles() int { return p.consecutiveDoubles }

// MovesThisTurn returns how many moves the player made this turn.
func (p *Player) MovesThisTurn() int { return p.movesThisTurn }

// MarkMoved increments the per-turn move counter.
func (p *Player) MarkMoved() { p.movesThisTurn++ }

// BuyProperty purchases the property when cash covers the price: debits
// MONEY, appends the record and recomputes totals. Insufficient cash fails
// with no mutation.
func (p *Player) BuyProperty(record Property) bool {
	if p.Bankrupt() {
		return false
	}
	if p.cash < record.PurchasePrice {
		return false
	}
	p.AddAttr(attrs.KindMoney, -record.PurchasePrice)
	p.expenses["property"] += record.PurchasePrice
	if record.CurrentValue == 0 {
		record.CurrentValue = record.PurchasePrice
	}
	p.properties = append(p.properties, record)
	p.recomputePropertyValue()

	evt := events.NewEvent(events.EventPlayerPropertyBought, p.ID())
	evt.Amount = record.PurchasePrice
	evt.Data = record.Name
	p.emit(evt)
	return true
}

// SellProperty sells an owned property for 90% of its current value
// (floored). Returns the credited amount, or false when not owned.
func (p *Player) SellProperty(propertyID int) (int, bool) {
	if p.Bankrupt() {
		return 0, false
	}
	idx := -1
	for i, record := range p.properties {
		if record.ID == propertyID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return 0, false
	}

	record := p.properties[idx]
	proceeds := int(float64(record.CurrentValue) * PropertySaleRate)
	p.properties = append(p.properties[:idx], p.properties[idx+1:]...)
	p.AddAttr(attrs.KindMoney, proceeds)
	p.income["property_sale"] += proceeds
	p.recomputePropertyValue()

	evt := events.NewEvent(events.EventPlayerPropertySold, p.ID())
	evt.Amount = proceeds
	evt.Data = record.Name
	p.emit(evt)
	return proceeds, true
}

// FindProperty returns an owned property record by id.
func (p *Player) FindProperty(propertyID int) (Property, bool) {
	for _, record := range p.properties {
		if record.ID == propertyID {
			return record, true
		}
	}
	return Property{}, false
}

func (p *Player) recomputePropertyValue() {
	total := 0
	for _, record := range p.properties {
		total += record.CurrentValue
	}
	p.propertyValue = total
}

// PayMoney debits the amount under the expense category. A non-positive
// amount is a successful no-op. A shortfall triggers bankruptcy and
// returns false with no partial debit.
func (p *Player) PayMoney(amount int, category string) bool {
	if amount <= 0 {
		return true
	}
	if p.Bankrupt() {
		return false
	}
	if p.cash < amount {
		p.GoBankrupt()
		return false
	}
	p.AddAttr(attrs.KindMoney, -amount)
	p.expenses[category] += amount

	evt := events.NewEvent(events.EventPlayerMoneyPaid, p.ID())
	evt.Amount = amount
	evt.Data = category
	p.emit(evt)
	return true
}

// ReceiveMoney credits the amount under the income category.
func (p *Player) ReceiveMoney(amount int, category string) bool {
	if amount <= 0 {
		return true
	}
	if p.Bankrupt() {
		return false
	}
	p.AddAttr(attrs.KindMoney, amount)
	p.income[category] += amount

	evt := events.NewEvent(events.EventPlayerMoneyReceived, p.ID())
	evt.Amount = amount
	evt.Data = category
	p.emit(evt)
	return true
}

// GoBankrupt performs the one-way bankruptcy transition: Bankrupt state,
// BANKRUPT attribute flag, counter increment and notification. Calling it
// again is a no-op.
func (p *Player) GoBankrupt() {
	if p.Bankrupt() {
		return
	}
	p.SetState(RoleStateBankrupt)
	p.SetAttr(attrs.KindBankrupt, 1)
	p.bankruptcies++
	p.emit(events.NewEvent(events.EventPlayerBankrupt, p.ID()))
	p.logger.Info("player bankrupt",
		zap.String("role", p.ID()),
		zap.Int("cash", p.cash),
		zap.Int("debt", p.debt),
	)
}

// StartTurn resets per-turn flags and emits TurnStart.
func (p *Player) StartTurn() {
	p.hasRolled = false
	p.movesThisTurn = 0
	p.emit(events.NewEvent(events.EventPlayerTurnStart, p.ID()))
}

// EndTurn decrements the jail and free-rent countdowns and emits TurnEnd.
// The player leaves jail when the sentence reaches zero.
func (p *Player) EndTurn() {
	if p.jailTurns > 0 {
		p.jailTurns--
		if p.jailTurns == 0 {
			p.releaseFromJail()
		}
	}
	if p.freeRentTurns > 0 {
		p.freeRentTurns--
	}
	p.emit(events.NewEvent(events.EventPlayerTurnEnd, p.ID()))
}

// GoToJail starts the fixed jail sentence.
func (p *Player) GoToJail() {
	if p.Bankrupt() {
		return
	}
	p.jailTurns = JailSentenceTurns
	p.SetState(RoleStateJailed)
	evt := events.NewEvent(events.EventPlayerJailed, p.ID())
	evt.Amount = JailSentenceTurns
	p.emit(evt)
}

// ExitJail clears the sentence immediately. Also the JailEscape effect
// entry point (skill.Jailable).
func (p *Player) ExitJail() {
	if p.jailTurns == 0 {
		return
	}
	p.jailTurns = 0
	p.releaseFromJail()
}

func (p *Player) releaseFromJail() {
	if p.State() == RoleStateJailed {
		p.SetState(RoleStateIdle)
	}
	p.emit(events.NewEvent(events.EventPlayerJailExit, p.ID()))
}

// UseGetOutOfJailCard consumes the escape card. Requires both the card and
// an active sentence.
func (p *Player) UseGetOutOfJailCard() bool {
	if !p.hasEscapeCard || p.jailTurns == 0 {
		return false
	}
	p.hasEscapeCard = false
	p.ExitJail()
	return true
}

// CanMove extends the base check with jail and bankruptcy.
func (p *Player) CanMove() bool {
	return p.Role.CanMove() && !p.Jailed() && !p.Bankrupt()
}

// UseSkill casts a held skill through the player, wiring the environment.
func (p *Player) UseSkill(skillID int, target skill.Unit, env skill.Env) *skill.UseResult {
	held := p.FindSkill(skillID)
	if held == nil {
		return &skill.UseResult{SkillID: skillID, Message: "skill not held"}
	}
	return held.Use(p, target, env)
}

// Reset extends the base reset with the ledger, jail and per-turn state.
// The bankruptcy counter survives for pooled reuse accounting.
func (p *Player) Reset() {
	p.Role.Reset()
	p.cash = p.GetAttr(attrs.KindMoney)
	p.propertyValue = 0
	p.debt = 0
	p.income = make(map[string]int)
	p.expenses = make(map[string]int)
	p.properties = nil
	p.jailTurns = 0
	p.hasEscapeCard = false
	p.hasRolled = false
	p.movesThisTurn = 0
	p.consecutiveDoubles = 0
	p.freeRentTurns = 0
}
