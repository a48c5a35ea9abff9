package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tycoonplay/tycoon-server-go/internal/game/attrs"
	"github.com/tycoonplay/tycoon-server-go/internal/game/events"
	"github.com/tycoonplay/tycoon-server-go/internal/game/sched"
	"github.com/tycoonplay/tycoon-server-go/internal/game/skill"
)

func newTestPlayer(t *testing.T, cash int) (*Player, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	clock := sched.NewScheduler()
	p := NewPlayer(bus, clock, nil)
	err := p.Initialize(RoleConfig{
		ID:        "alice",
		Name:      "Alice",
		StartTile: 0,
		Attributes: map[attrs.Kind]int{
			attrs.KindMoney: cash,
			attrs.KindLuck:  50,
		},
	}, nil)
	require.NoError(t, err)
	return p, bus
}

func TestBuyPropertyDebitsCash(t *testing.T) {
	p, _ := newTestPlayer(t, 15000)

	ok := p.BuyProperty(Property{ID: 1, Name: "Boardwalk", PurchasePrice: 5000})
	require.True(t, ok)
	assert.Equal(t, 10000, p.Cash())
	assert.Equal(t, 10000, p.GetAttr(attrs.KindMoney))
	assert.Equal(t, 5000, p.PropertyValue())
	assert.Equal(t, 15000, p.TotalAssets())
	assert.Len(t, p.Properties(), 1)
}

func TestBuyPropertyInsufficientCashNoMutation(t *testing.T) {
	p, _ := newTestPlayer(t, 4000)

	ok := p.BuyProperty(Property{ID: 1, Name: "Boardwalk", PurchasePrice: 5000})
	assert.False(t, ok)
	assert.Equal(t, 4000, p.Cash())
	assert.Empty(t, p.Properties())
	assert.False(t, p.Bankrupt())
}

func TestSellPropertyReturnsNinetyPercent(t *testing.T) {
	p, _ := newTestPlayer(t, 15000)
	require.True(t, p.BuyProperty(Property{ID: 1, Name: "Boardwalk", PurchasePrice: 5000}))

	proceeds, ok := p.SellProperty(1)
	require.True(t, ok)
	assert.Equal(t, 4500, proceeds)
	assert.Equal(t, 14500, p.Cash())
	assert.Equal(t, 0, p.PropertyValue())
	assert.Empty(t, p.Properties())

	_, ok = p.SellProperty(1)
	assert.False(t, ok)
}

func TestSellPropertyFloorsOddValues(t *testing.T) {
	p, _ := newTestPlayer(t, 1000)
	require.True(t, p.BuyProperty(Property{ID: 7, Name: "Alley", PurchasePrice: 555}))

	proceeds, ok := p.SellProperty(7)
	require.True(t, ok)
	// floor(555 * 0.9) = 499
	assert.Equal(t, 499, proceeds)
}

func TestPayMoneyShortfallBankruptsWithoutPartialDebit(t *testing.T) {
	p, bus := newTestPlayer(t, 15000)
	require.True(t, p.BuyProperty(Property{ID: 1, Name: "Boardwalk", PurchasePrice: 5000}))
	require.Equal(t, 10000, p.Cash())

	bankruptEvents := 0
	bus.SubscribeTyped(events.EventPlayerBankrupt, func(events.Event) { bankruptEvents++ })

	ok := p.PayMoney(12000, "rent")
	assert.False(t, ok)
	assert.True(t, p.Bankrupt())
	assert.Equal(t, RoleStateBankrupt, p.State())
	// The failed payment must not debit anything.
	assert.Equal(t, 10000, p.Cash())
	assert.Equal(t, 1, p.GetAttr(attrs.KindBankrupt))
	assert.Equal(t, 1, bankruptEvents)

	// After bankruptcy every financial operation is a no-op failure.
	assert.False(t, p.PayMoney(100, "rent"))
	assert.False(t, p.ReceiveMoney(100, "salary"))
	assert.False(t, p.BuyProperty(Property{ID: 2, PurchasePrice: 10}))
	assert.Equal(t, 10000, p.Cash())
	assert.Equal(t, 1, bankruptEvents)
	assert.Equal(t, 1, p.Bankruptcies())
}

func TestPayMoneyNonPositiveIsNoOp(t *testing.T) {
	p, _ := newTestPlayer(t, 1000)
	assert.True(t, p.PayMoney(0, "rent"))
	assert.True(t, p.PayMoney(-50, "rent"))
	assert.Equal(t, 1000, p.Cash())
}

func TestPayAndReceiveMoneyLedger(t *testing.T) {
	p, _ := newTestPlayer(t, 1000)

	require.True(t, p.PayMoney(300, "rent"))
	require.True(t, p.PayMoney(200, "rent"))
	require.True(t, p.ReceiveMoney(500, "salary"))

	assert.Equal(t, 1000, p.Cash())
	assert.Equal(t, 500, p.Expenses()["rent"])
	assert.Equal(t, 500, p.Income()["salary"])
}

func TestJailSentenceServedOverTurns(t *testing.T) {
	p, _ := newTestPlayer(t, 1000)

	p.GoToJail()
	assert.True(t, p.Jailed())
	assert.Equal(t, JailSentenceTurns, p.JailTurns())
	assert.Equal(t, RoleStateJailed, p.State())
	assert.False(t, p.CanMove())

	p.EndTurn()
	p.EndTurn()
	assert.True(t, p.Jailed())

	p.EndTurn()
	assert.False(t, p.Jailed())
	assert.Equal(t, RoleStateIdle, p.State())
	assert.True(t, p.CanMove())
}

func TestExitJailClearsSentenceImmediately(t *testing.T) {
	p, bus := newTestPlayer(t, 1000)

	exits := 0
	bus.SubscribeTyped(events.EventPlayerJailExit, func(events.Event) { exits++ })

	p.GoToJail()
	p.ExitJail()
	assert.False(t, p.Jailed())
	assert.Equal(t, RoleStateIdle, p.State())
	assert.Equal(t, 1, exits)

	// Exiting while free is a no-op.
	p.ExitJail()
	assert.Equal(t, 1, exits)
}

func TestUseGetOutOfJailCard(t *testing.T) {
	p, _ := newTestPlayer(t, 1000)

	// No card, no effect.
	p.GoToJail()
	assert.False(t, p.UseGetOutOfJailCard())
	assert.True(t, p.Jailed())

	p.GrantEscapeCard()
	assert.True(t, p.UseGetOutOfJailCard())
	assert.False(t, p.Jailed())
	assert.False(t, p.HasEscapeCard())

	// Card without a sentence is not consumed.
	p.GrantEscapeCard()
	assert.False(t, p.UseGetOutOfJailCard())
	assert.True(t, p.HasEscapeCard())
}

func TestTurnFlagsResetOnStart(t *testing.T) {
	p, _ := newTestPlayer(t, 1000)

	p.MarkRolled(true)
	p.MarkRolled(true)
	p.MarkMoved()
	assert.True(t, p.HasRolled())
	assert.Equal(t, 2, p.ConsecutiveDoubles())
	assert.Equal(t, 1, p.MovesThisTurn())

	p.StartTurn()
	assert.False(t, p.HasRolled())
	assert.Equal(t, 0, p.MovesThisTurn())
	// The doubles streak spans turns until a non-double roll.
	assert.Equal(t, 2, p.ConsecutiveDoubles())

	p.MarkRolled(false)
	assert.Equal(t, 0, p.ConsecutiveDoubles())
}

func TestFreeRentCountdown(t *testing.T) {
	p, _ := newTestPlayer(t, 1000)

	p.SetFreeRentTurns(2)
	assert.Equal(t, 2, p.FreeRentTurns())

	p.EndTurn()
	assert.Equal(t, 1, p.FreeRentTurns())
	p.EndTurn()
	assert.Equal(t, 0, p.FreeRentTurns())
	p.EndTurn()
	assert.Equal(t, 0, p.FreeRentTurns())
}

func TestPlayerResetRestoresSeededState(t *testing.T) {
	p, _ := newTestPlayer(t, 15000)

	require.True(t, p.BuyProperty(Property{ID: 1, Name: "Boardwalk", PurchasePrice: 5000}))
	p.GoToJail()
	p.GrantEscapeCard()
	p.MarkRolled(true)

	p.Reset()
	assert.Equal(t, 15000, p.Cash())
	assert.Equal(t, 0, p.PropertyValue())
	assert.Empty(t, p.Properties())
	assert.False(t, p.Jailed())
	assert.False(t, p.HasEscapeCard())
	assert.False(t, p.HasRolled())
	assert.Equal(t, RoleStateIdle, p.State())
	assert.Empty(t, p.Income())
	assert.Empty(t, p.Expenses())
}

func TestBankruptcyCounterSurvivesReset(t *testing.T) {
	p, _ := newTestPlayer(t, 100)

	p.PayMoney(500, "rent")
	require.True(t, p.Bankrupt())
	require.Equal(t, 1, p.Bankruptcies())

	p.Reset()
	assert.False(t, p.Bankrupt())
	assert.Equal(t, 1, p.Bankruptcies())
}

func TestUseSkillNotHeld(t *testing.T) {
	p, _ := newTestPlayer(t, 1000)
	result := p.UseSkill(99, nil, skill.Env{})
	assert.False(t, result.Success)
	assert.Equal(t, "skill not held", result.Message)
}
