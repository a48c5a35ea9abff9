package game

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/tycoonplay/tycoon-server-go/internal/game/events"
	"github.com/tycoonplay/tycoon-server-go/internal/game/sched"
	"github.com/tycoonplay/tycoon-server-go/internal/game/skill"
)

// World wires the simulation together: it owns the event bus, the tick
// scheduler, the deterministic rand source and the role roster. It is
// explicitly constructed and passed by reference; there are no
// process-wide singletons.
type World struct {
	bus      *events.Bus
	clock    *sched.Scheduler
	rng      *rand.Rand
	registry *skill.Registry
	logger   *zap.Logger

	players     map[string]*Player
	npcs        map[string]*NPC
	playerOrder []string
	npcOrder    []string

	actionQueueLimit   int
	actionTimeoutTicks int64

	turnNumber int
}

// NewWorld creates an empty world. The rand seed fixes all randomized
// outcomes (NPC rolls, effect probability) for replayable sessions.
func NewWorld(seed int64, registry *skill.Registry, logger *zap.Logger) *World {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &World{
		bus:      events.NewBus(),
		clock:    sched.NewScheduler(),
		rng:      rand.New(rand.NewSource(seed)),
		registry: registry,
		logger:   logger,
		players:  make(map[string]*Player),
		npcs:     make(map[string]*NPC),
	}
}

// Bus returns the world's event bus.
func (w *World) Bus() *events.Bus { return w.bus }

// Clock returns the world's tick scheduler.
func (w *World) Clock() *sched.Scheduler { return w.clock }

// Rand returns the world's deterministic rand source.
func (w *World) Rand() *rand.Rand { return w.rng }

// Registry returns the skill registry.
func (w *World) Registry() *skill.Registry { return w.registry }

// TurnNumber returns the number of completed turn advances.
func (w *World) TurnNumber() int { return w.turnNumber }

// SetActionLimits overrides the executor bounds applied to roles created
// after the call. Zero values keep the package defaults.
func (w *World) SetActionLimits(queueLimit int, timeoutTicks int64) {
	w.actionQueueLimit = queueLimit
	w.actionTimeoutTicks = timeoutTicks
}

func (w *World) applyActionLimits(r *Role) {
	exec := r.Executor()
	if exec == nil {
		return
	}
	if w.actionQueueLimit > 0 {
		exec.SetQueueLimit(w.actionQueueLimit)
	}
	if w.actionTimeoutTicks > 0 {
		exec.SetTimeoutTicks(w.actionTimeoutTicks)
	}
}

// SkillEnv builds the environment skills resolve against.
func (w *World) SkillEnv() skill.Env {
	return skill.Env{
		Bus:    w.bus,
		Clock:  w.clock,
		Rand:   w.rng,
		Roster: w,
	}
}

// NewPlayer constructs, initializes and registers a player.
func (w *World) NewPlayer(cfg RoleConfig) (*Player, error) {
	p := NewPlayer(w.bus, w.clock, w.logger)
	if err := p.Initialize(cfg, w.registry); err != nil {
		return nil, err
	}
	if _, exists := w.players[p.ID()]; exists {
		return nil, fmt.Errorf("player %s already registered", p.ID())
	}
	w.applyActionLimits(p.Role)
	w.players[p.ID()] = p
	w.playerOrder = append(w.playerOrder, p.ID())
	return p, nil
}

// NewNPC constructs, initializes, registers and spawns an NPC.
func (w *World) NewNPC(npcType NPCType, overrides NPCOverrides, cfg RoleConfig) (*NPC, error) {
	n := NewNPC(npcType, overrides, w.rng, w.bus, w.clock, w.logger)
	if err := n.Initialize(cfg, w.registry); err != nil {
		return nil, err
	}
	if _, exists := w.npcs[n.ID()]; exists {
		return nil, fmt.Errorf("npc %s already registered", n.ID())
	}
	w.applyActionLimits(n.Role)
	w.npcs[n.ID()] = n
	w.npcOrder = append(w.npcOrder, n.ID())
	n.Spawn()
	return n, nil
}

// Player returns a registered player by id, or nil.
func (w *World) Player(id string) *Player { return w.players[id] }

// NPC returns a registered NPC by id, or nil.
func (w *World) NPC(id string) *NPC { return w.npcs[id] }

// RemoveRole destroys and unregisters a role by id.
func (w *World) RemoveRole(id string) bool {
	if p, ok := w.players[id]; ok {
		p.Destroy()
		delete(w.players, id)
		w.playerOrder = removeID(w.playerOrder, id)
		return true
	}
	if n, ok := w.npcs[id]; ok {
		n.Destroy()
		delete(w.npcs, id)
		w.npcOrder = removeID(w.npcOrder, id)
		return true
	}
	return false
}

func removeID(order []string, id string) []string {
	for i, existing := range order {
		if existing == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// Players implements skill.Roster in registration order, excluding
// bankrupt players (they take no further effects).
func (w *World) Players() []skill.Unit {
	units := make([]skill.Unit, 0, len(w.playerOrder))
	for _, id := range w.playerOrder {
		if p := w.players[id]; p != nil && !p.Bankrupt() {
			units = append(units, p)
		}
	}
	return units
}

// NPCs implements skill.Roster in registration order, excluding the dead.
func (w *World) NPCs() []skill.Unit {
	units := make([]skill.Unit, 0, len(w.npcOrder))
	for _, id := range w.npcOrder {
		if n := w.npcs[id]; n != nil && !n.Dead() {
			units = append(units, n)
		}
	}
	return units
}

// AlivePlayers returns non-bankrupt players in registration order.
func (w *World) AlivePlayers() []*Player {
	result := make([]*Player, 0, len(w.playerOrder))
	for _, id := range w.playerOrder {
		if p := w.players[id]; p != nil && !p.Bankrupt() {
			result = append(result, p)
		}
	}
	return result
}

// AdvanceTicks moves simulation time forward one tick at a time: scheduled
// tasks fire, then skill cooldowns advance for every role (players and
// NPCs) and action timeout guards run. Stepping tick-by-tick keeps a
// cooldown started mid-window (a cast completing partway through the
// advance) from being decremented for ticks that elapsed before it began;
// the tick the cooldown starts on never counts against it.
func (w *World) AdvanceTicks(ticks int64) {
	if ticks <= 0 {
		return
	}
	env := w.SkillEnv()
	for step := int64(0); step < ticks; step++ {
		w.clock.Advance(1)
		now := w.clock.Now()
		w.eachRole(func(r *Role) {
			for _, held := range r.Skills() {
				if held.LastUsedTick() < now {
					held.UpdateCooldown(1, env)
				}
			}
			if exec := r.Executor(); exec != nil {
				exec.CheckTimeout()
			}
		})
	}
	w.registry.SweepExpired(w.clock.Now())
}

// eachRole visits every registered role in registration order, players
// first.
func (w *World) eachRole(fn func(*Role)) {
	for _, id := range w.playerOrder {
		if p := w.players[id]; p != nil {
			fn(p.Role)
		}
	}
	for _, id := range w.npcOrder {
		if n := w.npcs[id]; n != nil {
			fn(n.Role)
		}
	}
}

// AdvanceTurn runs one full game turn: every alive player's StartTurn and
// EndTurn bracket, every NPC's per-turn update, and the winner check.
func (w *World) AdvanceTurn() {
	w.turnNumber++
	for _, p := range w.AlivePlayers() {
		p.StartTurn()
	}
	for _, id := range w.npcOrder {
		if n := w.npcs[id]; n != nil {
			n.UpdateNPC()
		}
	}
	for _, p := range w.AlivePlayers() {
		p.EndTurn()
	}
	w.checkWinner()
}

// checkWinner crowns the last solvent player once all others are bankrupt.
func (w *World) checkWinner() {
	alive := w.AlivePlayers()
	if len(alive) != 1 || len(w.playerOrder) < 2 {
		return
	}
	survivor := alive[0]
	if survivor.State() != RoleStateWinner {
		survivor.SetState(RoleStateWinner)
		w.logger.Info("winner decided", zap.String("role", survivor.ID()))
	}
}
