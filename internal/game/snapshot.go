package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/tycoonplay/tycoon-server-go/internal/game/attrs"
)

// RoleSnapshot is the full exportable state of a role: attributes,
// position and lifecycle state, plus the player ledger when present.
// Reloading a snapshot into a fresh role reproduces identical attribute,
// state and position reads.
type RoleSnapshot struct {
	ID          string
	Name        string
	Kind        RoleKind
	TypeID      int
	State       RoleState
	CurrentTile int
	TargetTile  int
	Permanent   map[attrs.Kind]int
	Temporary   map[attrs.Kind]int
	Cards       []int

	Player *PlayerSnapshot // nil for NPCs
}

// PlayerSnapshot is the player-specific extension of a role snapshot.
type PlayerSnapshot struct {
	PropertyValue int
	Debt          int
	Properties    []Property
	JailTurns     int
	HasEscapeCard bool
	FreeRentTurns int
	Bankruptcies  int
}

// ExportRole captures a role's full data.
func ExportRole(r *Role) *RoleSnapshot {
	permanent, temporary := r.Attributes().Snapshot()
	return &RoleSnapshot{
		ID:          r.ID(),
		Name:        r.DisplayName(),
		Kind:        r.Kind(),
		TypeID:      r.TypeID(),
		State:       r.State(),
		CurrentTile: r.CurrentTile(),
		TargetTile:  r.TargetTile(),
		Permanent:   permanent,
		Temporary:   temporary,
		Cards:       append([]int(nil), r.Cards()...),
	}
}

// ExportPlayer captures a player including the financial ledger.
func ExportPlayer(p *Player) *RoleSnapshot {
	snapshot := ExportRole(p.Role)
	snapshot.Player = &PlayerSnapshot{
		PropertyValue: p.PropertyValue(),
		Debt:          p.Debt(),
		Properties:    append([]Property(nil), p.Properties()...),
		JailTurns:     p.JailTurns(),
		HasEscapeCard: p.HasEscapeCard(),
		FreeRentTurns: p.FreeRentTurns(),
		Bankruptcies:  p.Bankruptcies(),
	}
	return snapshot
}

// ApplyToRole loads the snapshot into an initialized role in place,
// bypassing change notifications.
func (s *RoleSnapshot) ApplyToRole(r *Role) {
	r.id = s.ID
	r.name = s.Name
	r.typeID = s.TypeID
	r.state = s.State
	r.currentTile = s.CurrentTile
	r.targetTile = s.TargetTile
	r.Attributes().Restore(s.Permanent, s.Temporary)
	r.cards = append(r.cards[:0], s.Cards...)
}

// ApplyToPlayer loads the snapshot, ledger included, into a player.
func (s *RoleSnapshot) ApplyToPlayer(p *Player) {
	s.ApplyToRole(p.Role)
	p.cash = p.GetAttr(attrs.KindMoney)
	if s.Player == nil {
		return
	}
	p.debt = s.Player.Debt
	p.properties = append(p.properties[:0], s.Player.Properties...)
	p.recomputePropertyValue()
	p.jailTurns = s.Player.JailTurns
	p.hasEscapeCard = s.Player.HasEscapeCard
	p.freeRentTurns = s.Player.FreeRentTurns
	p.bankruptcies = s.Player.Bankruptcies
}

// Checksum computes a deterministic digest of the snapshot, independent of
// map iteration order. Used to guard against divergent states across
// replays.
func (s *RoleSnapshot) Checksum() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "ROLE:%s|%s|%s|%d|%s|%d|%d\n",
		s.ID, s.Name, s.Kind, s.TypeID, s.State, s.CurrentTile, s.TargetTile)

	writeAttrTable(&buf, "PERM", s.Permanent)
	writeAttrTable(&buf, "TEMP", s.Temporary)

	cards := append([]int(nil), s.Cards...)
	sort.Ints(cards)
	for _, card := range cards {
		fmt.Fprintf(&buf, "CARD:%d\n", card)
	}

	if s.Player != nil {
		fmt.Fprintf(&buf, "LEDGER:%d|%d|%d|%t|%d|%d\n",
			s.Player.PropertyValue, s.Player.Debt, s.Player.JailTurns,
			s.Player.HasEscapeCard, s.Player.FreeRentTurns, s.Player.Bankruptcies)
		properties := append([]Property(nil), s.Player.Properties...)
		sort.Slice(properties, func(i, j int) bool { return properties[i].ID < properties[j].ID })
		for _, record := range properties {
			fmt.Fprintf(&buf, "PROPERTY:%d|%s|%d|%d|%d|%s|%d\n",
				record.ID, record.Name, record.PurchasePrice, record.CurrentValue,
				record.ImprovementLevel, record.Group, record.TileID)
		}
	}

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

func writeAttrTable(buf *bytes.Buffer, label string, table map[attrs.Kind]int) {
	kinds := make([]string, 0, len(table))
	for kind := range table {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(buf, "%s:%s=%d\n", label, kind, table[attrs.Kind(kind)])
	}
}
