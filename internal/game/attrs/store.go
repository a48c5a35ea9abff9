package attrs

// Kind identifies a numeric attribute tracked on a role.
type Kind string

const (
	// Core attributes
	KindMoney        Kind = "MONEY"
	KindHP           Kind = "HP"
	KindLuck         Kind = "LUCK"
	KindStrength     Kind = "STRENGTH"
	KindIntelligence Kind = "INTELLIGENCE"
	KindCharm        Kind = "CHARM"
	KindLevel        Kind = "LEVEL"

	// Flag-like attributes
	KindBankrupt Kind = "BANKRUPT"
	KindFreeRent Kind = "FREE_RENT"

	// NPC interaction attributes
	KindDefense Kind = "DEFENSE"
	KindSpeed   Kind = "SPEED"
)

// Store keeps a permanent attribute table plus a temporary overlay.
// The effective value of a kind is permanent + temporary; neither layer
// clamps or validates, bounds are a caller concern.
type Store struct {
	permanent map[Kind]int
	temporary map[Kind]int
}

// NewStore creates an empty attribute store.
func NewStore() *Store {
	return &Store{
		permanent: make(map[Kind]int),
		temporary: make(map[Kind]int),
	}
}

// Get returns the effective value for the kind (missing entries count as 0).
func (s *Store) Get(kind Kind) int {
	return s.permanent[kind] + s.temporary[kind]
}

// GetPermanent returns only the permanent layer value.
func (s *Store) GetPermanent(kind Kind) int {
	return s.permanent[kind]
}

// GetTemporary returns only the temporary overlay value.
func (s *Store) GetTemporary(kind Kind) int {
	return s.temporary[kind]
}

// SetPermanent replaces the permanent value for the kind.
func (s *Store) SetPermanent(kind Kind, value int) {
	s.permanent[kind] = value
}

// AddPermanent adjusts the permanent value by delta.
func (s *Store) AddPermanent(kind Kind, delta int) {
	s.permanent[kind] += delta
}

// SetTemporary replaces the temporary overlay value for the kind.
func (s *Store) SetTemporary(kind Kind, value int) {
	s.temporary[kind] = value
}

// AddTemporary adjusts the temporary overlay by delta.
func (s *Store) AddTemporary(kind Kind, delta int) {
	s.temporary[kind] += delta
}

// ClearTemporary removes the temporary overlay for one kind.
func (s *Store) ClearTemporary(kind Kind) {
	delete(s.temporary, kind)
}

// ClearAllTemporary removes the whole temporary overlay.
func (s *Store) ClearAllTemporary() {
	s.temporary = make(map[Kind]int)
}

// Reset clears both layers, returning the store to its initial state.
func (s *Store) Reset() {
	s.permanent = make(map[Kind]int)
	s.temporary = make(map[Kind]int)
}

// Snapshot returns a copy of both layers for export.
func (s *Store) Snapshot() (permanent, temporary map[Kind]int) {
	permanent = make(map[Kind]int, len(s.permanent))
	for k, v := range s.permanent {
		permanent[k] = v
	}
	temporary = make(map[Kind]int, len(s.temporary))
	for k, v := range s.temporary {
		temporary[k] = v
	}
	return permanent, temporary
}

// Restore replaces both layers with the provided tables.
// Nil maps are treated as empty.
func (s *Store) Restore(permanent, temporary map[Kind]int) {
	s.permanent = make(map[Kind]int, len(permanent))
	for k, v := range permanent {
		s.permanent[k] = v
	}
	s.temporary = make(map[Kind]int, len(temporary))
	for k, v := range temporary {
		s.temporary[k] = v
	}
}

// Kinds returns every kind present in either layer.
func (s *Store) Kinds() []Kind {
	seen := make(map[Kind]bool, len(s.permanent)+len(s.temporary))
	var kinds []Kind
	for k := range s.permanent {
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	for k := range s.temporary {
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds
}
