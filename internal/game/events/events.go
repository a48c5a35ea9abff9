package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType indicates the category of a simulation event.
type EventType string

const (
	// Role lifecycle events
	EventRoleInitialized      EventType = "ROLE_INITIALIZED"
	EventRoleAttributeChanged EventType = "ROLE_ATTRIBUTE_CHANGED"
	EventRoleStateChanged     EventType = "ROLE_STATE_CHANGED"
	EventRolePositionChanged  EventType = "ROLE_POSITION_CHANGED"
	EventRoleReset            EventType = "ROLE_RESET"
	EventRoleDestroyed        EventType = "ROLE_DESTROYED"

	// Player events
	EventPlayerPropertyBought EventType = "PLAYER_PROPERTY_BOUGHT"
	EventPlayerPropertySold   EventType = "PLAYER_PROPERTY_SOLD"
	EventPlayerMoneyPaid      EventType = "PLAYER_MONEY_PAID"
	EventPlayerMoneyReceived  EventType = "PLAYER_MONEY_RECEIVED"
	EventPlayerBankrupt       EventType = "PLAYER_BANKRUPT"
	EventPlayerTurnStart      EventType = "PLAYER_TURN_START"
	EventPlayerTurnEnd        EventType = "PLAYER_TURN_END"
	EventPlayerJailed         EventType = "PLAYER_JAILED"
	EventPlayerJailExit       EventType = "PLAYER_JAIL_EXIT"

	// NPC events
	EventNpcSpawned   EventType = "NPC_SPAWNED"
	EventNpcTriggered EventType = "NPC_TRIGGERED"
	EventNpcDespawn   EventType = "NPC_DESPAWN"

	// Skill events
	EventSkillUsed          EventType = "SKILL_USED"
	EventSkillInterrupted   EventType = "SKILL_INTERRUPTED"
	EventSkillCooldownStart EventType = "SKILL_COOLDOWN_START"
	EventSkillCooldownEnd   EventType = "SKILL_COOLDOWN_END"

	// Action events
	EventActionStart     EventType = "ACTION_START"
	EventActionEnd       EventType = "ACTION_END"
	EventActionCancelled EventType = "ACTION_CANCELLED"

	// Effect request events. The core computes the intended magnitude and
	// emits these for an external system to fulfill; it never moves pieces
	// or grants cards itself.
	EventMoveRequest        EventType = "MOVE_REQUEST"
	EventTeleportRequest    EventType = "TELEPORT_REQUEST"
	EventRentFreeRequest    EventType = "RENT_FREE_REQUEST"
	EventDiceControlRequest EventType = "DICE_CONTROL_REQUEST"
	EventCardDrawRequest    EventType = "CARD_DRAW_REQUEST"
)

// Event represents a state change that external observers may react to.
// Events are emitted synchronously at the point of mutation, before the
// triggering call returns.
type Event struct {
	ID        string
	Type      EventType
	RoleID    string // role the event happened to
	TargetID  string // secondary role, when the event involves two parties
	SourceID  string // skill/NPC/action that caused the event
	Attribute string // attribute kind for attribute changes
	OldValue  int
	NewValue  int
	Amount    int    // numeric payload (money, damage, tiles, turns)
	Data      string // additional string payload (state names, categories)
	Metadata  map[string]string
	Timestamp time.Time
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// Bus provides a synchronous publish/subscribe implementation with type
// filtering. It is injected into the core at construction; there is no
// process-wide dispatcher.
type Bus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewBus constructs a fresh event bus instance.
func NewBus() *Bus {
	return &Bus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *Bus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *Bus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *Bus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *Bus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}

	if typedListeners, ok := bus.typedListeners[event.Type]; ok {
		for _, listener := range typedListeners {
			listener.Callback(event)
		}
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, roleID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RoleID:    roleID,
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}
}

// NewAttributeEvent creates an attribute-change event payload.
func NewAttributeEvent(roleID, attribute string, oldValue, newValue int) Event {
	evt := NewEvent(EventRoleAttributeChanged, roleID)
	evt.Attribute = attribute
	evt.OldValue = oldValue
	evt.NewValue = newValue
	return evt
}

// NewStateEvent creates a state-change event payload. State names travel in
// Data as "old->new" plus Old/New in metadata for structured consumers.
func NewStateEvent(roleID, oldState, newState string) Event {
	evt := NewEvent(EventRoleStateChanged, roleID)
	evt.Data = oldState + "->" + newState
	evt.Metadata["old"] = oldState
	evt.Metadata["new"] = newState
	return evt
}
