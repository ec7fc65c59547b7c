package engine

import "sync"

// Event types, published on an [EventBus]. The payload carries the relevant
// entity.
const (
	EventProcessStarted    = "process:started"    // Payload: [ProcessInstance]
	EventProcessCompleted  = "process:completed"  // Payload: [ProcessInstance]
	EventProcessSuspended  = "process:suspended"  // Payload: [ProcessInstance]
	EventProcessResumed    = "process:resumed"    // Payload: [ProcessInstance]
	EventProcessTerminated = "process:terminated" // Payload: [ProcessInstance]

	EventTaskCreated   = "task:created"   // Payload: [Task]
	EventTaskCompleted = "task:completed" // Payload: [Task]

	EventTokenCreated = "token:created" // Payload: [Token]
	EventTokenMoved   = "token:moved"   // Payload: [Token]

	EventVariablesSet = "variables:set" // Payload: [ProcessInstance]
	EventRoutingError = "routing:error" // Payload: [ProcessInstance]
)

// An Event notifies subscribers about an engine-side state change.
type Event struct {
	Type    string // Event type - see constants.
	Payload any    // The relevant entity.
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// An EventBus is a typed publish/subscribe channel between an engine and its
// collaborators - e.g. a UI panel or telemetry. It is passed by reference via
// [Options].
//
// Handlers are invoked synchronously on the publishing goroutine and must not
// block. A nil bus discards all events.
type EventBus struct {
	mutex    sync.RWMutex
	sequence int
	handlers []eventHandler
}

type eventHandler struct {
	id        int
	eventType string // empty matches every event type
	handle    func(Event)
}

// Subscribe registers a handler for a specific event type. An empty event
// type subscribes to all events. The returned function cancels the
// subscription.
func (b *EventBus) Subscribe(eventType string, handle func(Event)) func() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.sequence++
	id := b.sequence

	b.handlers = append(b.handlers, eventHandler{id: id, eventType: eventType, handle: handle})

	return func() {
		b.mutex.Lock()
		defer b.mutex.Unlock()

		for i := range b.handlers {
			if b.handlers[i].id == id {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers an event to all matching subscribers.
func (b *EventBus) Publish(event Event) {
	if b == nil {
		return
	}

	b.mutex.RLock()
	handlers := make([]eventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mutex.RUnlock()

	for _, handler := range handlers {
		if handler.eventType == "" || handler.eventType == event.Type {
			handler.handle(event)
		}
	}
}
