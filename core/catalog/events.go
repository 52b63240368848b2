package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType identifies a collection lifecycle event.
type EventType string

// Events emitted by the one-shot collection helpers and the watch registry.
const (
	DocumentGetStart       EventType = "document:get:start"
	DocumentGetSuccess     EventType = "document:get:success"
	DocumentGetFailed      EventType = "document:get:failed"
	DocumentReplaceStart   EventType = "document:replace:start"
	DocumentReplaceSuccess EventType = "document:replace:success"
	DocumentReplaceFailed  EventType = "document:replace:failed"
	DocumentUpsertStart    EventType = "document:upsert:start"
	DocumentUpsertSuccess  EventType = "document:upsert:success"
	DocumentUpsertFailed   EventType = "document:upsert:failed"
	DocumentRemoveStart    EventType = "document:remove:start"
	DocumentRemoveSuccess  EventType = "document:remove:success"
	DocumentRemoveFailed   EventType = "document:remove:failed"
	WatchRegister          EventType = "watch:register"
	WatchUnregister        EventType = "watch:unregister"
)

// CollectionEvent describes one collection operation for observers.
type CollectionEvent struct {
	Type       EventType `json:"type"`
	Timestamp  int64     `json:"timestamp"` // Unix milliseconds
	Operation  string    `json:"operation"`
	Collection string    `json:"collection"`
	Input      any       `json:"input,omitempty"`
	Output     any       `json:"output,omitempty"`
	Error      *string   `json:"error,omitempty"`
	Duration   *int64    `json:"duration,omitempty"` // milliseconds
}

// WatchCallback receives collection events for a registered watch.
type WatchCallback func(ctx context.Context, event CollectionEvent) error

type watchInfo struct {
	id          string
	event       EventType
	unsubscribe func()
}

// eventHub owns the typed bus and the watch registry of one collection.
type eventHub struct {
	bus        *events.TypedEventBus[CollectionEvent]
	collection string
	logger     *zap.Logger

	mu      sync.Mutex
	watches map[string]*watchInfo
}

func newEventHub(collection string, logger *zap.Logger) (*eventHub, error) {
	bus, err := events.NewTypedEventBus[CollectionEvent](events.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &eventHub{
		bus:        bus,
		collection: collection,
		logger:     logger,
		watches:    make(map[string]*watchInfo),
	}, nil
}

func (h *eventHub) emit(event CollectionEvent) {
	if h == nil || h.bus == nil {
		return
	}
	h.bus.Emit(string(event.Type), event)
}

// watch registers a callback for one event type and returns the watch handle.
func (h *eventHub) watch(event EventType, cb WatchCallback) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	unsubscribe := h.bus.Subscribe(string(event), cb)
	id := uuid.New().String()
	h.watches[id] = &watchInfo{id: id, event: event, unsubscribe: unsubscribe}

	h.emit(createEvent(WatchRegister, "watch", h.collection,
		map[string]any{"event": event, "watchId": id}, nil, nil, time.Time{}))
	h.logger.Debug("watch registered",
		zap.String("collection", h.collection),
		zap.String("event", string(event)),
		zap.String("watchId", id))
	return id
}

// unwatch removes a watch by handle. Unknown handles are ignored.
func (h *eventHub) unwatch(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	info, ok := h.watches[id]
	if !ok {
		return
	}
	info.unsubscribe()
	delete(h.watches, id)

	h.emit(createEvent(WatchUnregister, "watch", h.collection,
		map[string]any{"watchId": id}, nil, nil, time.Time{}))
	h.logger.Debug("watch unregistered",
		zap.String("collection", h.collection),
		zap.String("watchId", id))
}

func createEvent(
	eventType EventType,
	operation string,
	collection string,
	input any,
	output any,
	errMsg *string,
	startTime time.Time,
) CollectionEvent {
	var duration *int64
	if !startTime.IsZero() {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}
	return CollectionEvent{
		Type:       eventType,
		Timestamp:  time.Now().UnixMilli(),
		Operation:  operation,
		Collection: collection,
		Input:      input,
		Output:     output,
		Error:      errMsg,
		Duration:   duration,
	}
}

// withEvents wraps a one-shot operation with start, success and failure
// events.
func (h *eventHub) withEvents(
	operation string,
	startType, successType, failedType EventType,
	input any,
	fn func() (any, error),
) (any, error) {
	startTime := time.Now()
	h.emit(createEvent(startType, operation, h.collection, input, nil, nil, startTime))

	result, err := fn()
	if err != nil {
		errStr := err.Error()
		h.emit(createEvent(failedType, operation, h.collection, input, nil, &errStr, startTime))
		return nil, err
	}

	h.emit(createEvent(successType, operation, h.collection, input, result, nil, startTime))
	return result, nil
}
