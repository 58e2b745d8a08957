package utils

import (
	"context"
	"fmt"
	"sync"

	"github.com/alwitt/clipsync/common"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
)

// SyncEventHub in-process fan-out of sync engine events.
//
// Listeners register explicitly against the hub instance; there is no
// process-wide registry. A listener falling behind loses events rather than
// stalling the publisher.
type SyncEventHub interface {
	/*
		Notify publish one event to all current listeners

			@param ctxt context.Context - execution context
			@param event common.SyncEvent - the event
	*/
	Notify(ctxt context.Context, event common.SyncEvent)

	/*
		Subscribe register a new listener

			@param name string - unique listener name
			@param bufferLen int - listener channel buffer length
			@returns the listener event channel
	*/
	Subscribe(name string, bufferLen int) (<-chan common.SyncEvent, error)

	/*
		Unsubscribe deregister a listener and close its channel

			@param name string - the listener name
	*/
	Unsubscribe(name string) error
}

// syncEventHubImpl implements SyncEventHub
type syncEventHubImpl struct {
	goutils.Component
	listeners map[string]chan common.SyncEvent
	lock      sync.RWMutex
}

/*
NewSyncEventHub define new sync event hub

	@returns new SyncEventHub
*/
func NewSyncEventHub() (SyncEventHub, error) {
	logTags := log.Fields{"module": "utils", "component": "sync-event-hub"}
	return &syncEventHubImpl{
		Component: goutils.Component{
			LogTags:         logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{goutils.ModifyLogMetadataByRestRequestParam},
		},
		listeners: make(map[string]chan common.SyncEvent),
	}, nil
}

func (h *syncEventHubImpl) Notify(ctxt context.Context, event common.SyncEvent) {
	logTags := h.GetLogTagsForContext(ctxt)
	h.lock.RLock()
	defer h.lock.RUnlock()
	for name, listener := range h.listeners {
		select {
		case listener <- event:
		default:
			log.
				WithFields(logTags).
				WithField("listener", name).
				WithField("event", string(event.Kind)).
				Warn("Listener channel full. Dropping event")
		}
	}
}

func (h *syncEventHubImpl) Subscribe(name string, bufferLen int) (<-chan common.SyncEvent, error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, exists := h.listeners[name]; exists {
		return nil, fmt.Errorf("listener '%s' already registered", name)
	}
	listener := make(chan common.SyncEvent, bufferLen)
	h.listeners[name] = listener
	return listener, nil
}

func (h *syncEventHubImpl) Unsubscribe(name string) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	listener, exists := h.listeners[name]
	if !exists {
		return fmt.Errorf("listener '%s' not registered", name)
	}
	delete(h.listeners, name)
	close(listener)
	return nil
}
