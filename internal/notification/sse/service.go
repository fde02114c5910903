// Package sse provides Server-Sent Events support for real-time console updates.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events pushed to the console.
type EventType string

const (
	EventContactReceived  EventType = "contact_received"
	EventContactUpdated   EventType = "contact_updated"
	EventMessageReceived  EventType = "message_received"
	EventCallUpdated      EventType = "call_updated"
	EventSLAAlertRaised   EventType = "sla_alert_raised"
	EventSLAAlertCleared  EventType = "sla_alert_cleared"
)

// Event represents an SSE event payload. It carries only identifiers and the
// new state; subscribers re-query the API for full entities.
type Event struct {
	Type     EventType  `json:"type"`
	EntityID uuid.UUID  `json:"entityId"`
	SectorID *uuid.UUID `json:"sectorId,omitempty"`
	NewState string     `json:"newState,omitempty"`
}

// client represents a connected SSE client, optionally scoped to one sector.
type client struct {
	sectorID *uuid.UUID
	events   chan Event
}

// wants reports whether the client's sector filter matches the event.
func (c *client) wants(e Event) bool {
	if c.sectorID == nil || e.SectorID == nil {
		return true
	}
	return *c.sectorID == *e.SectorID
}

// Service manages SSE connections and event broadcasting.
type Service struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// New creates a new SSE service.
func New() *Service {
	return &Service{clients: make(map[*client]struct{})}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.events)
	}
}

// Publish broadcasts an event to every subscriber whose sector filter matches.
// Slow clients are skipped rather than blocking the publisher.
func (s *Service) Publish(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		if !c.wants(event) {
			continue
		}
		select {
		case c.events <- event:
		default:
		}
	}
}

// Handler returns a Gin handler for SSE connections. The optional sectorId
// query parameter scopes the stream to one sector's events.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sectorID *uuid.UUID
		if raw := c.Query("sectorId"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sectorId"})
				return
			}
			sectorID = &id
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			sectorID: sectorID,
			events:   make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"sectorId": sectorID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close shuts down the SSE service.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		close(c.events)
	}
	s.clients = make(map[*client]struct{})
}
