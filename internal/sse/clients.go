// Package sse provides Server-Sent Events client management for autosave and
// publish notifications on composing drafts.
package sse

import (
	"sync"

	"github.com/jongan69/threadiverse/internal/model"
)

type Client struct {
	Msg     chan string
	DraftID model.DraftID
}

type Clients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewClients() *Clients {
	return &Clients{
		clients: make(map[*Client]bool),
	}
}

func (s *Clients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *Clients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, client)
	close(client.Msg)
}

// Broadcast sends msg to every client watching the draft. Slow clients are
// skipped rather than blocking the event loop.
func (s *Clients) Broadcast(draftID model.DraftID, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.DraftID == draftID {
			select {
			case client.Msg <- msg:
			default:
			}
		}
	}
}
