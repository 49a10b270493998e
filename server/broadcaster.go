package server

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"jobwire/models"
)

// Broadcaster fans run events out to connected SSE clients. Delivery is
// best-effort: a client whose channel is full simply misses the event.
type Broadcaster struct {
	sync.RWMutex
	clients map[string]chan models.RunEvent
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan models.RunEvent),
	}
}

// AddClient registers a client channel under a unique key.
func (b *Broadcaster) AddClient(key string, client chan models.RunEvent) {
	b.Lock()
	defer b.Unlock()
	b.clients[key] = client
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Adding client to broadcaster")
}

// RemoveClient unregisters a client and closes its channel.
func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()
	if client, ok := b.clients[key]; ok {
		close(client)
		delete(b.clients, key)
	}
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Removed client from broadcaster")
}

// Broadcast sends the event to every connected client without blocking.
func (b *Broadcaster) Broadcast(event models.RunEvent) {
	b.RLock()
	defer b.RUnlock()

	for id, client := range b.clients {
		select {
		case client <- event: // Non-blocking send
		default:
			log.Warnf("Client channel full, skipping event for client: %v", id)
		}
	}
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.clients {
		close(client)
		delete(b.clients, key)
	}
}
