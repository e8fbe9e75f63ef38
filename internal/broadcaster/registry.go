package broadcaster

import (
	"errors"
	"sync"

	"github.com/goevery/rendezvous/internal/metrics"
	"go.uber.org/zap"
)

var ErrAlreadyRegistered = errors.New("connection already registered")

type Registry interface {
	Register(connection *Connection) error
	Unregister(connectionId string)
	// Deliver enqueues event to every listed connection that is still open and
	// returns how many accepted it. Delivery is best-effort.
	Deliver(event Event, connectionIds []string) int
}

type InMemoryRegistry struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	mu      sync.RWMutex

	connections map[string]*Connection
}

func NewInMemoryRegistry(
	logger *zap.Logger,
	metrics *metrics.Metrics,
) *InMemoryRegistry {
	return &InMemoryRegistry{
		logger:      logger,
		metrics:     metrics,
		connections: make(map[string]*Connection),
	}
}

func (r *InMemoryRegistry) Deliver(event Event, connectionIds []string) int {
	if len(connectionIds) == 0 {
		return 0
	}

	r.mu.RLock()

	var delivered int
	var staleConnectionIds []string

	for _, connectionId := range connectionIds {
		connection, ok := r.connections[connectionId]
		if !ok {
			continue
		}

		select {
		case connection.Send <- event:
			delivered++
		default:
			r.logger.Warn("connection send channel is full, closing connection",
				zap.String("connectionId", connection.Id),
				zap.String("method", event.Method))

			staleConnectionIds = append(staleConnectionIds, connection.Id)
		}
	}

	r.mu.RUnlock()

	r.metrics.EventsDelivered.WithLabelValues(event.Method).Add(float64(delivered))

	if len(staleConnectionIds) == 0 {
		return delivered
	}

	r.metrics.EventsDropped.Add(float64(len(staleConnectionIds)))

	r.mu.Lock()

	for _, connectionId := range staleConnectionIds {
		r.unregisterLocked(connectionId)
	}

	r.mu.Unlock()

	return delivered
}

func (r *InMemoryRegistry) Register(connection *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[connection.Id]; ok {
		return ErrAlreadyRegistered
	}

	r.connections[connection.Id] = connection
	r.metrics.OpenConnections.Inc()

	return nil
}

func (r *InMemoryRegistry) Unregister(connectionId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unregisterLocked(connectionId)
}

// IMPORTANT: It must be called only when a write lock is already held.
func (r *InMemoryRegistry) unregisterLocked(connectionId string) {
	connection, ok := r.connections[connectionId]
	if !ok {
		return
	}

	delete(r.connections, connectionId)
	close(connection.Send)

	r.metrics.OpenConnections.Dec()
}
