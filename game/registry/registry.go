package registry

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrUnknownPlayer = errors.New("unknown player")

// IDLength is the length of generated player identities.
const IDLength = 9

// Conn is the send side of a live transport connection. The registry holds
// it as a handle only; the transport owns its lifetime.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// Registry assigns player identities to connections and resolves them back
// to their send handles.
type Registry struct {
	conns map[string]Conn
	newID func() string
	mu    sync.RWMutex
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
		newID: NewPlayerID,
	}
}

// NewPlayerID returns a short opaque identity derived from a random UUID.
func NewPlayerID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:IDLength]
}

// Register stores conn under an identity not held by any live connection
// and returns that identity.
func (r *Registry) Register(conn Conn) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, taken := r.conns[id]; !taken {
			break
		}
		id = r.newID()
	}

	r.conns[id] = conn
	return id
}

// Unregister forgets id. The identity may be issued again afterwards.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Lookup returns the connection registered under id.
func (r *Registry) Lookup(id string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Send delivers data to the connection registered under id.
func (r *Registry) Send(id string, data []byte) error {
	c, ok := r.Lookup(id)
	if !ok {
		return ErrUnknownPlayer
	}
	return c.Send(data)
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// IDs returns the identities of all live connections.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}
