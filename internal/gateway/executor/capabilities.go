package executor

import (
	"context"
	"sort"
	"sync"

	"github.com/allisson/resourcegateway/internal/gateway/domain"
)

// AnyType registers a handler for every entity type.
const AnyType = "*"

// Handler executes one action against one resolved item.
type Handler func(ctx context.Context, call *Call) (domain.ActionResult, error)

type capabilityKey struct {
	entityType string
	action     string
}

// Capabilities maps (entity type, action) to handlers. Concrete types publish the
// actions they support; lookups fall back from the concrete type to the base type
// of the collection and then to AnyType.
type Capabilities struct {
	mu       sync.RWMutex
	handlers map[capabilityKey]Handler
}

// NewCapabilities creates an empty capability table.
func NewCapabilities() *Capabilities {
	return &Capabilities{handlers: make(map[capabilityKey]Handler)}
}

// Register publishes handler for action on entityType. Registering the same pair
// twice replaces the handler.
func (c *Capabilities) Register(entityType, action string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[capabilityKey{entityType: entityType, action: action}] = handler
}

// Lookup returns the handler for action, trying entityType, then baseType, then AnyType.
func (c *Capabilities) Lookup(entityType, baseType, action string) (Handler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, t := range []string{entityType, baseType, AnyType} {
		if t == "" {
			continue
		}
		if h, ok := c.handlers[capabilityKey{entityType: t, action: action}]; ok {
			return h, true
		}
	}
	return nil, false
}

// Supports reports whether a handler exists for action.
func (c *Capabilities) Supports(entityType, baseType, action string) bool {
	_, ok := c.Lookup(entityType, baseType, action)
	return ok
}

// Actions lists the actions registered exactly for entityType, sorted.
func (c *Capabilities) Actions(entityType string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for k := range c.handlers {
		if k.entityType == entityType {
			out = append(out, k.action)
		}
	}
	sort.Strings(out)
	return out
}
