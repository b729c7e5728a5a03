package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/matiasleandrokruk/dynmcp/internal/infra/eventbus"
)

var (
	ErrToolConflict = errors.New("tool already exists")
	ErrToolNotFound = errors.New("tool not found")
)

// InvocationError reports a failed tool invocation. It wraps the
// underlying cause; StatusCode is set when a remote call returned a
// non-success HTTP status.
type InvocationError struct {
	Tool       string
	StatusCode int
	Err        error
}

func (e *InvocationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("invoke %s: status %d: %v", e.Tool, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("invoke %s: %v", e.Tool, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// TopicToolsChanged is the event bus topic for tool set mutations.
const TopicToolsChanged = "tools.changed"

// Change actions published on TopicToolsChanged.
const (
	ActionRegistered   = "registered"
	ActionUnregistered = "unregistered"
)

// ChangeEvent is the payload published after every successful mutation.
type ChangeEvent struct {
	Action string
	Tool   string
}

// Summary is the read-only listing view of a registered tool.
type Summary struct {
	Name        string
	Description string
	Tags        []string
	Origin      Origin
	Endpoint    string // remote tools only
	Method      string // remote tools only
}

// Registry is the single in-process tool registry. One mutex guards the
// entries table, the origin table and the insertion-order list together,
// so no caller can ever observe a name present in one table but absent
// from the other.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Descriptor
	origin  map[string]Origin
	order   []string

	bus    eventbus.EventBus
	client *http.Client
}

const defaultInvokeTimeout = 30 * time.Second

// New creates an empty registry. The bus receives a ChangeEvent on
// TopicToolsChanged after every successful Register/Unregister; pass nil
// to disable notifications. invokeTimeout bounds each remote invocation
// (zero selects the 30s default).
func New(bus eventbus.EventBus, invokeTimeout time.Duration) *Registry {
	if invokeTimeout <= 0 {
		invokeTimeout = defaultInvokeTimeout
	}
	return &Registry{
		entries: make(map[string]*Descriptor),
		origin:  make(map[string]Origin),
		bus:     bus,
		client:  &http.Client{Timeout: invokeTimeout},
	}
}

// Register adds a descriptor under the given origin. Returns
// ErrToolConflict when the name is already taken; on any error the
// registry is left unchanged.
func (r *Registry) Register(d Descriptor, origin Origin) error {
	if err := d.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.entries[d.Name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrToolConflict, d.Name)
	}
	owned := d.clone()
	r.entries[d.Name] = &owned
	r.origin[d.Name] = origin
	r.order = append(r.order, d.Name)
	r.mu.Unlock()

	r.notify(ActionRegistered, d.Name)
	return nil
}

// Unregister removes a runtime-registered external tool. Static tools
// and unknown names both fail with ErrToolNotFound; the runtime surface
// deliberately cannot tell the two apart.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	if o, ok := r.origin[name]; !ok || o != OriginExternal {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	delete(r.entries, name)
	delete(r.origin, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.notify(ActionUnregistered, name)
	return nil
}

// List returns summaries for all registered tools in insertion order.
func (r *Registry) List() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Summary, 0, len(r.order))
	for _, name := range r.order {
		d := r.entries[name]
		s := Summary{
			Name:        d.Name,
			Description: d.Description,
			Tags:        append([]string(nil), d.Tags...),
			Origin:      r.origin[name],
		}
		if d.Invocation.Kind == KindRemote {
			s.Endpoint = d.Invocation.Remote.Endpoint
			s.Method = d.Invocation.Remote.Method
		}
		out = append(out, s)
	}
	return out
}

// Lookup returns a copy of the descriptor for name, or ErrToolNotFound.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.entries[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return d.clone(), nil
}

// Invoke looks up name and dispatches per its invocation strategy.
// Unknown names fail with ErrToolNotFound; any failure of the underlying
// call surfaces as *InvocationError carrying the cause. A single attempt
// is made per invocation, never retried.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	r.mu.Lock()
	d, ok := r.entries[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}

	switch d.Invocation.Kind {
	case KindLocal:
		out, err := d.Invocation.Local(ctx, args)
		if err != nil {
			return nil, &InvocationError{Tool: name, Err: err}
		}
		return out, nil
	case KindRemote:
		return r.invokeRemote(ctx, name, d.Invocation.Remote, args)
	default:
		return nil, &InvocationError{Tool: name, Err: fmt.Errorf("no invocation strategy")}
	}
}

func (r *Registry) notify(action, name string) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(TopicToolsChanged, ChangeEvent{Action: action, Tool: name})
}
