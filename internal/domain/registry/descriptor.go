// Package registry implements the dynamic tool registry: a name-keyed
// collection of tool descriptors that can be populated at startup and
// mutated at runtime without a restart. Every successful mutation is
// published on the event bus so the protocol layer can tell connected
// clients to refresh their tool list.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Origin records how a tool entered the registry. Static tools are
// registered during startup and cannot be removed through the runtime
// surface; external tools wrap a remote endpoint and can come and go
// for the lifetime of the process.
type Origin string

const (
	OriginStatic   Origin = "static"
	OriginExternal Origin = "external"
)

// InvocationKind selects one of the two invocation strategies.
type InvocationKind int

const (
	KindLocal InvocationKind = iota + 1
	KindRemote
)

// LocalFunc is an in-process tool implementation. Args arrive as a JSON
// object; the result must be valid JSON.
type LocalFunc func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// RemoteTarget describes an outbound HTTP call backing a tool.
type RemoteTarget struct {
	Endpoint string
	Method   string // GET, POST, PUT or DELETE
}

// Invocation is a two-case tagged variant: exactly one of Local or
// Remote is set, selected by Kind.
type Invocation struct {
	Kind   InvocationKind
	Local  LocalFunc
	Remote *RemoteTarget
}

// LocalInvocation wraps fn as a Local invocation strategy.
func LocalInvocation(fn LocalFunc) Invocation {
	return Invocation{Kind: KindLocal, Local: fn}
}

// RemoteInvocation builds a Remote invocation strategy. The method is
// normalized to upper case; validity is checked at registration time.
func RemoteInvocation(endpoint, method string) Invocation {
	return Invocation{
		Kind:   KindRemote,
		Remote: &RemoteTarget{Endpoint: endpoint, Method: strings.ToUpper(strings.TrimSpace(method))},
	}
}

// Descriptor is an immutable description of one invocable tool.
// The registry copies descriptors on registration; callers never hold a
// mutable reference to a registered descriptor.
type Descriptor struct {
	Name        string
	Description string
	Tags        []string
	InputSchema *jsonschema.Schema // nil means "any JSON object"
	Invocation  Invocation
}

// validate checks the descriptor invariants before registration.
func (d *Descriptor) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("tool name is required")
	}
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("tool description is required")
	}
	switch d.Invocation.Kind {
	case KindLocal:
		if d.Invocation.Local == nil {
			return fmt.Errorf("local tool %q has no function", d.Name)
		}
	case KindRemote:
		r := d.Invocation.Remote
		if r == nil || strings.TrimSpace(r.Endpoint) == "" {
			return fmt.Errorf("remote tool %q has no endpoint", d.Name)
		}
		if !supportedMethod(r.Method) {
			return fmt.Errorf("unsupported HTTP method: %s", r.Method)
		}
	default:
		return fmt.Errorf("tool %q has no invocation strategy", d.Name)
	}
	return nil
}

func supportedMethod(m string) bool {
	switch m {
	case "GET", "POST", "PUT", "DELETE":
		return true
	}
	return false
}

// clone returns a deep-enough copy so the registry exclusively owns its
// descriptors (tags slice detached; schema and remote target are treated
// as immutable after registration).
func (d Descriptor) clone() Descriptor {
	out := d
	if d.Tags != nil {
		out.Tags = append([]string(nil), d.Tags...)
	}
	if d.Invocation.Remote != nil {
		r := *d.Invocation.Remote
		out.Invocation.Remote = &r
	}
	return out
}
