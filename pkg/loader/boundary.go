package loader

import (
	"fmt"
	"reflect"
	"sync"
	"weak"

	"github.com/traefik/yaegi/interp"
)

// Boundary is one plugin's isolated loading scope. It owns the interpreter
// the plugin's code lives in; once RequestUnload drops that reference the
// boundary is spent and every method fails.
type Boundary struct {
	pluginID string

	mu      sync.Mutex
	interp  *interp.Interpreter
	tracker *Tracker
}

// PluginID returns the id of the plugin this boundary was created for.
func (b *Boundary) PluginID() string {
	return b.pluginID
}

// Resolve evaluates a symbol inside the boundary, e.g. "main.NewEchoGreeter".
// Returns the zero Value and an error when the symbol does not exist or the
// boundary has been unloaded.
func (b *Boundary) Resolve(symbol string) (reflect.Value, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.interp == nil {
		return reflect.Value{}, fmt.Errorf("boundary for plugin %s is unloaded", b.pluginID)
	}
	v, err := b.interp.Eval(symbol)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("resolve %s: %w", symbol, err)
	}
	return v, nil
}

// Instantiate resolves a service constructor and invokes it. Constructors
// are niladic and return a single value; anything else is a load error for
// this plugin, not a panic.
func (b *Boundary) Instantiate(symbol string) (instance interface{}, err error) {
	v, err := b.Resolve("main." + symbol)
	if err != nil {
		return nil, err
	}
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("symbol %s is %s, not a constructor", symbol, v.Kind())
	}
	t := v.Type()
	if t.NumIn() != 0 || t.NumOut() != 1 {
		return nil, fmt.Errorf("constructor %s must take no arguments and return one value", symbol)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor %s panicked: %v", symbol, r)
		}
	}()
	out := v.Call(nil)
	return out[0].Interface(), nil
}

// RequestUnload drops the boundary's interpreter reference and returns a
// Tracker observing it. Unload is a request: reclamation happens only after
// every other strong reference into the boundary is gone, which the caller
// verifies through the tracker. Idempotent.
func (b *Boundary) RequestUnload() *Tracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tracker == nil {
		b.tracker = &Tracker{handle: weak.Make(b.interp)}
		b.interp = nil
	}
	return b.tracker
}

// Tracker observes a torn-down boundary through a weak pointer, so holding a
// tracker never keeps the boundary alive.
type Tracker struct {
	handle weak.Pointer[interp.Interpreter]
}

// Reclaimed reports whether the boundary's interpreter has been collected.
func (t *Tracker) Reclaimed() bool {
	return t.handle.Value() == nil
}
