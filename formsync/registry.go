// file: formsync/registry.go
package formsync

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"shareform/logger"
	"shareform/protocol"
)

// Routing failures. None of them is fatal; the envelope is dropped.
var (
	ErrUnknownViewModel = errors.New("unknown view-model")
	ErrUnknownProperty  = errors.New("unknown property")
	ErrValueKind        = errors.New("value kind mismatch")
)

// Sender puts an encoded envelope on the wire.
type Sender interface {
	Send(data []byte) error
}

// Field is one (view-model, property, initial value) triple of the schema.
// Both peers must register the same fields for routing to succeed.
type Field struct {
	ViewModel string
	Property  string
	Initial   protocol.Value
}

// setter writes a checked value into a property's cell.
type setter func(protocol.Value) error

type property struct {
	cell      *Cell
	debounced *Debounced
	set       setter
	cancel    func()
}

type viewModel struct {
	name  string
	props map[string]*property
}

// Registry maps view-model names to their properties, routes inbound
// envelopes to the right setter and sends each property's settled values.
type Registry struct {
	loop    *Loop
	sender  Sender
	guard   *EchoGuard
	quiet   time.Duration
	onApply func(viewModel string)
	entries map[string]*viewModel
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithQuietPeriod sets the debounce interval for every property.
func WithQuietPeriod(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.quiet = d
	}
}

// WithRemoteUpdateHook is called with the view-model name after every
// successful inbound write.
func WithRemoteUpdateHook(fn func(viewModel string)) RegistryOption {
	return func(r *Registry) {
		r.onApply = fn
	}
}

// NewRegistry returns an empty registry that sends through sender.
func NewRegistry(loop *Loop, sender Sender, guard *EchoGuard, opts ...RegistryOption) *Registry {
	r := &Registry{
		loop:    loop,
		sender:  sender,
		guard:   guard,
		quiet:   DefaultQuietPeriod,
		entries: make(map[string]*viewModel),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a view-model with the given properties and initial values.
// A view-model registered twice replaces the first one.
func (r *Registry) Register(name string, props map[string]protocol.Value) {
	if old, ok := r.entries[name]; ok {
		logger.Warn.Printf("[Registry.Register] view-model %q registered twice; replacing", name)
		old.stop()
	}

	vm := &viewModel{name: name, props: make(map[string]*property, len(props))}
	for propName, initial := range props {
		if !initial.Valid() {
			initial = protocol.String("")
		}
		cell := NewCell(initial)
		p := &property{
			cell:      cell,
			debounced: Debounce(r.loop, cell, r.quiet),
			set:       typedSetter(name, propName, cell),
		}
		p.cancel = r.WireOutbound(name, propName, p.debounced)
		vm.props[propName] = p
	}
	r.entries[name] = vm
	logger.Debug.Printf("[Registry.Register] view-model=%s properties=%d", name, len(props))
}

// RegisterFields groups schema triples by view-model and registers each.
func (r *Registry) RegisterFields(fields []Field) {
	grouped := make(map[string]map[string]protocol.Value)
	var order []string
	for _, f := range fields {
		if _, ok := grouped[f.ViewModel]; !ok {
			grouped[f.ViewModel] = make(map[string]protocol.Value)
			order = append(order, f.ViewModel)
		}
		grouped[f.ViewModel][f.Property] = f.Initial
	}
	for _, name := range order {
		r.Register(name, grouped[name])
	}
}

// typedSetter fixes the property's kind from its initial value.
func typedSetter(vm, prop string, cell *Cell) setter {
	kind := cell.Kind()
	return func(v protocol.Value) error {
		if v.Kind() != kind {
			return fmt.Errorf("%w: %s.%s is %s, got %s", ErrValueKind, vm, prop, kind, v.Kind())
		}
		cell.Set(v)
		return nil
	}
}

func (r *Registry) lookup(vm, prop string) (*property, error) {
	entry, ok := r.entries[vm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownViewModel, vm)
	}
	p, ok := entry.props[prop]
	if !ok {
		return nil, fmt.Errorf("%w: %q on view-model %q", ErrUnknownProperty, prop, vm)
	}
	return p, nil
}

// RouteInbound writes env.Value into the addressed cell. Unknown names and
// mismatched kinds are logged and returned, and leave every cell untouched.
func (r *Registry) RouteInbound(env protocol.Envelope) error {
	p, err := r.lookup(env.ViewModel, env.Property)
	if err != nil {
		logger.Warn.Printf("[Registry.RouteInbound] dropping %s: %v", env.Key(), err)
		return err
	}
	if err := p.set(env.Value); err != nil {
		logger.Warn.Printf("[Registry.RouteInbound] dropping %s: %v", env.Key(), err)
		return err
	}

	logger.Debug.Printf("[Registry.RouteInbound] applied %s=%v", env.Key(), env.Value)
	if r.onApply != nil {
		r.onApply(env.ViewModel)
	}
	return nil
}

// Set applies a local edit through the property's setter.
func (r *Registry) Set(vm, prop string, v protocol.Value) error {
	p, err := r.lookup(vm, prop)
	if err != nil {
		return err
	}
	return p.set(v)
}

// WireOutbound sends every settled value of src as an envelope for vm.prop,
// unless the echo guard recognises it as the last inbound envelope.
func (r *Registry) WireOutbound(vm, prop string, src *Debounced) (cancel func()) {
	return src.Subscribe(func(v protocol.Value) {
		env := protocol.Envelope{ViewModel: vm, Property: prop, Value: v}
		if !r.guard.ShouldSend(env) {
			logger.Debug.Printf("[Registry.WireOutbound] not sending last received %s", env.Key())
			return
		}

		data, err := env.Encode()
		if err != nil {
			logger.Error.Printf("[Registry.WireOutbound] %v", err)
			return
		}
		if err := r.sender.Send(data); err != nil {
			// the transport has already logged why; the edit stays local
			return
		}
		r.guard.NoteSent(env)
		logger.Debug.Printf("[Registry.WireOutbound] sent %s", string(data))
	})
}

// Cell returns the cell behind vm.prop.
func (r *Registry) Cell(vm, prop string) (*Cell, bool) {
	p, err := r.lookup(vm, prop)
	if err != nil {
		return nil, false
	}
	return p.cell, true
}

// Debounced returns the settled stream behind vm.prop.
func (r *Registry) Debounced(vm, prop string) (*Debounced, bool) {
	p, err := r.lookup(vm, prop)
	if err != nil {
		return nil, false
	}
	return p.debounced, true
}

// ViewModels lists registered view-model names in sorted order.
func (r *Registry) ViewModels() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Properties lists the property names of vm in sorted order.
func (r *Registry) Properties(vm string) []string {
	entry, ok := r.entries[vm]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(entry.props))
	for name := range entry.props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops every debouncer.
func (r *Registry) Close() {
	for _, vm := range r.entries {
		vm.stop()
	}
}

func (vm *viewModel) stop() {
	for _, p := range vm.props {
		p.debounced.Stop()
		if p.cancel != nil {
			p.cancel()
		}
	}
}
