package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/eventbus"
	"tsmodbot/internal/ports"
)

// Module is a named unit of bot functionality. Lifecycle hooks are optional and
// discovered through the Initializer, Starter and Stopper interfaces.
type Module interface {
	Name() string
}

type Initializer interface {
	Init(ctx context.Context) error
}

type Starter interface {
	Start(ctx context.Context) error
}

type Stopper interface {
	Stop(ctx context.Context) error
}

// Deps is the shared context every module is constructed with.
type Deps struct {
	Session ports.Session
	Router  *Router
	Bus     *eventbus.Bus
	Config  ports.Config
	Logger  *logging.Logger
}

type Factory func(deps Deps) (Module, error)

type Registry struct {
	deps Deps

	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]Module
	order     []string
	started   bool
}

func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return &Registry{
		deps:      deps,
		factories: make(map[string]Factory),
		instances: make(map[string]Module),
	}
}

func (r *Registry) RegisterFactory(name string, f Factory) {
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
}

// Available lists names that have a factory.
func (r *Registry) Available() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load constructs and initializes the named module. An existing instance with the
// same name is stopped and replaced. After StartAll the new instance is started
// too. Failures are logged and leave the module absent.
func (r *Registry) Load(ctx context.Context, name string) {
	log := r.deps.Logger
	log.Infof(ctx, "Loading module: %s", name)

	r.mu.Lock()
	factory, ok := r.factories[name]
	r.mu.Unlock()
	if !ok {
		log.Errorf(ctx, "Module %s not found", name)
		return
	}

	m, err := construct(factory, r.deps)
	if err != nil {
		log.Errorf(ctx, "Module %s failed to construct: %v", name, err)
		return
	}

	r.Unload(ctx, name)

	if initializer, ok := m.(Initializer); ok {
		if err := initializer.Init(ctx); err != nil {
			log.Errorf(ctx, "Module %s failed to initialize: %v", name, err)
			return
		}
	}

	r.mu.Lock()
	r.instances[name] = m
	r.order = append(r.order, name)
	started := r.started
	r.mu.Unlock()

	if started {
		r.start(ctx, name, m)
	}
}

func construct(f Factory, deps Deps) (m Module, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	m, err = f(deps)
	if err == nil && m == nil {
		err = errors.New("factory returned no module")
	}
	return m, err
}

// Unload stops and removes the named module. It is a no-op if the module is absent.
func (r *Registry) Unload(ctx context.Context, name string) {
	r.mu.Lock()
	m, ok := r.instances[name]
	if ok {
		delete(r.instances, name)
		for i, n := range r.order {
			if n == name {
				r.order = append(r.order[:i:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if ok {
		r.stop(ctx, name, m)
	}
}

func (r *Registry) stop(ctx context.Context, name string, m Module) {
	s, ok := m.(Stopper)
	if !ok {
		return
	}
	if err := s.Stop(ctx); err != nil {
		r.deps.Logger.Warnf(ctx, "Module %s failed to stop: %v", name, err)
	}
}

// StartAll starts every loaded module in load order. One failure does not prevent
// the rest from starting.
func (r *Registry) StartAll(ctx context.Context) {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()

	for _, name := range r.Loaded() {
		if m, ok := r.Get(name); ok {
			r.start(ctx, name, m)
		}
	}
}

func (r *Registry) start(ctx context.Context, name string, m Module) {
	s, ok := m.(Starter)
	if !ok {
		return
	}
	if err := s.Start(ctx); err != nil {
		r.deps.Logger.Errorf(ctx, "Module %s failed to start: %v", name, err)
	}
}

// StopAll stops every loaded module in reverse load order and forgets them.
// Modules loaded afterwards wait for the next StartAll.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	r.started = false
	r.mu.Unlock()

	names := r.Loaded()
	for i := len(names) - 1; i >= 0; i-- {
		r.Unload(ctx, names[i])
	}
}

func (r *Registry) Get(name string) (Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.instances[name]
	return m, ok
}

func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
