package experiment

import (
	"sync"

	"github.com/san-kum/simbridge/internal/dynamo"
	"github.com/san-kum/simbridge/internal/engine"
	"github.com/san-kum/simbridge/internal/integrators"
	"github.com/san-kum/simbridge/internal/physics"
	"github.com/san-kum/simbridge/internal/session"
)

// Registry resolves scene and integrator names into simulations and
// remembers the fingerprint of every scene it compiled.
type Registry struct {
	mu     sync.Mutex
	hashes map[string]string
}

func NewRegistry() *Registry {
	return &Registry{hashes: make(map[string]string)}
}

func (r *Registry) Scenes() []string      { return physics.Builtin() }
func (r *Registry) Integrators() []string { return integrators.Names() }

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	return integrators.Get(name)
}

// Load compiles scene, a built-in name or a YAML path, stepped by the
// named integrator.
func (r *Registry) Load(scene, integrator string) (*physics.Sim, error) {
	integ, err := r.GetIntegrator(integrator)
	if err != nil {
		return nil, err
	}
	sc, err := physics.LoadScene(scene)
	if err != nil {
		return nil, err
	}
	sim, err := physics.New(sc, integ)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.hashes[scene] = sc.Hash()
	r.mu.Unlock()
	return sim, nil
}

// Loader adapts Load for a session.
func (r *Registry) Loader(integrator string) session.Loader {
	return func(scene string) (engine.Simulation, error) {
		return r.Load(scene, integrator)
	}
}

// Hash is the fingerprint of the last compiled copy of scene.
func (r *Registry) Hash(scene string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hashes[scene]
}
