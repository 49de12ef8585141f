package workout

import "sync"

// Registry holds one Runner per user. Runners with no session and no
// subscribers are dropped by Release; Start and Subscribe go through the
// registry so they never land on a dropped runner.
type Registry struct {
	mu        sync.Mutex
	runners   map[string]*Runner
	newRunner func(userID string) *Runner
}

// NewRegistry returns an empty registry that builds runners with newRunner.
func NewRegistry(newRunner func(userID string) *Runner) *Registry {
	return &Registry{
		runners:   make(map[string]*Runner),
		newRunner: newRunner,
	}
}

// Get returns the user's runner, creating it on first use.
func (g *Registry) Get(userID string) *Runner {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getLocked(userID)
}

func (g *Registry) getLocked(userID string) *Runner {
	r, ok := g.runners[userID]
	if !ok {
		r = g.newRunner(userID)
		g.runners[userID] = r
	}
	return r
}

// Start begins a session on the user's runner.
func (g *Registry) Start(userID string, plan *Plan) (Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getLocked(userID).Start(plan)
}

// Subscribe streams the user's snapshots. Call Release after cancelling.
func (g *Registry) Subscribe(userID string) (<-chan Snapshot, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getLocked(userID).Subscribe()
}

// Release drops the user's runner when it has no session and no
// subscribers.
func (g *Registry) Release(userID string) {
	g.mu.Lock()
	r, ok := g.runners[userID]
	if !ok || !r.idle() {
		g.mu.Unlock()
		return
	}
	delete(g.runners, userID)
	g.mu.Unlock()

	r.Close()
}

// Len returns the number of live runners.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.runners)
}

// Lookup returns the user's runner if one exists.
func (g *Registry) Lookup(userID string) (*Runner, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.runners[userID]
	return r, ok
}

// Close stops every runner. The registry is empty afterwards.
func (g *Registry) Close() {
	g.mu.Lock()
	runners := g.runners
	g.runners = make(map[string]*Runner)
	g.mu.Unlock()

	for _, r := range runners {
		r.Close()
	}
}
