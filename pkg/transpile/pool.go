package transpile

import (
	"sync"

	"github.com/Sumatoshi-tech/rb2js/pkg/options"
)

// Pool hands out transpilers for varying options, building each distinct
// option set once. It is safe for concurrent use.
type Pool struct {
	deps  Deps
	mu    sync.Mutex
	built map[string]*Transpiler
}

// NewPool creates a pool whose transpilers share deps.
func NewPool(deps Deps) *Pool {
	return &Pool{deps: deps, built: make(map[string]*Transpiler)}
}

// Get returns the transpiler for opts, building it on first use.
func (pool *Pool) Get(opts options.Options) (*Transpiler, error) {
	key := opts.Fingerprint()

	pool.mu.Lock()
	defer pool.mu.Unlock()

	if tr, ok := pool.built[key]; ok {
		return tr, nil
	}

	tr, err := New(opts, pool.deps)
	if err != nil {
		return nil, err
	}

	pool.built[key] = tr

	return tr, nil
}

// Len returns the number of distinct transpilers built so far.
func (pool *Pool) Len() int {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	return len(pool.built)
}
