package transpile_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
	"github.com/Sumatoshi-tech/rb2js/pkg/transpile"
)

func TestPool(t *testing.T) {
	t.Parallel()

	pool := transpile.NewPool(transpile.Deps{})

	first, err := pool.Get(options.Default())
	require.NoError(t, err)

	again, err := pool.Get(options.Default())
	require.NoError(t, err)
	assert.Same(t, first, again)

	es5 := options.Default()
	es5.Level = es.ES5

	other, err := pool.Get(es5)
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, pool.Len())

	bad := options.Default()
	bad.Filters = []string{"missing"}

	_, err = pool.Get(bad)
	require.Error(t, err)
	assert.Equal(t, 2, pool.Len())
}

func TestPoolConcurrentGet(t *testing.T) {
	t.Parallel()

	pool := transpile.NewPool(transpile.Deps{})

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := pool.Get(options.Default())
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, pool.Len())
}
