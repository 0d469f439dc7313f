package listing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/lotmarkethq/lotmarket-backend/pkg/errors"
)

func TestGuardRejectsReentry(t *testing.T) {
	t.Parallel()

	guard := newItemGuard()

	require.NoError(t, guard.acquire(7))

	err := guard.acquire(7)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	// Other items are unaffected.
	require.NoError(t, guard.acquire(8))

	guard.release(7)
	require.NoError(t, guard.acquire(7))
}

func TestGuardAllowsReacquireAfterRelease(t *testing.T) {
	t.Parallel()

	guard := newItemGuard()

	for i := 0; i < 3; i++ {
		require.NoError(t, guard.acquire(1))
		guard.release(1)
	}
}

func TestGuardUnderContention(t *testing.T) {
	t.Parallel()

	guard := newItemGuard()

	const workers = 32
	var wg sync.WaitGroup
	acquired := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.acquire(42) == nil {
				acquired <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(acquired)

	// Exactly one winner while the token is held.
	assert.Equal(t, 1, len(acquired))

	guard.release(42)
	require.NoError(t, guard.acquire(42))
}
