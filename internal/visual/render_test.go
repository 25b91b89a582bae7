package visual

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureHeadlessRetriesAfterFailure(t *testing.T) {
	orig := probeHeadless
	t.Cleanup(func() {
		probeHeadless = orig
		headlessMu.Lock()
		headlessReady = false
		headlessMu.Unlock()
	})
	headlessMu.Lock()
	headlessReady = false
	headlessMu.Unlock()

	var calls int
	probeHeadless = func() error {
		calls++
		if calls == 1 {
			return errors.New("context canceled")
		}
		return nil
	}

	// first caller fails, the error must not be cached
	require.Error(t, EnsureHeadlessAvailable())

	// next caller retries and succeeds
	require.NoError(t, EnsureHeadlessAvailable())

	// success is cached, the browser is not launched again
	require.NoError(t, EnsureHeadlessAvailable())
	assert.Equal(t, 2, calls)
}
