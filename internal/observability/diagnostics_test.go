package observability_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-ml/fluxionctl/internal/observability"
)

func TestDiagnosticsServer_ServesEndpoints(t *testing.T) {
	t.Parallel()

	ready := func(_ context.Context) error { return nil }

	srv, metrics, err := observability.NewDiagnosticsServer("127.0.0.1:0", ready)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	t.Cleanup(func() {
		closeErr := srv.Close()
		assert.NoError(t, closeErr)
	})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, getErr := http.Get(fmt.Sprintf("http://%s%s", srv.Addr(), path))
		require.NoError(t, getErr, path)

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.NoError(t, resp.Body.Close())
	}
}

func TestDiagnosticsServer_NotReady(t *testing.T) {
	t.Parallel()

	notReady := func(_ context.Context) error { return fmt.Errorf("connection state: stopped") }

	srv, _, err := observability.NewDiagnosticsServer("127.0.0.1:0", notReady)
	require.NoError(t, err)

	t.Cleanup(func() {
		closeErr := srv.Close()
		assert.NoError(t, closeErr)
	})

	resp, err := http.Get(fmt.Sprintf("http://%s/readyz", srv.Addr()))
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}
