package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-ml/fluxionctl/internal/observability"
)

func TestInit_NoEndpointYieldsNoopProviders(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	require.NotNil(t, providers.Logger)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)

	// No exporters were created, so shutdown has nothing to flush.
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single pair", raw: "authorization=Bearer tok", want: map[string]string{"authorization": "Bearer tok"}},
		{
			name: "multiple pairs with spaces",
			raw:  "a=1, b=2",
			want: map[string]string{"a": "1", "b": "2"},
		},
		{name: "malformed pairs skipped", raw: "novalue,=orphan", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, observability.ParseOTLPHeaders(tt.raw))
		})
	}
}
