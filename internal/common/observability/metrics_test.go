package observability

import (
	"context"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_RecordExportsToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	obs, err := NewWithRegisterer("kurio-test", reg)
	require.NoError(t, err)
	defer func() { _ = obs.Shutdown() }()

	obs.Record(context.Background(), "ask", "success", 120*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "operations_processed_total")
	assert.Contains(t, names, "operations_duration_milliseconds")
}

func TestObservability_NilIsNoOp(t *testing.T) {
	var obs *Observability
	assert.NotPanics(t, func() {
		obs.Record(context.Background(), "ask", "success", time.Second)
		assert.NoError(t, obs.Shutdown())
	})
}
