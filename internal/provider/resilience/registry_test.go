package resilience_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepfree/stepfree/internal/provider/resilience"
)

func TestRegistry_RegisterAndGetHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	client := resilience.NewClient(resilience.DefaultClientConfig("mbta"))

	registry.Register("mbta", client)

	health := registry.GetHealth("mbta")
	require.NotNil(t, health)
	assert.Equal(t, "mbta", health.Name)
	assert.True(t, health.IsHealthy())
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
}

func TestRegistry_GetHealth_Unregistered(t *testing.T) {
	registry := resilience.NewRegistry()
	assert.Nil(t, registry.GetHealth("unknown"))
}

func TestRegistry_RecordsOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	client := resilience.NewClient(resilience.DefaultClientConfig("ollama"))
	registry.Register("ollama", client)

	registry.RecordSuccess("ollama")
	registry.RecordFailure("ollama", errors.New("connection refused"))

	health := registry.GetHealth("ollama")
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)
	assert.NotNil(t, health.LastFailureAt)
	assert.Equal(t, "connection refused", health.LastError)
}

func TestRegistry_GetAllHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("mbta", resilience.NewClient(resilience.DefaultClientConfig("mbta")))
	registry.Register("ollama", resilience.NewClient(resilience.DefaultClientConfig("ollama")))

	all := registry.GetAllHealth()
	assert.Len(t, all, 2)
}
