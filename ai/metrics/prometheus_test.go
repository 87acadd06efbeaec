package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordQuestion(t *testing.T) {
	e := NewPrometheusExporter(DefaultConfig())

	e.RecordQuestion("retrieval", "done", 1, 2*time.Second)
	e.RecordQuestion("retrieval", "done", 0, time.Second)
	e.RecordQuestion("chitchat", "done", 0, 100*time.Millisecond)

	families, err := e.GetRegistry().Gather()
	require.NoError(t, err)

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	assert.True(t, found["clare_tutor_questions_total"])
	assert.True(t, found["clare_tutor_question_latency_seconds"])
	assert.True(t, found["clare_tutor_question_retries"])
}

func TestExternalRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	e := NewPrometheusExporter(Config{Registry: registry})

	e.RecordFallbackSearch(true)
	e.RecordFallbackSearch(false)
	e.RecordProfileUpdate("chat", true)
	e.RecordLLMTokens("gpt-4o", "prompt", 120)
	e.RecordLLMLatency("gpt-4o", 800*time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
	assert.Same(t, registry, e.GetRegistry())
}
