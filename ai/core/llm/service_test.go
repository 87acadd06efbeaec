package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", `{"route":"retrieval"}`, `{"route":"retrieval"}`},
		{"fenced", "```json\n{\"route\":\"retrieval\"}\n```", `{"route":"retrieval"}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.input))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(errors.New("context deadline exceeded")))
	assert.True(t, isTransient(errors.New("429 Too Many Requests")))
	assert.True(t, isTransient(errors.New("read: connection reset by peer")))
	assert.False(t, isTransient(errors.New("invalid api key")))
	assert.False(t, isTransient(nil))
}

func TestConvertMessages(t *testing.T) {
	messages := []Message{
		SystemPrompt("be helpful"),
		UserMessage("hi"),
		{Role: "assistant", Content: "hello"},
		{Role: "bogus", Content: "fallback"},
	}

	converted := convertMessages(messages)
	require.Len(t, converted, 4)
	assert.Equal(t, "system", converted[0].Role)
	assert.Equal(t, "user", converted[1].Role)
	assert.Equal(t, "assistant", converted[2].Role)
	// Unknown roles degrade to user rather than dropping the message.
	assert.Equal(t, "user", converted[3].Role)
}

func TestNewServiceDefaults(t *testing.T) {
	svc, err := NewService(&Config{Provider: "openai", Model: "gpt-4o", APIKey: "sk-test"})
	require.NoError(t, err)

	s, ok := svc.(*service)
	require.True(t, ok)
	assert.Equal(t, 120, s.timeout)
	assert.Equal(t, 2048, s.maxTokens)
	assert.Nil(t, s.limiter)
}
