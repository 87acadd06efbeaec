package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{
			name:    "valid",
			profile: Profile{Mode: "dev", Port: 8080, DSN: "postgres://localhost/clare"},
			wantErr: false,
		},
		{
			name:    "missing dsn",
			profile: Profile{Mode: "dev", Port: 8080},
			wantErr: true,
		},
		{
			name:    "invalid port",
			profile: Profile{Mode: "dev", Port: -1, DSN: "postgres://localhost/clare"},
			wantErr: true,
		},
		{
			name:    "negative retries",
			profile: Profile{Mode: "dev", Port: 8080, DSN: "x", MaxRetries: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateNormalizesMode(t *testing.T) {
	p := Profile{Mode: "bogus", Port: 8080, DSN: "x"}
	require.NoError(t, p.Validate())
	require.Equal(t, "demo", p.Mode)
}

func TestFromEnvProviderDefaults(t *testing.T) {
	t.Setenv("CLARE_AI_LLM_PROVIDER", "deepseek")
	t.Setenv("CLARE_AI_LLM_API_KEY", "sk-test")
	t.Setenv("CLARE_AI_LLM_BASE_URL", "")
	t.Setenv("CLARE_AI_LLM_MODEL", "")

	var p Profile
	p.FromEnv()

	require.Equal(t, "https://api.deepseek.com", p.LLMBaseURL)
	require.Equal(t, "deepseek-chat", p.LLMModel)
	require.True(t, p.IsAIEnabled())
	require.False(t, p.IsWebSearchEnabled())
}

func TestFromEnvUnknownProviderFallsBack(t *testing.T) {
	t.Setenv("CLARE_AI_LLM_PROVIDER", "nonsense")

	var p Profile
	p.FromEnv()

	require.Equal(t, "openai", p.LLMProvider)
}
