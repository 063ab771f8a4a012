package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triad-ai/triad/internal/config"
	"github.com/triad-ai/triad/internal/core"
)

func TestExtractErrorFromOutput(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   string
	}{
		{"string error", `{"error":"boom"}`, "boom"},
		{"nested message", `{"error":{"message":"quota exceeded"}}`, "quota exceeded"},
		{"typed message", `{"type":"error","message":"bad request"}`, "bad request"},
		{"last json wins", "{\"error\":\"first\"}\n{\"error\":\"second\"}", "second"},
		{"plain text", "loading...\nfatal: no model\n", "fatal: no model"},
		{"empty", "", ""},
		{"long line", strings.Repeat("x", 300), strings.Repeat("x", 200) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractErrorFromOutput(tt.stdout))
		})
	}
}

func TestClassifyExit(t *testing.T) {
	err := classifyExit("", "", 7)
	assert.Equal(t, CodeCLIError, err.Code)
	assert.Contains(t, err.Message, "exit code 7")
	assert.Equal(t, 7, err.Details["exit_code"])

	err = classifyExit(`{"error":"429 Too Many Requests"}`, "", 1)
	assert.Equal(t, CodeRateLimit, err.Code)
	assert.True(t, err.Retryable)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Backend: "openai"}, nil)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestTimeout(t *testing.T) {
	assert.Equal(t, "1m0s", Timeout(config.LLMConfig{}).String())
	assert.Equal(t, "5s", Timeout(config.LLMConfig{Timeout: "5s"}).String())
}
