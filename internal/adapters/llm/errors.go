package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/triad-ai/triad/internal/core"
)

// Error codes reported by generators.
const (
	CodeRateLimit   = "RATE_LIMIT"
	CodeAuth        = "AUTH"
	CodeNetwork     = "NETWORK"
	CodeBlocked     = "BLOCKED"
	CodeCLIError    = "CLI_ERROR"
	CodeAPIError    = "API_ERROR"
	CodeUnavailable = "UNAVAILABLE"
)

// classifyMessage maps a provider error message to a domain error. Rate
// limits and network failures stay retryable; auth failures do not.
func classifyMessage(msg, fallbackCode string) *core.DomainError {
	lower := strings.ToLower(msg)

	switch {
	case containsAny(lower, []string{"rate limit", "too many requests", "429", "quota", "resource_exhausted"}):
		return core.ErrExecution(CodeRateLimit, msg)
	case containsAny(lower, []string{"unauthorized", "authentication", "api key", "permission_denied", "401", "403"}):
		err := core.ErrExecution(CodeAuth, msg)
		err.Retryable = false
		return err
	case containsAny(lower, []string{"connection", "network", "timeout", "unreachable", "unavailable", "503"}):
		return core.ErrExecution(CodeNetwork, msg)
	case containsAny(lower, []string{"safety", "blocked"}):
		err := core.ErrExecution(CodeBlocked, msg)
		err.Retryable = false
		return err
	}
	return core.ErrExecution(fallbackCode, msg)
}

// classifyExit builds the error for a CLI that exited non-zero.
func classifyExit(stdout, stderr string, exitCode int) *core.DomainError {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = extractErrorFromOutput(stdout)
	}
	if msg == "" {
		msg = "(no error message captured)"
	}

	err := classifyMessage(msg, CodeCLIError)
	if err.Code == CodeCLIError {
		err.Message = fmt.Sprintf("command failed with exit code %d: %s", exitCode, msg)
	}
	return err.WithDetail("exit_code", exitCode)
}

// extractErrorFromOutput finds an error message in stdout. Agent CLIs often
// print JSON error objects there instead of using stderr.
func extractErrorFromOutput(stdout string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}

		if msg, ok := obj["error"].(string); ok && msg != "" {
			return msg
		}
		if errObj, ok := obj["error"].(map[string]interface{}); ok {
			if msg, ok := errObj["message"].(string); ok && msg != "" {
				return msg
			}
		}
		if msg, ok := obj["message"].(string); ok && msg != "" && obj["type"] == "error" {
			return msg
		}
	}

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" && !strings.HasPrefix(line, "{") {
			if len(line) > 200 {
				return line[:200] + "..."
			}
			return line
		}
	}
	return ""
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "... [truncated]"
	}
	return s
}
