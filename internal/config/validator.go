package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration. Missing API keys are not
// errors: the affected collaborator degrades to its fallback.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateOrchestrator(&cfg.Orchestrator)
	v.validateClassifier(&cfg.Classifier)
	v.validateLLM(&cfg.LLM)
	v.validateSearch(&cfg.Search)
	v.validateMemory(&cfg.Memory)
	v.validateSession(&cfg.Session)
	v.validateServer(&cfg.Server)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) oneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.addError(field, value, "must be one of: "+strings.Join(allowed, ", "))
}

func (v *Validator) duration(field, value string) {
	d, err := time.ParseDuration(value)
	if err != nil {
		v.addError(field, value, "invalid duration format")
		return
	}
	if d <= 0 {
		v.addError(field, value, "must be positive")
	}
}

func (v *Validator) validateLog(cfg *LogConfig) {
	v.oneOf("log.level", cfg.Level, "debug", "info", "warn", "error")
	v.oneOf("log.format", cfg.Format, "auto", "text", "json")
	if cfg.File != "" && !isValidPath(cfg.File) {
		v.addError("log.file", cfg.File, "invalid file path")
	}
}

func (v *Validator) validateOrchestrator(cfg *OrchestratorConfig) {
	v.oneOf("orchestrator.mode", cfg.Mode, "transcript", "best")
	if strings.TrimSpace(cfg.UserID) == "" {
		v.addError("orchestrator.user_id", cfg.UserID, "user id required")
	}
}

func (v *Validator) validateClassifier(cfg *ClassifierConfig) {
	v.oneOf("classifier.mode", cfg.Mode, "keyword", "model")
	v.duration("classifier.timeout", cfg.Timeout)
}

func (v *Validator) validateLLM(cfg *LLMConfig) {
	v.oneOf("llm.backend", cfg.Backend, "genai", "cli")
	v.duration("llm.timeout", cfg.Timeout)

	switch cfg.Backend {
	case "genai":
		if strings.TrimSpace(cfg.Model) == "" {
			v.addError("llm.model", cfg.Model, "model required for the genai backend")
		}
	case "cli":
		if strings.TrimSpace(cfg.Path) == "" {
			v.addError("llm.path", cfg.Path, "path required for the cli backend")
		}
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		v.addError("llm.temperature", cfg.Temperature, "must be between 0 and 2")
	}
}

func (v *Validator) validateSearch(cfg *SearchConfig) {
	v.oneOf("search.provider", cfg.Provider, "serper", "none")
	if cfg.Provider != "serper" {
		return
	}
	v.duration("search.timeout", cfg.Timeout)
	if u, err := url.Parse(cfg.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		v.addError("search.endpoint", cfg.Endpoint, "must be an absolute URL")
	}
	if cfg.MaxResults < 1 || cfg.MaxResults > 10 {
		v.addError("search.max_results", cfg.MaxResults, "must be between 1 and 10")
	}
	if cfg.Retries < 0 || cfg.Retries > 5 {
		v.addError("search.retries", cfg.Retries, "must be between 0 and 5")
	}
}

func (v *Validator) validateMemory(cfg *MemoryConfig) {
	v.oneOf("memory.backend", cfg.Backend, "none", "buffer", "qdrant")
	if cfg.Backend == "none" {
		return
	}
	if cfg.Window < 1 {
		v.addError("memory.window", cfg.Window, "must be positive")
	}
	if cfg.Backend != "qdrant" {
		return
	}

	v.duration("memory.timeout", cfg.Timeout)
	if cfg.TopK < 1 {
		v.addError("memory.top_k", cfg.TopK, "must be positive")
	}
	if cfg.Qdrant.Host == "" {
		v.addError("memory.qdrant.host", cfg.Qdrant.Host, "host required")
	}
	if cfg.Qdrant.Port <= 0 || cfg.Qdrant.Port > 65535 {
		v.addError("memory.qdrant.port", cfg.Qdrant.Port, "must be a valid port")
	}
	if cfg.Qdrant.Collection == "" {
		v.addError("memory.qdrant.collection", cfg.Qdrant.Collection, "collection required")
	}
	if cfg.Embedding.Model == "" {
		v.addError("memory.embedding.model", cfg.Embedding.Model, "model required")
	}
	if cfg.Embedding.Dimension <= 0 {
		v.addError("memory.embedding.dimension", cfg.Embedding.Dimension, "must be positive")
	}
}

func (v *Validator) validateSession(cfg *SessionConfig) {
	v.oneOf("session.backend", cfg.Backend, "sqlite", "json", "none")
	if cfg.Backend == "none" {
		return
	}
	if cfg.Path == "" {
		v.addError("session.path", cfg.Path, "path required")
	} else if !isValidPath(cfg.Path) {
		v.addError("session.path", cfg.Path, "invalid path")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be a valid port")
	}
	for _, origin := range cfg.CORSOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			v.addError("server.cors_origins", origin, "must be an absolute origin or *")
		}
	}
}

func isValidPath(path string) bool {
	_, err := os.Stat(filepath.Dir(path))
	return err == nil || os.IsNotExist(err)
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
