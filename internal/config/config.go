package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log          LogConfig          `mapstructure:"log"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Classifier   ClassifierConfig   `mapstructure:"classifier"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Search       SearchConfig       `mapstructure:"search"`
	Memory       MemoryConfig       `mapstructure:"memory"`
	Session      SessionConfig      `mapstructure:"session"`
	Server       ServerConfig       `mapstructure:"server"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// OrchestratorConfig configures how turns are answered.
type OrchestratorConfig struct {
	// Mode is "transcript" (every specialist) or "best" (single answer).
	Mode   string `mapstructure:"mode"`
	UserID string `mapstructure:"user_id"`
}

// ClassifierConfig selects the topic classifier.
type ClassifierConfig struct {
	// Mode is "keyword" or "model".
	Mode    string `mapstructure:"mode"`
	Timeout string `mapstructure:"timeout"`
}

// LLMConfig configures the text generator shared by the specialists.
type LLMConfig struct {
	// Backend is "genai" (Gemini API) or "cli" (an external agent CLI).
	Backend     string   `mapstructure:"backend"`
	Model       string   `mapstructure:"model"`
	APIKey      string   `mapstructure:"api_key"`
	Temperature float64  `mapstructure:"temperature"`
	Path        string   `mapstructure:"path"`
	Args        []string `mapstructure:"args"`
	Timeout     string   `mapstructure:"timeout"`
}

// SearchConfig configures web retrieval.
type SearchConfig struct {
	// Provider is "serper" or "none".
	Provider   string `mapstructure:"provider"`
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    string `mapstructure:"timeout"`
	MaxResults int    `mapstructure:"max_results"`
	Retries    int    `mapstructure:"retries"`
}

// MemoryConfig configures conversational memory.
type MemoryConfig struct {
	// Backend is "none", "buffer" or "qdrant". The qdrant backend keeps the
	// buffer and adds semantic recall.
	Backend   string          `mapstructure:"backend"`
	Window    int             `mapstructure:"window"`
	TopK      int             `mapstructure:"top_k"`
	Timeout   string          `mapstructure:"timeout"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
}

// QdrantConfig locates the vector store.
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Collection string `mapstructure:"collection"`
}

// EmbeddingConfig configures the embedding model.
type EmbeddingConfig struct {
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
}

// SessionConfig configures session persistence.
type SessionConfig struct {
	// Backend is "sqlite", "json" or "none".
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Duration parses a duration setting, returning fallback when it is empty or
// invalid. Validation reports invalid values separately.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
