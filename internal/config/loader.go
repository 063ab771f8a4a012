package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment override, e.g. TRIAD_LOG_LEVEL.
const DefaultEnvPrefix = "TRIAD"

// ProjectDir holds per-project state and configuration.
const ProjectDir = ".triad"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
	envFiles   []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: DefaultEnvPrefix,
		envFiles:  []string{".env"},
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithEnvFiles replaces the dotenv files read before loading.
func (l *Loader) WithEnvFiles(paths ...string) *Loader {
	l.envFiles = paths
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (TRIAD_*, then provider keys such as GOOGLE_API_KEY)
// 3. Project config (.triad/config.yaml)
// 4. User config (~/.config/triad/config.yaml)
// 5. Defaults
//
// Variables from .env files never override the real environment.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadEnvFiles(); err != nil {
		return nil, err
	}

	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
	l.bindProviderKeys()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(ProjectDir)
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "triad"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func (l *Loader) loadEnvFiles() error {
	for _, path := range l.envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// bindProviderKeys lets the conventional provider variables fill the API key
// settings when no TRIAD_* override is present.
func (l *Loader) bindProviderKeys() {
	prefix := strings.ToUpper(l.envPrefix)
	_ = l.v.BindEnv("llm.api_key", prefix+"_LLM_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY")
	_ = l.v.BindEnv("search.api_key", prefix+"_SEARCH_API_KEY", "SERPER_API_KEY")
	_ = l.v.BindEnv("memory.qdrant.api_key", prefix+"_MEMORY_QDRANT_API_KEY", "QDRANT_API_KEY")
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("orchestrator.mode", "transcript")
	l.v.SetDefault("orchestrator.user_id", "user_001")

	l.v.SetDefault("classifier.mode", "keyword")
	l.v.SetDefault("classifier.timeout", "15s")

	l.v.SetDefault("llm.backend", "genai")
	l.v.SetDefault("llm.model", "gemini-2.5-flash")
	l.v.SetDefault("llm.temperature", 0.7)
	l.v.SetDefault("llm.path", "gemini")
	l.v.SetDefault("llm.args", []string{})
	l.v.SetDefault("llm.timeout", "60s")

	l.v.SetDefault("search.provider", "serper")
	l.v.SetDefault("search.endpoint", "https://google.serper.dev/search")
	l.v.SetDefault("search.timeout", "10s")
	l.v.SetDefault("search.max_results", 3)
	l.v.SetDefault("search.retries", 2)

	l.v.SetDefault("memory.backend", "buffer")
	l.v.SetDefault("memory.window", 10)
	l.v.SetDefault("memory.top_k", 3)
	l.v.SetDefault("memory.timeout", "10s")
	l.v.SetDefault("memory.qdrant.host", "localhost")
	l.v.SetDefault("memory.qdrant.port", 6334)
	l.v.SetDefault("memory.qdrant.use_tls", false)
	l.v.SetDefault("memory.qdrant.collection", "agent_memories")
	l.v.SetDefault("memory.embedding.model", "text-embedding-004")
	l.v.SetDefault("memory.embedding.dimension", 768)

	l.v.SetDefault("session.backend", "sqlite")
	l.v.SetDefault("session.path", filepath.Join(ProjectDir, "sessions.db"))

	l.v.SetDefault("server.host", "127.0.0.1")
	l.v.SetDefault("server.port", 8080)
	l.v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}
