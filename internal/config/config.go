// Package config loads the declarative config file described in §6:
// entity definitions, embedding/reranking setup, and the optional
// source/generation sections, plus the ambient provider and agent
// settings resolved from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ragforge/internal/core"
	"ragforge/internal/ragerr"
)

// Config is the top-level shape of the config file. Unknown keys are
// ignored by viper's decode; missing sections simply leave the
// corresponding subsystem disabled (nil Reranking, empty Source, etc).
type Config struct {
	Name     string                 `yaml:"name" mapstructure:"name"`
	Version  string                 `yaml:"version" mapstructure:"version"`
	Entities []core.EntityTypeConfig `yaml:"entities" mapstructure:"entities"`

	Embeddings core.EmbeddingsConfig `yaml:"embeddings" mapstructure:"embeddings"`
	Reranking  core.RerankingConfig  `yaml:"reranking" mapstructure:"reranking"`

	Source     *core.SourceConfig     `yaml:"source,omitempty" mapstructure:"source"`
	Generation *core.GenerationConfig `yaml:"generation,omitempty" mapstructure:"generation"`

	GraphStore GraphStore `yaml:"-" mapstructure:"-"`
	Providers  Providers  `yaml:"-" mapstructure:"-"`
	Agent      Agent      `yaml:"-" mapstructure:"-"`
}

// GraphStore holds the connection settings read from the environment,
// never from the config file (credentials don't belong in a checked-in
// document). The backing store is Postgres+pgvector (internal/graphstore),
// so URI is normally already a full pgx connection string; Username/
// Password/Database only matter when URI is a bare host.
type GraphStore struct {
	URI      string
	Username string
	Password string
	Database string
}

// DSN returns the pgx connection string to open. If URI already names a
// scheme (postgres://...) it's used as-is; otherwise it's treated as a
// bare host and assembled with the discrete credential fields.
func (g GraphStore) DSN() string {
	if g.URI == "" {
		return ""
	}
	if strings.Contains(g.URI, "://") {
		return g.URI
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s", g.Username, g.Password, g.URI, g.Database)
}

// Providers holds completion/embedding API keys resolved per the §6
// rule: keys matching secretEnvPattern are read only from local
// .env/.env.local, never the bare process environment.
type Providers struct {
	GeminiAPIKey string
	OpenAIAPIKey string
}

// Agent holds the ambient agent/tool settings.
type Agent struct {
	// ToolLogging enables per-call arg/result/metadata persistence under
	// <home>/.ragforge/logs/tools/<tool>/<timestamp>/.
	ToolLogging bool
	// ConversationExportDir overrides the default conversation export
	// location.
	ConversationExportDir string
}

// secretEnvPattern matches env var names that must only ever be
// resolved from a local .env file, never inherited from the ambient
// process environment, per §6's provider key-resolution rule.
var secretEnvPattern = regexp.MustCompile(`(?i)api[_-]?key|token|secret`)

var globalConfig *Config

// Load reads the config file at path (yaml), resolves environment
// variables for the graph store, provider keys, and agent settings, and
// returns the assembled Config. A blank path falls back to
// "ragforge.yaml" in the working directory.
func Load(path string) (*Config, error) {
	local, process := loadEnvLayers()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("ragforge")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ragerr.New(ragerr.ConfigInvalid, "config.load", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, ragerr.New(ragerr.ConfigInvalid, "config.unmarshal", err)
	}

	cfg.GraphStore = GraphStore{
		URI:      resolveEnv(local, process, "GRAPHSTORE_URI", "DATABASE_URL"),
		Username: resolveEnv(local, process, "GRAPHSTORE_USERNAME", "PGUSER"),
		Password: resolveEnv(local, process, "GRAPHSTORE_PASSWORD", "PGPASSWORD"),
		Database: resolveEnv(local, process, "GRAPHSTORE_DATABASE", "PGDATABASE"),
	}
	cfg.Providers = Providers{
		GeminiAPIKey: resolveSecret(local, "GEMINI_API_KEY", "GOOGLE_AI_API_KEY"),
		OpenAIAPIKey: resolveSecret(local, "OPENAI_API_KEY"),
	}
	cfg.Agent = Agent{
		ToolLogging:           resolveEnv(local, process, "RAGFORGE_TOOL_LOGGING") == "true",
		ConversationExportDir: expandPath(resolveEnv(local, process, "RAGFORGE_CONVERSATION_EXPORT_DIR")),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the most recently Load-ed config, or nil if none has been
// loaded yet.
func Get() *Config { return globalConfig }

// loadEnvLayers reads .env and .env.local (if present) into an isolated
// map rather than into os.Environ, so secret-pattern keys never leak
// into the ambient process environment that resolveEnv falls back to.
// .env.local takes priority over .env.
func loadEnvLayers() (local map[string]string, process func(string) string) {
	local = map[string]string{}
	for _, f := range []string{".env", ".env.local"} {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		vars, err := godotenv.Read(f)
		if err != nil {
			continue
		}
		for k, v := range vars {
			local[k] = v
		}
	}
	return local, os.Getenv
}

// resolveEnv returns the first non-empty value among the given keys,
// checking the local .env layer before the process environment (local
// overrides process, per §6).
func resolveEnv(local map[string]string, process func(string) string, keys ...string) string {
	for _, k := range keys {
		if v, ok := local[k]; ok && v != "" {
			return v
		}
	}
	for _, k := range keys {
		if v := process(k); v != "" {
			return v
		}
	}
	return ""
}

// resolveSecret returns the first non-empty value among the given keys
// from the local .env layer only. Per §6, keys matching secretEnvPattern
// never fall back to the bare process environment.
func resolveSecret(local map[string]string, keys ...string) string {
	for _, k := range keys {
		if !secretEnvPattern.MatchString(k) {
			continue
		}
		if v, ok := local[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validate enforces the minimal shape a config file must have to be
// usable: a name, and a name plus uniqueField on every declared entity
// (an empty entity list is accepted). Reranking/source/generation
// sections stay optional per §6.
func validate(cfg *Config) error {
	var problems []string
	if cfg.Name == "" {
		problems = append(problems, "config: \"name\" is required")
	}
	for i, e := range cfg.Entities {
		if e.Name == "" {
			problems = append(problems, fmt.Sprintf("config: entities[%d] missing \"name\"", i))
		}
		if e.UniqueField == "" {
			problems = append(problems, fmt.Sprintf("config: entities[%d] (%s) missing \"uniqueField\"", i, e.Name))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return ragerr.New(ragerr.ConfigInvalid, "config.validate", fmt.Errorf("%s", strings.Join(problems, "; ")))
}
