package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the nodereview configuration.
type Config struct {
	Provider   ProviderConfig `yaml:"provider" json:"provider"`
	Review     ReviewConfig   `yaml:"review" json:"review"`
	Lint       LintConfig     `yaml:"lint" json:"lint"`
	Server     ServerConfig   `yaml:"server" json:"server"`
	Extensions []string       `yaml:"extensions" json:"extensions"`
	Include    []string       `yaml:"include" json:"include"`
	Exclude    []string       `yaml:"exclude" json:"exclude"`
	Format     string         `yaml:"format" json:"format"`
	FailOn     string         `yaml:"failOn" json:"failOn"`
	LogLevel   string         `yaml:"logLevel" json:"logLevel"`
	Cache      CacheConfig    `yaml:"cache" json:"cache"`
	Privacy    PrivacyConfig  `yaml:"privacy" json:"privacy"`
}

// ProviderConfig describes the completion provider. APIKey is resolved from
// the environment at load time and never written back to disk.
type ProviderConfig struct {
	Name             string  `yaml:"name" json:"name"`
	Model            string  `yaml:"model" json:"model"`
	BaseURL          string  `yaml:"baseURL,omitempty" json:"baseURL,omitempty"`
	APIKeyEnv        string  `yaml:"apiKeyEnv,omitempty" json:"apiKeyEnv,omitempty"`
	APIKey           string  `yaml:"-" json:"-"`
	Temperature      float64 `yaml:"temperature" json:"temperature"`
	MaxTokens        int     `yaml:"maxTokens" json:"maxTokens"`
	FrequencyPenalty float64 `yaml:"frequencyPenalty" json:"frequencyPenalty"`
	MaxAttempts      int     `yaml:"maxAttempts" json:"maxAttempts"`
	TimeoutSeconds   int     `yaml:"timeoutSeconds" json:"timeoutSeconds"`
}

// ReviewConfig controls the AI review pipeline.
type ReviewConfig struct {
	MaxInputChars int `yaml:"maxInputChars" json:"maxInputChars"`
}

// LintConfig controls the ESLint invocation.
type LintConfig struct {
	Command        []string          `yaml:"command" json:"command"`
	Rules          map[string]string `yaml:"rules" json:"rules"`
	EcmaVersion    string            `yaml:"ecmaVersion" json:"ecmaVersion"`
	SourceType     string            `yaml:"sourceType" json:"sourceType"`
	TimeoutSeconds int               `yaml:"timeoutSeconds" json:"timeoutSeconds"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr                string `yaml:"addr" json:"addr"`
	ReadTimeoutSeconds  int    `yaml:"readTimeoutSeconds" json:"readTimeoutSeconds"`
	WriteTimeoutSeconds int    `yaml:"writeTimeoutSeconds" json:"writeTimeoutSeconds"`
	IdleTimeoutSeconds  int    `yaml:"idleTimeoutSeconds" json:"idleTimeoutSeconds"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Dir        string `yaml:"dir,omitempty" json:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttlSeconds" json:"ttlSeconds"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool     `yaml:"redactSecrets" json:"redactSecrets"`
	RedactPaths   []string `yaml:"redactPaths,omitempty" json:"redactPaths,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider: ProviderConfig{
			Name:             "groq",
			Model:            DefaultModel("groq"),
			Temperature:      0.2,
			MaxTokens:        9000,
			FrequencyPenalty: 0.8,
			MaxAttempts:      1,
			TimeoutSeconds:   120,
		},
		Review: ReviewConfig{
			MaxInputChars: 20000,
		},
		Lint: LintConfig{
			Command: []string{"npx", "--no-install", "eslint"},
			Rules: map[string]string{
				"no-unused-vars": "error",
				"no-unreachable": "error",
				"no-empty":       "error",
				"no-self-assign": "error",
				"prefer-const":   "error",
			},
			EcmaVersion:    "latest",
			SourceType:     "module",
			TimeoutSeconds: 30,
		},
		Server: ServerConfig{
			Addr:                ":8080",
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 180,
			IdleTimeoutSeconds:  120,
		},
		Extensions: []string{".js"},
		Include:    []string{"**/*.js"},
		Exclude:    []string{"node_modules/**", "**/dist/**", "**/*.min.js"},
		Format:     "text",
		FailOn:     "none",
		LogLevel:   "info",
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

// DefaultModel returns the model used for a provider when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case "groq":
		return "moonshotai/kimi-k2-instruct-0905"
	case "openai":
		return "gpt-4.1"
	case "anthropic":
		return "claude-sonnet-4-5"
	case "gemini", "google":
		return "gemini-2.5-flash"
	case "ollama", "lmstudio":
		return "qwen2.5-coder"
	default:
		return ""
	}
}

// switchProvider changes the provider name. A model that is still the
// previous provider's default follows the switch.
func switchProvider(p *ProviderConfig, name string) {
	if p.Model == DefaultModel(p.Name) {
		p.Model = DefaultModel(name)
	}
	p.Name = name
}

// DefaultAPIKeyEnv returns the environment variable holding the credential
// for a provider, or "" when the provider needs none.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "groq":
		return "GROQ_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini", "google":
		return "GEMINI_API_KEY"
	case "ollama", "lmstudio":
		return "NODEREVIEW_OLLAMA_API_KEY"
	default:
		return ""
	}
}

// ConfigDir returns the platform-appropriate config directory for nodereview.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nodereview"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "nodereview"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "nodereview"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "nodereview"), nil
	default:
		return filepath.Join(home, ".config", "nodereview"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile decodes the YAML file at path on top of base. A missing file
// leaves base untouched. An empty path means the default config path.
func LoadFile(path string, base Config) (Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	cfg := base
	// The rules map is shared with base; give the decoder its own copy.
	cfg.Lint.Rules = cloneRules(base.Lint.Rules)
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.Provider.Name != base.Provider.Name && cfg.Provider.Model == base.Provider.Model {
		name := cfg.Provider.Name
		cfg.Provider.Name = base.Provider.Name
		switchProvider(&cfg.Provider, name)
	}
	return cfg, nil
}

// Save writes the config to path, or to the default config path when path is empty.
func Save(cfg Config, path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides,
// then resolves the provider credential and validates the result.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(path string, overrides map[string]string) (Config, error) {
	cfg, err := LoadFile(path, Default())
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultModel(cfg.Provider.Name)
	}
	resolveAPIKey(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations. Credential presence is
// checked by providers.New, which knows which providers need one.
func Validate(cfg Config) error {
	var problems []string
	switch cfg.Format {
	case "text", "json", "markdown", "sarif":
	default:
		problems = append(problems, fmt.Sprintf("format %q is not one of text, json, markdown, sarif", cfg.Format))
	}
	switch cfg.FailOn {
	case "none", "low", "medium", "high", "critical":
	default:
		problems = append(problems, fmt.Sprintf("failOn %q is not one of none, low, medium, high, critical", cfg.FailOn))
	}
	if cfg.Provider.Temperature < 0 || cfg.Provider.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("provider.temperature %v is outside [0,2]", cfg.Provider.Temperature))
	}
	if cfg.Provider.MaxAttempts < 1 {
		problems = append(problems, "provider.maxAttempts must be at least 1")
	}
	if cfg.Review.MaxInputChars < 0 {
		problems = append(problems, "review.maxInputChars must not be negative")
	}
	if len(cfg.Lint.Command) == 0 {
		problems = append(problems, "lint.command must not be empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func resolveAPIKey(cfg *Config) {
	env := cfg.Provider.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv(cfg.Provider.Name)
	}
	if env == "" {
		return
	}
	key := os.Getenv(env)
	if key == "" && (cfg.Provider.Name == "gemini" || cfg.Provider.Name == "google") && cfg.Provider.APIKeyEnv == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	cfg.Provider.APIKey = key
}

var envRef = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)(?::-([^}]*))?\}`)

// expandEnv replaces ${VAR} and ${VAR:-default} references.
func expandEnv(input string) string {
	return envRef.ReplaceAllStringFunc(input, func(match string) string {
		sub := envRef.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		return sub[2]
	})
}

func cloneRules(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func mergeEnv(cfg *Config) error {
	if v := os.Getenv("NODEREVIEW_PROVIDER"); v != "" {
		switchProvider(&cfg.Provider, v)
	}
	if v := os.Getenv("NODEREVIEW_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("NODEREVIEW_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("NODEREVIEW_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("NODEREVIEW_FAIL_ON"); v != "" {
		cfg.FailOn = v
	}
	if v := os.Getenv("NODEREVIEW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("NODEREVIEW_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("NODEREVIEW_MAX_INPUT_CHARS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NODEREVIEW_MAX_INPUT_CHARS must be an integer: %w", err)
		}
		cfg.Review.MaxInputChars = n
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	// provider goes first so an explicit model is never replaced by its default.
	if v := overrides["provider"]; v != "" {
		switchProvider(&cfg.Provider, v)
	}
	for key, value := range overrides {
		if value == "" || key == "provider" {
			continue
		}
		if err := SetField(cfg, key, value); err != nil {
			return err
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		switchProvider(&cfg.Provider, value)
	case "model":
		cfg.Provider.Model = value
	case "baseURL":
		cfg.Provider.BaseURL = value
	case "apiKeyEnv":
		cfg.Provider.APIKeyEnv = value
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("temperature must be a number: %w", err)
		}
		cfg.Provider.Temperature = f
	case "maxTokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxTokens must be an integer: %w", err)
		}
		cfg.Provider.MaxTokens = n
	case "maxAttempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxAttempts must be an integer: %w", err)
		}
		cfg.Provider.MaxAttempts = n
	case "maxInputChars":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxInputChars must be an integer: %w", err)
		}
		cfg.Review.MaxInputChars = n
	case "format":
		cfg.Format = value
	case "failOn":
		cfg.FailOn = value
	case "logLevel":
		cfg.LogLevel = value
	case "addr":
		cfg.Server.Addr = value
	case "cache":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache must be true or false: %w", err)
		}
		cfg.Cache.Enabled = b
	case "redactSecrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("redactSecrets must be true or false: %w", err)
		}
		cfg.Privacy.RedactSecrets = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
