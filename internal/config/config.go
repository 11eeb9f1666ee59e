package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const redactedValue = "********"

// Config is the codemate configuration. It is built once at startup and
// read-only afterwards.
type Config struct {
	Addr            string         `yaml:"addr" validate:"required"`
	RepoRoot        string         `yaml:"repoRoot" validate:"required"`
	GitHub          GitHubConfig   `yaml:"github"`
	GitLab          PlatformConfig `yaml:"gitlab"`
	Bitbucket       PlatformConfig `yaml:"bitbucket"`
	RequireSecrets  bool           `yaml:"requireSecrets"`
	Analyzers       []string       `yaml:"analyzers" validate:"required,min=1,dive,oneof=lint security ai"`
	Concurrency     int            `yaml:"concurrency" validate:"gte=1,lte=64"`
	ToolTimeout     time.Duration  `yaml:"toolTimeout" validate:"gt=0"`
	RunTimeout      time.Duration  `yaml:"runTimeout" validate:"gt=0"`
	LintErrorPrefix string         `yaml:"lintErrorPrefix" validate:"required"`
	MaxBodyBytes    int64          `yaml:"maxBodyBytes" validate:"gte=0"`
	LLM             LLMConfig      `yaml:"llm"`
	CIMode          bool           `yaml:"ciMode"`
	Debug           bool           `yaml:"debug"`
	Redact          bool           `yaml:"redact"`
	Format          string         `yaml:"format" validate:"oneof=text json markdown sarif"`
	Include         []string       `yaml:"include"`
	Exclude         []string       `yaml:"exclude"`
}

// GitHubConfig holds GitHub credentials and API settings.
type GitHubConfig struct {
	Token             string  `yaml:"token,omitempty"`
	WebhookSecret     string  `yaml:"webhookSecret,omitempty"`
	APIURL            string  `yaml:"apiURL" validate:"omitempty,url"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond" validate:"gte=0"`
}

// PlatformConfig holds credentials for a platform without API settings.
type PlatformConfig struct {
	Token         string `yaml:"token,omitempty"`
	WebhookSecret string `yaml:"webhookSecret,omitempty"`
}

// LLMConfig identifies the model behind the ai analyzer. It is carried for
// a model-backed analyzer and not used by the built-in one.
type LLMConfig struct {
	APIKey string `yaml:"apiKey,omitempty"`
	Model  string `yaml:"model"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Addr:            ":8000",
		RepoRoot:        ".",
		GitHub:          GitHubConfig{APIURL: "https://api.github.com"},
		Analyzers:       []string{"lint", "security"},
		Concurrency:     4,
		ToolTimeout:     60 * time.Second,
		RunTimeout:      5 * time.Minute,
		LintErrorPrefix: "E",
		MaxBodyBytes:    5 << 20,
		LLM:             LLMConfig{Model: "gpt-4"},
		Redact:          true,
		Format:          "text",
		Include:         []string{"**/*.py"},
		Exclude:         []string{"vendor/**", "**/.venv/**", "**/node_modules/**"},
	}
}

// ConfigDir returns the platform-appropriate config directory for codemate.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codemate"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "codemate"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "codemate"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "codemate"), nil
	default:
		return filepath.Join(home, ".config", "codemate"), nil
	}
}

// ConfigPath returns the full path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// resolvePath returns path, or the default config path when empty.
func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return ConfigPath()
}

// LoadFile decodes the YAML file at path on top of cfg. A missing file
// leaves cfg unchanged.
func LoadFile(path string, cfg *Config) error {
	path, err := resolvePath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Save writes cfg as YAML to path, or to the default config path when empty.
func Save(path string, cfg Config) error {
	path, err := resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides,
// then validates it. The overrides map comes from CLI flags; only flags the
// user set should be present.
func Load(path string, overrides map[string]string) (Config, error) {
	cfg := Default()
	if err := LoadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	for key, value := range overrides {
		if err := SetField(&cfg, key, value); err != nil {
			return Config{}, fmt.Errorf("flag %s: %w", key, err)
		}
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// envStrings maps environment variables onto string fields. Later entries win.
func envStrings(cfg *Config) []struct {
	key string
	dst *string
} {
	return []struct {
		key string
		dst *string
	}{
		{"CODEMATE_ADDR", &cfg.Addr},
		{"CODEMATE_REPO_ROOT", &cfg.RepoRoot},
		{"GITHUB_TOKEN", &cfg.GitHub.Token},
		{"CODEMATE_GITHUB_TOKEN", &cfg.GitHub.Token},
		{"WEBHOOK_SECRET", &cfg.GitHub.WebhookSecret},
		{"CODEMATE_GITHUB_WEBHOOK_SECRET", &cfg.GitHub.WebhookSecret},
		{"GITHUB_API_URL", &cfg.GitHub.APIURL},
		{"GITLAB_TOKEN", &cfg.GitLab.Token},
		{"CODEMATE_GITLAB_WEBHOOK_SECRET", &cfg.GitLab.WebhookSecret},
		{"BITBUCKET_TOKEN", &cfg.Bitbucket.Token},
		{"CODEMATE_BITBUCKET_WEBHOOK_SECRET", &cfg.Bitbucket.WebhookSecret},
		{"LLM_API_KEY", &cfg.LLM.APIKey},
		{"LLM_MODEL", &cfg.LLM.Model},
		{"CODEMATE_FORMAT", &cfg.Format},
		{"CODEMATE_LINT_ERROR_PREFIX", &cfg.LintErrorPrefix},
	}
}

func mergeEnv(cfg *Config) error {
	for _, e := range envStrings(cfg) {
		if v := os.Getenv(e.key); v != "" {
			*e.dst = v
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"CI_MODE", &cfg.CIMode},
		{"DEBUG", &cfg.Debug},
		{"CODEMATE_REQUIRE_SECRETS", &cfg.RequireSecrets},
		{"CODEMATE_REDACT", &cfg.Redact},
	}
	for _, e := range bools {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean: %w", e.key, err)
		}
		*e.dst = b
	}

	if v := os.Getenv("CODEMATE_ANALYZERS"); v != "" {
		cfg.Analyzers = splitList(v)
	}
	if v := os.Getenv("CODEMATE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CODEMATE_CONCURRENCY must be an integer: %w", err)
		}
		cfg.Concurrency = n
	}
	return nil
}

// SetField sets a single non-secret config field by key name. Returns error
// if the key is unknown or the value does not parse.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "addr":
		cfg.Addr = value
	case "repoRoot":
		cfg.RepoRoot = value
	case "github.apiURL":
		cfg.GitHub.APIURL = value
	case "github.requestsPerSecond":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("github.requestsPerSecond must be a number: %w", err)
		}
		cfg.GitHub.RequestsPerSecond = f
	case "analyzers":
		cfg.Analyzers = splitList(value)
	case "concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("concurrency must be an integer: %w", err)
		}
		cfg.Concurrency = n
	case "toolTimeout", "runTimeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s must be a duration: %w", key, err)
		}
		if key == "toolTimeout" {
			cfg.ToolTimeout = d
		} else {
			cfg.RunTimeout = d
		}
	case "lintErrorPrefix":
		cfg.LintErrorPrefix = value
	case "llm.model":
		cfg.LLM.Model = value
	case "format":
		cfg.Format = value
	case "include":
		cfg.Include = splitList(value)
	case "exclude":
		cfg.Exclude = splitList(value)
	case "requireSecrets", "redact", "debug", "ciMode":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be a boolean: %w", key, err)
		}
		switch key {
		case "requireSecrets":
			cfg.RequireSecrets = b
		case "redact":
			cfg.Redact = b
		case "debug":
			cfg.Debug = b
		default:
			cfg.CIMode = b
		}
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Redacted returns a copy of cfg with credentials masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redactedValue
	}
	c.GitHub.Token = mask(c.GitHub.Token)
	c.GitHub.WebhookSecret = mask(c.GitHub.WebhookSecret)
	c.GitLab.Token = mask(c.GitLab.Token)
	c.GitLab.WebhookSecret = mask(c.GitLab.WebhookSecret)
	c.Bitbucket.Token = mask(c.Bitbucket.Token)
	c.Bitbucket.WebhookSecret = mask(c.Bitbucket.WebhookSecret)
	c.LLM.APIKey = mask(c.LLM.APIKey)
	return c
}

// Secrets returns every credential value set in cfg.
func (c Config) Secrets() []string {
	var out []string
	for _, s := range []string{
		c.GitHub.Token, c.GitHub.WebhookSecret,
		c.GitLab.Token, c.GitLab.WebhookSecret,
		c.Bitbucket.Token, c.Bitbucket.WebhookSecret,
		c.LLM.APIKey,
	} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
