package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config describes the top-level application configuration loaded from YAML and ENV.
type Config struct {
	Version string        `mapstructure:"version"`
	Project ProjectConfig `mapstructure:"project"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Context ContextConfig `mapstructure:"context"`
	Overlay OverlayConfig `mapstructure:"overlay"`
	Browser BrowserConfig `mapstructure:"browser"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

// ProjectConfig locates the project whose rendered pages are being edited.
type ProjectConfig struct {
	Root             string   `mapstructure:"root"`               // project root, reads never leave it
	GraphPath        string   `mapstructure:"graph_path"`         // dependency graph JSON, relative to root
	SourceDirs       []string `mapstructure:"source_dirs"`        // prefixes used as-is when resolving files
	DefaultSourceDir string   `mapstructure:"default_source_dir"` // prefix for everything else
}

// AgentConfig describes how the external coding agent is spawned.
type AgentConfig struct {
	Command        string        `mapstructure:"command"`
	Args           []string      `mapstructure:"args"`
	WorkingDir     string        `mapstructure:"working_dir"`
	Timeout        time.Duration `mapstructure:"timeout"` // 0 waits for the process indefinitely
	MaxOutputBytes int           `mapstructure:"max_output_bytes"`
}

// ContextConfig bounds the file contents embedded into a single agent prompt.
type ContextConfig struct {
	MaxFiles     int    `mapstructure:"max_files"`
	MaxBytes     int    `mapstructure:"max_bytes"`
	PerFileBytes int    `mapstructure:"per_file_bytes"`
	Preamble     string `mapstructure:"preamble"`
}

// OverlayConfig controls the in-page selection overlay and its control panel.
type OverlayConfig struct {
	Attribute    string `mapstructure:"attribute"`
	Position     string `mapstructure:"position"` // top-right, top-left, bottom-right, bottom-left, bottom-center
	Theme        string `mapstructure:"theme"`    // light or dark
	AutoActivate bool   `mapstructure:"auto_activate"`
}

// BrowserConfig describes the browser session used by `visualedit open`.
type BrowserConfig struct {
	URL         string `mapstructure:"url"`
	Headless    bool   `mapstructure:"headless"`
	Bin         string `mapstructure:"bin"`
	DebuggerURL string `mapstructure:"debugger_url"`
	Remote      bool   `mapstructure:"remote"` // send applies to the daemon instead of running in-process
}

// LoggingConfig controls logger behaviour.
type LoggingConfig struct {
	Level   string   `mapstructure:"level"`  // debug, info, warn, error
	Format  string   `mapstructure:"format"` // console or json
	Outputs []string `mapstructure:"outputs"`
}

// ServerConfig describes daemon settings.
type ServerConfig struct {
	Addr           string `mapstructure:"addr"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	Transport      string `mapstructure:"transport"` // connect or ndjson
}

var overlayPositions = []string{"top-right", "top-left", "bottom-right", "bottom-left", "bottom-center"}

// Load reads configuration from the provided path or defaults to configs/config.yaml.
// A .env file in the working directory is loaded first; environment variables override
// file values (prefix: VISUALEDIT_, dots replaced with underscores).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VISUALEDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		v.SetConfigName("config.example")
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// no file at all: defaults and environment only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults populates sensible defaults for optional fields.
func setDefaults(v *viper.Viper) {
	v.SetDefault("project.root", ".")
	v.SetDefault("project.graph_path", "dependency-graph.json")
	v.SetDefault("project.source_dirs", []string{"app", "components"})
	v.SetDefault("project.default_source_dir", "app")

	v.SetDefault("agent.command", "claude")
	v.SetDefault("agent.args", []string{"-p", "--output-format", "json"})
	v.SetDefault("agent.working_dir", "")
	v.SetDefault("agent.timeout", "0s")
	v.SetDefault("agent.max_output_bytes", 16<<20)

	v.SetDefault("context.max_files", 40)
	v.SetDefault("context.max_bytes", 384<<10)
	v.SetDefault("context.per_file_bytes", 64<<10)
	v.SetDefault("context.preamble", "")

	v.SetDefault("overlay.attribute", "data-pm-edit")
	v.SetDefault("overlay.position", "bottom-center")
	v.SetDefault("overlay.theme", "light")
	v.SetDefault("overlay.auto_activate", false)

	v.SetDefault("browser.url", "http://localhost:3000")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.remote", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.addr", ":8787")
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("server.transport", "connect")
}

// Validate performs basic sanity checks on configuration values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Agent.Command) == "" {
		return errors.New("agent.command must be set")
	}
	if c.Agent.Timeout < 0 {
		return errors.New("agent.timeout must be >= 0")
	}
	if c.Agent.MaxOutputBytes < 0 {
		return errors.New("agent.max_output_bytes must be >= 0")
	}

	if strings.TrimSpace(c.Project.GraphPath) == "" {
		return errors.New("project.graph_path must be set")
	}
	if strings.TrimSpace(c.Project.DefaultSourceDir) == "" {
		return errors.New("project.default_source_dir must be set")
	}

	if c.Context.MaxFiles < 0 {
		return errors.New("context.max_files must be >= 0")
	}
	if c.Context.MaxBytes < 0 {
		return errors.New("context.max_bytes must be >= 0")
	}
	if c.Context.PerFileBytes < 0 {
		return errors.New("context.per_file_bytes must be >= 0")
	}

	if strings.TrimSpace(c.Overlay.Attribute) == "" {
		return errors.New("overlay.attribute must be set")
	}
	if !contains(overlayPositions, strings.ToLower(strings.TrimSpace(c.Overlay.Position))) {
		return fmt.Errorf("overlay.position must be one of %s, got %q", strings.Join(overlayPositions, ", "), c.Overlay.Position)
	}
	switch strings.ToLower(strings.TrimSpace(c.Overlay.Theme)) {
	case "light", "dark":
	default:
		return fmt.Errorf("overlay.theme must be light or dark, got %q", c.Overlay.Theme)
	}

	switch strings.ToLower(strings.TrimSpace(c.Server.Transport)) {
	case "", "connect", "ndjson":
	default:
		return fmt.Errorf("server.transport must be one of connect or ndjson, got %q", c.Server.Transport)
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
