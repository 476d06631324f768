// Package config loads and validates the mapdoc configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration, loaded from mapdoc.yaml.
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Doxygen DoxygenConfig `yaml:"doxygen"`
	Sphinx  SphinxConfig  `yaml:"sphinx"`
	Output  OutputConfig  `yaml:"output"`
	Watch   WatchConfig   `yaml:"watch"`
	History HistoryConfig `yaml:"history"`
	Notify  *NotifyConfig `yaml:"notify,omitempty"`
	Repo    *RepoConfig   `yaml:"repo,omitempty"`
}

// ProjectConfig describes the documented project.
type ProjectConfig struct {
	Name      string `yaml:"name"`
	Author    string `yaml:"author,omitempty"`
	Copyright string `yaml:"copyright,omitempty"`
	Release   string `yaml:"release,omitempty"`
}

// DoxygenConfig controls Doxyfile generation and the doxygen invocation.
type DoxygenConfig struct {
	Template  string            `yaml:"template"`   // Doxyfile template with @TOKEN@ placeholders
	Inputs    []string          `yaml:"inputs"`     // source directories passed to INPUT
	OutputDir string            `yaml:"output_dir"` // OUTPUT_DIRECTORY value
	Binary    string            `yaml:"binary,omitempty"`
	Extra     map[string]string `yaml:"extra,omitempty"` // additional @TOKEN@ replacements
}

// SphinxConfig holds the presentation settings written into the generated
// Sphinx configuration.
type SphinxConfig struct {
	Theme           string   `yaml:"theme,omitempty"`
	Extensions      []string `yaml:"extensions,omitempty"`
	TemplatesPath   string   `yaml:"templates_path,omitempty"`
	StaticPath      string   `yaml:"static_path,omitempty"`
	ExcludePatterns []string `yaml:"exclude_patterns,omitempty"`
}

// OutputConfig controls where build artifacts land.
type OutputConfig struct {
	Directory string `yaml:"directory"` // docs directory holding templates and generated files
	Clean     bool   `yaml:"clean"`
}

// WatchConfig controls the watch-mode daemon.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce,omitempty"`  // quiet window before a rebuild
	MaxDelay time.Duration `yaml:"max_delay,omitempty"` // rebuild cannot be postponed past this
	Interval time.Duration `yaml:"interval,omitempty"`  // scheduled rebuild interval, 0 disables
	Addr     string        `yaml:"addr,omitempty"`      // preview server listen address
}

// HistoryConfig controls the SQLite build history store.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"` // empty disables persistence
}

// NotifyConfig enables publishing build events to NATS.
type NotifyConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject,omitempty"`
}

// RepoConfig points at the repository holding the documented sources, for
// builds that run outside a checkout (hosted documentation services).
type RepoConfig struct {
	URL    string `yaml:"url"`
	Branch string `yaml:"branch,omitempty"`
}

// Load reads configuration from the given path, expands environment variables
// in the file content, and applies defaults.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Project.Name == "" {
		c.Project.Name = "MapTransformer"
	}
	if c.Project.Release == "" {
		c.Project.Release = "1.0.0"
	}
	if c.Doxygen.Template == "" {
		c.Doxygen.Template = "doxyfile.in"
	}
	if len(c.Doxygen.Inputs) == 0 {
		c.Doxygen.Inputs = []string{"../include", "../src"}
	}
	if c.Doxygen.OutputDir == "" {
		c.Doxygen.OutputDir = "build"
	}
	if c.Doxygen.Binary == "" {
		c.Doxygen.Binary = "doxygen"
	}
	if c.Sphinx.Theme == "" {
		c.Sphinx.Theme = "sphinx_rtd_theme"
	}
	if len(c.Sphinx.Extensions) == 0 {
		c.Sphinx.Extensions = []string{"breathe"}
	}
	if c.Sphinx.TemplatesPath == "" {
		c.Sphinx.TemplatesPath = "_templates"
	}
	if c.Sphinx.StaticPath == "" {
		c.Sphinx.StaticPath = "_static"
	}
	if len(c.Sphinx.ExcludePatterns) == 0 {
		c.Sphinx.ExcludePatterns = []string{"_build", "Thumbs.db", ".DS_Store"}
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "doc"
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
	if c.Watch.MaxDelay <= 0 {
		c.Watch.MaxDelay = 10 * time.Second
	}
	if c.Watch.Addr == "" {
		c.Watch.Addr = ":8825"
	}
	if c.Notify != nil && c.Notify.Subject == "" {
		c.Notify.Subject = "mapdoc.builds"
	}
	if c.Repo != nil && c.Repo.Branch == "" {
		c.Repo.Branch = "main"
	}
}

func (c *Config) validate() error {
	if c.Notify != nil && c.Notify.URL == "" {
		return fmt.Errorf("notify.url is required when notifications are configured")
	}
	if c.Repo != nil && c.Repo.URL == "" {
		return fmt.Errorf("repo.url is required when a source repository is configured")
	}
	return nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Project: ProjectConfig{
			Name:      "MapTransformer",
			Author:    "Your Name",
			Copyright: "2026, Your Name",
			Release:   "1.0.0",
		},
		Doxygen: DoxygenConfig{
			Template:  "doxyfile.in",
			Inputs:    []string{"../include", "../src"},
			OutputDir: "build",
		},
		Sphinx: SphinxConfig{
			Theme:           "sphinx_rtd_theme",
			Extensions:      []string{"breathe"},
			ExcludePatterns: []string{"_build", "Thumbs.db", ".DS_Store"},
		},
		Output: OutputConfig{
			Directory: "doc",
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
