// Package config loads and persists the devpulse YAML configuration.
//
// The file lives at ~/.devpulse.yaml by default. A missing file yields the
// default configuration rather than an error, so a fresh checkout works
// without any setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the config file name resolved against the home
// directory when no explicit path is given.
const DefaultConfigName = ".devpulse.yaml"

// ScanDirectory configures one base directory for repository discovery.
type ScanDirectory struct {
	Path            string   `yaml:"path"`
	Enabled         bool     `yaml:"enabled"`
	Recursive       bool     `yaml:"recursive"`
	MaxDepth        int      `yaml:"max_depth"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
	ExcludeFolders  []string `yaml:"exclude_folders"`
}

// PerformanceConfig holds pipeline tuning values.
type PerformanceConfig struct {
	MaxParallelScans int `yaml:"max_parallel_scans"`
	CacheTTLSeconds  int `yaml:"cache_ttl_seconds"`
}

// AnalysisConfig bounds the history mining window.
type AnalysisConfig struct {
	MaxCommits int `yaml:"max_commits"`
	SinceDays  int `yaml:"since_days"`
}

// JiraConfig holds tracker connection settings. The token is read from the
// DEVPULSE_JIRA_TOKEN environment variable, never from the config file.
type JiraConfig struct {
	URL             string   `yaml:"url"`
	ProjectKey      string   `yaml:"project_key"`
	DefaultAssignee string   `yaml:"default_assignee"`
	Labels          []string `yaml:"labels"`
}

// GitHubConfig holds settings for pull-request listing via the gh CLI.
type GitHubConfig struct {
	PRAuthor string `yaml:"pr_author"`
}

// Config is the complete devpulse configuration.
type Config struct {
	Version         string            `yaml:"version"`
	ScanDirectories []ScanDirectory   `yaml:"scan_directories"`
	HiddenRepos     []string          `yaml:"hidden_repos"`
	Performance     PerformanceConfig `yaml:"performance"`
	Analysis        AnalysisConfig    `yaml:"analysis"`
	Jira            JiraConfig        `yaml:"jira"`
	GitHub          GitHubConfig      `yaml:"github"`
}

// DefaultExcludePatterns are directory names never worth descending into.
var DefaultExcludePatterns = []string{"node_modules", ".venv", "__pycache__", ".pytest_cache", "vendor"}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Performance: PerformanceConfig{
			MaxParallelScans: 10,
			CacheTTLSeconds:  300,
		},
		Analysis: AnalysisConfig{
			MaxCommits: 100,
			SinceDays:  120,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigName
	}
	return filepath.Join(home, DefaultConfigName)
}

// Load reads the configuration from path. A missing file returns the
// default configuration; a malformed file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// EnabledDirectories returns the scan directories with scanning turned on,
// with paths expanded.
func (c *Config) EnabledDirectories() []ScanDirectory {
	var dirs []ScanDirectory
	for _, d := range c.ScanDirectories {
		if !d.Enabled {
			continue
		}
		d.Path = ExpandPath(d.Path)
		if d.MaxDepth <= 0 {
			d.MaxDepth = 1
		}
		if d.ExcludePatterns == nil {
			d.ExcludePatterns = DefaultExcludePatterns
		}
		dirs = append(dirs, d)
	}
	return dirs
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Performance.MaxParallelScans <= 0 {
		c.Performance.MaxParallelScans = 10
	}
	if c.Performance.CacheTTLSeconds <= 0 {
		c.Performance.CacheTTLSeconds = 300
	}
	if c.Analysis.MaxCommits <= 0 {
		c.Analysis.MaxCommits = 100
	}
	if c.Analysis.SinceDays <= 0 {
		c.Analysis.SinceDays = 120
	}
}

// ExpandPath expands a leading ~ and environment variables in a path.
func ExpandPath(path string) string {
	if path == "~" || len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return os.ExpandEnv(path)
}
