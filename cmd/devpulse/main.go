package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/devpulse/devpulse/internal/analyzer"
	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/jira"
	"github.com/devpulse/devpulse/internal/pipeline"
	"github.com/devpulse/devpulse/internal/suggester"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "devpulse",
	Short: "Turn unrecorded local git work into tracker tickets",
	Long: `devpulse scans your local git repositories, mines recent commit and
branch history, and groups work that is not yet tracked in Jira into
ticket candidates you can review and create.

Configuration lives in ~/.devpulse.yaml. The Jira token is read from the
DEVPULSE_JIRA_TOKEN environment variable and is never stored on disk.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/"+config.DefaultConfigName+")")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func jiraToken() string {
	return os.Getenv("DEVPULSE_JIRA_TOKEN")
}

// defaultDBPath is where the de-duplication store lives.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "devpulse.db"
	}
	return filepath.Join(home, ".devpulse", "devpulse.db")
}

func newAnalyzer() *analyzer.Analyzer {
	ttl := time.Duration(cfg.Performance.CacheTTLSeconds) * time.Second
	return analyzer.New(analyzer.NewCache(ttl), cfg.GitHub.PRAuthor)
}

func newPipeline() *pipeline.Pipeline {
	p := pipeline.New(newAnalyzer(), suggester.New(cfg.Jira.DefaultAssignee, cfg.Jira.Labels))
	p.MaxParallel = cfg.Performance.MaxParallelScans
	return p
}

// newJiraClient connects with the configured URL and the token from the
// environment. Both must be present.
func newJiraClient() (*jira.Client, error) {
	if cfg.Jira.URL == "" {
		return nil, fmt.Errorf("jira.url is not configured (set it in %s)", config.DefaultConfigName)
	}
	token := jiraToken()
	if token == "" {
		return nil, fmt.Errorf("DEVPULSE_JIRA_TOKEN is not set")
	}
	return jira.NewClient(cfg.Jira.URL, token)
}
