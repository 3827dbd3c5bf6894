package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devpulse/devpulse/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the devpulse environment",
	Long: `Run health checks against the local environment:

- git and gh binaries on PATH
- config file presence and scan directories
- Jira configuration and token
- Jira connectivity (only when configured)

Exit codes:
  0 - all checks passed
  1 - one or more checks failed`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	failures := 0
	ok := func(format string, a ...interface{}) {
		fmt.Printf("  %s "+format+"\n", append([]interface{}{green("✓")}, a...)...)
	}
	fail := func(format string, a ...interface{}) {
		failures++
		fmt.Printf("  %s "+format+"\n", append([]interface{}{red("✗")}, a...)...)
	}
	warn := func(format string, a ...interface{}) {
		fmt.Printf("  %s "+format+"\n", append([]interface{}{yellow("⚠")}, a...)...)
	}

	fmt.Println("Checking devpulse environment...")

	if path, err := exec.LookPath("git"); err != nil {
		fail("git not found on PATH")
	} else {
		ok("git: %s", path)
	}

	if path, err := exec.LookPath("gh"); err != nil {
		warn("gh not found on PATH (pull-request listing disabled)")
	} else {
		ok("gh: %s", path)
	}

	configFile := cfgPath
	if configFile == "" {
		configFile = config.DefaultPath()
	}
	if _, err := os.Stat(configFile); err != nil {
		warn("no config file at %s (using defaults)", configFile)
	} else {
		ok("config: %s", configFile)
	}

	dirs := cfg.EnabledDirectories()
	if len(dirs) == 0 {
		warn("no scan directories configured")
	} else {
		for _, dir := range dirs {
			if info, err := os.Stat(dir.Path); err != nil || !info.IsDir() {
				fail("scan directory missing: %s", dir.Path)
			} else {
				ok("scan directory: %s", dir.Path)
			}
		}
	}

	switch {
	case cfg.Jira.URL == "":
		warn("jira.url not configured (suggest --create disabled)")
	case jiraToken() == "":
		fail("DEVPULSE_JIRA_TOKEN not set")
	default:
		client, err := newJiraClient()
		if err != nil {
			fail("jira client: %v", err)
			break
		}
		info := client.CheckConnection(cmd.Context())
		if !info.Connected {
			fail("jira connection: %s", info.Error)
		} else {
			ok("jira: connected as %s (%s)", info.User, info.Server)
		}
	}

	if failures > 0 {
		fmt.Printf("\n%s %d check(s) failed\n", red("✗"), failures)
		os.Exit(1)
	}
	fmt.Printf("\n%s All checks passed\n", green("✓"))
	return nil
}
