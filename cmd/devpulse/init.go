package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devpulse/devpulse/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter ~/.devpulse.yaml with the current directory's parent
as the first scan directory. Refuses to overwrite an existing file
unless --force is given.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	path := cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	c := config.DefaultConfig()
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	c.ScanDirectories = []config.ScanDirectory{{
		Path:      cwd,
		Enabled:   true,
		Recursive: false,
	}}

	if err := c.Save(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	color.Green("✓ wrote %s", path)
	fmt.Println("Edit scan_directories and jira settings, then run 'devpulse doctor'.")
	return nil
}
