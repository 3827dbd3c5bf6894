package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/scanner"
	"github.com/devpulse/devpulse/internal/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover local git repositories and show their status",
	Long: `Scan the configured directories (or the ones given with --dir) for git
repositories and report each one's working tree status, recent activity,
and stale branches.

Paths passed with --dir that are themselves repositories are always
included, even when listed under hidden_repos in the config.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSlice("dir", nil, "directory to scan (repeatable, overrides config)")
	scanCmd.Flags().Bool("recursive", false, "descend into subdirectories of --dir paths")
	scanCmd.Flags().Bool("include-hidden", false, "include repositories listed in hidden_repos")
	scanCmd.Flags().String("status", "", "filter by status (clean|dirty)")
	scanCmd.Flags().Int("min-commits", 0, "only show repositories with at least this many recent commits")
	scanCmd.Flags().String("sort", "name", "sort by name|status|uncommitted|commits|activity")
	scanCmd.Flags().Bool("desc", false, "sort descending")
	scanCmd.Flags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	dirs, _ := cmd.Flags().GetStringSlice("dir")
	recursive, _ := cmd.Flags().GetBool("recursive")
	includeHidden, _ := cmd.Flags().GetBool("include-hidden")
	status, _ := cmd.Flags().GetString("status")
	minCommits, _ := cmd.Flags().GetInt("min-commits")
	sortBy, _ := cmd.Flags().GetString("sort")
	desc, _ := cmd.Flags().GetBool("desc")
	asJSON, _ := cmd.Flags().GetBool("json")

	s, err := buildScanner(dirs, recursive)
	if err != nil {
		return err
	}

	var repos []types.RepoInfo
	if status != "" || minCommits > 0 || sortBy != "name" || desc {
		if status != "" && !types.RepoStatus(status).IsValid() {
			return fmt.Errorf("invalid status %q (want clean or dirty)", status)
		}
		repos = s.ScanWithFilters(cmd.Context(), scanner.Filters{
			Status:     types.RepoStatus(status),
			MinCommits: minCommits,
			SortBy:     scanner.SortField(sortBy),
			SortDesc:   desc,
		})
	} else {
		repos = s.Scan(cmd.Context(), includeHidden)
	}

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(repos)
	}

	printRepos(repos)
	return nil
}

// recursiveScanDepth bounds --recursive scans over --dir paths.
const recursiveScanDepth = 3

func buildScanner(dirs []string, recursive bool) (*scanner.Scanner, error) {
	if len(dirs) > 0 {
		depth := 0
		if recursive {
			depth = recursiveScanDepth
		}
		scanDirs := make([]config.ScanDirectory, 0, len(dirs))
		for _, dir := range dirs {
			scanDirs = append(scanDirs, config.ScanDirectory{
				Path:      config.ExpandPath(dir),
				Enabled:   true,
				Recursive: recursive,
				MaxDepth:  depth,
			})
		}
		return scanner.NewForDirs(scanDirs), nil
	}

	if len(cfg.EnabledDirectories()) == 0 {
		return nil, fmt.Errorf("no scan directories configured; add scan_directories to %s or pass --dir", config.DefaultConfigName)
	}
	return scanner.New(cfg), nil
}

func printRepos(repos []types.RepoInfo) {
	if len(repos) == 0 {
		fmt.Println("No repositories found.")
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, r := range repos {
		badge := green("clean")
		if r.Status == types.StatusDirty {
			badge = red("dirty")
		}
		fmt.Printf("%-30s %s  %s\n", r.Name, badge, r.CurrentBranch)
		fmt.Printf("  %d uncommitted, %d untracked, %d recent commits, %d unpushed\n",
			r.UncommittedCount, r.UntrackedCount, r.RecentCommitCount, r.UnpushedCount)
		if len(r.StaleBranches) > 0 {
			fmt.Printf("  %s %d stale branch(es)\n", yellow("⚠"), len(r.StaleBranches))
		}
	}
	fmt.Printf("\n%d repositories.\n", len(repos))
}
