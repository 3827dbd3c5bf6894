package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devpulse/devpulse/internal/analyzer"
	"github.com/devpulse/devpulse/internal/pipeline"
	"github.com/devpulse/devpulse/internal/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [repo-path...]",
	Short: "Mine commit and branch history for one or more repositories",
	Long: `Analyze the given repositories (default: the current directory) and
print a work summary: uncommitted changes, recent commits with issue-key
references, branch tracking state, unpushed commits, and stale branches.

Repositories are analyzed in parallel; a repository that fails to analyze
is reported and does not abort the rest.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Int("max-commits", 0, "maximum commits to mine (default from config)")
	analyzeCmd.Flags().Int("since-days", 0, "history window in days (default from config)")
	analyzeCmd.Flags().Bool("no-cache", false, "bypass the analysis cache")
	analyzeCmd.Flags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	maxCommits, _ := cmd.Flags().GetInt("max-commits")
	sinceDays, _ := cmd.Flags().GetInt("since-days")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	asJSON, _ := cmd.Flags().GetBool("json")

	paths := args
	if len(paths) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		paths = []string{cwd}
	}

	opts := summaryOptions(maxCommits, sinceDays, noCache)
	summaries := newPipeline().AnalyzeRepos(cmd.Context(), paths, opts)

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(summaries)
	}

	failed := 0
	for i := range summaries {
		if pipeline.Failed(&summaries[i]) {
			failed++
			color.Red("✗ %s: analysis failed", summaries[i].RepoPath)
			continue
		}
		printSummary(&summaries[i])
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d repositories failed to analyze", failed, len(summaries))
	}
	return nil
}

// summaryOptions resolves flag overrides against the configured analysis
// window.
func summaryOptions(maxCommits, sinceDays int, noCache bool) analyzer.SummaryOptions {
	opts := analyzer.SummaryOptions{
		MaxCommits:  cfg.Analysis.MaxCommits,
		SinceDays:   cfg.Analysis.SinceDays,
		BypassCache: noCache,
	}
	if maxCommits > 0 {
		opts.MaxCommits = maxCommits
	}
	if sinceDays > 0 {
		opts.SinceDays = sinceDays
	}
	return opts
}

func printSummary(s *types.WorkSummary) {
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Printf("%s %s (%s)\n", cyan("▸"), s.RepoName, s.CurrentBranch)

	if !s.Uncommitted.IsEmpty() {
		fmt.Printf("  uncommitted: %d staged, %d unstaged, %d untracked\n",
			len(s.Uncommitted.Staged), len(s.Uncommitted.Unstaged), len(s.Uncommitted.Untracked))
	}

	fmt.Printf("  %d commit(s) in window\n", len(s.RecentCommits))
	for _, c := range s.RecentCommits {
		line := fmt.Sprintf("    %s %s", c.ShortSHA, c.Subject())
		if len(c.JiraRefs) > 0 {
			line += " " + yellow(fmt.Sprintf("%v", c.JiraRefs))
		}
		fmt.Println(line)
	}

	for _, b := range s.Branches {
		if b.Tracking == "" {
			continue
		}
		fmt.Printf("  branch %s: %d ahead, %d behind %s\n", b.Name, b.Ahead, b.Behind, b.Tracking)
	}
	if len(s.UnpushedCommits) > 0 {
		fmt.Printf("  %d unpushed commit(s)\n", len(s.UnpushedCommits))
	}
	for _, sb := range s.StaleBranches {
		fmt.Printf("  %s stale branch %s (%d days)\n", yellow("⚠"), sb.Name, sb.DaysStale)
	}
}
