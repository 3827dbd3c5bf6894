package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devpulse/devpulse/internal/jira"
	"github.com/devpulse/devpulse/internal/storage/sqlite"
	"github.com/devpulse/devpulse/internal/types"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [repo-path...]",
	Short: "Group untracked work into Jira ticket candidates",
	Long: `Analyze repositories (given as arguments, or discovered via the
configured scan directories) and group work that is not yet referenced by
a Jira issue into ticket candidates.

Candidates already created in an earlier run are detected through the
local de-duplication store and come back deselected. With --check-jira
the tracker itself is also searched for issues covering the same work,
and with --create the selected candidates are created in Jira.`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().StringSlice("dir", nil, "directory to scan for repositories (repeatable)")
	suggestCmd.Flags().String("project", "", "Jira project key (default from config)")
	suggestCmd.Flags().Bool("check-jira", false, "search the tracker for existing issues covering each candidate")
	suggestCmd.Flags().Bool("create", false, "create the selected candidates in Jira")
	suggestCmd.Flags().Bool("skip-duplicates", true, "skip candidates already matched to an existing issue when creating")
	suggestCmd.Flags().String("db", defaultDBPath(), "de-duplication database path")
	suggestCmd.Flags().Int("max-commits", 0, "maximum commits to mine (default from config)")
	suggestCmd.Flags().Int("since-days", 0, "history window in days (default from config)")
	suggestCmd.Flags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	dirs, _ := cmd.Flags().GetStringSlice("dir")
	projectKey, _ := cmd.Flags().GetString("project")
	checkJira, _ := cmd.Flags().GetBool("check-jira")
	create, _ := cmd.Flags().GetBool("create")
	skipDuplicates, _ := cmd.Flags().GetBool("skip-duplicates")
	dbPath, _ := cmd.Flags().GetString("db")
	maxCommits, _ := cmd.Flags().GetInt("max-commits")
	sinceDays, _ := cmd.Flags().GetInt("since-days")
	asJSON, _ := cmd.Flags().GetBool("json")

	if projectKey == "" {
		projectKey = cfg.Jira.ProjectKey
	}
	if !jira.ValidProjectKey(projectKey) {
		return fmt.Errorf("invalid or missing project key %q (set jira.project_key or pass --project)", projectKey)
	}

	paths, err := repoPaths(cmd.Context(), args, dirs)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no repositories to analyze")
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening de-duplication store: %w", err)
	}
	defer store.Close()

	p := newPipeline()
	p.Store = store

	var client *jira.Client
	if checkJira || create {
		client, err = newJiraClient()
		if err != nil {
			return err
		}
	}
	if checkJira {
		p.Matcher = jira.NewMatcher(client)
	}

	suggestions, err := p.SuggestTickets(cmd.Context(), paths, projectKey, summaryOptions(maxCommits, sinceDays, false))
	if err != nil {
		return err
	}

	if !create {
		if asJSON {
			return json.NewEncoder(os.Stdout).Encode(suggestions)
		}
		printSuggestions(suggestions)
		return nil
	}

	results := client.CreateBatch(cmd.Context(), suggestions, skipDuplicates)
	markCreated(cmd.Context(), store, suggestions, results)

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(results)
	}
	return printCreated(results)
}

// repoPaths resolves the repositories to analyze: explicit arguments win,
// otherwise a scan over --dir or the configured directories.
func repoPaths(ctx context.Context, args, dirs []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	s, err := buildScanner(dirs, true)
	if err != nil {
		return nil, err
	}
	repos := s.Scan(ctx, false)
	paths := make([]string, 0, len(repos))
	for _, r := range repos {
		paths = append(paths, r.Path)
	}
	return paths, nil
}

// markCreated records successful creations in the store. Results and
// selected suggestions line up by construction order.
func markCreated(ctx context.Context, store *sqlite.Store, suggestions []types.TicketSuggestion, results []types.CreatedTicket) {
	i := 0
	for _, s := range suggestions {
		if !s.Selected {
			continue
		}
		if i >= len(results) {
			break
		}
		r := results[i]
		i++
		if r.Error != "" || r.Duplicate || r.Key == "" {
			continue
		}
		_ = store.MarkCreated(ctx, s.ID, r.Key, s.SourceRepo, s.SourceBranch)
	}
}

func printSuggestions(suggestions []types.TicketSuggestion) {
	if len(suggestions) == 0 {
		fmt.Println("No untracked work found.")
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	selected := 0
	for _, s := range suggestions {
		marker := green("+")
		if s.AlreadyTracked {
			marker = yellow("=")
		} else {
			selected++
		}
		fmt.Printf("%s %s\n", marker, s.Summary)
		fmt.Printf("  %s / %s, %d commit(s), id %s\n", s.IssueType, s.Priority, len(s.SourceCommits), s.ID)
		for _, m := range s.ExistingJira {
			fmt.Printf("  already tracked as %s %s\n", m.Key, m.URL)
		}
	}
	fmt.Printf("\n%d candidate(s), %d selected for creation.\n", len(suggestions), selected)
}

func printCreated(results []types.CreatedTicket) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	failures := 0
	for _, r := range results {
		switch {
		case r.Error != "":
			failures++
			fmt.Printf("%s %s: %s\n", red("✗"), r.Summary, r.Error)
		case r.Duplicate:
			fmt.Printf("%s %s (duplicate of %s)\n", yellow("="), r.Summary, r.Key)
		default:
			fmt.Printf("%s %s → %s\n", green("✓"), r.Key, r.URL)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d ticket(s) failed to create", failures)
	}
	return nil
}
