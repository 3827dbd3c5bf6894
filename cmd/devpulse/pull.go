package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var pullCmd = &cobra.Command{
	Use:   "pull <repo-path> <branch>",
	Short: "Check out a branch and pull it, stashing local changes if needed",
	Long: `Switch the repository to the given branch and pull from its upstream.
Tracked local changes are stashed before the checkout and restored after
the pull. Failures are reported but never leave the command with a
non-zero exit; inspect the output instead.`,
	Args: cobra.ExactArgs(2),
	RunE: runPull,
}

var branchesCmd = &cobra.Command{
	Use:   "branches <repo-path>",
	Short: "List remote branches with their most recent pull request",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranches,
}

func init() {
	pullCmd.Flags().Bool("json", false, "output JSON")
	branchesCmd.Flags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(branchesCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	result := newAnalyzer().Pull(cmd.Context(), args[0], args[1])
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	if !result.Success {
		color.Red("✗ pull failed: %s", result.Error)
		if result.CurrentBranch != "" {
			fmt.Printf("  still on %s\n", result.CurrentBranch)
		}
		return nil
	}
	color.Green("✓ pulled %s", result.Branch)
	if result.Output != "" {
		fmt.Println(result.Output)
	}
	return nil
}

func runBranches(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	branches := newAnalyzer().RemoteBranches(cmd.Context(), args[0])
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(branches)
	}

	if len(branches) == 0 {
		fmt.Println("No remote branches found.")
		return nil
	}
	for _, b := range branches {
		if b.PRNumber > 0 {
			fmt.Printf("%-40s #%d %s (%s)\n", b.Branch, b.PRNumber, b.PRTitle, b.PRState)
		} else {
			fmt.Printf("%-40s %s\n", b.Branch, b.PRState)
		}
	}
	return nil
}
