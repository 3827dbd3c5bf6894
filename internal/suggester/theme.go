package suggester

import (
	"regexp"

	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"

	"github.com/devpulse/devpulse/internal/types"
)

// Fallback keyword matchers for commits that don't follow the
// conventional-commit format. Order matters: fix wins over feat.
var (
	fixPattern  = regexp.MustCompile(`(?i)\b(fix|bug|patch|hotfix|resolve)\b`)
	featPattern = regexp.MustCompile(`(?i)\b(feat|feature|add|implement|new)\b`)
)

// themeLabels maps a dominant conventional-commit type to a human theme.
var themeLabels = map[string]string{
	"feat":     "Feature development",
	"fix":      "Bug fixes",
	"docs":     "Documentation",
	"test":     "Test improvements",
	"refactor": "Refactoring",
	"chore":    "Maintenance",
	"ci":       "CI/CD updates",
	"build":    "Build changes",
	"perf":     "Performance tuning",
	"style":    "Code style",
	"revert":   "Reverts",
}

// parseCommitType extracts the conventional-commit type from a message
// subject, or empty when the message doesn't parse.
func parseCommitType(message string) string {
	subject := firstLine(message)
	machine := parser.NewMachine(conventionalcommits.WithTypes(conventionalcommits.TypesConventional))
	msg, err := machine.Parse([]byte(subject))
	if err != nil {
		return ""
	}
	cc, ok := msg.(*conventionalcommits.ConventionalCommit)
	if !ok {
		return ""
	}
	return cc.Type
}

// dominantType returns the most frequent conventional-commit type across
// the group, or empty when no commit parses. Ties break toward the type
// seen first.
func dominantType(commits []types.CommitInfo) string {
	counts := make(map[string]int)
	var order []string
	for _, c := range commits {
		t := parseCommitType(c.Message)
		if t == "" {
			continue
		}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	best := ""
	bestCount := 0
	for _, t := range order {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}

// inferIssueType maps the group's dominant conventional-commit type to a
// tracker issue type, falling back to a keyword scan over all messages.
func inferIssueType(commits []types.CommitInfo) types.IssueType {
	switch dominantType(commits) {
	case "feat":
		return types.TypeStory
	case "fix":
		return types.TypeBug
	case "":
		// Fall through to the keyword scan.
	default:
		return types.TypeTask
	}

	var all string
	for _, c := range commits {
		all += c.Message + " "
	}
	if fixPattern.MatchString(all) {
		return types.TypeBug
	}
	if featPattern.MatchString(all) {
		return types.TypeStory
	}
	return types.TypeTask
}

// themeLabel names the group's work: the dominant conventional-commit
// type's label, else a keyword-derived label, else the first commit's
// subject.
func themeLabel(commits []types.CommitInfo) string {
	if t := dominantType(commits); t != "" {
		if label, ok := themeLabels[t]; ok {
			return label
		}
	}

	var all string
	for _, c := range commits {
		all += c.Message + " "
	}
	if fixPattern.MatchString(all) {
		return "Bug fixes"
	}
	if featPattern.MatchString(all) {
		return "Feature development"
	}

	if len(commits) > 0 {
		return truncate(firstLine(commits[0].Message), 80)
	}
	return "Development work"
}

// inferPriority maps change volume to a priority. The function is
// monotonic in both inputs.
func inferPriority(fileCount, insertions int) types.Priority {
	switch {
	case fileCount > 20 || insertions > 500:
		return types.PriorityCritical
	case fileCount > 10 || insertions > 200:
		return types.PriorityMajor
	case fileCount > 3:
		return types.PriorityNormal
	default:
		return types.PriorityMinor
	}
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
