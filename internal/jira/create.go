package jira

import (
	"context"
	"strings"

	gojira "github.com/andygrunwald/go-jira"

	"github.com/devpulse/devpulse/internal/types"
)

// CreateTicket creates one tracker issue from a suggestion. Failures are
// returned in-band so batch callers get one result per input.
func (c *Client) CreateTicket(ctx context.Context, suggestion types.TicketSuggestion) types.CreatedTicket {
	created := types.CreatedTicket{Summary: suggestion.Summary}

	if err := suggestion.Validate(); err != nil {
		created.Error = err.Error()
		return created
	}
	if err := checkProjectKey(suggestion.ProjectKey); err != nil {
		created.Error = err.Error()
		return created
	}
	if err := c.limiter.Wait(ctx); err != nil {
		created.Error = err.Error()
		return created
	}

	fields := &gojira.IssueFields{
		Project:     gojira.Project{Key: suggestion.ProjectKey},
		Summary:     suggestion.Summary,
		Description: suggestion.Description,
		Type:        gojira.IssueType{Name: string(suggestion.IssueType)},
		Priority:    &gojira.Priority{Name: string(suggestion.Priority)},
		Labels:      suggestion.Labels,
	}
	if suggestion.Assignee != "" {
		fields.Assignee = &gojira.User{Name: suggestion.Assignee}
	}

	issue, _, err := c.api.Issue.CreateWithContext(ctx, &gojira.Issue{Fields: fields})
	if err != nil {
		created.Error = err.Error()
		return created
	}

	created.Key = issue.Key
	created.URL = c.BrowseURL(issue.Key)

	// Remote links are best-effort; the ticket already exists.
	for _, prURL := range suggestion.PRURLs {
		c.addPRLink(ctx, issue.Key, prURL)
	}
	return created
}

// CreateBatch creates tickets for the selected suggestions in order. With
// skipDuplicates set, suggestions already matched to an existing issue are
// reported as duplicates instead of created.
func (c *Client) CreateBatch(ctx context.Context, suggestions []types.TicketSuggestion, skipDuplicates bool) []types.CreatedTicket {
	results := make([]types.CreatedTicket, 0, len(suggestions))
	for _, suggestion := range suggestions {
		if !suggestion.Selected {
			continue
		}
		if skipDuplicates && suggestion.AlreadyTracked {
			dup := types.CreatedTicket{Summary: suggestion.Summary, Duplicate: true}
			if len(suggestion.ExistingJira) > 0 {
				dup.Key = suggestion.ExistingJira[0].Key
				dup.URL = suggestion.ExistingJira[0].URL
			}
			results = append(results, dup)
			continue
		}
		results = append(results, c.CreateTicket(ctx, suggestion))
	}
	return results
}

func (c *Client) addPRLink(ctx context.Context, issueKey, prURL string) {
	if err := c.limiter.Wait(ctx); err != nil {
		return
	}

	title := prURL
	if _, ref, ok := strings.Cut(prURL, "/pull/"); ok {
		title = "PR #" + ref
	}
	link := &gojira.RemoteLink{
		GlobalID:     "github-pr-" + prURL,
		Relationship: "is developed by",
		Object: &gojira.RemoteLinkObject{
			URL:   prURL,
			Title: title,
		},
	}
	c.api.Issue.AddRemoteLinkWithContext(ctx, issueKey, link)
}
