package jira

import (
	"context"
	"fmt"
	"strings"

	gojira "github.com/andygrunwald/go-jira"
	"golang.org/x/time/rate"

	"github.com/devpulse/devpulse/internal/types"
)

// requestsPerSecond bounds outbound tracker calls. Jira Cloud throttles
// aggressively; staying well under the limit beats handling 429s.
const requestsPerSecond = 4

// ConnectionInfo is the result of a connectivity probe.
type ConnectionInfo struct {
	Connected bool   `json:"connected"`
	User      string `json:"user,omitempty"`
	Email     string `json:"email,omitempty"`
	Server    string `json:"server"`
	Error     string `json:"error,omitempty"`
}

// ProjectInfo is one tracker project.
type ProjectInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Client wraps the Jira REST API with personal-access-token auth and a
// shared rate limiter. It satisfies Searcher.
type Client struct {
	api     *gojira.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient connects to a Jira server with a personal access token. The
// token is held by the transport, never logged.
func NewClient(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("jira url is required")
	}
	if token == "" {
		return nil, fmt.Errorf("jira token is required")
	}

	tp := gojira.PATAuthTransport{Token: token}
	api, err := gojira.NewClient(tp.Client(), baseURL)
	if err != nil {
		return nil, fmt.Errorf("creating jira client: %w", err)
	}

	return &Client{
		api:     api,
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}, nil
}

// CheckConnection probes the server with the configured credentials.
// Failures are reported in-band so callers can render them.
func (c *Client) CheckConnection(ctx context.Context) ConnectionInfo {
	info := ConnectionInfo{Server: c.baseURL}
	if err := c.limiter.Wait(ctx); err != nil {
		info.Error = err.Error()
		return info
	}

	user, _, err := c.api.User.GetSelfWithContext(ctx)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Connected = true
	info.User = user.DisplayName
	info.Email = user.EmailAddress
	return info
}

// Projects lists the projects visible to the authenticated user.
func (c *Client) Projects(ctx context.Context) ([]ProjectInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	list, _, err := c.api.Project.GetListWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	projects := make([]ProjectInfo, 0, len(*list))
	for _, p := range *list {
		projects = append(projects, ProjectInfo{Key: p.Key, Name: p.Name})
	}
	return projects, nil
}

// SearchIssues runs a JQL query and maps the hits to matches. The caller
// is responsible for sanitizing any free text embedded in jql.
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int) ([]types.ExistingJiraMatch, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	issues, _, err := c.api.Issue.SearchWithContext(ctx, jql, &gojira.SearchOptions{MaxResults: maxResults})
	if err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}

	matches := make([]types.ExistingJiraMatch, 0, len(issues))
	for _, issue := range issues {
		matches = append(matches, c.matchFromIssue(issue))
	}
	return matches, nil
}

func (c *Client) matchFromIssue(issue gojira.Issue) types.ExistingJiraMatch {
	match := types.ExistingJiraMatch{
		Key: issue.Key,
		URL: c.BrowseURL(issue.Key),
	}
	if issue.Fields != nil {
		match.Summary = issue.Fields.Summary
		if issue.Fields.Status != nil {
			match.Status = issue.Fields.Status.Name
		}
	}
	return match
}

// BrowseURL returns the human-facing URL for an issue key.
func (c *Client) BrowseURL(key string) string {
	return c.baseURL + "/browse/" + key
}
