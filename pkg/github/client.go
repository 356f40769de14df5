package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client wraps both the REST API client (go-github) and GraphQL client
// (githubv4). Every call waits on a shared limiter so bulk runs stay
// under GitHub's secondary rate limits.
type Client struct {
	REST    *github.Client
	GraphQL *githubv4.Client

	limiter *rate.Limiter
}

// NewClient creates a new GitHub client with both REST and GraphQL capabilities.
func NewClient(token string) *Client {
	var httpClient *http.Client

	if token != "" {
		// Create an OAuth2 token source
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	} else {
		httpClient = http.DefaultClient
	}

	return &Client{
		REST:    github.NewClient(httpClient),
		GraphQL: githubv4.NewClient(httpClient),
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

// GetAuthenticatedUser returns information about the authenticated user.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (*github.User, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	user, _, err := c.REST.Users.Get(ctx, "")
	return user, err
}

// CreateMilestone creates a milestone and returns it with the number
// GitHub assigned.
func (c *Client) CreateMilestone(ctx context.Context, owner, repo, title, description string) (*github.Milestone, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	milestone, _, err := c.REST.Issues.CreateMilestone(ctx, owner, repo, &github.Milestone{
		Title:       github.String(title),
		Description: github.String(description),
	})
	if err != nil {
		return nil, fmt.Errorf("create milestone %q: %w", title, err)
	}
	return milestone, nil
}

// CreateIssue creates an issue. A milestone of 0 means no milestone.
// Labels are intentionally not part of creation; apply them afterwards
// with AddLabels so a bad label cannot fail the issue.
func (c *Client) CreateIssue(ctx context.Context, owner, repo, title, body string, milestone int) (*github.Issue, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req := &github.IssueRequest{
		Title: github.String(title),
		Body:  github.String(body),
	}
	if milestone > 0 {
		req.Milestone = github.Int(milestone)
	}
	issue, _, err := c.REST.Issues.Create(ctx, owner, repo, req)
	if err != nil {
		return nil, fmt.Errorf("create issue %q: %w", title, err)
	}
	return issue, nil
}

// AddLabels adds labels to an existing issue.
func (c *Client) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, _, err := c.REST.Issues.AddLabelsToIssue(ctx, owner, repo, number, labels)
	if err != nil {
		return fmt.Errorf("add labels to #%d: %w", number, err)
	}
	return nil
}

// GetIssueBody returns the current body of an issue.
func (c *Client) GetIssueBody(ctx context.Context, owner, repo string, number int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	issue, _, err := c.REST.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return "", fmt.Errorf("get issue #%d: %w", number, err)
	}
	return issue.GetBody(), nil
}

// EditIssueBody overwrites the full body of an issue. There are no
// server-side patch semantics; callers compose the new body themselves.
func (c *Client) EditIssueBody(ctx context.Context, owner, repo string, number int, body string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, _, err := c.REST.Issues.Edit(ctx, owner, repo, number, &github.IssueRequest{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("edit issue #%d: %w", number, err)
	}
	return nil
}

// GetIssueNodeID resolves a repo-local issue number to the opaque global
// node id the GraphQL mutations operate on.
func (c *Client) GetIssueNodeID(ctx context.Context, owner, repo string, number int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	var q struct {
		Repository struct {
			Issue struct {
				ID githubv4.ID
			} `graphql:"issue(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"number": githubv4.Int(number),
	}
	if err := c.GraphQL.Query(ctx, &q, vars); err != nil {
		return "", fmt.Errorf("resolve node id for #%d: %w", number, err)
	}
	id, ok := q.Repository.Issue.ID.(string)
	if !ok || id == "" {
		return "", fmt.Errorf("resolve node id for #%d: empty id in response", number)
	}
	return id, nil
}

// AddSubIssueInput is the input to GitHub's addSubIssue mutation. The
// mutation is not covered by githubv4's generated types yet; githubv4
// derives the GraphQL input type name from this Go type name, so it must
// match exactly.
type AddSubIssueInput struct {
	IssueID       githubv4.ID       `json:"issueId"`
	SubIssueID    githubv4.ID       `json:"subIssueId"`
	ReplaceParent *githubv4.Boolean `json:"replaceParent,omitempty"`
}

// AddSubIssue links a child issue under a parent via the addSubIssue
// mutation. replaceParent makes the call idempotent: repeating it
// overwrites the parent relation rather than duplicating it.
func (c *Client) AddSubIssue(ctx context.Context, parentNodeID, childNodeID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	var m struct {
		AddSubIssue struct {
			SubIssue struct {
				Number int
			}
		} `graphql:"addSubIssue(input: $input)"`
	}
	replace := githubv4.Boolean(true)
	input := AddSubIssueInput{
		IssueID:       githubv4.ID(parentNodeID),
		SubIssueID:    githubv4.ID(childNodeID),
		ReplaceParent: &replace,
	}
	if err := c.GraphQL.Mutate(ctx, &m, input, nil); err != nil {
		return fmt.Errorf("link sub-issue: %w", err)
	}
	return nil
}
