package ghcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/LightForgeLabsStudio/AIDE/internal/tracker"
)

var errInvalidRepo = errors.New("repository must be OWNER/NAME")

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepo parses an OWNER/NAME string.
func ParseRepo(s string) (Repo, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repo{}, fmt.Errorf("%w: %q", errInvalidRepo, s)
	}

	return Repo{Owner: owner, Name: name}, nil
}

// DetectRepo asks gh for the repository of the current directory.
func DetectRepo(ctx context.Context, runner Runner) (Repo, error) {
	out, err := runner.Run(ctx, []string{"repo", "view", "--json", "owner,name"})
	if err != nil {
		return Repo{}, fmt.Errorf("detecting repository: %w", err)
	}

	var data struct {
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
		Name string `json:"name"`
	}

	if err := json.Unmarshal(out, &data); err != nil {
		return Repo{}, fmt.Errorf("parsing gh repo view output: %w", err)
	}

	if data.Owner.Login == "" || data.Name == "" {
		return Repo{}, fmt.Errorf("parsing gh repo view output: %w: %s", errInvalidRepo, strings.TrimSpace(string(out)))
	}

	return Repo{Owner: data.Owner.Login, Name: data.Name}, nil
}

// Client is a tracker.Tracker backed by gh.
type Client struct {
	runner Runner
	repo   Repo
	log    logrus.FieldLogger
}

var _ tracker.Tracker = (*Client)(nil)

// New returns a client for repo. A nil log discards diagnostics.
func New(runner Runner, repo Repo, log logrus.FieldLogger) *Client {
	if log == nil {
		discard := logrus.New()
		discard.SetLevel(logrus.PanicLevel)
		log = discard
	}

	return &Client{runner: runner, repo: repo, log: log.WithField("repo", repo.String())}
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	return c.runner.Run(ctx, args)
}

// ListLabels implements tracker.Tracker.
func (c *Client) ListLabels(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "label", "list", "--repo", c.repo.String(), "--json", "name", "--limit", "1000")
	if err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}

	var raw []struct {
		Name string `json:"name"`
	}

	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("parsing gh label list output: %w", err)
	}

	names := make([]string, 0, len(raw))
	for _, l := range raw {
		names = append(names, l.Name)
	}

	return names, nil
}

// CreateLabel implements tracker.Tracker.
func (c *Client) CreateLabel(ctx context.Context, label tracker.Label) error {
	args := []string{"label", "create", label.Name, "--repo", c.repo.String()}
	if label.Color != "" {
		args = append(args, "--color", label.Color)
	}

	if label.Description != "" {
		args = append(args, "--description", label.Description)
	}

	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("creating label %q: %w", label.Name, err)
	}

	c.log.WithField("label", label.Name).Debug("created label")

	return nil
}

// CreateIssue implements tracker.Tracker. gh issue create prints the new
// issue URL (https://github.com/owner/repo/issues/123) on success.
func (c *Client) CreateIssue(ctx context.Context, issue tracker.NewIssue) (int, error) {
	args := []string{"issue", "create", "--repo", c.repo.String(), "--title", issue.Title, "--body", issue.Body}
	if len(issue.Labels) > 0 {
		args = append(args, "--label", strings.Join(issue.Labels, ","))
	}

	out, err := c.run(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("creating issue %q: %w", issue.Title, err)
	}

	number, err := issueNumberFromURL(string(out))
	if err != nil {
		return 0, fmt.Errorf("creating issue %q: %w", issue.Title, err)
	}

	return number, nil
}

func issueNumberFromURL(raw string) (int, error) {
	url := strings.TrimSpace(raw)
	if idx := strings.LastIndex(url, "\n"); idx >= 0 {
		url = strings.TrimSpace(url[idx+1:])
	}

	parts := strings.Split(url, "/")

	number, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || number <= 0 {
		return 0, fmt.Errorf("could not extract issue number from %q", url)
	}

	return number, nil
}

// EditIssue implements tracker.Tracker. An edit without changes is a no-op.
func (c *Client) EditIssue(ctx context.Context, number int, edit tracker.IssueEdit) error {
	args := []string{"issue", "edit", strconv.Itoa(number), "--repo", c.repo.String()}
	base := len(args)

	if edit.Title != "" {
		args = append(args, "--title", edit.Title)
	}

	if edit.Body != "" {
		args = append(args, "--body", edit.Body)
	}

	if len(edit.RemoveLabels) > 0 {
		args = append(args, "--remove-label", strings.Join(edit.RemoveLabels, ","))
	}

	if len(edit.AddLabels) > 0 {
		args = append(args, "--add-label", strings.Join(edit.AddLabels, ","))
	}

	if len(args) == base {
		return nil
	}

	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("editing issue #%d: %w", number, err)
	}

	return nil
}

// RemoveLabels implements tracker.Tracker.
func (c *Client) RemoveLabels(ctx context.Context, number int, labels []string) error {
	return c.EditIssue(ctx, number, tracker.IssueEdit{RemoveLabels: labels})
}

type issueNode struct {
	ID        string `json:"id"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	IssueType *struct {
		Name string `json:"name"`
	} `json:"issueType"`
	Labels struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"labels"`
}

func (n issueNode) toIssue() tracker.Issue {
	issue := tracker.Issue{
		Number: n.Number,
		NodeID: n.ID,
		Title:  n.Title,
		State:  n.State,
	}

	if n.IssueType != nil {
		issue.IssueType = n.IssueType.Name
	}

	for _, l := range n.Labels.Nodes {
		issue.Labels = append(issue.Labels, l.Name)
	}

	return issue
}

const issueFields = `id number title state
      issueType { name }
      labels(first: 100) { nodes { name } }`

const getIssueQuery = `query($owner: String!, $name: String!, $number: Int!) {
  repository(owner: $owner, name: $name) {
    issue(number: $number) {
      ` + issueFields + `
    }
  }
}`

// GetIssue implements tracker.Tracker.
func (c *Client) GetIssue(ctx context.Context, number int) (tracker.Issue, error) {
	var data struct {
		Repository struct {
			Issue *issueNode `json:"issue"`
		} `json:"repository"`
	}

	err := c.graphql(ctx, getIssueQuery, c.repoVars(map[string]any{"number": number}), &data)
	if err != nil && !isNotFound(err) {
		return tracker.Issue{}, fmt.Errorf("reading issue #%d: %w", number, err)
	}

	if data.Repository.Issue == nil {
		return tracker.Issue{}, fmt.Errorf("%w: #%d in %s", tracker.ErrIssueNotFound, number, c.repo)
	}

	return data.Repository.Issue.toIssue(), nil
}

type searchHit struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// FindIssueByTitle implements tracker.Tracker. The search API narrows the
// candidates; the exact title comparison happens here.
func (c *Client) FindIssueByTitle(ctx context.Context, title string) (tracker.Issue, bool, error) {
	search := `"` + strings.ReplaceAll(title, `"`, "") + `" in:title`

	out, err := c.run(ctx, "issue", "list", "--repo", c.repo.String(),
		"--state", "all", "--search", search, "--json", "number,title", "--limit", "100")
	if err != nil {
		return tracker.Issue{}, false, fmt.Errorf("searching issues titled %q: %w", title, err)
	}

	var candidates []searchHit

	if err := json.Unmarshal(out, &candidates); err != nil {
		return tracker.Issue{}, false, fmt.Errorf("parsing gh issue list output: %w", err)
	}

	slices.SortFunc(candidates, func(a, b searchHit) int { return a.Number - b.Number })

	for _, cand := range candidates {
		if cand.Title != title {
			continue
		}

		issue, err := c.GetIssue(ctx, cand.Number)
		if err != nil {
			return tracker.Issue{}, false, err
		}

		return issue, true, nil
	}

	return tracker.Issue{}, false, nil
}

const issueTypesQuery = `query($owner: String!) {
  organization(login: $owner) {
    issueTypes(first: 100) { nodes { id name } }
  }
}`

// IssueTypes implements tracker.Tracker. Issue types only exist for
// organizations; a user-owned repository yields ErrIssueTypesDisabled.
func (c *Client) IssueTypes(ctx context.Context) (map[string]string, error) {
	var data struct {
		Organization *struct {
			IssueTypes struct {
				Nodes []struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"nodes"`
			} `json:"issueTypes"`
		} `json:"organization"`
	}

	err := c.graphql(ctx, issueTypesQuery, map[string]any{"owner": c.repo.Owner}, &data)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("reading issue types for %s: %w", c.repo.Owner, err)
	}

	if data.Organization == nil {
		return nil, fmt.Errorf("%w: %s", tracker.ErrIssueTypesDisabled, c.repo.Owner)
	}

	types := make(map[string]string, len(data.Organization.IssueTypes.Nodes))
	for _, n := range data.Organization.IssueTypes.Nodes {
		types[n.Name] = n.ID
	}

	return types, nil
}

const setIssueTypeMutation = `mutation($issue: ID!, $type: ID!) {
  updateIssueIssueType(input: {issueId: $issue, issueTypeId: $type}) {
    issue { number issueType { name } }
  }
}`

// SetIssueType implements tracker.Tracker.
func (c *Client) SetIssueType(ctx context.Context, number int, typeName string) error {
	types, err := c.IssueTypes(ctx)
	if err != nil {
		return err
	}

	typeID, ok := types[typeName]
	if !ok {
		return fmt.Errorf("%w: %q in %s", tracker.ErrIssueTypeUnavailable, typeName, c.repo.Owner)
	}

	issueID, err := c.nodeID(ctx, number)
	if err != nil {
		return err
	}

	err = c.graphql(ctx, setIssueTypeMutation, map[string]any{"issue": issueID, "type": typeID}, nil)
	if err != nil {
		return fmt.Errorf("setting issue type of #%d to %q: %w", number, typeName, err)
	}

	return nil
}

const addSubIssueMutation = `mutation($parent: ID!, $child: ID!) {
  addSubIssue(input: {issueId: $parent, subIssueId: $child}) {
    issue { number }
  }
}`

// AddSubIssue implements tracker.Tracker.
func (c *Client) AddSubIssue(ctx context.Context, parent, child int) error {
	parentID, err := c.nodeID(ctx, parent)
	if err != nil {
		return err
	}

	childID, err := c.nodeID(ctx, child)
	if err != nil {
		return err
	}

	err = c.graphql(ctx, addSubIssueMutation, map[string]any{"parent": parentID, "child": childID}, nil)
	if err != nil {
		return fmt.Errorf("adding #%d as sub-issue of #%d: %w", child, parent, err)
	}

	return nil
}

const subIssuesQuery = `query($owner: String!, $name: String!, $number: Int!) {
  repository(owner: $owner, name: $name) {
    issue(number: $number) {
      subIssues(first: 100) { nodes { number } }
    }
  }
}`

// SubIssues implements tracker.Tracker. Children are returned in the
// tracker's order.
func (c *Client) SubIssues(ctx context.Context, parent int) ([]int, error) {
	var data struct {
		Repository struct {
			Issue *struct {
				SubIssues struct {
					Nodes []struct {
						Number int `json:"number"`
					} `json:"nodes"`
				} `json:"subIssues"`
			} `json:"issue"`
		} `json:"repository"`
	}

	err := c.graphql(ctx, subIssuesQuery, c.repoVars(map[string]any{"number": parent}), &data)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("reading sub-issues of #%d: %w", parent, err)
	}

	if data.Repository.Issue == nil {
		return nil, fmt.Errorf("%w: #%d in %s", tracker.ErrIssueNotFound, parent, c.repo)
	}

	numbers := make([]int, 0, len(data.Repository.Issue.SubIssues.Nodes))
	for _, n := range data.Repository.Issue.SubIssues.Nodes {
		numbers = append(numbers, n.Number)
	}

	return numbers, nil
}

const addBlockedByMutation = `mutation($issue: ID!, $blocker: ID!) {
  addBlockedBy(input: {issueId: $issue, blockingIssueId: $blocker}) {
    issue { number }
  }
}`

// AddBlockedBy implements tracker.Tracker.
func (c *Client) AddBlockedBy(ctx context.Context, issue, blocker int) error {
	issueID, err := c.nodeID(ctx, issue)
	if err != nil {
		return err
	}

	blockerID, err := c.nodeID(ctx, blocker)
	if err != nil {
		return err
	}

	err = c.graphql(ctx, addBlockedByMutation, map[string]any{"issue": issueID, "blocker": blockerID}, nil)
	if err != nil {
		return fmt.Errorf("marking #%d blocked by #%d: %w", issue, blocker, err)
	}

	return nil
}

const listIssuesQuery = `query($owner: String!, $name: String!, $after: String) {
  repository(owner: $owner, name: $name) {
    issues(first: 100, after: $after, states: [%s], orderBy: {field: CREATED_AT, direction: ASC}) {
      nodes {
        ` + issueFields + `
      }
      pageInfo { hasNextPage endCursor }
    }
  }
}`

var stateFilters = map[tracker.State]string{
	tracker.StateOpen:   "OPEN",
	tracker.StateClosed: "CLOSED",
	tracker.StateAll:    "OPEN, CLOSED",
}

// ListIssues implements tracker.Tracker.
func (c *Client) ListIssues(ctx context.Context, state tracker.State, fn func(tracker.Issue) bool) error {
	filter, ok := stateFilters[state]
	if !ok {
		return fmt.Errorf("unknown issue state %q", state)
	}

	query := fmt.Sprintf(listIssuesQuery, filter)
	cursor := ""

	for {
		vars := c.repoVars(nil)
		if cursor != "" {
			vars["after"] = cursor
		}

		var data struct {
			Repository struct {
				Issues struct {
					Nodes    []issueNode `json:"nodes"`
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
				} `json:"issues"`
			} `json:"repository"`
		}

		if err := c.graphql(ctx, query, vars, &data); err != nil {
			return fmt.Errorf("listing issues: %w", err)
		}

		for _, n := range data.Repository.Issues.Nodes {
			if !fn(n.toIssue()) {
				return nil
			}
		}

		page := data.Repository.Issues.PageInfo
		if !page.HasNextPage || page.EndCursor == "" {
			return nil
		}

		cursor = page.EndCursor
	}
}

const nodeIDQuery = `query($owner: String!, $name: String!, $number: Int!) {
  repository(owner: $owner, name: $name) {
    issue(number: $number) { id }
  }
}`

func (c *Client) nodeID(ctx context.Context, number int) (string, error) {
	var data struct {
		Repository struct {
			Issue *struct {
				ID string `json:"id"`
			} `json:"issue"`
		} `json:"repository"`
	}

	err := c.graphql(ctx, nodeIDQuery, c.repoVars(map[string]any{"number": number}), &data)
	if err != nil && !isNotFound(err) {
		return "", fmt.Errorf("resolving issue #%d: %w", number, err)
	}

	if data.Repository.Issue == nil || data.Repository.Issue.ID == "" {
		return "", fmt.Errorf("%w: #%d in %s", tracker.ErrIssueNotFound, number, c.repo)
	}

	return data.Repository.Issue.ID, nil
}

func (c *Client) repoVars(extra map[string]any) map[string]any {
	vars := map[string]any{"owner": c.repo.Owner, "name": c.repo.Name}
	for k, v := range extra {
		vars[k] = v
	}

	return vars
}
