package ghcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Errors []GraphQLErrorItem
}

// GraphQLErrorItem is one entry of a GraphQL errors array.
type GraphQLErrorItem struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *GraphQLError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		msgs = append(msgs, item.Message)
	}

	return "graphql: " + strings.Join(msgs, "; ")
}

func isNotFound(err error) bool {
	var gqlErr *GraphQLError
	if !errors.As(err, &gqlErr) {
		return false
	}

	for _, item := range gqlErr.Errors {
		if item.Type != "NOT_FOUND" {
			return false
		}
	}

	return len(gqlErr.Errors) > 0
}

// graphql runs query through `gh api graphql`. String variables are passed
// with -f, everything else with -F so gh sends typed JSON values. Responses
// with an errors array yield a *GraphQLError; data is still decoded so
// callers can inspect partial results.
func (c *Client) graphql(ctx context.Context, query string, vars map[string]any, out any) error {
	args := []string{"api", "graphql", "-f", "query=" + query}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	for _, k := range keys {
		switch v := vars[k].(type) {
		case string:
			args = append(args, "-f", k+"="+v)
		case int:
			args = append(args, "-F", k+"="+strconv.Itoa(v))
		default:
			args = append(args, "-F", fmt.Sprintf("%s=%v", k, v))
		}
	}

	stdout, runErr := c.runner.Run(ctx, args)

	var resp struct {
		Data   json.RawMessage    `json:"data"`
		Errors []GraphQLErrorItem `json:"errors"`
	}

	if len(strings.TrimSpace(string(stdout))) == 0 || json.Unmarshal(stdout, &resp) != nil {
		if runErr != nil {
			return runErr
		}

		return fmt.Errorf("graphql: unexpected response %q", strings.TrimSpace(string(stdout)))
	}

	if out != nil && len(resp.Data) > 0 && string(resp.Data) != "null" {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("graphql: decoding data: %w", err)
		}
	}

	if len(resp.Errors) > 0 {
		return &GraphQLError{Errors: resp.Errors}
	}

	return runErr
}
