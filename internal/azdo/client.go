// Package azdo provides the Azure DevOps REST client used as the remote
// source for work-item sync.
//
// The client covers exactly two operations: a WIQL query that lists the
// IDs of work items matching the configured filter, and a detail fetch
// that returns the field bag for one work item. Both are plain
// request/response calls; the query language and endpoint shapes are
// owned by Azure DevOps, not by this package.
package azdo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"workdash/internal/workitem"
)

const apiVersion = "6.0"

// Config holds the settings needed to reach an Azure DevOps organization.
type Config struct {
	// OrganizationURL is the base URL, e.g. https://dev.azure.com/my-org
	OrganizationURL string

	// Project is the team project name (unescaped).
	Project string

	// PAT is the personal access token. It is treated as an opaque
	// credential supplied by the caller; this package never stores it
	// anywhere except the Authorization header.
	PAT string

	// WorkItemTypes filters the listing query (e.g. "Product Backlog Item").
	// Empty means all types.
	WorkItemTypes []string

	// AssignedTo filters the listing query by assignee display name.
	// Empty means all assignees.
	AssignedTo string

	// HTTPClient is the transport used for all requests.
	// If nil, http.DefaultClient is used; timeouts are whatever that
	// client provides.
	HTTPClient *http.Client
}

// Client talks to the Azure DevOps work-item tracking API.
type Client struct {
	baseURL       string
	project       string
	authorization string
	workItemTypes []string
	assignedTo    string
	httpClient    *http.Client
}

// New creates a Client from the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.OrganizationURL == "" {
		return nil, fmt.Errorf("organization URL is required")
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("project is required")
	}
	if cfg.PAT == "" {
		return nil, fmt.Errorf("personal access token is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// PATs use basic auth with an empty username.
	encoded := base64.StdEncoding.EncodeToString([]byte(":" + cfg.PAT))

	return &Client{
		baseURL:       strings.TrimRight(cfg.OrganizationURL, "/"),
		project:       cfg.Project,
		authorization: "Basic " + encoded,
		workItemTypes: cfg.WorkItemTypes,
		assignedTo:    cfg.AssignedTo,
		httpClient:    httpClient,
	}, nil
}

// wiqlResponse is the payload returned by the WIQL query endpoint.
type wiqlResponse struct {
	WorkItems []struct {
		ID int `json:"id"`
	} `json:"workItems"`
}

// detailResponse is the payload returned by the work-item detail endpoint.
type detailResponse struct {
	ID     int            `json:"id"`
	Fields map[string]any `json:"fields"`
}

// QueryWorkItemIDs lists the IDs of all work items matching the configured
// project, type, and assignee filters.
func (c *Client) QueryWorkItemIDs(ctx context.Context) ([]int, error) {
	payload, err := json.Marshal(map[string]string{"query": c.buildWIQL()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal WIQL payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/_apis/wit/wiql?api-version=%s",
		c.baseURL, url.PathEscape(c.project), apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build WIQL request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result wiqlResponse
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("WIQL query failed: %w", err)
	}

	ids := make([]int, 0, len(result.WorkItems))
	for _, item := range result.WorkItems {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

// GetWorkItem fetches the detail record for a single work item.
func (c *Client) GetWorkItem(ctx context.Context, id int) (*workitem.WorkItem, error) {
	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems/%d?$expand=all&api-version=%s",
		c.baseURL, url.PathEscape(c.project), id, apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build detail request: %w", err)
	}

	var result detailResponse
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("detail fetch for work item %d failed: %w", id, err)
	}

	return workitem.FromFields(id, result.Fields), nil
}

// buildWIQL assembles the listing query from the configured filters.
func (c *Client) buildWIQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT [%s] FROM WorkItems WHERE [System.TeamProject] = '%s'",
		workitem.FieldID, escapeWIQL(c.project))

	if len(c.workItemTypes) > 0 {
		quoted := make([]string, len(c.workItemTypes))
		for i, t := range c.workItemTypes {
			quoted[i] = "'" + escapeWIQL(t) + "'"
		}
		fmt.Fprintf(&b, " AND [%s] IN (%s)", workitem.FieldType, strings.Join(quoted, ", "))
	}

	if c.assignedTo != "" {
		fmt.Fprintf(&b, " AND [%s] = '%s'", workitem.FieldAssignedTo, escapeWIQL(c.assignedTo))
	}

	return b.String()
}

// escapeWIQL doubles single quotes in string literals.
func escapeWIQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// do executes a request with auth headers and decodes a JSON response.
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authorization)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
