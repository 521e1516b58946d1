// Package client fetches the entity lists the trackers reconcile against.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/vrsandeep/intake-go/internal/models"
)

// APIError is a non-2xx answer from the relay.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay returned %d", e.StatusCode)
	}
	return fmt.Sprintf("relay returned %d: %s", e.StatusCode, e.Message)
}

// Filter narrows list requests.
type Filter struct {
	ApplicationID string
	OrgID         string
	Archived      *bool
}

func (f Filter) values() url.Values {
	q := url.Values{}
	if f.ApplicationID != "" {
		q.Set("applicationId", f.ApplicationID)
	}
	if f.OrgID != "" {
		q.Set("orgId", f.OrgID)
	}
	if f.Archived != nil {
		q.Set("archived", strconv.FormatBool(*f.Archived))
	}
	return q
}

// Client talks to the relay list API.
type Client struct {
	client  *http.Client
	baseURL string
}

// New returns a Client for baseURL. A nil httpClient gets a 20s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{client: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ListApplicants fetches applicants with their files.
func (c *Client) ListApplicants(ctx context.Context, f Filter) ([]models.Applicant, error) {
	var applicants []models.Applicant
	if err := c.get(ctx, "/api/applicants", f.values(), &applicants); err != nil {
		return nil, err
	}
	return applicants, nil
}

// ListReports fetches reports.
func (c *Client) ListReports(ctx context.Context, f Filter) ([]models.Report, error) {
	var reports []models.Report
	if err := c.get(ctx, "/api/reports", f.values(), &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// ListNotifications fetches a user's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	q := url.Values{"userId": {userID}}
	if unreadOnly {
		q.Set("unread", "true")
	}
	var notifications []models.Notification
	if err := c.get(ctx, "/api/notifications", q, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// Version returns the relay's reported version.
func (c *Client) Version(ctx context.Context) (string, error) {
	var body struct {
		Version string `json:"version"`
	}
	if err := c.get(ctx, "/api/version", nil, &body); err != nil {
		return "", err
	}
	return body.Version, nil
}

// CheckVersion fails unless the relay's version satisfies constraint,
// e.g. ">= 1.0.0, < 2".
func (c *Client) CheckVersion(ctx context.Context, constraint string) error {
	want, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	raw, err := c.Version(ctx)
	if err != nil {
		return err
	}
	got, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("relay reported unparseable version %q: %w", raw, err)
	}
	if ok, errs := want.Validate(got); !ok {
		if len(errs) > 0 {
			return fmt.Errorf("relay version %s: %w", got, errs[0])
		}
		return fmt.Errorf("relay version %s does not satisfy %s", got, constraint)
	}
	return nil
}
