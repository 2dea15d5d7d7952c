// Package collectory is a thin client for the collections registry that
// resolves dataset identifiers to their registry records.
package collectory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/biodiversity-atlas/publishing-ui/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DataResource is the subset of a registry record the UI renders.
type DataResource struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	LicenceType string `json:"licenseType"`
	WebsiteUrl  string `json:"websiteUrl"`
	DateCreated string `json:"dateCreated"`
	LastUpdated string `json:"lastUpdated"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Lookup fetches one data resource record by uid.
func (c *Client) Lookup(ctx context.Context, uid string) (*DataResource, error) {
	var dr DataResource
	endpoint := c.BaseURL + "/ws/dataResource/" + url.PathEscape(uid)
	if err := c.getJSON(ctx, endpoint, &dr); err != nil {
		return nil, err
	}
	return &dr, nil
}

// ListByCreator lists the data resources created by the given user, backing
// the My Datasets view.
func (c *Client) ListByCreator(ctx context.Context, userID string) ([]DataResource, error) {
	var resources []DataResource
	endpoint := c.BaseURL + "/ws/dataResource?createdByID=" + url.QueryEscape(userID)
	if err := c.getJSON(ctx, endpoint, &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("collectory returned %d for %s", resp.StatusCode, endpoint)
	}
	return json.Unmarshal(body, out)
}

func (c *Client) Health(ctx context.Context) models.ServiceHealthResp {
	rsp := models.ServiceHealthResp{
		Service:     models.COLLECTORY,
		Status:      models.STATUS_UP,
		HealthIssue: models.HEALTH_ISSUE_NONE,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/ws/dataResource", nil)
	if err != nil {
		return rsp.BuildErrorResponse(err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return rsp.BuildErrorResponse(err)
	}
	resp.Body.Close()
	return rsp
}
