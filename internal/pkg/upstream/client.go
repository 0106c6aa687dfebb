package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/StoreMetrics/internal/pkg/env"
)

const (
	defaultAPIBaseURL = "https://api.whop.com/api/v5"
	defaultPageSize   = 50
	// maxPages stops runaway pagination if the API keeps returning next_page.
	maxPages = 10000
)

// Client talks to the upstream commerce API.
type Client struct {
	APIBaseURL string
	APIKey     string
	PageSize   int

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from COMMERCE_API_* settings.
func NewClientFromEnv() *Client {
	timeout := env.GetDuration("COMMERCE_API_TIMEOUT", 15*time.Second)
	return &Client{
		APIBaseURL: strings.TrimSpace(env.GetEnv("COMMERCE_API_BASE_URL", defaultAPIBaseURL)),
		APIKey:     strings.TrimSpace(env.GetEnv("COMMERCE_API_KEY", "")),
		PageSize:   defaultPageSize,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchPayments lists every receipt of a company regardless of status.
func (c *Client) FetchPayments(ctx context.Context, companyID string) ([]Payment, error) {
	return fetchAll[Payment](ctx, c, "payments", companyID)
}

// FetchMembers lists every member of a company.
func (c *Client) FetchMembers(ctx context.Context, companyID string) ([]Member, error) {
	return fetchAll[Member](ctx, c, "members", companyID)
}

func fetchAll[T any](ctx context.Context, c *Client, resource, companyID string) ([]T, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, &FetchError{Resource: resource, Err: errors.New("company id is required")}
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, &FetchError{Resource: resource, Err: errors.New("COMMERCE_API_KEY is not configured")}
	}

	var out []T
	page := 1
	for i := 0; i < maxPages; i++ {
		resp, err := getPage[T](ctx, c, resource, companyID, page)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Data...)
		if resp.Pagination.NextPage == nil || *resp.Pagination.NextPage <= page {
			return out, nil
		}
		page = *resp.Pagination.NextPage
	}
	return nil, &FetchError{Resource: resource, Err: fmt.Errorf("pagination exceeded %d pages", maxPages)}
}

func getPage[T any](ctx context.Context, c *Client, resource, companyID string, page int) (*listResponse[T], error) {
	baseURL := strings.TrimRight(c.APIBaseURL, "/")
	u, err := url.Parse(baseURL + "/" + resource)
	if err != nil {
		return nil, &FetchError{Resource: resource, Err: err}
	}
	perPage := c.PageSize
	if perPage <= 0 {
		perPage = defaultPageSize
	}
	q := u.Query()
	q.Set("company_id", companyID)
	q.Set("page", strconv.Itoa(page))
	q.Set("per", strconv.Itoa(perPage))
	if resource == "payments" {
		q.Set("expand[]", "access_pass")
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{Resource: resource, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Resource: resource, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &FetchError{Resource: resource, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{
			Resource:   resource,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	var out listResponse[T]
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &FetchError{Resource: resource, StatusCode: resp.StatusCode, Err: err}
	}
	return &out, nil
}
