package facilities

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/flushfinder/flushfinder/internal/instrumentation"
	"github.com/flushfinder/flushfinder/internal/logging"
)

// Endpoint names, used in errors, logs and metrics.
const (
	EndpointBuildingInfo = "BuildingInfo"
	EndpointRoomInfo     = "RoomInfo"
)

// maxErrorBody bounds how much of a failed response is kept in a FetchError.
const maxErrorBody = 512

// Client issues authenticated requests against the Buildings API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.httpClient = &http.Client{Timeout: d} }
}

// WithMetrics records requests on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a client for the API rooted at baseURL,
// e.g. https://gw.api.it.umich.edu/um/bf/Buildings/v2.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListBuildings returns every building known to the API.
func (c *Client) ListBuildings(ctx context.Context, token *oauth2.Token) ([]Building, error) {
	var resp buildingInfoResponse
	if err := c.get(ctx, token, EndpointBuildingInfo, "/BuildingInfo", &resp); err != nil {
		return nil, err
	}
	if resp.ListOfBldgs == nil {
		return nil, fmt.Errorf("%s: missing ListOfBldgs: %w", EndpointBuildingInfo, ErrMalformedResponse)
	}
	if resp.ListOfBldgs.BuildingData == nil {
		return nil, fmt.Errorf("%s: missing ListOfBldgs.BuildingData: %w", EndpointBuildingInfo, ErrMalformedResponse)
	}
	return resp.ListOfBldgs.BuildingData, nil
}

// GetRooms returns every room of the building with the given record number.
// A building without rooms yields an empty slice.
func (c *Client) GetRooms(ctx context.Context, token *oauth2.Token, brn string) ([]Room, error) {
	if brn == "" {
		return nil, fmt.Errorf("building record number cannot be empty")
	}

	var resp roomInfoResponse
	if err := c.get(ctx, token, EndpointRoomInfo, "/RoomInfo/"+url.PathEscape(brn), &resp); err != nil {
		return nil, err
	}
	if resp.ListOfRooms == nil || resp.ListOfRooms.RoomData == nil {
		return []Room{}, nil
	}
	return resp.ListOfRooms.RoomData, nil
}

func (c *Client) get(ctx context.Context, token *oauth2.Token, endpoint, path string, out any) (err error) {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%s: access token is required", endpoint)
	}

	ctx, span := instrumentation.StartClientSpan(ctx, "facilities."+endpoint,
		attribute.String(instrumentation.SpanAttrEndpoint, endpoint),
	)
	defer span.End()

	start := time.Now()
	status := 0
	defer func() {
		c.metrics.RecordAPIRequest(ctx, endpoint, status, time.Since(start))
		if err != nil {
			instrumentation.SetSpanError(span, err)
			return
		}
		instrumentation.SetSpanSuccess(span)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", endpoint, err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &FetchError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", endpoint, err)
	}

	c.logger.Debug("facilities request complete",
		logging.Endpoint(endpoint),
		logging.Status(logging.StatusSuccess),
		logging.KeyDuration, time.Since(start))
	return nil
}
