package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/homevolt/homevolt/pkg/common"
	"github.com/homevolt/homevolt/pkg/log"
	"github.com/homevolt/homevolt/pkg/types"
)

const (
	statusEndpoint      = "/status.json"
	emsEndpoint         = "/ems.json"
	scheduleEndpoint    = "/schedule.json"
	errorReportEndpoint = "/error_report.json"

	requestTimeout = 30 * time.Second
)

var (
	// ErrAuth indicates the unit rejected the configured credentials.
	ErrAuth = errors.New("gateway authentication failed")

	// ErrConnect indicates the unit could not be reached or returned an
	// unusable response.
	ErrConnect = errors.New("gateway connection failed")
)

// Client talks to the local web server on a Homevolt unit.
// It implements the Gateway interface.
type Client struct {
	client   *http.Client
	baseURL  string
	username string
	password string
}

// NewClient returns a gateway client for the given base URL with optional
// basic auth credentials.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		client:   common.HTTPClient(requestTimeout),
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// Fetch retrieves all four documents from the unit. status.json and ems.json
// are required; schedule.json and error_report.json are optional and older
// firmware omits them, which the payload records as nil. An auth failure on
// any endpoint aborts the fetch.
func (c *Client) Fetch(ctx context.Context) (types.Payload, error) {
	var payload types.Payload

	status, err := c.getJSON(ctx, statusEndpoint)
	if err != nil {
		return types.Payload{}, err
	}
	payload.Status = asObject(status)

	ems, err := c.getJSON(ctx, emsEndpoint)
	if err != nil {
		return types.Payload{}, err
	}
	payload.EMS = asObject(ems)

	schedule, err := c.getJSON(ctx, scheduleEndpoint)
	if err != nil {
		if errors.Is(err, ErrAuth) {
			return types.Payload{}, err
		}
		log.Ctx(ctx).DebugContext(ctx, "schedule endpoint unavailable", slog.Any("error", err))
	} else if m, ok := schedule.(map[string]any); ok {
		payload.Schedule = m
	}

	report, err := c.getJSON(ctx, errorReportEndpoint)
	if err != nil {
		if errors.Is(err, ErrAuth) {
			return types.Payload{}, err
		}
		log.Ctx(ctx).DebugContext(ctx, "error report endpoint unavailable", slog.Any("error", err))
	} else if l, ok := report.([]any); ok {
		payload.ErrorReport = l
	}

	return payload, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string) (any, error) {
	u, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d on %s", ErrAuth, resp.StatusCode, endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d on %s", ErrConnect, resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode gateway response",
			slog.String("endpoint", endpoint), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	return out, nil
}

// asObject keeps non-object documents from leaking past the transport layer.
func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
