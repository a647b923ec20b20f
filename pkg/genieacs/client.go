// Package genieacs is a client for the GenieACS northbound REST interface.
package genieacs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	internalerrors "github.com/rcourtman/cpe-console/internal/errors"
	"github.com/rcourtman/cpe-console/internal/logging"
	"github.com/rcourtman/cpe-console/internal/paramtree"
	"github.com/rcourtman/cpe-console/pkg/tlsutil"
)

// Operation names reported to observers and carried on errors.
const (
	OpSubmitTask   = "submit_task"
	OpForwardTask  = "forward_task"
	OpQueryDevice  = "query_device"
	OpListDevices  = "list_devices"
	OpGetDevice    = "get_device"
	OpDeleteDevice = "delete_device"
)

const defaultTimeout = 10 * time.Second

// Observer is told about every completed call. status is zero when no response arrived.
type Observer func(op string, status int, err error, elapsed time.Duration)

type Client struct {
	baseURL    string
	httpClient *http.Client
	config     ClientConfig
}

type ClientConfig struct {
	BaseURL     string
	Username    string
	Password    string
	Timeout     time.Duration
	VerifySSL   bool
	Fingerprint string
	Observer    Observer
}

// Response is an ACS reply passed back to callers unchanged.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("genieacs base URL is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid genieacs base URL: %w", err)
	}

	if strings.HasPrefix(base, "https://") && !cfg.VerifySSL && cfg.Fingerprint == "" {
		log.Warn().Str("baseURL", base).Msg("TLS verification disabled for GenieACS connection")
	}

	return &Client{
		baseURL:    strings.TrimSuffix(base, "/"),
		httpClient: tlsutil.CreateHTTPClient(cfg.VerifySSL, cfg.Fingerprint, cfg.Timeout),
		config:     cfg,
	}, nil
}

// Timeout returns the per-call deadline.
func (c *Client) Timeout() time.Duration {
	return c.config.Timeout
}

// BaseURL returns the normalized ACS address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, op, deviceID, method, path, rawQuery string, body []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.send(ctx, op, deviceID, method, path, rawQuery, body)
	elapsed := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if c.config.Observer != nil {
		c.config.Observer(op, status, err, elapsed)
	}
	logger := logging.FromContext(ctx)
	logger.Trace().
		Str("op", op).
		Str("device_id", deviceID).
		Str("method", method).
		Int("status", status).
		Dur("elapsed", elapsed).
		Err(err).
		Msg("GenieACS call")
	return resp, err
}

func (c *Client) send(ctx context.Context, op, deviceID, method, path, rawQuery string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, internalerrors.NewGatewayError(internalerrors.ErrorTypeInternal, op, deviceID, err)
	}
	req.URL.RawQuery = rawQuery
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Username != "" && c.config.Password != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, internalerrors.WrapTransportError(op, deviceID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, internalerrors.WrapTransportError(op, deviceID, err)
	}

	out := &Response{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if !json.Valid(data) {
		return nil, internalerrors.NewGatewayError(internalerrors.ErrorTypeDecode, op, deviceID,
			fmt.Errorf("%w: status %d with non-JSON body", internalerrors.ErrInvalidResponse, resp.StatusCode)).
			WithStatusCode(resp.StatusCode)
	}
	out.Body = json.RawMessage(data)
	return out, nil
}

func devicePath(id string) string {
	return "/devices/" + url.PathEscape(id)
}

func idQuery(id string) string {
	filter, _ := json.Marshal(map[string]string{"_id": id})
	return url.Values{"query": {string(filter)}}.Encode()
}

// SubmitTask queues a task for a device.
func (c *Client) SubmitTask(ctx context.Context, deviceID string, task Task, opts ...TaskOption) (*Response, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return nil, internalerrors.NewGatewayError(internalerrors.ErrorTypeInternal, OpSubmitTask, deviceID, err)
	}
	return c.postTask(ctx, OpSubmitTask, deviceID, body, opts)
}

// ForwardTask posts a caller-built task body without inspecting it.
func (c *Client) ForwardTask(ctx context.Context, deviceID string, raw json.RawMessage, opts ...TaskOption) (*Response, error) {
	if !json.Valid(raw) {
		return nil, internalerrors.NewValidationError("task body must be valid JSON")
	}
	return c.postTask(ctx, OpForwardTask, deviceID, raw, opts)
}

func (c *Client) postTask(ctx context.Context, op, deviceID string, body []byte, opts []TaskOption) (*Response, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, internalerrors.NewValidationError("device id is required")
	}
	o := applyTaskOptions(opts)
	rawQuery := ""
	if o.connectionRequest {
		rawQuery = "connection_request"
	}
	return c.do(ctx, op, deviceID, http.MethodPost, devicePath(deviceID)+"/tasks", rawQuery, body)
}

// QueryDevice fetches one device document as a parameter tree.
func (c *Client) QueryDevice(ctx context.Context, deviceID string) (*paramtree.Node, error) {
	resp, err := c.do(ctx, OpQueryDevice, deviceID, http.MethodGet, "/devices", idQuery(deviceID), nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, internalerrors.WrapAPIError(OpQueryDevice, deviceID,
			fmt.Errorf("unexpected status %d", resp.StatusCode), resp.StatusCode)
	}

	var docs []json.RawMessage
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &docs); err != nil {
			return nil, internalerrors.WrapDecodeError(OpQueryDevice, deviceID, err)
		}
	}
	if len(docs) == 0 {
		return nil, internalerrors.NewGatewayError(internalerrors.ErrorTypeNotFound, OpQueryDevice, deviceID, internalerrors.ErrNotFound)
	}

	tree, err := paramtree.Parse(docs[0])
	if err != nil {
		return nil, internalerrors.WrapDecodeError(OpQueryDevice, deviceID, err)
	}
	return tree, nil
}

// ListDevices proxies a device listing. rawQuery is forwarded verbatim.
func (c *Client) ListDevices(ctx context.Context, rawQuery string) (*Response, error) {
	return c.do(ctx, OpListDevices, "", http.MethodGet, "/devices", rawQuery, nil)
}

// ListDeviceTrees fetches a listing and decodes every document.
func (c *Client) ListDeviceTrees(ctx context.Context, rawQuery string) ([]*paramtree.Node, error) {
	resp, err := c.ListDevices(ctx, rawQuery)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, internalerrors.WrapAPIError(OpListDevices, "",
			fmt.Errorf("unexpected status %d", resp.StatusCode), resp.StatusCode)
	}

	var docs []json.RawMessage
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &docs); err != nil {
			return nil, internalerrors.WrapDecodeError(OpListDevices, "", err)
		}
	}
	trees := make([]*paramtree.Node, 0, len(docs))
	for _, doc := range docs {
		tree, err := paramtree.Parse(doc)
		if err != nil {
			return nil, internalerrors.WrapDecodeError(OpListDevices, "", err)
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

// ListDeviceIDs returns the ids of every device known to the ACS.
func (c *Client) ListDeviceIDs(ctx context.Context) ([]string, error) {
	trees, err := c.ListDeviceTrees(ctx, url.Values{"projection": {"_id"}}.Encode())
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(trees))
	for _, tree := range trees {
		if id, ok := tree.MetaString("_id"); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GetDevice proxies the single-device query. The body is the ACS array.
func (c *Client) GetDevice(ctx context.Context, deviceID string) (*Response, error) {
	return c.do(ctx, OpGetDevice, deviceID, http.MethodGet, "/devices", idQuery(deviceID), nil)
}

// DeleteDevice removes a device record from the ACS.
func (c *Client) DeleteDevice(ctx context.Context, deviceID string) (*Response, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, internalerrors.NewValidationError("device id is required")
	}
	return c.do(ctx, OpDeleteDevice, deviceID, http.MethodDelete, devicePath(deviceID), "", nil)
}

// Ping checks that the ACS answers a minimal listing.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.ListDevices(ctx, url.Values{"projection": {"_id"}, "limit": {"1"}}.Encode())
	if err != nil {
		return err
	}
	if !resp.OK() {
		return internalerrors.WrapAPIError(OpListDevices, "", errors.New("ping rejected"), resp.StatusCode)
	}
	return nil
}
