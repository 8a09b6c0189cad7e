package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tyrion/nucleus-sms-bridge/internal/logger"
)

// DefaultTimeout bounds every gateway request, connect and read included.
const DefaultTimeout = 5 * time.Second

// readCommand is the fixed payload of the read endpoint.
const readCommand = "read"

var (
	// errBadHTTPStatus is returned for non-2xx gateway responses.
	errBadHTTPStatus = errors.New("unexpected HTTP status")
	// errSendRejected is returned when the gateway reports success=false.
	errSendRejected = errors.New("gateway rejected the message")
)

// SendRequest is the gateway's send payload. One request carries one SMS-sized
// chunk; a long notification is transmitted as several requests sharing the
// same numbers and ack code.
type SendRequest struct {
	Message string   `json:"message"`
	Numbers []string `json:"numbers"`
	AckCode string   `json:"ackCode"`
}

// SendResponse is the gateway's reply to a send request.
type SendResponse struct {
	Success bool `json:"success"`
}

// readRequest is the payload of the read endpoint.
type readRequest struct {
	Cmd string `json:"cmd"`
}

// ReadResponse wraps the gateway's buffered inbound messages. A missing
// messages field means the buffer was empty.
type ReadResponse struct {
	Messages []InboundMessage `json:"messages"`
}

// InboundMessage is one SMS reply buffered by the gateway.
type InboundMessage struct {
	// Number is the phone number the reply came from.
	Number string `json:"number"`
	// Message is the reply text, interpreted as an acknowledgment code.
	Message string `json:"message"`
	// Timestamp is when the reply was received, in milliseconds since epoch.
	Timestamp int64 `json:"timestamp"`
}

// Client talks to one configured gateway URL. Both the send and the read
// endpoints live at that single URL; the gateway dispatches on payload shape.
type Client struct {
	// url is the gateway endpoint.
	url string
	// httpClient performs the requests.
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates a client for the provided gateway URL.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Send transmits one SMS chunk to the listed numbers. A non-2xx status, a
// missing or unparseable body, a transport error, a timeout or success=false
// in the response all count as a failed dispatch.
func (c *Client) Send(ctx context.Context, numbers []string, ackCode, message string) error {
	request := &SendRequest{
		Message: message,
		Numbers: numbers,
		AckCode: ackCode,
	}

	var response SendResponse
	if err := c.post(ctx, request, &response); err != nil {
		return fmt.Errorf("send SMS: %w", err)
	}

	if !response.Success {
		return errSendRejected
	}

	return nil
}

// Read drains the gateway's buffer of inbound replies.
func (c *Client) Read(ctx context.Context) ([]InboundMessage, error) {
	request := &readRequest{
		Cmd: readCommand,
	}

	var response ReadResponse
	if err := c.post(ctx, request, &response); err != nil {
		return nil, fmt.Errorf("read acknowledgement buffer: %w", err)
	}

	return response.Messages, nil
}

// post performs one JSON round trip against the gateway URL.
func (c *Client) post(ctx context.Context, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	response, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil {
			logger.DebugKV(ctx, "Error closing gateway response body", "error", closeErr)
		}
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s: %w", response.Status, errBadHTTPStatus)
	}

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err = json.Unmarshal(contents, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
