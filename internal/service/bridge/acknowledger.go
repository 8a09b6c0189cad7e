package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	domain "github.com/tyrion/nucleus-sms-bridge/internal/domain/alarm"
	"github.com/tyrion/nucleus-sms-bridge/internal/logger"
)

// LogAcknowledger records acknowledged batches in the log. It is used when no
// alarm framework callback is configured, keeping the reply path observable
// in standalone deployments.
type LogAcknowledger struct{}

// Acknowledge logs the acknowledged event identifiers.
func (LogAcknowledger) Acknowledge(ctx context.Context, eventIDs []uuid.UUID, meta domain.AckMeta) error {
	logger.InfoKV(ctx, "Alarm events acknowledged",
		"user", meta.User, "ack_time", meta.Time.Format(time.RFC3339), "event_ids", eventIDs)

	return nil
}

// ackCallbackRequest is the payload posted to the alarm framework.
type ackCallbackRequest struct {
	EventIDs []uuid.UUID `json:"eventIds"`
	AckUser  string      `json:"ackUser"`
	// AckTime is in milliseconds since epoch, matching the gateway's clock.
	AckTime int64 `json:"ackTime"`
}

// CallbackAcknowledger forwards acknowledged batches to the alarm framework
// over HTTP.
type CallbackAcknowledger struct {
	// url is the alarm framework's acknowledge endpoint.
	url string
	// httpClient performs the callback requests.
	httpClient *http.Client
}

// NewCallbackAcknowledger creates an acknowledger posting to the provided URL.
func NewCallbackAcknowledger(url string, timeout time.Duration) *CallbackAcknowledger {
	return &CallbackAcknowledger{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Acknowledge posts the acknowledged batch with its metadata.
func (a *CallbackAcknowledger) Acknowledge(ctx context.Context, eventIDs []uuid.UUID, meta domain.AckMeta) error {
	payload := &ackCallbackRequest{
		EventIDs: eventIDs,
		AckUser:  meta.User,
		AckTime:  meta.Time.UnixMilli(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode acknowledge callback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build acknowledge callback: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	response, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post acknowledge callback: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("acknowledge callback returned %s", response.Status)
	}

	return nil
}
