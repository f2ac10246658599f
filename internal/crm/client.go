// Package crm is the HTTP client for the remote CRM attendance service. All
// attendance persistence and business rules live server-side; this client
// only moves payloads and classifies transport-level failures. Per-row
// business rejections are not errors here; they arrive inside the
// submission outcome.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/vehware/attendance-console/internal/attendance"
)

// Session carries the operator's bearer token for one action. It is passed
// explicitly into every call instead of being read from ambient state.
type Session struct {
	Token string
}

// Config holds CRM client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the CRM attendance endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// SingleAttendanceRequest is the body of a single-record create. Nil check-in
// and check-out times are the explicit absence signal understood by the
// service, distinct from missing data.
type SingleAttendanceRequest struct {
	UserType     string  `json:"userType"`
	Date         string  `json:"date"`
	CheckInTime  *string `json:"checkInTime"`
	CheckOutTime *string `json:"checkOutTime"`
}

// UpdateAttendanceRequest is the body of a single-record correction.
type UpdateAttendanceRequest struct {
	Date         string  `json:"date"`
	CheckInTime  *string `json:"checkInTime"`
	CheckOutTime *string `json:"checkOutTime"`
	UserID       string  `json:"userId"`
}

// AttendanceRow is one day of an employee's attendance history.
type AttendanceRow struct {
	ID           string `json:"_id"`
	Date         string `json:"date"`
	CheckInTime  string `json:"checkInTime"`
	CheckOutTime string `json:"checkOutTime"`
	Present      string `json:"present"`
	Status       string `json:"status"`
}

// NewClient creates a CRM client. The timeout bounds every call; a hung
// request surfaces as ErrTimeout instead of blocking the operator's action
// indefinitely.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SubmitBatch sends one day's attendance batch. At most one call per operator
// action: the client never retries, because resubmitting the same payload can
// create duplicate attendance records downstream.
func (c *Client) SubmitBatch(ctx context.Context, session Session, payload attendance.BatchPayload) (*attendance.SubmissionOutcome, error) {
	c.logger.Info("Submitting attendance batch",
		zap.String("date", payload.Date),
		zap.Int("records", len(payload.DailyRecords)))

	var envelope struct {
		Data attendance.SubmissionOutcome `json:"data"`
	}
	if err := c.do(ctx, session, http.MethodPost, "/api/attendance/add", payload, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// SingleAdd creates one employee's one-day attendance record.
func (c *Client) SingleAdd(ctx context.Context, session Session, employeeID string, req SingleAttendanceRequest) error {
	path := "/api/attendance/single-add/" + url.PathEscape(employeeID)
	return c.do(ctx, session, http.MethodPost, path, req, nil)
}

// UpdateAttendance corrects an existing attendance record.
func (c *Client) UpdateAttendance(ctx context.Context, session Session, req UpdateAttendanceRequest) error {
	return c.do(ctx, session, http.MethodPatch, "/api/attendance/update", req, nil)
}

// GetAttendance fetches an employee's attendance history.
func (c *Client) GetAttendance(ctx context.Context, session Session, employeeID string) ([]AttendanceRow, error) {
	var envelope struct {
		Data struct {
			Attendance []AttendanceRow `json:"attendance"`
		} `json:"data"`
	}

	path := "/api/attendance/get/" + url.PathEscape(employeeID)
	if err := c.do(ctx, session, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Attendance, nil
}

// do performs one HTTP call and maps the result onto the error taxonomy.
func (c *Client) do(ctx context.Context, session Session, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classifyTransportError(method, path, err)
	}
	defer resp.Body.Close()

	if err := c.classifyStatus(resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) classifyTransportError(method, path string, err error) error {
	c.logger.Error("CRM request failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Error(err))

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (c *Client) classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(detail, &body) == nil && body.Error != "" {
			return fmt.Errorf("crm: status %d: %s", resp.StatusCode, body.Error)
		}
		return fmt.Errorf("crm: unexpected status %d", resp.StatusCode)
	}
}
