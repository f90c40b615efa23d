// Package backend provides the HTTP client for the room service API
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/roomboard/kiosk/internal/models"
)

// Client handles interactions with the room service backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the backend base URL the client was configured with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the wrapper every backend response uses
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// PairingCode is the backend's answer to a pairing-code request
type PairingCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PairingStatusResult is the backend's answer to a pairing-status poll
type PairingStatusResult struct {
	Status   string `json:"status"` // pending, paired or expired
	RoomID   string `json:"room_id,omitempty"`
	RoomName string `json:"room_name,omitempty"`
}

// GetRoomState fetches the current state snapshot for a room
func (c *Client) GetRoomState(ctx context.Context, roomID string) (*models.RoomState, error) {
	var state models.RoomState
	path := fmt.Sprintf("/rooms/%s/state", url.PathEscape(roomID))
	if err := c.do(ctx, http.MethodGet, path, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// CheckIn confirms attendance for a meeting. The backend treats repeated
// check-ins for the same meeting as a no-op, so retries are safe.
func (c *Client) CheckIn(ctx context.Context, meetingID string) error {
	path := fmt.Sprintf("/meetings/%s/checkin", url.PathEscape(meetingID))
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// EndMeeting ends a meeting before its scheduled end, freeing the room
func (c *Client) EndMeeting(ctx context.Context, meetingID string) error {
	path := fmt.Sprintf("/meetings/%s/end", url.PathEscape(meetingID))
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// BookAdHoc creates a walk-in booking for the room starting now and
// returns the created meeting
func (c *Client) BookAdHoc(ctx context.Context, roomID string, durationMinutes int) (*models.Meeting, error) {
	body := map[string]int{"duration_minutes": durationMinutes}
	var meeting models.Meeting
	path := fmt.Sprintf("/rooms/%s/book-adhoc", url.PathEscape(roomID))
	if err := c.do(ctx, http.MethodPost, path, body, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// CreatePairingCode requests a short-lived pairing code for the device
func (c *Client) CreatePairingCode(ctx context.Context, deviceSerial string) (*PairingCode, error) {
	body := map[string]string{"device_serial": deviceSerial}
	var code PairingCode
	if err := c.do(ctx, http.MethodPost, "/panel/pairing-codes", body, &code); err != nil {
		return nil, err
	}
	return &code, nil
}

// GetPairingStatus polls whether an admin has bound the code to a room
func (c *Client) GetPairingStatus(ctx context.Context, code string) (*PairingStatusResult, error) {
	var result PairingStatusResult
	path := fmt.Sprintf("/panel/pairing-status/%s", url.PathEscape(code))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RoomEventsURL returns the SSE event stream URL for a room, used by the
// sync engine's push subscription
func (c *Client) RoomEventsURL(roomID string) string {
	return fmt.Sprintf("%s/rooms/%s/events", c.baseURL, url.PathEscape(roomID))
}

// do performs a request against the backend and decodes the enveloped
// response. Transport failures and unparseable responses become
// NetworkError; a well-formed success:false response becomes RejectedError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &NetworkError{Err: fmt.Errorf("unparseable response (status %d): %w", resp.StatusCode, err)}
	}

	if !env.Success {
		message := env.Message
		if message == "" {
			message = fmt.Sprintf("backend error (status %d)", resp.StatusCode)
		}
		return &RejectedError{Message: message}
	}

	if out != nil {
		if len(env.Data) == 0 {
			return &NetworkError{Err: fmt.Errorf("response missing data field")}
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &NetworkError{Err: fmt.Errorf("failed to parse response data: %w", err)}
		}
	}

	return nil
}
