package farm_api_client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Du7chy/Seedlings/go/clients"
)

// ErrMalformedResponse is returned when a response body does not have the expected shape.
var ErrMalformedResponse = errors.New("malformed response")

// RequestError is a request the server rejected, either with {success:false}
// or with a non-2xx status. Message is the server-provided text, possibly empty.
type RequestError struct {
	StatusCode int
	Message    string
	Redirect   string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("request failed: %s", e.Message)
}

// ServerMessage extracts the server-provided message from err, if any.
func ServerMessage(err error) (string, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return reqErr.Message, true
	}
	return "", false
}

// ActionResponse is the structured result of a state-changing request.
type ActionResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Balance  *int   `json:"balance,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	RoomID   int    `json:"room_id,omitempty"`
	JoinCode string `json:"join_code,omitempty"`
}

type FarmApiClient struct {
	*clients.BaseClient
}

// NewFarmApiClient creates a client for baseURL acting as user. An empty user
// leaves identification to the session cookie.
func NewFarmApiClient(baseURL, user string) *FarmApiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &FarmApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	if user != "" {
		client.SetHeader(UserHeader, user)
	}

	return client
}

// wrapError turns transport-level status errors into RequestErrors carrying
// whatever message the server put in the body.
func wrapError(op string, err error) error {
	var statusErr *clients.StatusError
	if errors.As(err, &statusErr) {
		var body struct {
			Message  string `json:"message"`
			Redirect string `json:"redirect"`
		}
		_ = json.Unmarshal(statusErr.Body, &body)
		return fmt.Errorf("%s: %w", op, &RequestError{
			StatusCode: statusErr.StatusCode,
			Message:    body.Message,
			Redirect:   body.Redirect,
		})
	}
	return fmt.Errorf("%s: %w", op, err)
}

// decodeAction parses a {success, message, ...} body. A missing success field
// is a malformed response; success=false becomes a RequestError.
func decodeAction(op string, body []byte) (*ActionResponse, error) {
	var raw struct {
		Success *bool `json:"success"`
		ActionResponse
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	if raw.Success == nil {
		return nil, fmt.Errorf("%s: %w: missing success field", op, ErrMalformedResponse)
	}

	resp := raw.ActionResponse
	resp.Success = *raw.Success
	if !resp.Success {
		return nil, fmt.Errorf("%s: %w", op, &RequestError{
			StatusCode: 200,
			Message:    resp.Message,
			Redirect:   resp.Redirect,
		})
	}
	return &resp, nil
}

func decodeInto(op string, body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return nil
}
