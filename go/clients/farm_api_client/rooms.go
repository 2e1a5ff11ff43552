package farm_api_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

// JoinRequest selects a room either by ID (public rooms) or by join code.
type JoinRequest struct {
	RoomID   int    `json:"room_id,omitempty"`
	JoinCode string `json:"join_code,omitempty"`
}

// CreateRoomRequest is the body of POST /api/rooms.
type CreateRoomRequest struct {
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	MaxMembers int    `json:"max_members"`
}

func (c *FarmApiClient) ListRooms(ctx context.Context, query string) ([]models.RoomSummary, error) {
	endpoint := RoomListEndpoint
	if query != "" {
		endpoint = fmt.Sprintf("%s?%s", RoomListEndpoint, url.Values{"q": {query}}.Encode())
	}

	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, wrapError("list rooms", err)
	}

	var raw struct {
		Success *bool                `json:"success"`
		Rooms   []models.RoomSummary `json:"rooms"`
		Message string               `json:"message"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("list rooms: %w: %v", ErrMalformedResponse, err)
	}
	if raw.Success == nil {
		return nil, fmt.Errorf("list rooms: %w: missing success field", ErrMalformedResponse)
	}
	if !*raw.Success {
		return nil, fmt.Errorf("list rooms: %w", &RequestError{StatusCode: 200, Message: raw.Message})
	}
	if raw.Rooms == nil {
		raw.Rooms = []models.RoomSummary{}
	}
	return raw.Rooms, nil
}

func (c *FarmApiClient) JoinRoom(ctx context.Context, req JoinRequest) (*ActionResponse, error) {
	body, err := c.PostJSON(ctx, RoomJoinEndpoint, req)
	if err != nil {
		return nil, wrapError("join room", err)
	}
	return decodeAction("join room", body)
}

func (c *FarmApiClient) LeaveRoom(ctx context.Context, roomID int) (*ActionResponse, error) {
	body, err := c.PostJSON(ctx, fmt.Sprintf(RoomLeaveEndpointF, roomID), nil)
	if err != nil {
		return nil, wrapError("leave room", err)
	}
	return decodeAction("leave room", body)
}

func (c *FarmApiClient) CreateRoom(ctx context.Context, req CreateRoomRequest) (*ActionResponse, error) {
	body, err := c.PostJSON(ctx, RoomCreateEndpoint, req)
	if err != nil {
		return nil, wrapError("create room", err)
	}
	return decodeAction("create room", body)
}
