package actions

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Du7chy/Seedlings/go/clients/farm_api_client"
	"github.com/Du7chy/Seedlings/go/internal/notice"
)

// Refresh is the set of views to refetch after an action
type Refresh uint8

const (
	RefreshGrowing Refresh = 1 << iota
	RefreshInventory
	RefreshBalance
	RefreshShop
)

func (r Refresh) Has(f Refresh) bool {
	return r&f != 0
}

// Action names a dispatcher operation
type Action string

const (
	ActionPlant   Action = "plant"
	ActionHarvest Action = "harvest"
	ActionBuy     Action = "buy"
	ActionSell    Action = "sell"
	ActionJoin    Action = "join_room"
	ActionLeave   Action = "leave_room"
	ActionCreate  Action = "create_room"
)

type fallback struct {
	rejected string
	failed   string
}

var fallbacks = map[Action]fallback{
	ActionPlant:   {"Failed to plant seed.", "Failed to plant seed. Please try again."},
	ActionHarvest: {"Failed to harvest plant.", "Failed to harvest plant. Please try again."},
	ActionBuy:     {"Failed to buy items.", "Failed to buy items! Please try again."},
	ActionSell:    {"Failed to sell plant.", "Failed to sell plant! Please try again."},
	ActionJoin:    {"Failed to join room.", "Failed to join room. Please try again."},
	ActionLeave:   {"Failed to leave room.", "Failed to leave room. Please try again."},
	ActionCreate:  {"Failed to create room.", "Failed to create room. Please try again."},
}

// Result is the outcome of one dispatched action
type Result struct {
	Action   Action
	OK       bool
	Message  string
	Refresh  Refresh
	Balance  *int
	Redirect string
	RoomID   int
	JoinCode string
	Err      error
}

// API is the subset of the farm API the dispatchers call
type API interface {
	PlantSeed(ctx context.Context, seedID int) (*farm_api_client.ActionResponse, error)
	HarvestPlant(ctx context.Context, plantID int) (*farm_api_client.ActionResponse, error)
	Buy(ctx context.Context, seedID, quantity int) (*farm_api_client.ActionResponse, error)
	Sell(ctx context.Context, invEntryID int) (*farm_api_client.ActionResponse, error)
	JoinRoom(ctx context.Context, req farm_api_client.JoinRequest) (*farm_api_client.ActionResponse, error)
	LeaveRoom(ctx context.Context, roomID int) (*farm_api_client.ActionResponse, error)
	CreateRoom(ctx context.Context, req farm_api_client.CreateRoomRequest) (*farm_api_client.ActionResponse, error)
}

// Notifier shows user-visible notices
type Notifier interface {
	Success(text string) notice.Notice
	Error(text string) notice.Notice
}

// Dispatcher issues one request per action and reports what must be refreshed.
// Nothing local changes until the server confirms.
type Dispatcher struct {
	api     API
	notices Notifier
}

func NewDispatcher(api API, notices Notifier) *Dispatcher {
	return &Dispatcher{api: api, notices: notices}
}

func (d *Dispatcher) PlantSeed(ctx context.Context, seedID int) Result {
	resp, err := d.api.PlantSeed(ctx, seedID)
	return d.finish(ActionPlant, resp, err, RefreshGrowing|RefreshInventory)
}

func (d *Dispatcher) Harvest(ctx context.Context, plantID int) Result {
	resp, err := d.api.HarvestPlant(ctx, plantID)
	return d.finish(ActionHarvest, resp, err, RefreshGrowing|RefreshInventory)
}

// Buy purchases quantity seeds. Callers gate it on the shop selection first.
func (d *Dispatcher) Buy(ctx context.Context, seedID, quantity int) Result {
	resp, err := d.api.Buy(ctx, seedID, quantity)
	return d.finish(ActionBuy, resp, err, RefreshInventory|RefreshBalance|RefreshShop)
}

func (d *Dispatcher) Sell(ctx context.Context, invEntryID int) Result {
	resp, err := d.api.Sell(ctx, invEntryID)
	return d.finish(ActionSell, resp, err, RefreshInventory|RefreshBalance|RefreshShop)
}

// JoinRoom joins by room ID, or by join code when code is not empty
func (d *Dispatcher) JoinRoom(ctx context.Context, roomID int, code string) Result {
	req := farm_api_client.JoinRequest{RoomID: roomID}
	if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
		req = farm_api_client.JoinRequest{JoinCode: code}
	}
	resp, err := d.api.JoinRoom(ctx, req)
	return d.finish(ActionJoin, resp, err, 0)
}

func (d *Dispatcher) LeaveRoom(ctx context.Context, roomID int) Result {
	resp, err := d.api.LeaveRoom(ctx, roomID)
	return d.finish(ActionLeave, resp, err, 0)
}

func (d *Dispatcher) CreateRoom(ctx context.Context, req farm_api_client.CreateRoomRequest) Result {
	resp, err := d.api.CreateRoom(ctx, req)
	return d.finish(ActionCreate, resp, err, 0)
}

func (d *Dispatcher) finish(action Action, resp *farm_api_client.ActionResponse, err error, refresh Refresh) Result {
	if err != nil {
		res := Result{Action: action, Err: err, Message: failureMessage(action, err)}
		var reqErr *farm_api_client.RequestError
		if errors.As(err, &reqErr) {
			res.Redirect = reqErr.Redirect
		}
		log.Error().Err(err).Str("action", string(action)).Msg("action failed")
		d.notices.Error(res.Message)
		return res
	}

	res := Result{
		Action:   action,
		OK:       true,
		Message:  resp.Message,
		Refresh:  refresh,
		Balance:  resp.Balance,
		Redirect: resp.Redirect,
		RoomID:   resp.RoomID,
		JoinCode: resp.JoinCode,
	}
	if res.Message != "" {
		d.notices.Success(res.Message)
	}
	log.Info().Str("action", string(action)).Msg("action succeeded")
	return res
}

// failureMessage prefers the server's text, then a fallback for the kind of failure
func failureMessage(action Action, err error) string {
	if msg, ok := farm_api_client.ServerMessage(err); ok {
		return msg
	}
	fb := fallbacks[action]
	var reqErr *farm_api_client.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode == 200 {
		return fb.rejected
	}
	return fb.failed
}
