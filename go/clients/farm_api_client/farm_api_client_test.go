package farm_api_client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *FarmApiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewFarmApiClient(srv.URL, "ann")
}

func TestUserHeaderIsSent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ann", r.Header.Get(UserHeader))
		assert.Equal(t, BalanceEndpoint, r.URL.Path)
		w.Write([]byte(`{"balance": 42}`))
	})

	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, balance)
}

func TestGetInventory(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *models.Inventory
		wantErr error
	}{
		{
			name: "full",
			body: `{"seeds":[{"id":1,"name":"Carrot","quantity":3}],"plants":[{"id":7,"name":"Carrot","value":5}]}`,
			want: &models.Inventory{
				Seeds:  []models.SeedStack{{ID: 1, Name: "Carrot", Quantity: 3}},
				Plants: []models.PlantItem{{ID: 7, Name: "Carrot", Value: 5}},
			},
		},
		{
			name: "empty",
			body: `{"seeds":[],"plants":[]}`,
			want: &models.Inventory{Seeds: []models.SeedStack{}, Plants: []models.PlantItem{}},
		},
		{
			name:    "missing plants",
			body:    `{"seeds":[]}`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "not json",
			body:    `<html>`,
			wantErr: ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			got, err := client.GetInventory(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetGrowingPlants(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"name":"Corn","elapsed_time":12.5,"growth_time":60}]`))
	})

	plants, err := client.GetGrowingPlants(context.Background())
	require.NoError(t, err)
	require.Len(t, plants, 1)
	assert.Equal(t, 12.5, plants[0].ElapsedTime)
	assert.Equal(t, float64(60), plants[0].GrowthTime)
}

func TestActionRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/plants/3/harvest", r.URL.Path)
		w.Write([]byte(`{"success": false, "message": "Plant is not ready to harvest!"}`))
	})

	_, err := client.HarvestPlant(context.Background(), 3)
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, 200, reqErr.StatusCode)

	msg, ok := ServerMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "Plant is not ready to harvest!", msg)
}

func TestActionMissingSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": "ok"}`))
	})

	_, err := client.PlantSeed(context.Background(), 1)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestStatusErrorCarriesServerMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success": false, "message": "This room is private", "redirect": "/rooms"}`))
	})

	_, err := client.JoinRoom(context.Background(), JoinRequest{RoomID: 4})
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusForbidden, reqErr.StatusCode)
	assert.Equal(t, "This room is private", reqErr.Message)
	assert.Equal(t, "/rooms", reqErr.Redirect)
}

func TestListRoomsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, RoomListEndpoint, r.URL.Path)
		assert.Equal(t, "green farm", r.URL.Query().Get("q"))
		w.Write([]byte(`{"success":true,"rooms":[{"id":2,"name":"Green Farm","is_private":false,"is_full":false,"member_count":1,"max_members":4,"owner_name":"bob"}]}`))
	})

	rooms, err := client.ListRooms(context.Background(), "green farm")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "bob", rooms[0].OwnerName)
	assert.Equal(t, 4, rooms[0].MaxMembers)
}

func TestGetItemPriceRequiresPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/shop/items/9", r.URL.Path)
		w.Write([]byte(`{}`))
	})

	_, err := client.GetItemPrice(context.Background(), 9)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
