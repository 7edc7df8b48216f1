package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/rooms"
)

func newTestMux(f *gatewayFixture) *http.ServeMux {
	mux := http.NewServeMux()
	NewHTTPHandler(f.rooms, f.coord, f.tokens).RegisterRoutes(mux)
	return mux
}

func doRequest(mux http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateRoom(t *testing.T) {
	f := newGatewayFixture(t)
	mux := newTestMux(f)

	rec := doRequest(mux, http.MethodPost, "/api/rooms", "", `{"host_name":"Dana","settings":{"deck_type":"tshirt"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateRoomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.RoleHost, resp.You.Role)
	assert.Equal(t, models.DeckTShirt, resp.Room.Settings.DeckType)
	claims, err := f.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.Room.Code, claims.RoomCode)
	assert.Equal(t, resp.You.UserID, claims.UserID)

	rec = doRequest(mux, http.MethodPost, "/api/rooms", "", `{"host_name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")

	rec = doRequest(mux, http.MethodPost, "/api/rooms", "", `nope`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetRoomState(t *testing.T) {
	f := newGatewayFixture(t)
	mux := newTestMux(f)
	path := "/api/rooms/" + f.room.Code + "/state"

	rec := doRequest(mux, http.MethodGet, path, f.hostToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var state RoomState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, f.room.Code, state.Room.Code)
	assert.Empty(t, state.Sessions)

	rec = doRequest(mux, http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, host, err := f.rooms.CreateRoom(context.Background(), rooms.CreateRoomRequest{HostName: "Other"})
	require.NoError(t, err)
	otherToken, err := f.tokens.Issue(host.UserID, other.Code)
	require.NoError(t, err)
	rec = doRequest(mux, http.MethodGet, path, otherToken, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A token for someone no longer on the roster is rejected.
	stranger, err := f.tokens.Issue(uuid.New(), f.room.Code)
	require.NoError(t, err)
	rec = doRequest(mux, http.MethodGet, path, stranger, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleListStoriesAndVotes(t *testing.T) {
	f := newGatewayFixture(t)
	mux := newTestMux(f)
	host, _ := f.join(t, JoinRoomData{RoomCode: f.room.Code, Token: f.hostToken})
	storyID := f.story(t, host)

	rec := doRequest(mux, http.MethodGet, "/api/rooms/"+f.room.Code+"/stories", f.hostToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stories []*models.Story
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stories))
	require.Len(t, stories, 1)
	assert.Equal(t, storyID, stories[0].ID)

	rec = doRequest(mux, http.MethodGet, "/api/rooms/"+f.room.Code+"/sessions/not-a-uuid/votes", f.hostToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(mux, http.MethodGet, "/api/rooms/"+f.room.Code+"/sessions/"+uuid.NewString()+"/votes", f.hostToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListDecks(t *testing.T) {
	f := newGatewayFixture(t)
	rec := doRequest(newTestMux(f), http.MethodGet, "/api/decks", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var decks models.DeckCatalog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decks))
	assert.Contains(t, decks, models.DeckFibonacci)
}
