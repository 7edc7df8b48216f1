package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/auth"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/rooms"
	"github.com/mcdev12/planpoker/go/internal/voting"
)

// HTTPHandler serves the REST side of the gateway: room creation and
// read-only state for members holding a join token.
type HTTPHandler struct {
	rooms       *rooms.App
	coordinator *voting.Coordinator
	tokens      *auth.TokenIssuer
	state       *StateProvider
}

func NewHTTPHandler(roomsApp *rooms.App, coordinator *voting.Coordinator, tokens *auth.TokenIssuer) *HTTPHandler {
	return &HTTPHandler{
		rooms:       roomsApp,
		coordinator: coordinator,
		tokens:      tokens,
		state:       NewStateProvider(roomsApp, coordinator),
	}
}

// CreateRoomResponse carries the host's identity and join token.
type CreateRoomResponse struct {
	Room  *models.Room        `json:"room"`
	You   *models.Participant `json:"you"`
	Token string              `json:"token"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms", h.HandleCreateRoom)
	mux.HandleFunc("GET /api/decks", h.HandleListDecks)
	mux.HandleFunc("GET /api/rooms/{code}/state", h.HandleGetRoomState)
	mux.HandleFunc("GET /api/rooms/{code}/stories", h.HandleListStories)
	mux.HandleFunc("GET /api/rooms/{code}/sessions/{id}/votes", h.HandleListVotes)
}

// HandleCreateRoom handles POST /api/rooms
func (h *HTTPHandler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req rooms.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidArgument("invalid request body"))
		return
	}
	room, host, err := h.rooms.CreateRoom(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := h.tokens.Issue(host.UserID, room.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateRoomResponse{Room: room, You: host, Token: token})
}

// HandleListDecks handles GET /api/decks
func (h *HTTPHandler) HandleListDecks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rooms.Decks())
}

// HandleGetRoomState handles GET /api/rooms/{code}/state
func (h *HTTPHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	p, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	state, err := h.state.RoomState(r.Context(), p.RoomCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandleListStories handles GET /api/rooms/{code}/stories
func (h *HTTPHandler) HandleListStories(w http.ResponseWriter, r *http.Request) {
	p, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	stories, err := h.rooms.ListStories(r.Context(), p.RoomCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stories)
}

// HandleListVotes handles GET /api/rooms/{code}/sessions/{id}/votes and
// returns the durable votes of finalized rounds.
func (h *HTTPHandler) HandleListVotes(w http.ResponseWriter, r *http.Request) {
	p, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, apperrors.InvalidArgument("invalid session id"))
		return
	}
	votes, err := h.coordinator.FinalizedVotes(r.Context(), p, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, votes)
}

// authenticate verifies the bearer join token against the room in the
// path and the current roster.
func (h *HTTPHandler) authenticate(r *http.Request) (auth.Principal, error) {
	code := strings.ToUpper(r.PathValue("code"))
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return auth.Principal{}, apperrors.Unauthorized("bearer join token is required")
	}
	claims, err := h.tokens.Verify(token)
	if err != nil {
		return auth.Principal{}, err
	}
	if claims.RoomCode != code {
		return auth.Principal{}, apperrors.Unauthorized("token was issued for another room")
	}
	participant, err := h.rooms.GetParticipant(r.Context(), code, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return auth.Principal{}, apperrors.Unauthorized("not a member of this room")
		}
		return auth.Principal{}, err
	}
	return auth.Principal{
		UserID:      participant.UserID,
		RoomCode:    code,
		DisplayName: participant.DisplayName,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	if !code.ClientFault() {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, code.HTTPStatus(), errorResponse{Code: string(code), Message: apperrors.MessageOf(err)})
}
