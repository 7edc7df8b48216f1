package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/planpoker/go/internal/auth"
	"github.com/mcdev12/planpoker/go/internal/eventbus"
	"github.com/mcdev12/planpoker/go/internal/events"
	"github.com/mcdev12/planpoker/go/internal/memstore"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/rooms"
	"github.com/mcdev12/planpoker/go/internal/voting"
)

const testSecret = "gateway-test-secret-0123456789"

type fakeClient struct {
	id   string
	mu   sync.Mutex
	sent []*events.Event
}

func newClient() *fakeClient {
	return &fakeClient{id: uuid.NewString()}
}

func (c *fakeClient) ID() string { return c.id }

func (c *fakeClient) Send(ev *events.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, ev)
	return true
}

func (c *fakeClient) last() *events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}

func (c *fakeClient) lastError(t *testing.T) events.ErrorPayload {
	t.Helper()
	ev := c.last()
	require.NotNil(t, ev)
	require.Equal(t, events.EventTypeError, ev.Type)
	var p events.ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Data, &p))
	return p
}

type fakeMembers struct {
	mu    sync.Mutex
	rooms map[string]string
}

func (m *fakeMembers) AssignRoom(connectionID, roomCode string) {
	m.mu.Lock()
	m.rooms[connectionID] = roomCode
	m.mu.Unlock()
}

func (m *fakeMembers) LeaveRoom(connectionID string) {
	m.mu.Lock()
	delete(m.rooms, connectionID)
	m.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recorder) add(ev *events.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) ofType(t events.EventType) []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type gatewayFixture struct {
	clock      *clockwork.FakeClock
	rooms      *rooms.App
	tokens     *auth.TokenIssuer
	gatekeeper *auth.Gatekeeper
	coord      *voting.Coordinator
	members    *fakeMembers
	recorder   *recorder
	dispatcher *Dispatcher

	room      *models.Room
	hostToken string
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	app := rooms.NewApp(memstore.NewRooms(), nil, clock, 24*time.Hour)
	tokens, err := auth.NewTokenIssuer(testSecret, time.Hour, clock)
	require.NoError(t, err)
	gk := auth.NewGatekeeper(app)

	bus := eventbus.NewLocal()
	rec := &recorder{}
	bus.Subscribe(rec.add)

	coord := voting.NewCoordinator(memstore.NewSessions(), app, gk, bus, nil, clock)
	t.Cleanup(coord.Close)

	members := &fakeMembers{rooms: make(map[string]string)}
	f := &gatewayFixture{
		clock:      clock,
		rooms:      app,
		tokens:     tokens,
		gatekeeper: gk,
		coord:      coord,
		members:    members,
		recorder:   rec,
		dispatcher: NewDispatcher(coord, app, gk, tokens, bus, members, clock),
	}

	room, host, err := app.CreateRoom(context.Background(), rooms.CreateRoomRequest{HostName: "Host"})
	require.NoError(t, err)
	f.room = room
	f.hostToken, err = tokens.Issue(host.UserID, room.Code)
	require.NoError(t, err)
	return f
}

func (f *gatewayFixture) send(t *testing.T, c Client, action Action, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(ClientMessage{Action: action, RequestID: "req-1", Data: raw})
	require.NoError(t, err)
	f.dispatcher.HandleMessage(context.Background(), c, frame)
}

// join connects a new client and returns it with the state it received.
func (f *gatewayFixture) join(t *testing.T, data JoinRoomData) (*fakeClient, JoinedState) {
	t.Helper()
	c := newClient()
	f.send(t, c, ActionJoinRoom, data)
	ev := c.last()
	require.NotNil(t, ev)
	require.Equal(t, events.EventTypeRoomState, ev.Type, string(ev.Data))
	var state JoinedState
	require.NoError(t, json.Unmarshal(ev.Data, &state))
	return c, state
}

func (f *gatewayFixture) story(t *testing.T, host Client) uuid.UUID {
	t.Helper()
	f.send(t, host, ActionCreateStory, rooms.CreateStoryRequest{Title: "S1"})
	stories, err := f.rooms.ListStories(context.Background(), f.room.Code)
	require.NoError(t, err)
	require.NotEmpty(t, stories)
	return stories[len(stories)-1].ID
}

func TestActionBeforeJoinIsUnauthorized(t *testing.T) {
	f := newGatewayFixture(t)
	c := newClient()

	f.send(t, c, ActionRevealVotes, voting.SessionRef{StoryID: uuid.New()})

	errPayload := c.lastError(t)
	assert.Equal(t, "UNAUTHORIZED", errPayload.Code)
	assert.Equal(t, "reveal_votes", errPayload.Action)
	assert.Equal(t, "req-1", errPayload.RequestID)
	assert.Empty(t, f.recorder.ofType(events.EventTypeVotesRevealed))
}

func TestJoinRoom(t *testing.T) {
	f := newGatewayFixture(t)

	host, state := f.join(t, JoinRoomData{RoomCode: f.room.Code, Token: f.hostToken})
	assert.Equal(t, models.RoleHost, state.You.Role)
	assert.True(t, state.You.Online)
	assert.NotEmpty(t, state.Token)
	assert.Equal(t, f.room.Code, f.members.rooms[host.ID()])

	guest, state := f.join(t, JoinRoomData{RoomCode: f.room.Code, DisplayName: "Guest"})
	assert.Equal(t, models.RoleParticipant, state.You.Role)
	assert.Len(t, state.Room.Participants, 2)
	assert.Len(t, f.recorder.ofType(events.EventTypeParticipantJoined), 2)

	// A second join on the same connection is refused.
	f.send(t, guest, ActionJoinRoom, JoinRoomData{RoomCode: f.room.Code, DisplayName: "Again"})
	assert.Equal(t, "INVALID_STATE", guest.lastError(t).Code)
}

func TestJoinRoomRejectsForeignToken(t *testing.T) {
	f := newGatewayFixture(t)
	other, _, err := f.rooms.CreateRoom(context.Background(), rooms.CreateRoomRequest{HostName: "Other"})
	require.NoError(t, err)

	c := newClient()
	f.send(t, c, ActionJoinRoom, JoinRoomData{RoomCode: other.Code, Token: f.hostToken})
	assert.Equal(t, "UNAUTHORIZED", c.lastError(t).Code)

	f.send(t, c, ActionJoinRoom, JoinRoomData{RoomCode: f.room.Code, Token: "garbage"})
	assert.Equal(t, "UNAUTHORIZED", c.lastError(t).Code)

	_, err = f.gatekeeper.Resolve(c.ID())
	assert.Error(t, err)
}

func TestNonAdminRevealProducesNoBroadcast(t *testing.T) {
	f := newGatewayFixture(t)
	host, _ := f.join(t, JoinRoomData{RoomCode: f.room.Code, Token: f.hostToken})
	guest, _ := f.join(t, JoinRoomData{RoomCode: f.room.Code, DisplayName: "Guest"})
	storyID := f.story(t, host)

	f.send(t, host, ActionStartSession, voting.StartSessionRequest{StoryID: storyID})
	require.Len(t, f.recorder.ofType(events.EventTypeVotingSessionStarted), 1)

	f.send(t, guest, ActionRevealVotes, voting.SessionRef{StoryID: storyID})
	assert.Equal(t, "UNAUTHORIZED", guest.lastError(t).Code)
	assert.Empty(t, f.recorder.ofType(events.EventTypeVotesRevealed))
	assert.Empty(t, f.recorder.ofType(events.EventTypeError), "errors are never broadcast")
}

func TestVotingFlow(t *testing.T) {
	f := newGatewayFixture(t)
	host, _ := f.join(t, JoinRoomData{RoomCode: f.room.Code, Token: f.hostToken})
	guest, _ := f.join(t, JoinRoomData{RoomCode: f.room.Code, DisplayName: "Guest"})
	storyID := f.story(t, host)

	f.send(t, host, ActionStartSession, voting.StartSessionRequest{StoryID: storyID})
	f.send(t, host, ActionSubmitVote, voting.SubmitVoteRequest{SessionRef: voting.SessionRef{StoryID: storyID}, Value: "5"})
	f.send(t, guest, ActionSubmitVote, voting.SubmitVoteRequest{SessionRef: voting.SessionRef{StoryID: storyID}, Value: "5"})

	revealed := f.recorder.ofType(events.EventTypeVotesRevealed)
	require.Len(t, revealed, 1)
	var payload events.VotesRevealedPayload
	require.NoError(t, json.Unmarshal(revealed[0].Data, &payload))
	assert.True(t, payload.Automatic)
	require.NotNil(t, payload.Consensus)
	assert.True(t, payload.Consensus.Achieved)
	assert.Equal(t, "5", payload.Consensus.FinalEstimate)

	f.send(t, host, ActionFinalEstimate, voting.FinalizeRequest{SessionRef: voting.SessionRef{StoryID: storyID}, Estimate: "5"})
	require.Len(t, f.recorder.ofType(events.EventTypeFinalEstimateSaved), 1)

	story, err := f.rooms.GetStory(context.Background(), storyID)
	require.NoError(t, err)
	assert.Equal(t, models.StoryStatusEstimated, story.Status)

	// No session is active any more.
	f.send(t, host, ActionRevealVotes, voting.SessionRef{StoryID: storyID})
	assert.Equal(t, "NOT_FOUND", host.lastError(t).Code)
}

func TestSetRoleGrantsAdmin(t *testing.T) {
	f := newGatewayFixture(t)
	host, _ := f.join(t, JoinRoomData{RoomCode: f.room.Code, Token: f.hostToken})
	guest, state := f.join(t, JoinRoomData{RoomCode: f.room.Code, DisplayName: "Guest"})

	f.send(t, guest, ActionCreateStory, rooms.CreateStoryRequest{Title: "Nope"})
	assert.Equal(t, "UNAUTHORIZED", guest.lastError(t).Code)

	f.send(t, host, ActionSetRole, SetRoleData{UserID: state.You.UserID, Role: models.RoleFacilitator})
	require.Len(t, f.recorder.ofType(events.EventTypeRoleChanged), 1)

	f.send(t, guest, ActionCreateStory, rooms.CreateStoryRequest{Title: "Now allowed"})
	assert.Len(t, f.recorder.ofType(events.EventTypeStoryCreated), 1)
}

func TestDisconnectMarksOfflineAfterLastConnection(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()
	f.join(t, JoinRoomData{RoomCode: f.room.Code, Token: f.hostToken})
	first, state := f.join(t, JoinRoomData{RoomCode: f.room.Code, DisplayName: "Guest"})
	second, again := f.join(t, JoinRoomData{RoomCode: f.room.Code, Token: state.Token})
	require.Equal(t, state.You.UserID, again.You.UserID)

	f.dispatcher.Disconnect(ctx, first.ID())
	p, err := f.rooms.GetParticipant(ctx, f.room.Code, state.You.UserID)
	require.NoError(t, err)
	assert.True(t, p.Online)
	assert.Empty(t, f.recorder.ofType(events.EventTypeParticipantLeft))

	f.dispatcher.Disconnect(ctx, second.ID())
	p, err = f.rooms.GetParticipant(ctx, f.room.Code, state.You.UserID)
	require.NoError(t, err)
	assert.False(t, p.Online)
	assert.Len(t, f.recorder.ofType(events.EventTypeParticipantLeft), 1)

	// Unknown connections are ignored.
	f.dispatcher.Disconnect(ctx, "nobody")
	assert.Len(t, f.recorder.ofType(events.EventTypeParticipantLeft), 1)
}

func TestLeaveRoom(t *testing.T) {
	f := newGatewayFixture(t)
	guest, state := f.join(t, JoinRoomData{RoomCode: f.room.Code, DisplayName: "Guest"})

	f.send(t, guest, ActionLeaveRoom, nil)
	left := f.recorder.ofType(events.EventTypeParticipantLeft)
	require.Len(t, left, 1)
	var payload events.ParticipantLeftPayload
	require.NoError(t, json.Unmarshal(left[0].Data, &payload))
	assert.True(t, payload.Removed)
	assert.Equal(t, state.You.UserID.String(), payload.UserID)
	assert.NotContains(t, f.members.rooms, guest.ID())

	f.send(t, guest, ActionGetState, nil)
	assert.Equal(t, "UNAUTHORIZED", guest.lastError(t).Code)
}

func TestMalformedMessages(t *testing.T) {
	f := newGatewayFixture(t)
	c := newClient()

	f.dispatcher.HandleMessage(context.Background(), c, []byte("{not json"))
	assert.Equal(t, "INVALID_ARGUMENT", c.lastError(t).Code)

	f.dispatcher.HandleMessage(context.Background(), c, []byte(`{"data":{}}`))
	assert.Equal(t, "INVALID_ARGUMENT", c.lastError(t).Code)

	host, _ := f.join(t, JoinRoomData{RoomCode: f.room.Code, Token: f.hostToken})
	f.send(t, host, "dance", nil)
	assert.Equal(t, "INVALID_ARGUMENT", host.lastError(t).Code)

	f.dispatcher.HandleMessage(context.Background(), host, []byte(`{"action":"submit_vote","data":"oops"}`))
	assert.Equal(t, "INVALID_ARGUMENT", host.lastError(t).Code)
}

func TestGetState(t *testing.T) {
	f := newGatewayFixture(t)
	host, _ := f.join(t, JoinRoomData{RoomCode: f.room.Code, Token: f.hostToken})
	storyID := f.story(t, host)
	f.send(t, host, ActionStartSession, voting.StartSessionRequest{StoryID: storyID})
	f.send(t, host, ActionSubmitVote, voting.SubmitVoteRequest{SessionRef: voting.SessionRef{StoryID: storyID}, Value: "8"})

	// The single online member voted, so the round revealed itself.
	f.send(t, host, ActionGetState, nil)
	ev := host.last()
	require.Equal(t, events.EventTypeRoomState, ev.Type)
	var state RoomState
	require.NoError(t, json.Unmarshal(ev.Data, &state))
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, 1, state.Sessions[0].VoteCount)
	require.Len(t, state.Sessions[0].Votes, 1)
	assert.Equal(t, "8", state.Sessions[0].Votes[0].Value)
	assert.Contains(t, state.Decks, "fibonacci")
}

func TestArchiveStory(t *testing.T) {
	f := newGatewayFixture(t)
	host, _ := f.join(t, JoinRoomData{RoomCode: f.room.Code, Token: f.hostToken})
	guest, _ := f.join(t, JoinRoomData{RoomCode: f.room.Code, DisplayName: "Guest"})
	storyID := f.story(t, host)

	f.send(t, guest, ActionArchive, ArchiveStoryData{StoryID: storyID})
	assert.Equal(t, "UNAUTHORIZED", guest.lastError(t).Code)
	assert.Empty(t, f.recorder.ofType(events.EventTypeStoryArchived))

	f.send(t, host, ActionArchive, ArchiveStoryData{StoryID: storyID})
	archived := f.recorder.ofType(events.EventTypeStoryArchived)
	require.Len(t, archived, 1)
	assert.Contains(t, string(archived[0].Data), storyID.String())

	story, err := f.rooms.GetStory(context.Background(), storyID)
	require.NoError(t, err)
	assert.Equal(t, models.StoryStatusArchived, story.Status)
}
