package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/auth"
	"github.com/mcdev12/planpoker/go/internal/events"
	"github.com/mcdev12/planpoker/go/internal/rooms"
	"github.com/mcdev12/planpoker/go/internal/voting"
)

// Membership tracks which room a connection receives broadcasts for.
type Membership interface {
	AssignRoom(connectionID, roomCode string)
	LeaveRoom(connectionID string)
}

// Dispatcher turns client frames into room registry and coordinator calls.
// Failures are reported to the requesting connection only.
type Dispatcher struct {
	coordinator *voting.Coordinator
	rooms       *rooms.App
	gatekeeper  *auth.Gatekeeper
	tokens      *auth.TokenIssuer
	notifier    voting.Notifier
	members     Membership
	state       *StateProvider
	clock       clockwork.Clock
}

func NewDispatcher(
	coordinator *voting.Coordinator,
	roomsApp *rooms.App,
	gatekeeper *auth.Gatekeeper,
	tokens *auth.TokenIssuer,
	notifier voting.Notifier,
	members Membership,
	clock clockwork.Clock,
) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dispatcher{
		coordinator: coordinator,
		rooms:       roomsApp,
		gatekeeper:  gatekeeper,
		tokens:      tokens,
		notifier:    notifier,
		members:     members,
		state:       NewStateProvider(roomsApp, coordinator),
		clock:       clock,
	}
}

// HandleMessage decodes and runs one client frame.
func (d *Dispatcher) HandleMessage(ctx context.Context, client Client, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.replyError(client, msg, apperrors.InvalidArgument("message is not valid JSON"))
		return
	}
	if msg.Action == "" {
		d.replyError(client, msg, apperrors.InvalidArgument("action is required"))
		return
	}

	if msg.Action == ActionJoinRoom {
		if err := d.joinRoom(ctx, client, msg); err != nil {
			d.replyError(client, msg, err)
		}
		return
	}

	p, err := d.gatekeeper.Resolve(client.ID())
	if err != nil {
		d.replyError(client, msg, err)
		return
	}
	if err := d.dispatch(ctx, client, p, msg); err != nil {
		d.replyError(client, msg, err)
		return
	}
	if msg.Action != ActionLeaveRoom {
		d.rooms.Touch(ctx, p.RoomCode)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, client Client, p auth.Principal, msg ClientMessage) error {
	switch msg.Action {
	case ActionLeaveRoom:
		return d.leaveRoom(ctx, client, p)
	case ActionGetState:
		return d.sendState(ctx, client, p)
	case ActionSetRole:
		var data SetRoleData
		if err := decode(msg.Data, &data); err != nil {
			return err
		}
		participant, err := d.rooms.ChangeRole(ctx, p.RoomCode, p.UserID, data.UserID, data.Role)
		if err != nil {
			return err
		}
		d.notify(ctx, p.RoomCode, events.EventTypeRoleChanged, events.RoleChangedPayload{
			UserID:    participant.UserID.String(),
			Role:      participant.Role,
			ChangedBy: p.UserID.String(),
		})
		return nil
	case ActionCreateStory:
		var data rooms.CreateStoryRequest
		if err := decode(msg.Data, &data); err != nil {
			return err
		}
		story, err := d.rooms.CreateStory(ctx, p.RoomCode, p.UserID, data)
		if err != nil {
			return err
		}
		d.notify(ctx, p.RoomCode, events.EventTypeStoryCreated, events.StoryCreatedPayload{Story: story})
		return nil
	case ActionArchive:
		var data ArchiveStoryData
		if err := decode(msg.Data, &data); err != nil {
			return err
		}
		if err := d.rooms.ArchiveStory(ctx, p.RoomCode, p.UserID, data.StoryID); err != nil {
			return err
		}
		d.notify(ctx, p.RoomCode, events.EventTypeStoryArchived, events.StoryArchivedPayload{StoryID: data.StoryID.String()})
		return nil

	case ActionStartSession:
		var data voting.StartSessionRequest
		if err := decode(msg.Data, &data); err != nil {
			return err
		}
		_, err := d.coordinator.StartSession(ctx, p, data)
		return err
	case ActionSubmitVote:
		var data voting.SubmitVoteRequest
		if err := decode(msg.Data, &data); err != nil {
			return err
		}
		_, err := d.coordinator.SubmitVote(ctx, p, data)
		return err
	case ActionRevealVotes:
		ref, err := decodeRef(msg.Data)
		if err != nil {
			return err
		}
		_, err = d.coordinator.Reveal(ctx, p, ref)
		return err
	case ActionHideVotes:
		ref, err := decodeRef(msg.Data)
		if err != nil {
			return err
		}
		return d.coordinator.Hide(ctx, p, ref)
	case ActionResetVoting:
		ref, err := decodeRef(msg.Data)
		if err != nil {
			return err
		}
		_, err = d.coordinator.StartNewRound(ctx, p, ref)
		return err
	case ActionEndSession:
		ref, err := decodeRef(msg.Data)
		if err != nil {
			return err
		}
		return d.coordinator.End(ctx, p, ref)
	case ActionFinalEstimate:
		var data voting.FinalizeRequest
		if err := decode(msg.Data, &data); err != nil {
			return err
		}
		_, err := d.coordinator.Finalize(ctx, p, data)
		return err

	case ActionStartTimer:
		var data voting.StartTimerRequest
		if err := decode(msg.Data, &data); err != nil {
			return err
		}
		_, err := d.coordinator.StartTimer(ctx, p, data)
		return err
	case ActionStopTimer:
		ref, err := decodeRef(msg.Data)
		if err != nil {
			return err
		}
		return d.coordinator.StopTimer(ctx, p, ref)
	case ActionPauseTimer:
		ref, err := decodeRef(msg.Data)
		if err != nil {
			return err
		}
		_, err = d.coordinator.PauseTimer(ctx, p, ref)
		return err
	case ActionResumeTimer:
		ref, err := decodeRef(msg.Data)
		if err != nil {
			return err
		}
		_, err = d.coordinator.ResumeTimer(ctx, p, ref)
		return err
	}
	return apperrors.InvalidArgument("unknown action " + string(msg.Action))
}

// joinRoom establishes the connection's identity. A valid token for the
// same room keeps the caller's user id and role.
func (d *Dispatcher) joinRoom(ctx context.Context, client Client, msg ClientMessage) error {
	if _, err := d.gatekeeper.Resolve(client.ID()); err == nil {
		return apperrors.InvalidState("connection already joined a room")
	}
	var data JoinRoomData
	if err := decode(msg.Data, &data); err != nil {
		return err
	}
	req := rooms.JoinRoomRequest{Code: data.RoomCode, DisplayName: data.DisplayName}
	if data.Token != "" {
		claims, err := d.tokens.Verify(data.Token)
		if err != nil {
			return err
		}
		if !strings.EqualFold(claims.RoomCode, strings.TrimSpace(data.RoomCode)) {
			return apperrors.Unauthorized("token was issued for another room")
		}
		req.UserID = claims.UserID
	}

	room, participant, err := d.rooms.JoinRoom(ctx, req)
	if err != nil {
		return err
	}
	token, err := d.tokens.Issue(participant.UserID, room.Code)
	if err != nil {
		return err
	}

	d.gatekeeper.Bind(client.ID(), auth.Principal{
		UserID:      participant.UserID,
		RoomCode:    room.Code,
		DisplayName: participant.DisplayName,
	})
	d.members.AssignRoom(client.ID(), room.Code)

	state, err := d.state.RoomState(ctx, room.Code)
	if err != nil {
		return err
	}
	d.reply(client, room.Code, events.EventTypeRoomState, JoinedState{
		RoomState: *state,
		You:       participant,
		Token:     token,
	})
	d.notify(ctx, room.Code, events.EventTypeParticipantJoined, events.ParticipantPayload{Participant: participant})
	return nil
}

func (d *Dispatcher) leaveRoom(ctx context.Context, client Client, p auth.Principal) error {
	removed, err := d.rooms.LeaveRoom(ctx, p.RoomCode, p.UserID)
	if err != nil {
		return err
	}
	d.gatekeeper.Unbind(client.ID())
	d.members.LeaveRoom(client.ID())
	d.notify(ctx, p.RoomCode, events.EventTypeParticipantLeft, events.ParticipantLeftPayload{
		UserID:  p.UserID.String(),
		Removed: removed,
	})
	return nil
}

func (d *Dispatcher) sendState(ctx context.Context, client Client, p auth.Principal) error {
	state, err := d.state.RoomState(ctx, p.RoomCode)
	if err != nil {
		return err
	}
	d.reply(client, p.RoomCode, events.EventTypeRoomState, state)
	return nil
}

// Disconnect marks the user offline once their last connection closes.
func (d *Dispatcher) Disconnect(ctx context.Context, connectionID string) {
	p, ok := d.gatekeeper.Unbind(connectionID)
	if !ok || !p.Authenticated() {
		return
	}
	if d.gatekeeper.ConnectionsFor(p.RoomCode, p.UserID) > 0 {
		return
	}
	if err := d.rooms.SetPresence(ctx, p.RoomCode, p.UserID, false); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Error().Err(err).Str("room_code", p.RoomCode).Msg("failed to mark participant offline")
		}
		return
	}
	d.notify(ctx, p.RoomCode, events.EventTypeParticipantLeft, events.ParticipantLeftPayload{
		UserID: p.UserID.String(),
	})
}

func (d *Dispatcher) notify(ctx context.Context, roomCode string, eventType events.EventType, payload any) {
	ev, err := events.New(roomCode, eventType, payload, d.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	if err := d.notifier.Notify(ctx, ev); err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Str("room_code", roomCode).Msg("failed to notify room")
	}
}

func (d *Dispatcher) reply(client Client, roomCode string, eventType events.EventType, payload any) {
	ev, err := events.New(roomCode, eventType, payload, d.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build reply")
		return
	}
	if !client.Send(ev) {
		log.Warn().Str("connection_id", client.ID()).Str("event_type", string(eventType)).Msg("failed to deliver reply")
	}
}

func (d *Dispatcher) replyError(client Client, msg ClientMessage, err error) {
	code := apperrors.CodeOf(err)
	ev := log.Warn()
	if !code.ClientFault() {
		ev = log.Error()
	}
	if code == apperrors.CodeConflict {
		ev = log.Info()
	}
	ev.Err(err).
		Str("connection_id", client.ID()).
		Str("action", string(msg.Action)).
		Str("code", string(code)).
		Msg("action failed")

	d.reply(client, "", events.EventTypeError, events.ErrorPayload{
		Code:      string(code),
		Message:   apperrors.MessageOf(err),
		Action:    string(msg.Action),
		RequestID: msg.RequestID,
	})
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.InvalidArgument("invalid data: " + err.Error())
	}
	return nil
}

func decodeRef(data json.RawMessage) (voting.SessionRef, error) {
	var ref voting.SessionRef
	err := decode(data, &ref)
	return ref, err
}
