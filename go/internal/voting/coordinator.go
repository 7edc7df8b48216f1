package voting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/auth"
	"github.com/mcdev12/planpoker/go/internal/events"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// Coordinator owns the lifecycle of voting sessions. Every mutation of a
// session runs under that session's lock and follows the same order:
// compute the next state on a copy, persist it, then notify the room. The
// durable write is the commit point; nothing is announced before it.
type Coordinator struct {
	sessions SessionRepository
	registry StoryRegistry
	authz    Authorizer
	notifier Notifier
	decks    models.DeckCatalog
	clock    clockwork.Clock

	ledger    *Ledger
	locks     *keyedMutex
	deadlines Deadlines

	roomsMu      sync.Mutex
	roomSessions map[string]map[uuid.UUID]struct{}
}

func NewCoordinator(
	sessions SessionRepository,
	registry StoryRegistry,
	authz Authorizer,
	notifier Notifier,
	decks models.DeckCatalog,
	clock clockwork.Clock,
) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if decks == nil {
		decks = models.BuiltinDecks()
	}
	c := &Coordinator{
		sessions:     sessions,
		registry:     registry,
		authz:        authz,
		notifier:     notifier,
		decks:        decks,
		clock:        clock,
		ledger:       NewLedger(),
		locks:        newKeyedMutex(),
		roomSessions: make(map[string]map[uuid.UUID]struct{}),
	}
	c.deadlines = NewExpiryScheduler(clock, c.HandleDeadline)
	return c
}

// Recover re-arms the deadlines of active sessions after a restart. Votes
// that were in flight are process-local and are not recovered.
func (c *Coordinator) Recover(ctx context.Context) error {
	active, err := c.sessions.ListActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active sessions: %w", err)
	}
	now := c.clock.Now()
	armed, lapsed := 0, 0
	for _, s := range active {
		c.trackSession(s.RoomCode, s.ID)
		if !TimerRunning(s.Timer) || s.VotesRevealed {
			continue
		}
		// A deadline that passed while the process was down already stops
		// vote intake; firing it again would repeat timer_expired.
		if Expired(s.Timer, now) {
			lapsed++
			continue
		}
		c.deadlines.Schedule(s.ID, *s.Timer.EndsAt)
		armed++
	}
	log.Info().
		Int("active_sessions", len(active)).
		Int("deadlines", armed).
		Int("lapsed_deadlines", lapsed).
		Msg("voting coordinator recovered")
	return nil
}

// Close disarms all deadlines.
func (c *Coordinator) Close() {
	c.deadlines.Stop()
}

// StartSession opens round 1 on a story, superseding any session already
// active for it.
func (c *Coordinator) StartSession(ctx context.Context, p auth.Principal, req StartSessionRequest) (*models.VotingSession, error) {
	if err := c.authz.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	if req.StoryID == uuid.Nil {
		return nil, apperrors.InvalidArgument("story_id is required")
	}

	story, err := c.registry.GetStory(ctx, req.StoryID)
	if err != nil {
		return nil, err
	}
	if story.RoomCode != p.RoomCode {
		return nil, apperrors.NotFound("story not found")
	}
	if story.Status == models.StoryStatusArchived {
		return nil, apperrors.InvalidState("story is archived")
	}
	room, err := c.registry.GetRoom(ctx, p.RoomCode)
	if err != nil {
		return nil, err
	}

	deckType := req.DeckType
	if deckType == "" {
		deckType = room.Settings.DeckType
	}
	deck, ok := c.decks.Lookup(deckType)
	if !ok {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("unknown deck type %q", deckType))
	}
	timerSeconds := room.Settings.TimerSeconds
	if req.TimerSeconds != nil {
		if *req.TimerSeconds < 0 {
			return nil, apperrors.InvalidArgument("timer_seconds cannot be negative")
		}
		if *req.TimerSeconds > models.MaxTimerSeconds {
			return nil, apperrors.InvalidArgument(fmt.Sprintf("timer_seconds cannot exceed %d", models.MaxTimerSeconds))
		}
		timerSeconds = *req.TimerSeconds
	}

	unlockStory := c.locks.Lock(story.ID)
	defer unlockStory()

	// Hold the lock of the session being superseded so no vote lands in
	// its ledger after it is cleared.
	current, err := c.sessions.GetActiveSessionForStory(ctx, story.ID)
	switch {
	case err == nil:
		unlockCurrent := c.locks.Lock(current.ID)
		defer unlockCurrent()
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("failed to look up active session: %w", err)
	}

	now := c.clock.Now()
	s := &models.VotingSession{
		ID:                 uuid.New(),
		StoryID:            story.ID,
		RoomCode:           story.RoomCode,
		Phase:              models.SessionPhaseVoting,
		Round:              1,
		Deck:               deck,
		IsActive:           true,
		FacilitatorID:      p.UserID,
		RevealPolicy:       room.Settings.RevealPolicy,
		ConsensusThreshold: room.Settings.ConsensusThreshold,
		TimerSeconds:       timerSeconds,
		Rounds:             []models.RoundSummary{{Round: 1, StartedAt: now}},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if timerSeconds > 0 {
		s.Timer = StartTimer(now, time.Duration(timerSeconds)*time.Second)
	}

	superseded, err := c.sessions.CreateSession(ctx, s)
	if errors.Is(err, apperrors.ErrConflict) {
		log.Info().
			Str("story_id", story.ID.String()).
			Msg("active session appeared concurrently, superseding again")
		superseded, err = c.sessions.CreateSession(ctx, s)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create voting session: %w", err)
	}

	for _, id := range superseded {
		c.ledger.Clear(id)
		c.deadlines.Cancel(id)
		log.Info().
			Str("session_id", id.String()).
			Str("story_id", story.ID.String()).
			Msg("superseded active voting session")
	}
	c.trackSession(s.RoomCode, s.ID)

	if err := c.registry.UpdateStoryStatus(ctx, story.ID, models.StoryStatusVoting); err != nil {
		log.Error().Err(err).Str("story_id", story.ID.String()).Msg("failed to mark story as voting")
	}
	if err := c.resetVoted(ctx, s.RoomCode); err != nil {
		log.Error().Err(err).Str("room_code", s.RoomCode).Msg("failed to reset voted flags")
	}
	if TimerRunning(s.Timer) {
		c.deadlines.Schedule(s.ID, *s.Timer.EndsAt)
	}

	payload := events.VotingSessionStartedPayload{Session: s}
	if len(superseded) > 0 {
		payload.SupersededSession = superseded[0].String()
	}
	c.notify(ctx, s.RoomCode, events.EventTypeVotingSessionStarted, payload)

	log.Info().
		Str("session_id", s.ID.String()).
		Str("story_id", s.StoryID.String()).
		Str("room_code", s.RoomCode).
		Str("deck", string(deck.Type)).
		Int("timer_seconds", timerSeconds).
		Msg("voting session started")
	return s.Clone(), nil
}

// SubmitVote records the principal's vote for the current round and
// reveals automatically once every online participant has voted.
func (c *Coordinator) SubmitVote(ctx context.Context, p auth.Principal, req SubmitVoteRequest) (*VoteProgress, error) {
	if !p.Authenticated() {
		return nil, apperrors.Unauthorized("join a room first")
	}
	id, err := c.resolve(ctx, req.SessionRef)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	s, err := c.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !s.IsActive {
		return nil, apperrors.InvalidState("voting session is not active")
	}
	if s.VotesRevealed {
		return nil, apperrors.InvalidState("votes are already revealed for this round")
	}
	now := c.clock.Now()
	if Expired(s.Timer, now) {
		return nil, apperrors.InvalidState("expired")
	}

	value := strings.TrimSpace(req.Value)
	if !s.Deck.Contains(value) {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("%q is not a card in the %s deck", value, s.Deck.Type))
	}
	if req.Confidence != nil && (*req.Confidence < 0 || *req.Confidence > 1) {
		return nil, apperrors.InvalidArgument("confidence must be between 0 and 1")
	}

	room, err := c.registry.GetRoom(ctx, s.RoomCode)
	if err != nil {
		return nil, err
	}
	if room.Participant(p.UserID) == nil {
		return nil, apperrors.Unauthorized("not a member of this room")
	}

	count := c.ledger.Put(models.Vote{
		SessionID:   s.ID,
		UserID:      p.UserID,
		Round:       s.Round,
		Value:       value,
		Confidence:  req.Confidence,
		SubmittedAt: now,
	})
	if err := c.registry.MarkVoted(ctx, s.RoomCode, p.UserID); err != nil {
		log.Warn().Err(err).Str("user_id", p.UserID.String()).Msg("failed to mark participant as voted")
	}

	online := room.OnlineCount()
	progress := &VoteProgress{
		SessionID:         s.ID,
		Round:             s.Round,
		VoteCount:         count,
		TotalParticipants: online,
	}
	c.notify(ctx, s.RoomCode, events.EventTypeVoteSubmitted, events.VoteSubmittedPayload{
		SessionID:         s.ID.String(),
		StoryID:           s.StoryID.String(),
		UserID:            p.UserID.String(),
		Round:             s.Round,
		VoteCount:         count,
		TotalParticipants: online,
	})

	log.Debug().
		Str("session_id", s.ID.String()).
		Str("user_id", p.UserID.String()).
		Int("round", s.Round).
		Int("vote_count", count).
		Int("online", online).
		Msg("vote recorded")

	if s.RevealPolicy != models.RevealPolicyManual && online > 0 && count >= online {
		result, err := c.reveal(ctx, s, true)
		if err != nil {
			log.Error().Err(err).Str("session_id", s.ID.String()).Msg("auto-reveal failed")
			return progress, nil
		}
		progress.Revealed = true
		progress.Consensus = result
	}
	return progress, nil
}

// Reveal shows the votes of the current round. Revealing an already
// revealed round returns the stored consensus and changes nothing. A
// round without votes reveals with a nil consensus.
func (c *Coordinator) Reveal(ctx context.Context, p auth.Principal, ref SessionRef) (*models.ConsensusResult, error) {
	if err := c.authz.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	id, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	s, err := c.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !s.IsActive {
		return nil, apperrors.InvalidState("voting session is not active")
	}
	if s.VotesRevealed {
		return s.Consensus, nil
	}
	return c.reveal(ctx, s, false)
}

// reveal must be called with the session lock held.
func (c *Coordinator) reveal(ctx context.Context, s *models.VotingSession, automatic bool) (*models.ConsensusResult, error) {
	now := c.clock.Now()
	votes := c.ledger.Votes(s.ID, s.Round)
	result := Calculate(votes, s.ConsensusThreshold)

	next := s.Clone()
	next.VotesRevealed = true
	next.Phase = models.SessionPhaseDiscussing
	next.Consensus = result
	next.Timer = StopTimer()
	next.UpdatedAt = now
	if rs := next.CurrentRound(); rs != nil {
		rs.VoteCount = len(votes)
		rs.ConsensusAchieved = result != nil && result.Achieved
		rs.RevealedAt = &now
	}

	if err := c.sessions.UpdateSession(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist reveal: %w", err)
	}
	c.deadlines.Cancel(s.ID)
	if err := c.registry.UpdateStoryStatus(ctx, s.StoryID, models.StoryStatusVoted); err != nil {
		log.Error().Err(err).Str("story_id", s.StoryID.String()).Msg("failed to mark story as voted")
	}

	c.notify(ctx, s.RoomCode, events.EventTypeVotesRevealed, events.VotesRevealedPayload{
		SessionID: s.ID.String(),
		StoryID:   s.StoryID.String(),
		Round:     s.Round,
		Revealed:  true,
		Automatic: automatic,
		Votes:     revealedVotes(votes),
		Consensus: result,
	})

	ev := log.Info().
		Str("session_id", s.ID.String()).
		Int("round", s.Round).
		Int("vote_count", len(votes)).
		Bool("automatic", automatic)
	if result != nil {
		ev = ev.Bool("consensus", result.Achieved).
			Float64("percentage", result.Percentage).
			Str("estimate", result.FinalEstimate)
	}
	ev.Msg("votes revealed")
	return result, nil
}

// Hide conceals revealed votes again without touching the ledger.
func (c *Coordinator) Hide(ctx context.Context, p auth.Principal, ref SessionRef) error {
	if err := c.authz.RequireAdmin(ctx, p); err != nil {
		return err
	}
	id, err := c.resolve(ctx, ref)
	if err != nil {
		return err
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	s, err := c.load(ctx, p, id)
	if err != nil {
		return err
	}
	if !s.IsActive {
		return apperrors.InvalidState("voting session is not active")
	}
	if !s.VotesRevealed {
		return nil
	}

	next := s.Clone()
	next.VotesRevealed = false
	next.Phase = models.SessionPhaseVoting
	next.UpdatedAt = c.clock.Now()
	if err := c.sessions.UpdateSession(ctx, next); err != nil {
		return fmt.Errorf("failed to persist hide: %w", err)
	}
	if err := c.registry.UpdateStoryStatus(ctx, s.StoryID, models.StoryStatusVoting); err != nil {
		log.Error().Err(err).Str("story_id", s.StoryID.String()).Msg("failed to mark story as voting")
	}

	c.notify(ctx, s.RoomCode, events.EventTypeVotesRevealed, events.VotesRevealedPayload{
		SessionID: s.ID.String(),
		StoryID:   s.StoryID.String(),
		Round:     s.Round,
		Revealed:  false,
	})
	log.Info().Str("session_id", s.ID.String()).Int("round", s.Round).Msg("votes hidden")
	return nil
}

// StartNewRound advances the round and discards the previous round's votes.
func (c *Coordinator) StartNewRound(ctx context.Context, p auth.Principal, ref SessionRef) (*models.VotingSession, error) {
	if err := c.authz.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	id, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	s, err := c.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !s.IsActive {
		return nil, apperrors.InvalidState("voting session is not active")
	}

	now := c.clock.Now()
	next := s.Clone()
	next.Round = s.Round + 1
	next.Phase = models.SessionPhaseVoting
	next.VotesRevealed = false
	next.Consensus = nil
	next.Rounds = append(next.Rounds, models.RoundSummary{Round: next.Round, StartedAt: now})
	next.UpdatedAt = now
	if next.TimerSeconds > 0 {
		next.Timer = StartTimer(now, time.Duration(next.TimerSeconds)*time.Second)
	} else {
		next.Timer = StopTimer()
	}

	if err := c.sessions.UpdateSession(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist new round: %w", err)
	}
	c.ledger.Clear(s.ID)
	if TimerRunning(next.Timer) {
		c.deadlines.Schedule(s.ID, *next.Timer.EndsAt)
	} else {
		c.deadlines.Cancel(s.ID)
	}
	if err := c.resetVoted(ctx, s.RoomCode); err != nil {
		log.Error().Err(err).Str("room_code", s.RoomCode).Msg("failed to reset voted flags")
	}
	if err := c.registry.UpdateStoryStatus(ctx, s.StoryID, models.StoryStatusVoting); err != nil {
		log.Error().Err(err).Str("story_id", s.StoryID.String()).Msg("failed to mark story as voting")
	}

	c.notify(ctx, s.RoomCode, events.EventTypeVotingReset, events.VotingResetPayload{
		SessionID: s.ID.String(),
		StoryID:   s.StoryID.String(),
		Round:     next.Round,
	})
	log.Info().Str("session_id", s.ID.String()).Int("round", next.Round).Msg("new voting round started")
	return next.Clone(), nil
}

// FinalizeResult describes a completed session.
type FinalizeResult struct {
	Session       *models.VotingSession `json:"session"`
	FinalEstimate models.FinalEstimate  `json:"final_estimate"`
	VoteCount     int                   `json:"vote_count"`
}

// Finalize stores the round's votes durably, records the story's final
// estimate and completes the session.
func (c *Coordinator) Finalize(ctx context.Context, p auth.Principal, req FinalizeRequest) (*FinalizeResult, error) {
	if err := c.authz.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	estimate := strings.TrimSpace(req.Estimate)
	if estimate == "" {
		return nil, apperrors.InvalidArgument("final_estimate is required")
	}
	if req.Confidence != nil && (*req.Confidence < 0 || *req.Confidence > 1) {
		return nil, apperrors.InvalidArgument("confidence must be between 0 and 1")
	}
	id, err := c.resolve(ctx, req.SessionRef)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	s, err := c.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if s.Phase == models.SessionPhaseCompleted {
		return nil, apperrors.InvalidState("voting session is already completed")
	}
	if !s.IsActive {
		return nil, apperrors.InvalidState("voting session is not active")
	}

	now := c.clock.Now()
	votes := c.ledger.Votes(s.ID, s.Round)
	result := Calculate(votes, s.ConsensusThreshold)

	records := make([]models.VoteRecord, 0, len(votes))
	for _, v := range votes {
		records = append(records, models.VoteRecord{
			ID:             uuid.New(),
			SessionID:      s.ID,
			StoryID:        s.StoryID,
			UserID:         v.UserID,
			Round:          s.Round,
			Value:          v.Value,
			Confidence:     v.Confidence,
			IsRevealedVote: true,
			SubmittedAt:    v.SubmittedAt,
			CreatedAt:      now,
		})
	}

	next := s.Clone()
	next.Phase = models.SessionPhaseCompleted
	next.IsActive = false
	next.VotesRevealed = true
	next.Consensus = result
	next.Timer = StopTimer()
	next.CompletedAt = &now
	next.UpdatedAt = now
	if rs := next.CurrentRound(); rs != nil {
		rs.VoteCount = len(votes)
		rs.ConsensusAchieved = result != nil && result.Achieved
		if rs.RevealedAt == nil {
			rs.RevealedAt = &now
		}
	}

	if err := c.sessions.FinalizeSession(ctx, next, records); err != nil {
		return nil, fmt.Errorf("failed to persist finalized session: %w", err)
	}

	final := models.FinalEstimate{
		Value:       estimate,
		Confidence:  req.Confidence,
		FinalizedBy: p.UserID,
		FinalizedAt: now,
	}
	if final.Confidence == nil && result != nil {
		conf := result.Confidence
		final.Confidence = &conf
	}
	if err := c.registry.SetFinalEstimate(ctx, s.StoryID, final); err != nil {
		log.Error().Err(err).Str("story_id", s.StoryID.String()).Msg("failed to save final estimate on story")
	}
	c.ledger.Clear(s.ID)
	c.deadlines.Cancel(s.ID)
	if err := c.resetVoted(ctx, s.RoomCode); err != nil {
		log.Error().Err(err).Str("room_code", s.RoomCode).Msg("failed to reset voted flags")
	}

	c.notify(ctx, s.RoomCode, events.EventTypeFinalEstimateSaved, events.FinalEstimateSavedPayload{
		SessionID:     s.ID.String(),
		StoryID:       s.StoryID.String(),
		FinalEstimate: final,
		VoteCount:     len(records),
		Consensus:     result,
	})
	log.Info().
		Str("session_id", s.ID.String()).
		Str("story_id", s.StoryID.String()).
		Str("estimate", estimate).
		Int("vote_count", len(records)).
		Msg("voting session finalized")

	return &FinalizeResult{Session: next.Clone(), FinalEstimate: final, VoteCount: len(records)}, nil
}

// End deactivates a session without an estimate and returns its story to
// the backlog.
func (c *Coordinator) End(ctx context.Context, p auth.Principal, ref SessionRef) error {
	if err := c.authz.RequireAdmin(ctx, p); err != nil {
		return err
	}
	id, err := c.resolve(ctx, ref)
	if err != nil {
		return err
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	s, err := c.load(ctx, p, id)
	if err != nil {
		return err
	}
	if !s.IsActive {
		return apperrors.InvalidState("voting session is not active")
	}

	now := c.clock.Now()
	next := s.Clone()
	next.IsActive = false
	next.Timer = StopTimer()
	next.CompletedAt = &now
	next.UpdatedAt = now
	if err := c.sessions.UpdateSession(ctx, next); err != nil {
		return fmt.Errorf("failed to persist ended session: %w", err)
	}

	c.ledger.Clear(s.ID)
	c.deadlines.Cancel(s.ID)
	if err := c.registry.UpdateStoryStatus(ctx, s.StoryID, models.StoryStatusBacklog); err != nil {
		log.Error().Err(err).Str("story_id", s.StoryID.String()).Msg("failed to return story to backlog")
	}
	if err := c.resetVoted(ctx, s.RoomCode); err != nil {
		log.Error().Err(err).Str("room_code", s.RoomCode).Msg("failed to reset voted flags")
	}

	c.notify(ctx, s.RoomCode, events.EventTypeVotingSessionEnded, events.VotingSessionEndedPayload{
		SessionID: s.ID.String(),
		StoryID:   s.StoryID.String(),
	})
	log.Info().Str("session_id", s.ID.String()).Msg("voting session ended")
	return nil
}

// ActiveSessions returns the room's active sessions as members see them.
func (c *Coordinator) ActiveSessions(ctx context.Context, roomCode string) ([]SessionView, error) {
	sessions, err := c.sessions.ListActiveSessionsForRoom(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, c.view(s))
	}
	return views, nil
}

// FinalizedVotes returns the durable votes of a session in p's room.
func (c *Coordinator) FinalizedVotes(ctx context.Context, p auth.Principal, sessionID uuid.UUID) ([]models.VoteRecord, error) {
	if _, err := c.load(ctx, p, sessionID); err != nil {
		return nil, err
	}
	return c.sessions.ListVotes(ctx, sessionID)
}

func (c *Coordinator) view(s *models.VotingSession) SessionView {
	votes := c.ledger.Votes(s.ID, s.Round)
	v := SessionView{
		Session:   s,
		VoteCount: len(votes),
		Voters:    make([]uuid.UUID, 0, len(votes)),
	}
	for _, vote := range votes {
		v.Voters = append(v.Voters, vote.UserID)
	}
	if s.VotesRevealed {
		v.Votes = revealedVotes(votes)
	}
	if s.Timer.EndsAt != nil {
		secs := int(Remaining(s.Timer, c.clock.Now()).Round(time.Second) / time.Second)
		v.RemainingSec = &secs
	}
	return v
}

// ForgetRoom drops the in-memory state of every session seen in roomCode.
// It is called after the room has been purged.
func (c *Coordinator) ForgetRoom(roomCode string) {
	c.roomsMu.Lock()
	ids := c.roomSessions[roomCode]
	delete(c.roomSessions, roomCode)
	c.roomsMu.Unlock()

	for id := range ids {
		c.ledger.Clear(id)
		c.deadlines.Cancel(id)
	}
	log.Debug().Str("room_code", roomCode).Int("sessions", len(ids)).Msg("forgot room sessions")
}

// resetVoted clears the voted flags of roomCode, then restores them for
// participants still holding a vote in another open session of the room.
func (c *Coordinator) resetVoted(ctx context.Context, roomCode string) error {
	if err := c.registry.ResetVoted(ctx, roomCode); err != nil {
		return err
	}
	for _, id := range c.roomSessionIDs(roomCode) {
		for _, userID := range c.ledger.Voters(id) {
			if err := c.registry.MarkVoted(ctx, roomCode, userID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Coordinator) roomSessionIDs(roomCode string) []uuid.UUID {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	ids := make([]uuid.UUID, 0, len(c.roomSessions[roomCode]))
	for id := range c.roomSessions[roomCode] {
		ids = append(ids, id)
	}
	return ids
}

func (c *Coordinator) trackSession(roomCode string, id uuid.UUID) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	set, ok := c.roomSessions[roomCode]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		c.roomSessions[roomCode] = set
	}
	set[id] = struct{}{}
}

func (c *Coordinator) resolve(ctx context.Context, ref SessionRef) (uuid.UUID, error) {
	if ref.SessionID != uuid.Nil {
		return ref.SessionID, nil
	}
	if ref.StoryID == uuid.Nil {
		return uuid.Nil, apperrors.InvalidArgument("session_id or story_id is required")
	}
	s, err := c.sessions.GetActiveSessionForStory(ctx, ref.StoryID)
	if err != nil {
		return uuid.Nil, err
	}
	return s.ID, nil
}

// load reads the durable session and hides sessions of other rooms.
func (c *Coordinator) load(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.VotingSession, error) {
	s, err := c.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.RoomCode != p.RoomCode {
		return nil, apperrors.NotFound("voting session not found")
	}
	c.trackSession(s.RoomCode, s.ID)
	return s, nil
}

func (c *Coordinator) notify(ctx context.Context, roomCode string, eventType events.EventType, payload any) {
	ev, err := events.New(roomCode, eventType, payload, c.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	if err := c.notifier.Notify(ctx, ev); err != nil {
		log.Error().
			Err(err).
			Str("event_type", string(eventType)).
			Str("room_code", roomCode).
			Msg("failed to notify room")
	}
}

func revealedVotes(votes []models.Vote) []events.RevealedVote {
	out := make([]events.RevealedVote, 0, len(votes))
	for _, v := range votes {
		out = append(out, events.RevealedVote{
			UserID:      v.UserID.String(),
			Value:       v.Value,
			Confidence:  v.Confidence,
			SubmittedAt: v.SubmittedAt,
		})
	}
	return out
}
