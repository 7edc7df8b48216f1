package rooms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/models"
)

const maxDisplayNameLength = 40

// Repository defines what the rooms app layer needs from storage
type Repository interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, code string) (*models.Room, error)
	TouchRoom(ctx context.Context, code string, at time.Time) error
	DeleteRoomsInactiveSince(ctx context.Context, before time.Time) ([]string, error)

	// AddParticipant inserts p unless the roster already holds max members.
	AddParticipant(ctx context.Context, p *models.Participant, max int) error
	GetParticipant(ctx context.Context, code string, userID uuid.UUID) (*models.Participant, error)
	UpdatePresence(ctx context.Context, code string, userID uuid.UUID, online bool, at time.Time) error
	UpdateRole(ctx context.Context, code string, userID uuid.UUID, role models.Role) error
	SetHasVoted(ctx context.Context, code string, userID uuid.UUID, voted bool) error
	ResetHasVoted(ctx context.Context, code string) error
	RemoveParticipant(ctx context.Context, code string, userID uuid.UUID) error

	CreateStory(ctx context.Context, s *models.Story) error
	GetStory(ctx context.Context, id uuid.UUID) (*models.Story, error)
	ListStories(ctx context.Context, code string) ([]*models.Story, error)
	UpdateStoryStatus(ctx context.Context, id uuid.UUID, status models.StoryStatus, at time.Time) error
	SetFinalEstimate(ctx context.Context, id uuid.UUID, estimate models.FinalEstimate, status models.StoryStatus, at time.Time) error
}

// App handles room, roster and story business logic
type App struct {
	repo      Repository
	decks     models.DeckCatalog
	clock     clockwork.Clock
	retention time.Duration
	newCode   func() (string, error)

	defaultThreshold float64
}

// NewApp creates a new rooms App
func NewApp(repo Repository, decks models.DeckCatalog, clock clockwork.Clock, retention time.Duration) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if decks == nil {
		decks = models.BuiltinDecks()
	}
	if retention <= 0 {
		retention = models.DefaultRoomRetention
	}
	return &App{
		repo:      repo,
		decks:     decks,
		clock:     clock,
		retention: retention,
		newCode:   GenerateCode,

		defaultThreshold: models.DefaultConsensusThreshold,
	}
}

// WithDefaultThreshold sets the consensus threshold given to rooms created
// without one.
func (a *App) WithDefaultThreshold(threshold float64) *App {
	if threshold > 0 && threshold <= 100 {
		a.defaultThreshold = threshold
	}
	return a
}

// CreateRoom opens a room and seats its host.
func (a *App) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, *models.Participant, error) {
	name, err := validateDisplayName(req.HostName)
	if err != nil {
		return nil, nil, err
	}
	var settings models.RoomSettings
	if req.Settings != nil {
		settings = *req.Settings
	}
	settings, err = a.normalizeSettings(settings)
	if err != nil {
		return nil, nil, err
	}

	now := a.clock.Now()
	host := &models.Participant{
		UserID:         uuid.New(),
		DisplayName:    name,
		Role:           models.RoleHost,
		JoinedAt:       now,
		LastActivityAt: now,
	}

	// Codes are random; retry the rare collision.
	for attempt := 0; attempt < 5; attempt++ {
		code, err := a.newCode()
		if err != nil {
			return nil, nil, err
		}
		host.RoomCode = code
		room := &models.Room{
			Code:           code,
			HostID:         host.UserID,
			Settings:       settings,
			Participants:   []*models.Participant{host},
			CreatedAt:      now,
			LastActivityAt: now,
		}
		err = a.repo.CreateRoom(ctx, room)
		if errors.Is(err, apperrors.ErrConflict) {
			log.Debug().Str("room_code", code).Msg("room code collision, retrying")
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create room: %w", err)
		}

		log.Info().
			Str("room_code", code).
			Str("host_id", host.UserID.String()).
			Str("deck", string(settings.DeckType)).
			Msg("room created")
		return room, host, nil
	}
	return nil, nil, apperrors.Conflict("could not allocate a room code")
}

// JoinRoom seats a participant, or brings a returning one back online when
// req.UserID is already on the roster.
func (a *App) JoinRoom(ctx context.Context, req JoinRoomRequest) (*models.Room, *models.Participant, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if !models.ValidRoomCode(code) {
		return nil, nil, apperrors.InvalidArgument("room code must be 6 uppercase letters or digits")
	}
	room, err := a.GetRoom(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	now := a.clock.Now()

	if req.UserID != uuid.Nil {
		if existing := room.Participant(req.UserID); existing != nil {
			if err := a.repo.UpdatePresence(ctx, code, existing.UserID, true, now); err != nil {
				return nil, nil, fmt.Errorf("failed to update presence: %w", err)
			}
			existing.Online = true
			existing.LastActivityAt = now
			a.touch(ctx, code, now)
			log.Info().Str("room_code", code).Str("user_id", existing.UserID.String()).Msg("participant rejoined")
			return room, existing, nil
		}
	}

	name, err := validateDisplayName(req.DisplayName)
	if err != nil {
		return nil, nil, err
	}
	p := &models.Participant{
		UserID:         uuid.New(),
		RoomCode:       code,
		DisplayName:    name,
		Role:           models.RoleParticipant,
		Online:         true,
		JoinedAt:       now,
		LastActivityAt: now,
	}
	if req.UserID != uuid.Nil {
		p.UserID = req.UserID
	}
	if err := a.repo.AddParticipant(ctx, p, models.MaxParticipants); err != nil {
		return nil, nil, err
	}
	room.Participants = append(room.Participants, p)
	a.touch(ctx, code, now)

	log.Info().
		Str("room_code", code).
		Str("user_id", p.UserID.String()).
		Int("participants", len(room.Participants)).
		Msg("participant joined")
	return room, p, nil
}

// GetRoom returns a live room. Rooms past their retention window report
// Expired until the janitor purges them.
func (a *App) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	room, err := a.repo.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if a.clock.Now().After(room.ExpiresAt(a.retention)) {
		return nil, apperrors.Expired("room has expired")
	}
	return room, nil
}

func (a *App) GetParticipant(ctx context.Context, code string, userID uuid.UUID) (*models.Participant, error) {
	return a.repo.GetParticipant(ctx, code, userID)
}

// SetPresence marks a participant online or offline. The online count
// drives auto-reveal.
func (a *App) SetPresence(ctx context.Context, code string, userID uuid.UUID, online bool) error {
	now := a.clock.Now()
	if err := a.repo.UpdatePresence(ctx, code, userID, online, now); err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	a.touch(ctx, code, now)
	return nil
}

// LeaveRoom removes a participant from the roster. The host stays seated
// and only goes offline, so the room keeps an administrator.
func (a *App) LeaveRoom(ctx context.Context, code string, userID uuid.UUID) (removed bool, err error) {
	p, err := a.repo.GetParticipant(ctx, code, userID)
	if err != nil {
		return false, err
	}
	if p.Role == models.RoleHost {
		return false, a.SetPresence(ctx, code, userID, false)
	}
	if err := a.repo.RemoveParticipant(ctx, code, userID); err != nil {
		return false, fmt.Errorf("failed to remove participant: %w", err)
	}
	a.touch(ctx, code, a.clock.Now())
	log.Info().Str("room_code", code).Str("user_id", userID.String()).Msg("participant left")
	return true, nil
}

// ChangeRole lets the host promote or demote other members.
func (a *App) ChangeRole(ctx context.Context, code string, actorID, targetID uuid.UUID, role models.Role) (*models.Participant, error) {
	actor, err := a.repo.GetParticipant(ctx, code, actorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("not a member of this room")
		}
		return nil, err
	}
	if actor.Role != models.RoleHost {
		return nil, apperrors.Unauthorized("only the host can change roles")
	}
	if role != models.RoleFacilitator && role != models.RoleParticipant {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("role %q cannot be assigned", role))
	}
	target, err := a.repo.GetParticipant(ctx, code, targetID)
	if err != nil {
		return nil, err
	}
	if target.Role == models.RoleHost {
		return nil, apperrors.InvalidState("the host role cannot be changed")
	}
	if err := a.repo.UpdateRole(ctx, code, targetID, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	target.Role = role
	a.touch(ctx, code, a.clock.Now())

	log.Info().
		Str("room_code", code).
		Str("user_id", targetID.String()).
		Str("role", string(role)).
		Msg("participant role changed")
	return target, nil
}

// Touch refreshes the room's inactivity window.
func (a *App) Touch(ctx context.Context, code string) {
	a.touch(ctx, code, a.clock.Now())
}

func (a *App) touch(ctx context.Context, code string, at time.Time) {
	if err := a.repo.TouchRoom(ctx, code, at); err != nil {
		log.Warn().Err(err).Str("room_code", code).Msg("failed to refresh room activity")
	}
}

// PurgeExpired deletes rooms idle for longer than the retention window
// and returns their codes.
func (a *App) PurgeExpired(ctx context.Context) ([]string, error) {
	before := a.clock.Now().Add(-a.retention)
	codes, err := a.repo.DeleteRoomsInactiveSince(ctx, before)
	if err != nil {
		return nil, fmt.Errorf("failed to purge expired rooms: %w", err)
	}
	if len(codes) > 0 {
		log.Info().Strs("room_codes", codes).Msg("purged expired rooms")
	}
	return codes, nil
}

// CreateStory adds a backlog item. Only room administrators may do so.
func (a *App) CreateStory(ctx context.Context, code string, actorID uuid.UUID, req CreateStoryRequest) (*models.Story, error) {
	if err := a.requireAdmin(ctx, code, actorID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.InvalidArgument("title is required")
	}
	if len(title) > 200 {
		return nil, apperrors.InvalidArgument("title must be at most 200 characters")
	}
	var description *string
	if req.Description != nil {
		if d := strings.TrimSpace(*req.Description); d != "" {
			description = &d
		}
	}

	now := a.clock.Now()
	story := &models.Story{
		ID:          uuid.New(),
		RoomCode:    code,
		Title:       title,
		Description: description,
		Status:      models.StoryStatusBacklog,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.repo.CreateStory(ctx, story); err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}
	a.touch(ctx, code, now)
	log.Info().Str("room_code", code).Str("story_id", story.ID.String()).Msg("story created")
	return story, nil
}

// ArchiveStory retires a backlog item that is not being voted on.
func (a *App) ArchiveStory(ctx context.Context, code string, actorID, storyID uuid.UUID) error {
	if err := a.requireAdmin(ctx, code, actorID); err != nil {
		return err
	}
	story, err := a.repo.GetStory(ctx, storyID)
	if err != nil {
		return err
	}
	if story.RoomCode != code {
		return apperrors.NotFound("story not found")
	}
	if story.Status == models.StoryStatusVoting {
		return apperrors.InvalidState("end the voting session before archiving")
	}
	return a.UpdateStoryStatus(ctx, storyID, models.StoryStatusArchived)
}

func (a *App) GetStory(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	return a.repo.GetStory(ctx, id)
}

func (a *App) ListStories(ctx context.Context, code string) ([]*models.Story, error) {
	stories, err := a.repo.ListStories(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return stories, nil
}

func (a *App) UpdateStoryStatus(ctx context.Context, id uuid.UUID, status models.StoryStatus) error {
	if !status.Valid() {
		return apperrors.InvalidArgument(fmt.Sprintf("unknown story status %q", status))
	}
	return a.repo.UpdateStoryStatus(ctx, id, status, a.clock.Now())
}

// SetFinalEstimate records the agreed estimate and marks the story estimated.
func (a *App) SetFinalEstimate(ctx context.Context, id uuid.UUID, estimate models.FinalEstimate) error {
	return a.repo.SetFinalEstimate(ctx, id, estimate, models.StoryStatusEstimated, a.clock.Now())
}

func (a *App) MarkVoted(ctx context.Context, code string, userID uuid.UUID) error {
	return a.repo.SetHasVoted(ctx, code, userID, true)
}

func (a *App) ResetVoted(ctx context.Context, code string) error {
	return a.repo.ResetHasVoted(ctx, code)
}

// Decks exposes the deck catalog rooms may choose from.
func (a *App) Decks() models.DeckCatalog {
	return a.decks
}

func (a *App) requireAdmin(ctx context.Context, code string, userID uuid.UUID) error {
	p, err := a.repo.GetParticipant(ctx, code, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Unauthorized("not a member of this room")
		}
		return err
	}
	if !p.Role.IsAdmin() {
		return apperrors.Unauthorized("only the host or a facilitator can do that")
	}
	return nil
}

func (a *App) normalizeSettings(s models.RoomSettings) (models.RoomSettings, error) {
	if s.DeckType == "" {
		s.DeckType = models.DeckFibonacci
	}
	if _, ok := a.decks.Lookup(s.DeckType); !ok {
		return s, apperrors.InvalidArgument(fmt.Sprintf("unknown deck type %q", s.DeckType))
	}
	if s.RevealPolicy == "" {
		s.RevealPolicy = models.RevealPolicyAllVoted
	}
	if !s.RevealPolicy.Valid() {
		return s, apperrors.InvalidArgument(fmt.Sprintf("unknown reveal policy %q", s.RevealPolicy))
	}
	if s.TimerSeconds < 0 {
		return s, apperrors.InvalidArgument("timer_seconds cannot be negative")
	}
	if s.TimerSeconds > models.MaxTimerSeconds {
		return s, apperrors.InvalidArgument(fmt.Sprintf("timer_seconds cannot exceed %d", models.MaxTimerSeconds))
	}
	if s.ConsensusThreshold == 0 {
		s.ConsensusThreshold = a.defaultThreshold
	}
	if s.ConsensusThreshold < 0 || s.ConsensusThreshold > 100 {
		return s, apperrors.InvalidArgument("consensus_threshold must be between 0 and 100")
	}
	return s, nil
}

func validateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.InvalidArgument("display name is required")
	}
	if len([]rune(name)) > maxDisplayNameLength {
		return "", apperrors.InvalidArgument(fmt.Sprintf("display name must be at most %d characters", maxDisplayNameLength))
	}
	return name, nil
}
