package rooms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/rooms/db"
	"github.com/mcdev12/planpoker/go/internal/sqlutil"
)

// PostgresRepository implements Repository over the sqlc rooms queries
type PostgresRepository struct {
	db      *sql.DB
	queries *db.Queries
}

// NewPostgresRepository creates a new rooms repository
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      conn,
		queries: db.New(conn),
	}
}

func (r *PostgresRepository) CreateRoom(ctx context.Context, room *models.Room) error {
	settings, err := sqlutil.ToJSON(room.Settings)
	if err != nil {
		return err
	}
	return sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		err := q.CreateRoom(ctx, db.CreateRoomParams{
			Code:           room.Code,
			HostID:         room.HostID,
			Settings:       settings,
			CreatedAt:      room.CreatedAt,
			LastActivityAt: room.LastActivityAt,
		})
		if sqlutil.IsUniqueViolation(err) {
			return apperrors.Conflict("room code already in use")
		}
		if err != nil {
			return fmt.Errorf("failed to insert room: %w", err)
		}
		for _, p := range room.Participants {
			if err := q.InsertParticipant(ctx, participantParams(p)); err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresRepository) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	row, err := r.queries.GetRoom(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("room not found")
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	participants, err := r.queries.ListParticipants(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	room := &models.Room{
		Code:           row.Code,
		HostID:         row.HostID,
		CreatedAt:      row.CreatedAt,
		LastActivityAt: row.LastActivityAt,
		Participants:   make([]*models.Participant, 0, len(participants)),
	}
	if err := json.Unmarshal(row.Settings, &room.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room settings: %w", err)
	}
	for _, p := range participants {
		room.Participants = append(room.Participants, dbParticipantToModel(p))
	}
	return room, nil
}

func (r *PostgresRepository) TouchRoom(ctx context.Context, code string, at time.Time) error {
	n, err := r.queries.TouchRoom(ctx, db.TouchRoomParams{TouchedAt: at, Code: code})
	if err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("room not found")
	}
	return nil
}

func (r *PostgresRepository) DeleteRoomsInactiveSince(ctx context.Context, before time.Time) ([]string, error) {
	codes, err := r.queries.DeleteRoomsInactiveSince(ctx, before)
	if err != nil {
		return nil, fmt.Errorf("failed to delete inactive rooms: %w", err)
	}
	return codes, nil
}

// AddParticipant locks the room row so concurrent joins cannot overfill it.
func (r *PostgresRepository) AddParticipant(ctx context.Context, p *models.Participant, max int) error {
	return sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		if _, err := q.LockRoom(ctx, p.RoomCode); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("room not found")
			}
			return fmt.Errorf("failed to lock room: %w", err)
		}
		count, err := q.CountParticipants(ctx, p.RoomCode)
		if err != nil {
			return fmt.Errorf("failed to count participants: %w", err)
		}
		if count >= int64(max) {
			return apperrors.Conflict("room is full")
		}
		err = q.InsertParticipant(ctx, participantParams(p))
		if sqlutil.IsUniqueViolation(err) {
			return apperrors.Conflict("participant already in room")
		}
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepository) GetParticipant(ctx context.Context, code string, userID uuid.UUID) (*models.Participant, error) {
	row, err := r.queries.GetParticipant(ctx, db.GetParticipantParams{RoomCode: code, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("participant not found")
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return dbParticipantToModel(row), nil
}

func (r *PostgresRepository) UpdatePresence(ctx context.Context, code string, userID uuid.UUID, online bool, at time.Time) error {
	n, err := r.queries.UpdatePresence(ctx, db.UpdatePresenceParams{
		RoomCode:       code,
		UserID:         userID,
		Online:         online,
		LastActivityAt: at,
	})
	return participantAffected(n, err, "update presence")
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, code string, userID uuid.UUID, role models.Role) error {
	n, err := r.queries.UpdateRole(ctx, db.UpdateRoleParams{RoomCode: code, UserID: userID, Role: string(role)})
	return participantAffected(n, err, "update role")
}

func (r *PostgresRepository) SetHasVoted(ctx context.Context, code string, userID uuid.UUID, voted bool) error {
	n, err := r.queries.SetHasVoted(ctx, db.SetHasVotedParams{RoomCode: code, UserID: userID, HasVoted: voted})
	return participantAffected(n, err, "set voted flag")
}

func (r *PostgresRepository) ResetHasVoted(ctx context.Context, code string) error {
	if err := r.queries.ResetHasVoted(ctx, code); err != nil {
		return fmt.Errorf("failed to reset voted flags: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveParticipant(ctx context.Context, code string, userID uuid.UUID) error {
	n, err := r.queries.RemoveParticipant(ctx, db.RemoveParticipantParams{RoomCode: code, UserID: userID})
	return participantAffected(n, err, "remove participant")
}

func (r *PostgresRepository) CreateStory(ctx context.Context, s *models.Story) error {
	err := r.queries.CreateStory(ctx, db.CreateStoryParams{
		ID:          s.ID,
		RoomCode:    s.RoomCode,
		Title:       s.Title,
		Description: sqlutil.ToSqlString(s.Description),
		Status:      string(s.Status),
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetStory(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	row, err := r.queries.GetStory(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("story not found")
		}
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	return dbStoryToModel(row)
}

func (r *PostgresRepository) ListStories(ctx context.Context, code string) ([]*models.Story, error) {
	rows, err := r.queries.ListStories(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	stories := make([]*models.Story, 0, len(rows))
	for _, row := range rows {
		s, err := dbStoryToModel(row)
		if err != nil {
			return nil, err
		}
		stories = append(stories, s)
	}
	return stories, nil
}

func (r *PostgresRepository) UpdateStoryStatus(ctx context.Context, id uuid.UUID, status models.StoryStatus, at time.Time) error {
	n, err := r.queries.UpdateStoryStatus(ctx, db.UpdateStoryStatusParams{ID: id, Status: string(status), UpdatedAt: at})
	if err != nil {
		return fmt.Errorf("failed to update story status: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("story not found")
	}
	return nil
}

func (r *PostgresRepository) SetFinalEstimate(ctx context.Context, id uuid.UUID, estimate models.FinalEstimate, status models.StoryStatus, at time.Time) error {
	raw, err := sqlutil.ToNullRawMessage(&estimate)
	if err != nil {
		return err
	}
	n, err := r.queries.SetFinalEstimate(ctx, db.SetFinalEstimateParams{
		ID:            id,
		FinalEstimate: raw,
		Status:        string(status),
		UpdatedAt:     at,
	})
	if err != nil {
		return fmt.Errorf("failed to save final estimate: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("story not found")
	}
	return nil
}

func participantAffected(n int64, err error, op string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return apperrors.NotFound("participant not found")
	}
	return nil
}

func participantParams(p *models.Participant) db.InsertParticipantParams {
	return db.InsertParticipantParams{
		RoomCode:       p.RoomCode,
		UserID:         p.UserID,
		DisplayName:    p.DisplayName,
		Role:           string(p.Role),
		Online:         p.Online,
		HasVoted:       p.HasVoted,
		JoinedAt:       p.JoinedAt,
		LastActivityAt: p.LastActivityAt,
	}
}

func dbParticipantToModel(p db.Participant) *models.Participant {
	return &models.Participant{
		UserID:         p.UserID,
		RoomCode:       p.RoomCode,
		DisplayName:    p.DisplayName,
		Role:           models.Role(p.Role),
		Online:         p.Online,
		HasVoted:       p.HasVoted,
		JoinedAt:       p.JoinedAt,
		LastActivityAt: p.LastActivityAt,
	}
}

func dbStoryToModel(s db.Story) (*models.Story, error) {
	estimate, err := sqlutil.FromNullRawMessage[models.FinalEstimate](s.FinalEstimate)
	if err != nil {
		return nil, err
	}
	return &models.Story{
		ID:            s.ID,
		RoomCode:      s.RoomCode,
		Title:         s.Title,
		Description:   sqlutil.FromSqlStringPtr(s.Description),
		Status:        models.StoryStatus(s.Status),
		FinalEstimate: estimate,
		CreatedBy:     s.CreatedBy,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}, nil
}
