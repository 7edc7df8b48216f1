package voting

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/sqlutil"
	"github.com/mcdev12/planpoker/go/internal/voting/db"
)

const activeSessionIndex = "uq_voting_sessions_active_story"

// Repository implements SessionRepository over the sqlc voting queries
type Repository struct {
	db      *sql.DB
	queries *db.Queries
}

// NewRepository creates a new voting session repository
func NewRepository(conn *sql.DB) *Repository {
	return &Repository{
		db:      conn,
		queries: db.New(conn),
	}
}

// CreateSession deactivates the story's active session and inserts s in
// one transaction. A concurrent insert that wins the partial unique index
// surfaces as Conflict.
func (r *Repository) CreateSession(ctx context.Context, s *models.VotingSession) ([]uuid.UUID, error) {
	params, err := insertParams(s)
	if err != nil {
		return nil, err
	}

	var superseded []uuid.UUID
	err = sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		ids, err := q.DeactivateActiveSessionsForStory(ctx, db.DeactivateActiveSessionsForStoryParams{
			EndedAt: s.CreatedAt,
			StoryID: s.StoryID,
		})
		if err != nil {
			return fmt.Errorf("failed to deactivate active sessions: %w", err)
		}
		if err := q.InsertSession(ctx, params); err != nil {
			if sqlutil.IsUniqueViolation(err, activeSessionIndex) {
				return apperrors.Conflict("another session became active for this story")
			}
			return fmt.Errorf("failed to insert session: %w", err)
		}
		superseded = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return superseded, nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.VotingSession, error) {
	row, err := r.queries.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("voting session not found")
		}
		return nil, fmt.Errorf("failed to get voting session: %w", err)
	}
	return dbSessionToModel(row)
}

func (r *Repository) GetActiveSessionForStory(ctx context.Context, storyID uuid.UUID) (*models.VotingSession, error) {
	row, err := r.queries.GetActiveSessionForStory(ctx, storyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("no active voting session for story")
		}
		return nil, fmt.Errorf("failed to get active voting session: %w", err)
	}
	return dbSessionToModel(row)
}

func (r *Repository) ListActiveSessions(ctx context.Context) ([]*models.VotingSession, error) {
	rows, err := r.queries.ListActiveSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return dbSessionsToModels(rows)
}

func (r *Repository) ListActiveSessionsForRoom(ctx context.Context, roomCode string) ([]*models.VotingSession, error) {
	rows, err := r.queries.ListActiveSessionsForRoom(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions for room: %w", err)
	}
	return dbSessionsToModels(rows)
}

func (r *Repository) UpdateSession(ctx context.Context, s *models.VotingSession) error {
	return update(ctx, r.queries, s)
}

// FinalizeSession writes the completed session and its votes together.
func (r *Repository) FinalizeSession(ctx context.Context, s *models.VotingSession, votes []models.VoteRecord) error {
	return sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		if err := update(ctx, q, s); err != nil {
			return err
		}
		for _, v := range votes {
			err := q.InsertVote(ctx, db.InsertVoteParams{
				ID:             v.ID,
				SessionID:      v.SessionID,
				StoryID:        v.StoryID,
				UserID:         v.UserID,
				Round:          int32(v.Round),
				Value:          v.Value,
				Confidence:     sqlutil.ToSqlFloat64(v.Confidence),
				IsRevealedVote: v.IsRevealedVote,
				SubmittedAt:    v.SubmittedAt,
				CreatedAt:      v.CreatedAt,
			})
			if sqlutil.IsUniqueViolation(err) {
				return apperrors.Conflict("vote already recorded for this round")
			}
			if err != nil {
				return fmt.Errorf("failed to insert vote: %w", err)
			}
		}
		log.Debug().
			Str("session_id", s.ID.String()).
			Int("votes", len(votes)).
			Msg("finalized session persisted")
		return nil
	})
}

func (r *Repository) ListVotes(ctx context.Context, sessionID uuid.UUID) ([]models.VoteRecord, error) {
	rows, err := r.queries.ListVotes(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	out := make([]models.VoteRecord, 0, len(rows))
	for _, v := range rows {
		out = append(out, models.VoteRecord{
			ID:             v.ID,
			SessionID:      v.SessionID,
			StoryID:        v.StoryID,
			UserID:         v.UserID,
			Round:          int(v.Round),
			Value:          v.Value,
			Confidence:     sqlutil.FromSqlFloat64(v.Confidence),
			IsRevealedVote: v.IsRevealedVote,
			SubmittedAt:    v.SubmittedAt,
			CreatedAt:      v.CreatedAt,
		})
	}
	return out, nil
}

func update(ctx context.Context, q *db.Queries, s *models.VotingSession) error {
	if err := checkTimerSeconds(s); err != nil {
		return err
	}
	timer, err := sqlutil.ToJSON(s.Timer)
	if err != nil {
		return err
	}
	rounds, err := sqlutil.ToJSON(s.Rounds)
	if err != nil {
		return err
	}
	consensus, err := sqlutil.ToNullRawMessage(s.Consensus)
	if err != nil {
		return err
	}
	n, err := q.UpdateSession(ctx, db.UpdateSessionParams{
		ID:            s.ID,
		Phase:         string(s.Phase),
		Round:         int32(s.Round),
		IsActive:      s.IsActive,
		VotesRevealed: s.VotesRevealed,
		TimerSeconds:  int32(s.TimerSeconds),
		Timer:         timer,
		Consensus:     consensus,
		Rounds:        rounds,
		UpdatedAt:     s.UpdatedAt,
		CompletedAt:   sqlutil.ToSqlTime(s.CompletedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to update voting session: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("voting session not found")
	}
	return nil
}

func insertParams(s *models.VotingSession) (db.InsertSessionParams, error) {
	if err := checkTimerSeconds(s); err != nil {
		return db.InsertSessionParams{}, err
	}
	timer, err := sqlutil.ToJSON(s.Timer)
	if err != nil {
		return db.InsertSessionParams{}, err
	}
	rounds, err := sqlutil.ToJSON(s.Rounds)
	if err != nil {
		return db.InsertSessionParams{}, err
	}
	consensus, err := sqlutil.ToNullRawMessage(s.Consensus)
	if err != nil {
		return db.InsertSessionParams{}, err
	}
	return db.InsertSessionParams{
		ID:                 s.ID,
		StoryID:            s.StoryID,
		RoomCode:           s.RoomCode,
		Phase:              string(s.Phase),
		Round:              int32(s.Round),
		DeckType:           string(s.Deck.Type),
		DeckValues:         s.Deck.Values,
		IsActive:           s.IsActive,
		VotesRevealed:      s.VotesRevealed,
		FacilitatorID:      s.FacilitatorID,
		RevealPolicy:       string(s.RevealPolicy),
		ConsensusThreshold: s.ConsensusThreshold,
		TimerSeconds:       int32(s.TimerSeconds),
		Timer:              timer,
		Consensus:          consensus,
		Rounds:             rounds,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		CompletedAt:        sqlutil.ToSqlTime(s.CompletedAt),
	}, nil
}

// checkTimerSeconds keeps the value inside the int4 column.
func checkTimerSeconds(s *models.VotingSession) error {
	if s.TimerSeconds < 0 || s.TimerSeconds > models.MaxTimerSeconds {
		return apperrors.InvalidArgument(fmt.Sprintf("timer_seconds must be between 0 and %d", models.MaxTimerSeconds))
	}
	return nil
}

func dbSessionToModel(row db.VotingSession) (*models.VotingSession, error) {
	s := &models.VotingSession{
		ID:                 row.ID,
		StoryID:            row.StoryID,
		RoomCode:           row.RoomCode,
		Phase:              models.SessionPhase(row.Phase),
		Round:              int(row.Round),
		Deck:               models.Deck{Type: models.DeckType(row.DeckType), Values: row.DeckValues},
		IsActive:           row.IsActive,
		VotesRevealed:      row.VotesRevealed,
		FacilitatorID:      row.FacilitatorID,
		RevealPolicy:       models.RevealPolicy(row.RevealPolicy),
		ConsensusThreshold: row.ConsensusThreshold,
		TimerSeconds:       int(row.TimerSeconds),
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
		CompletedAt:        sqlutil.FromSqlTime(row.CompletedAt),
	}
	if len(row.Timer) > 0 {
		if err := json.Unmarshal(row.Timer, &s.Timer); err != nil {
			return nil, fmt.Errorf("failed to unmarshal timer state: %w", err)
		}
	}
	if len(row.Rounds) > 0 {
		if err := json.Unmarshal(row.Rounds, &s.Rounds); err != nil {
			return nil, fmt.Errorf("failed to unmarshal round log: %w", err)
		}
	}
	consensus, err := sqlutil.FromNullRawMessage[models.ConsensusResult](row.Consensus)
	if err != nil {
		return nil, err
	}
	s.Consensus = consensus
	return s, nil
}

func dbSessionsToModels(rows []db.VotingSession) ([]*models.VotingSession, error) {
	out := make([]*models.VotingSession, 0, len(rows))
	for _, row := range rows {
		s, err := dbSessionToModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
