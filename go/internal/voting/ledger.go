package voting

import (
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// Ledger holds the in-flight votes of every open round, keyed by session
// and participant. It is process-local and never persisted as a whole; a
// finalized round is copied to durable storage and then discarded.
type Ledger struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*roundVotes
}

type roundVotes struct {
	round int
	order []uuid.UUID
	votes map[uuid.UUID]models.Vote
}

func NewLedger() *Ledger {
	return &Ledger{sessions: make(map[uuid.UUID]*roundVotes)}
}

// Put records v for its session and round and returns the number of
// distinct voters in that round. A resubmission replaces the earlier vote
// in place. A vote for a different round than the one held discards the
// held round first.
func (l *Ledger) Put(v models.Vote) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rv, ok := l.sessions[v.SessionID]
	if !ok || rv.round != v.Round {
		rv = &roundVotes{round: v.Round, votes: make(map[uuid.UUID]models.Vote)}
		l.sessions[v.SessionID] = rv
	}
	if _, seen := rv.votes[v.UserID]; !seen {
		rv.order = append(rv.order, v.UserID)
	}
	rv.votes[v.UserID] = v
	return len(rv.order)
}

// Votes returns the votes of round in first-submission order.
func (l *Ledger) Votes(sessionID uuid.UUID, round int) []models.Vote {
	l.mu.Lock()
	defer l.mu.Unlock()

	rv, ok := l.sessions[sessionID]
	if !ok || rv.round != round {
		return nil
	}
	out := make([]models.Vote, 0, len(rv.order))
	for _, id := range rv.order {
		out = append(out, rv.votes[id])
	}
	return out
}

func (l *Ledger) Count(sessionID uuid.UUID, round int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rv, ok := l.sessions[sessionID]
	if !ok || rv.round != round {
		return 0
	}
	return len(rv.order)
}

// Voters returns the participants holding a vote in the round currently
// held for sessionID.
func (l *Ledger) Voters(sessionID uuid.UUID) []uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()

	rv, ok := l.sessions[sessionID]
	if !ok {
		return nil
	}
	return append([]uuid.UUID(nil), rv.order...)
}

// Clear drops every vote held for the given sessions.
func (l *Ledger) Clear(sessionIDs ...uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range sessionIDs {
		delete(l.sessions, id)
	}
}

// Len returns the number of sessions with votes in flight.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}
