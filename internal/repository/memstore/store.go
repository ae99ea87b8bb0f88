// Package memstore keeps every repository in process memory. It backs
// STORAGE=memory and the service tests, and it enforces the same integrity
// rules as the PostgreSQL schema: unique usernames and emails, one review per
// user per ticket, no self edges, no follow edge across a block, and cascade
// deletion of a ticket's reviews.
//
// Transactions are serialised. WithinTx snapshots the data set and restores
// it when the unit of work fails, so a failed unit leaves no trace. Reads are
// not isolated from a running transaction.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"litrevu/internal/model"
	"litrevu/internal/repository"
)

type edge struct {
	from, to int64
}

type state struct {
	users   map[int64]model.User
	tickets map[int64]model.Ticket
	reviews map[int64]model.Review
	follows map[edge]time.Time
	blocks  map[edge]time.Time
	tokens  map[string]model.RefreshToken

	userSeq, ticketSeq, reviewSeq int64
}

func newState() *state {
	return &state{
		users:   map[int64]model.User{},
		tickets: map[int64]model.Ticket{},
		reviews: map[int64]model.Review{},
		follows: map[edge]time.Time{},
		blocks:  map[edge]time.Time{},
		tokens:  map[string]model.RefreshToken{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	for k, v := range s.follows {
		c.follows[k] = v
	}
	for k, v := range s.blocks {
		c.blocks[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	c.userSeq, c.ticketSeq, c.reviewSeq = s.userSeq, s.ticketSeq, s.reviewSeq
	return c
}

// Store is the shared in-memory data set. Use the accessor methods to get
// the repository views.
type Store struct {
	// txMu serialises units of work; mu guards data.
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state

	now  func() time.Time
	last time.Time
}

type Option func(*Store)

// WithClock replaces time.Now. Timestamps stay strictly increasing even when
// the clock stands still.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{data: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithinTx runs fn as one unit of work. fn receives a nil handle; the
// memory repositories ignore it.
func (s *Store) WithinTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	committed := false
	defer func() {
		if !committed {
			s.mu.Lock()
			s.data = snapshot
			s.mu.Unlock()
		}
	}()

	if err := fn(nil); err != nil {
		return err
	}
	committed = true
	return nil
}

// tick returns the next creation timestamp. Callers hold mu.
func (s *Store) tick() time.Time {
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// standalone serialises a write made outside WithinTx against running units
// of work, so a rollback cannot swallow it.
func (s *Store) standalone() func() {
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

func (s *Store) Users() repository.UserRepository                 { return users{s} }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return refreshTokens{s} }
func (s *Store) Follows() repository.FollowRepository             { return follows{s} }
func (s *Store) Blocks() repository.BlockRepository               { return blocks{s} }
func (s *Store) Tickets() repository.TicketRepository             { return tickets{s} }
func (s *Store) Reviews() repository.ReviewRepository             { return reviews{s} }

func (s *Store) userExists(id int64) bool {
	_, ok := s.data.users[id]
	return ok
}

// summary joins the public projection of a user. Callers hold mu.
func (s *Store) summary(id int64) *model.UserSummary {
	u, ok := s.data.users[id]
	if !ok {
		return &model.UserSummary{ID: id}
	}
	sum := u.Summary()
	return &sum
}

func (s *Store) joinedTicket(t model.Ticket) model.Ticket {
	t.Author = s.summary(t.UserID)
	t.HasUserReviewed = false
	return t
}

func (s *Store) joinedReview(r model.Review) model.Review {
	r.Author = s.summary(r.UserID)
	if t, ok := s.data.tickets[r.TicketID]; ok {
		jt := s.joinedTicket(t)
		jt.ImageKey = nil
		r.Ticket = &jt
	}
	return r
}

func (s *Store) relations(set map[edge]time.Time, match func(edge) (int64, bool)) []model.Relation {
	out := []model.Relation{}
	for e, since := range set {
		if id, ok := match(e); ok {
			out = append(out, model.Relation{User: *s.summary(id), Since: since})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Since.Equal(out[j].Since) {
			return out[i].Since.After(out[j].Since)
		}
		return out[i].User.ID > out[j].User.ID
	})
	return out
}

func newestFirst(at func(i int) (time.Time, int64)) func(i, j int) bool {
	return func(i, j int) bool {
		ti, idi := at(i)
		tj, idj := at(j)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	}
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sameEmail(a, b string) bool { return strings.EqualFold(a, b) }
