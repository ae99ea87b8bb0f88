package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"litrevu/internal/model"
)

// Transactor scopes a unit of work. fn receives the handle that write
// methods must use; WithinTx commits when fn returns nil and rolls back
// otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, user *model.User) error
	Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type FollowRepository interface {
	Create(ctx context.Context, q sqlx.ExtContext, followerID, followeeID int64) error
	Delete(ctx context.Context, q sqlx.ExtContext, followerID, followeeID int64) error
	// DeleteBetween removes the follow edges between a and b in both directions.
	DeleteBetween(ctx context.Context, q sqlx.ExtContext, a, b int64) (int64, error)
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error)
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
	ListFollowing(ctx context.Context, userID int64) ([]model.Relation, error)
	ListFollowers(ctx context.Context, userID int64) ([]model.Relation, error)
}

type BlockRepository interface {
	Create(ctx context.Context, q sqlx.ExtContext, blockerID, blockedID int64) error
	Delete(ctx context.Context, q sqlx.ExtContext, blockerID, blockedID int64) error
	// Direction reports whether a blocks b and whether b blocks a.
	Direction(ctx context.Context, a, b int64) (aBlocksB, bBlocksA bool, err error)
	ListBlocked(ctx context.Context, userID int64) ([]model.Relation, error)
	ListBlockedBy(ctx context.Context, userID int64) ([]model.Relation, error)
}

type TicketRepository interface {
	Create(ctx context.Context, q sqlx.ExtContext, ticket *model.Ticket) error
	GetByID(ctx context.Context, id int64) (*model.Ticket, error)
	Update(ctx context.Context, q sqlx.ExtContext, ticket *model.Ticket) error
	// Delete removes the ticket; its reviews go with it.
	Delete(ctx context.Context, q sqlx.ExtContext, id int64) error
	// FindByOwners returns tickets owned by any of ownerIDs, newest first.
	FindByOwners(ctx context.Context, ownerIDs []int64) ([]model.Ticket, error)
}

// ReviewFilter selects reviews written by any of AuthorIDs OR attached to a
// ticket owned by any of TicketOwnerIDs.
type ReviewFilter struct {
	AuthorIDs      []int64
	TicketOwnerIDs []int64
}

// IsEmpty reports whether the filter can match nothing.
func (f ReviewFilter) IsEmpty() bool {
	return len(f.AuthorIDs) == 0 && len(f.TicketOwnerIDs) == 0
}

type ReviewRepository interface {
	Create(ctx context.Context, q sqlx.ExtContext, review *model.Review) error
	GetByID(ctx context.Context, id int64) (*model.Review, error)
	Update(ctx context.Context, q sqlx.ExtContext, review *model.Review) error
	Delete(ctx context.Context, q sqlx.ExtContext, id int64) error
	// Find returns matching reviews with author and ticket joined, newest first.
	Find(ctx context.Context, filter ReviewFilter) ([]model.Review, error)
	ExistsForTicket(ctx context.Context, ticketID, userID int64) (bool, error)
	// ReviewedTicketIDs reports, for each of ticketIDs, whether userID reviewed it.
	ReviewedTicketIDs(ctx context.Context, userID int64, ticketIDs []int64) (map[int64]bool, error)
	AuthorIDsForTicket(ctx context.Context, ticketID int64) ([]int64, error)
}
