package model

import "time"

// Follow is a directed subscription edge.
type Follow struct {
	FollowerID int64     `db:"follower_id" json:"follower_id"`
	FolloweeID int64     `db:"followee_id" json:"followee_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Block is a directed suppression edge.
type Block struct {
	BlockerID int64     `db:"blocker_id" json:"blocker_id"`
	BlockedID int64     `db:"blocked_id" json:"blocked_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Relation is one entry of a relationship list: the counterpart and the
// time the edge was created.
type Relation struct {
	User  UserSummary `json:"user"`
	Since time.Time   `json:"since"`
}

// RelationsOverview backs the follows page.
type RelationsOverview struct {
	Following []Relation `json:"following"`
	Followers []Relation `json:"followers"`
	Blocked   []Relation `json:"blocked"`
	BlockedBy []Relation `json:"blocked_by"`
}

// FollowRequest names the account to follow.
type FollowRequest struct {
	Username string `json:"username" conform:"trim" validate:"required,max=150"`
}

var (
	ErrCannotFollowSelf = kind(ErrInvalidOperation, "cannot follow yourself")
	ErrCannotBlockSelf  = kind(ErrInvalidOperation, "cannot block yourself")

	ErrAlreadyFollowing = kind(ErrAlreadyExists, "already following this user")
	ErrAlreadyBlocking  = kind(ErrAlreadyExists, "already blocking this user")

	ErrNotFollowing = kind(ErrNotFound, "not following this user")
	ErrNotBlocking  = kind(ErrNotFound, "not blocking this user")

	// ErrFollowBlocked is reported by the store when a follow edge would cross
	// a block; the service narrows it to one of the directional errors below
	// when it can tell which side blocked.
	ErrFollowBlocked  = kind(ErrBlocked, "a block exists between these users")
	ErrYouBlockedUser = kind(ErrBlocked, "you block this user")
	ErrUserBlockedYou = kind(ErrBlocked, "this user blocks you")
)
