package memstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"litrevu/internal/model"
)

type follows struct{ s *Store }

func (r follows) Create(_ context.Context, _ sqlx.ExtContext, followerID, followeeID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d := r.s.data
	_, forward := d.blocks[edge{followerID, followeeID}]
	_, backward := d.blocks[edge{followeeID, followerID}]
	if forward || backward {
		return model.ErrFollowBlocked
	}
	if followerID == followeeID {
		return model.ErrCannotFollowSelf
	}
	if !r.s.userExists(followerID) || !r.s.userExists(followeeID) {
		return model.ErrUserNotFound
	}
	e := edge{followerID, followeeID}
	if _, ok := d.follows[e]; ok {
		return model.ErrAlreadyFollowing
	}
	d.follows[e] = r.s.tick()
	return nil
}

func (r follows) Delete(_ context.Context, _ sqlx.ExtContext, followerID, followeeID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e := edge{followerID, followeeID}
	if _, ok := r.s.data.follows[e]; !ok {
		return model.ErrNotFollowing
	}
	delete(r.s.data.follows, e)
	return nil
}

func (r follows) DeleteBetween(_ context.Context, _ sqlx.ExtContext, a, b int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, e := range []edge{{a, b}, {b, a}} {
		if _, ok := r.s.data.follows[e]; ok {
			delete(r.s.data.follows, e)
			n++
		}
	}
	return n, nil
}

func (r follows) Exists(_ context.Context, followerID, followeeID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.data.follows[edge{followerID, followeeID}]
	return ok, nil
}

func (r follows) GetFolloweeIDs(_ context.Context, userID int64) ([]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	set := map[int64]struct{}{}
	for e := range r.s.data.follows {
		if e.from == userID {
			set[e.to] = struct{}{}
		}
	}
	return sortedIDs(set), nil
}

func (r follows) GetFollowerIDs(_ context.Context, userID int64) ([]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	set := map[int64]struct{}{}
	for e := range r.s.data.follows {
		if e.to == userID {
			set[e.from] = struct{}{}
		}
	}
	return sortedIDs(set), nil
}

func (r follows) ListFollowing(_ context.Context, userID int64) ([]model.Relation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.relations(r.s.data.follows, func(e edge) (int64, bool) {
		return e.to, e.from == userID
	}), nil
}

func (r follows) ListFollowers(_ context.Context, userID int64) ([]model.Relation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.relations(r.s.data.follows, func(e edge) (int64, bool) {
		return e.from, e.to == userID
	}), nil
}

type blocks struct{ s *Store }

func (r blocks) Create(_ context.Context, _ sqlx.ExtContext, blockerID, blockedID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if blockerID == blockedID {
		return model.ErrCannotBlockSelf
	}
	if !r.s.userExists(blockerID) || !r.s.userExists(blockedID) {
		return model.ErrUserNotFound
	}
	e := edge{blockerID, blockedID}
	if _, ok := r.s.data.blocks[e]; ok {
		return model.ErrAlreadyBlocking
	}
	r.s.data.blocks[e] = r.s.tick()
	return nil
}

func (r blocks) Delete(_ context.Context, _ sqlx.ExtContext, blockerID, blockedID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e := edge{blockerID, blockedID}
	if _, ok := r.s.data.blocks[e]; !ok {
		return model.ErrNotBlocking
	}
	delete(r.s.data.blocks, e)
	return nil
}

func (r blocks) Direction(_ context.Context, a, b int64) (bool, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, aBlocksB := r.s.data.blocks[edge{a, b}]
	_, bBlocksA := r.s.data.blocks[edge{b, a}]
	return aBlocksB, bBlocksA, nil
}

func (r blocks) ListBlocked(_ context.Context, userID int64) ([]model.Relation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.relations(r.s.data.blocks, func(e edge) (int64, bool) {
		return e.to, e.from == userID
	}), nil
}

func (r blocks) ListBlockedBy(_ context.Context, userID int64) ([]model.Relation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.relations(r.s.data.blocks, func(e edge) (int64, bool) {
		return e.from, e.to == userID
	}), nil
}
