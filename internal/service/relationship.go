package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"litrevu/internal/model"
	"litrevu/internal/queue"
	"litrevu/internal/repository"
)

// RelationshipService owns the follow and block graph. A follow edge never
// coexists with a block between the same two users.
type RelationshipService struct {
	tx         repository.Transactor
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	blockRepo  repository.BlockRepository
	notifier   *FeedNotifier
}

func NewRelationshipService(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	blockRepo repository.BlockRepository,
	notifier *FeedNotifier,
) *RelationshipService {
	return &RelationshipService{
		tx:         tx,
		userRepo:   userRepo,
		followRepo: followRepo,
		blockRepo:  blockRepo,
		notifier:   notifier,
	}
}

// CreateFollow makes followerID follow the account named username and
// returns the followed user.
func (s *RelationshipService) CreateFollow(ctx context.Context, followerID int64, username string) (*model.User, error) {
	target, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == followerID {
		return nil, model.ErrCannotFollowSelf
	}

	following, err := s.followRepo.Exists(ctx, followerID, target.ID)
	if err != nil {
		return nil, err
	}
	if following {
		return nil, model.ErrAlreadyFollowing
	}

	if err := s.blockError(ctx, followerID, target.ID); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		return s.followRepo.Create(ctx, q, followerID, target.ID)
	})
	if err != nil {
		if errors.Is(err, model.ErrFollowBlocked) {
			// A block landed between the pre-check and the insert.
			if narrowed := s.blockError(ctx, followerID, target.ID); narrowed != nil {
				return nil, narrowed
			}
		}
		return nil, err
	}

	s.relationChanged(ctx, followerID, target.ID)
	return target, nil
}

// blockError reports which side blocks the other, or nil when neither does.
func (s *RelationshipService) blockError(ctx context.Context, followerID, targetID int64) error {
	youBlock, theyBlock, err := s.blockRepo.Direction(ctx, followerID, targetID)
	if err != nil {
		return err
	}
	switch {
	case youBlock:
		return model.ErrYouBlockedUser
	case theyBlock:
		return model.ErrUserBlockedYou
	}
	return nil
}

// RemoveFollow deletes the follow edge from followerID to followedID.
func (s *RelationshipService) RemoveFollow(ctx context.Context, followerID, followedID int64) (*model.User, error) {
	target, err := s.userRepo.GetByID(ctx, followedID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		return s.followRepo.Delete(ctx, q, followerID, followedID)
	})
	if err != nil {
		return nil, err
	}

	s.relationChanged(ctx, followerID, followedID)
	return target, nil
}

// CreateBlock records the block and drops follow edges in both directions
// in the same transaction.
func (s *RelationshipService) CreateBlock(ctx context.Context, blockerID, blockedID int64) (*model.User, error) {
	target, err := s.userRepo.GetByID(ctx, blockedID)
	if err != nil {
		return nil, err
	}
	if blockerID == blockedID {
		return nil, model.ErrCannotBlockSelf
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		if err := s.blockRepo.Create(ctx, q, blockerID, blockedID); err != nil {
			return err
		}
		if _, err := s.followRepo.DeleteBetween(ctx, q, blockerID, blockedID); err != nil {
			return fmt.Errorf("failed to drop follows on block: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.relationChanged(ctx, blockerID, blockedID)
	return target, nil
}

// RemoveBlock lifts the block from blockerID on blockedID. Follow edges
// dropped by the block are not restored.
func (s *RelationshipService) RemoveBlock(ctx context.Context, blockerID, blockedID int64) (*model.User, error) {
	target, err := s.userRepo.GetByID(ctx, blockedID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		return s.blockRepo.Delete(ctx, q, blockerID, blockedID)
	})
	if err != nil {
		return nil, err
	}

	s.relationChanged(ctx, blockerID, blockedID)
	return target, nil
}

// Overview lists the four relationship sets of userID, newest first.
func (s *RelationshipService) Overview(ctx context.Context, userID int64) (*model.RelationsOverview, error) {
	following, err := s.followRepo.ListFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	followers, err := s.followRepo.ListFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blockRepo.ListBlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	blockedBy, err := s.blockRepo.ListBlockedBy(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.RelationsOverview{
		Following: following,
		Followers: followers,
		Blocked:   blocked,
		BlockedBy: blockedBy,
	}, nil
}

// GetFollowerIDs serves the feed workers.
func (s *RelationshipService) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.followRepo.GetFollowerIDs(ctx, userID)
}

func (s *RelationshipService) relationChanged(ctx context.Context, actorID, targetID int64) {
	s.notifier.Notify(ctx, queue.NewRelationChangedEvent(actorID, targetID), actorID, targetID)
}
