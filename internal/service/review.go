package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"litrevu/internal/model"
	"litrevu/internal/queue"
	"litrevu/internal/repository"
	"litrevu/internal/validation"
)

type ReviewService struct {
	tx         repository.Transactor
	ticketRepo repository.TicketRepository
	reviewRepo repository.ReviewRepository
	tickets    *TicketService
	notifier   *FeedNotifier
}

func NewReviewService(
	tx repository.Transactor,
	ticketRepo repository.TicketRepository,
	reviewRepo repository.ReviewRepository,
	tickets *TicketService,
	notifier *FeedNotifier,
) *ReviewService {
	return &ReviewService{
		tx:         tx,
		ticketRepo: ticketRepo,
		reviewRepo: reviewRepo,
		tickets:    tickets,
		notifier:   notifier,
	}
}

func (s *ReviewService) Get(ctx context.Context, reviewID int64) (*model.Review, error) {
	return s.reviewRepo.GetByID(ctx, reviewID)
}

// CreateForTicket reviews an existing ticket. Each user reviews a ticket at
// most once.
func (s *ReviewService) CreateForTicket(ctx context.Context, reviewerID, ticketID int64, req *model.ReviewRequest) (*model.Review, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	reviewed, err := s.reviewRepo.ExistsForTicket(ctx, ticketID, reviewerID)
	if err != nil {
		return nil, err
	}
	if reviewed {
		return nil, model.ErrAlreadyReviewed
	}

	review := newReview(reviewerID, ticketID, req)
	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		return s.reviewRepo.Create(ctx, q, review)
	})
	if err != nil {
		return nil, err
	}

	s.reviewChanged(ctx, ticket.ID, reviewerID, ticket.UserID)
	return s.reviewRepo.GetByID(ctx, review.ID)
}

// CreateReviewForNewTicket creates a ticket and the owner's review of it as
// one unit: either both exist afterwards or neither does.
func (s *ReviewService) CreateReviewForNewTicket(ctx context.Context, ownerID int64, req *model.TicketReviewRequest, image *ImageInput) (*model.Review, error) {
	if err := validation.Struct(&req.Ticket); err != nil {
		return nil, err
	}
	if err := validation.Struct(&req.Review); err != nil {
		return nil, err
	}

	ticket := &model.Ticket{UserID: ownerID, Title: req.Ticket.Title, Description: req.Ticket.Description}
	if err := s.tickets.attachImage(ctx, ticket, image); err != nil {
		return nil, err
	}

	review := &model.Review{UserID: ownerID}
	err := s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		if err := s.ticketRepo.Create(ctx, q, ticket); err != nil {
			return err
		}
		*review = *newReview(ownerID, ticket.ID, &req.Review)
		return s.reviewRepo.Create(ctx, q, review)
	})
	if err != nil {
		s.tickets.discard(ctx, ticket.ImageKey)
		return nil, err
	}

	s.notifier.Notify(ctx, queue.NewTicketChangedEvent(ticket.ID, ownerID, nil), ownerID)
	s.reviewChanged(ctx, ticket.ID, ownerID, ownerID)
	return s.reviewRepo.GetByID(ctx, review.ID)
}

// Update edits a review written by callerID.
func (s *ReviewService) Update(ctx context.Context, callerID, reviewID int64, req *model.ReviewRequest) (*model.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := AssertOwner(review, callerID); err != nil {
		return nil, model.ErrReviewEditForbidden
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	review.Rating = *req.Rating
	review.Headline = req.Headline
	review.Body = req.Body

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		return s.reviewRepo.Update(ctx, q, review)
	})
	if err != nil {
		return nil, err
	}

	s.reviewChanged(ctx, review.TicketID, callerID, review.Ticket.UserID)
	return s.reviewRepo.GetByID(ctx, review.ID)
}

// Delete removes a review written by callerID.
func (s *ReviewService) Delete(ctx context.Context, callerID, reviewID int64) error {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if err := AssertOwner(review, callerID); err != nil {
		return model.ErrReviewDeleteForbidden
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		return s.reviewRepo.Delete(ctx, q, reviewID)
	})
	if err != nil {
		return err
	}

	s.reviewChanged(ctx, review.TicketID, callerID, review.Ticket.UserID)
	return nil
}

func (s *ReviewService) reviewChanged(ctx context.Context, ticketID, authorID, ticketOwnerID int64) {
	s.notifier.Notify(ctx, queue.NewReviewChangedEvent(ticketID, authorID, ticketOwnerID), authorID, ticketOwnerID)
}

func newReview(authorID, ticketID int64, req *model.ReviewRequest) *model.Review {
	return &model.Review{
		TicketID: ticketID,
		UserID:   authorID,
		Rating:   *req.Rating,
		Headline: req.Headline,
		Body:     req.Body,
	}
}
