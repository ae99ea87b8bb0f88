package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"litrevu/internal/logger"
	"litrevu/internal/model"
	"litrevu/internal/queue"
	"litrevu/internal/repository"
	"litrevu/internal/validation"
)

type TicketService struct {
	tx         repository.Transactor
	ticketRepo repository.TicketRepository
	reviewRepo repository.ReviewRepository
	media      ImageStore // nil when uploads are not configured
	notifier   *FeedNotifier
	log        *zap.Logger
}

func NewTicketService(
	tx repository.Transactor,
	ticketRepo repository.TicketRepository,
	reviewRepo repository.ReviewRepository,
	media ImageStore,
	notifier *FeedNotifier,
) *TicketService {
	return &TicketService{
		tx:         tx,
		ticketRepo: ticketRepo,
		reviewRepo: reviewRepo,
		media:      media,
		notifier:   notifier,
		log:        logger.Named("ticket_service"),
	}
}

func (s *TicketService) Get(ctx context.Context, ticketID int64) (*model.Ticket, error) {
	return s.ticketRepo.GetByID(ctx, ticketID)
}

// Create inserts a ticket owned by ownerID. An attached image is uploaded
// first and discarded again if the insert fails.
func (s *TicketService) Create(ctx context.Context, ownerID int64, req *model.TicketRequest, image *ImageInput) (*model.Ticket, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	ticket := &model.Ticket{UserID: ownerID, Title: req.Title, Description: req.Description}
	if err := s.attachImage(ctx, ticket, image); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		return s.ticketRepo.Create(ctx, q, ticket)
	})
	if err != nil {
		s.discard(ctx, ticket.ImageKey)
		return nil, err
	}

	s.notifier.Notify(ctx, queue.NewTicketChangedEvent(ticket.ID, ownerID, nil), ownerID)
	return s.ticketRepo.GetByID(ctx, ticket.ID)
}

// Update edits a ticket owned by callerID. A new image replaces the stored
// one; RemoveImage clears it. The replaced object is deleted after commit.
func (s *TicketService) Update(ctx context.Context, callerID, ticketID int64, req *model.TicketRequest, image *ImageInput) (*model.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := AssertOwner(ticket, callerID); err != nil {
		return nil, model.ErrTicketEditForbidden
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	oldKey := ticket.ImageKey
	ticket.Title = req.Title
	ticket.Description = req.Description

	switch {
	case image != nil:
		if err := s.attachImage(ctx, ticket, image); err != nil {
			return nil, err
		}
	case req.RemoveImage:
		ticket.ImageURL = nil
		ticket.ImageKey = nil
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		return s.ticketRepo.Update(ctx, q, ticket)
	})
	if err != nil {
		if ticket.ImageKey != oldKey {
			s.discard(ctx, ticket.ImageKey)
		}
		return nil, err
	}

	if oldKey != nil && (ticket.ImageKey == nil || *ticket.ImageKey != *oldKey) {
		s.discard(ctx, oldKey)
	}

	s.ticketChanged(ctx, ticket.ID, ticket.UserID)
	return s.ticketRepo.GetByID(ctx, ticket.ID)
}

// Delete removes a ticket owned by callerID together with its reviews.
func (s *TicketService) Delete(ctx context.Context, callerID, ticketID int64) error {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := AssertOwner(ticket, callerID); err != nil {
		return model.ErrTicketDeleteForbidden
	}

	// Collected before the cascade so their feeds can be refreshed.
	authors, err := s.reviewRepo.AuthorIDsForTicket(ctx, ticketID)
	if err != nil {
		return err
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		return s.ticketRepo.Delete(ctx, q, ticketID)
	})
	if err != nil {
		return err
	}

	s.discard(ctx, ticket.ImageKey)
	s.notifier.Notify(ctx, queue.NewTicketChangedEvent(ticketID, ticket.UserID, authors), ticket.UserID)
	return nil
}

func (s *TicketService) ticketChanged(ctx context.Context, ticketID, ownerID int64) {
	authors, err := s.reviewRepo.AuthorIDsForTicket(ctx, ticketID)
	if err != nil {
		s.log.Warn("could not list review authors", zap.Int64("ticket_id", ticketID), zap.Error(err))
	}
	s.notifier.Notify(ctx, queue.NewTicketChangedEvent(ticketID, ownerID, authors), ownerID)
}

func (s *TicketService) attachImage(ctx context.Context, ticket *model.Ticket, image *ImageInput) error {
	if image == nil {
		return nil
	}
	if s.media == nil {
		return model.ErrUploadsDisabled
	}
	uploaded, err := s.media.UploadTicketImage(ctx, *image)
	if err != nil {
		return fmt.Errorf("ticket image: %w", err)
	}
	ticket.ImageURL = &uploaded.URL
	ticket.ImageKey = &uploaded.Key
	return nil
}

// discard deletes a stored object on a best-effort basis.
func (s *TicketService) discard(ctx context.Context, key *string) {
	if key == nil || s.media == nil {
		return
	}
	if err := s.media.DeleteObject(ctx, *key); err != nil {
		s.log.Warn("failed to delete image", zap.String("key", *key), zap.Error(err))
	}
}
