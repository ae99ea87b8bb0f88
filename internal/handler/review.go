package handler

import (
	"net/http"
	"net/url"

	"litrevu/internal/httputil"
	"litrevu/internal/model"
	"litrevu/internal/service"
	"litrevu/internal/transport/http/middleware"
)

type ReviewHandler struct {
	reviewService *service.ReviewService
}

func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

var reviewFailure = failure{invalid: msgInvalidReview}

func fillReview(form url.Values, req *model.ReviewRequest) error {
	rating, err := formInt(form, "rating")
	if err != nil {
		return err
	}
	req.Rating = rating
	req.Headline = form.Get("headline")
	req.Body = form.Get("body")
	return nil
}

// CreateForTicket handles POST /tickets/{id}/reviews
func (h *ReviewHandler) CreateForTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgAuthRequired)
		return
	}
	ticketID, ok := pathID(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, msgInvalidID)
		return
	}

	var req model.ReviewRequest
	_, err := readForm(w, r, &req, "", func(form url.Values) error {
		return fillReview(form, &req)
	})
	defer closeForm(r, nil)
	if err != nil {
		reviewFailure.write(w, r, err)
		return
	}

	review, err := h.reviewService.CreateForTicket(r.Context(), userID, ticketID, &req)
	if err != nil {
		reviewFailure.write(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusCreated, "Votre critique a été créée avec succès!", map[string]interface{}{
		"review": review,
	})
}

// CreateWithTicket handles POST /reviews
// The ticket and its first review are created together or not at all.
// Form fields are prefixed: ticket_title, ticket_description, image, and
// the review fields unprefixed.
func (h *ReviewHandler) CreateWithTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgAuthRequired)
		return
	}

	var req model.TicketReviewRequest
	image, err := readForm(w, r, &req, "image", func(form url.Values) error {
		req.Ticket.Title = form.Get("ticket_title")
		req.Ticket.Description = form.Get("ticket_description")
		return fillReview(form, &req.Review)
	})
	defer closeForm(r, image)
	if err != nil {
		reviewFailure.write(w, r, err)
		return
	}

	review, err := h.reviewService.CreateReviewForNewTicket(r.Context(), userID, &req, image)
	if err != nil {
		reviewFailure.write(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusCreated, "Votre critique et le billet associé ont été créés avec succès!", map[string]interface{}{
		"review": review,
	})
}

// Get handles GET /reviews/{id}
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := pathID(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, msgInvalidID)
		return
	}

	review, err := h.reviewService.Get(r.Context(), reviewID)
	if err != nil {
		reviewFailure.write(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, review)
}

// Update handles PUT /reviews/{id}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgAuthRequired)
		return
	}
	reviewID, ok := pathID(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, msgInvalidID)
		return
	}

	var req model.ReviewRequest
	_, err := readForm(w, r, &req, "", func(form url.Values) error {
		return fillReview(form, &req)
	})
	defer closeForm(r, nil)
	if err != nil {
		reviewFailure.write(w, r, err)
		return
	}

	review, err := h.reviewService.Update(r.Context(), userID, reviewID, &req)
	if err != nil {
		reviewFailure.write(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Votre critique a été modifiée avec succès!", map[string]interface{}{
		"review": review,
	})
}

// Delete handles DELETE /reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgAuthRequired)
		return
	}
	reviewID, ok := pathID(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, msgInvalidID)
		return
	}

	if err := h.reviewService.Delete(r.Context(), userID, reviewID); err != nil {
		reviewFailure.write(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Votre critique a été supprimée avec succès!", nil)
}
