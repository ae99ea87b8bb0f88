package handler

import (
	"net/http"
	"net/url"

	"litrevu/internal/httputil"
	"litrevu/internal/model"
	"litrevu/internal/service"
	"litrevu/internal/transport/http/middleware"
)

type TicketHandler struct {
	ticketService *service.TicketService
}

func NewTicketHandler(ticketService *service.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

var ticketFailure = failure{invalid: msgInvalidTicket}

func readTicketForm(w http.ResponseWriter, r *http.Request, req *model.TicketRequest) (*service.ImageInput, error) {
	return readForm(w, r, req, "image", func(form url.Values) error {
		req.Title = form.Get("title")
		req.Description = form.Get("description")
		req.RemoveImage = formBool(form, "remove_image")
		return nil
	})
}

// Create handles POST /tickets
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, msgAuthRequired)
		return
	}

	var req model.TicketRequest
	image, err := readTicketForm(w, r, &req)
	defer closeForm(r, image)
	if err != nil {
		ticketFailure.write(w, r, err)
		return
	}

	ticket, err := h.ticketService.Create(r.Context(), userID, &req, image)
	if err != nil {
		ticketFailure.write(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusCreated, "Votre billet a été créé avec succès!", map[string]interface{}{
		"ticket": ticket,
	})
}

// Get handles GET /tickets/{id}
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticketID, ok := pathID(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, msgInvalidID)
		return
	}

	ticket, err := h.ticketService.Get(r.Context(), ticketID)
	if err != nil {
		ticketFailure.write(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ticket)
}

// Update handles PUT /tickets/{id}
// Only the owner may edit.
func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req model.TicketRequest
	image, err := readTicketForm(w, r, &req)
	defer closeForm(r, image)
	if err != nil {
		ticketFailure.write(w, r, err)
		return
	}

	ticket, err := h.ticketService.Update(r.Context(), userID, ticketID, &req, image)
	if err != nil {
		ticketFailure.write(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Votre billet a été modifié avec succès!", map[string]interface{}{
		"ticket": ticket,
	})
}

// Delete handles DELETE /tickets/{id}
// The ticket's reviews are removed with it.
func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.ticketService.Delete(r.Context(), userID, ticketID); err != nil {
		ticketFailure.write(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Votre billet a été supprimé avec succès!", nil)
}
