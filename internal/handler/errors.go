package handler

import (
	"errors"
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"litrevu/internal/httputil"
	"litrevu/internal/logger"
	"litrevu/internal/model"
)

const (
	msgUnexpected     = "Une erreur est survenue. Veuillez réessayer."
	msgInvalidTicket  = "Veuillez remplir correctement tous les champs du billet."
	msgInvalidReview  = "Veuillez remplir correctement tous les champs de la critique."
	msgInvalidProfile = "Veuillez remplir correctement tous les champs du formulaire."
	msgInvalidBody    = "Requête invalide."
	msgInvalidID      = "Identifiant invalide."
	msgAuthRequired   = "Authentification requise."
)

// failure describes how a request's errors read to the user.
type failure struct {
	// invalid replaces the message of a generic invalid-input error.
	invalid string
	// subject fills %s in messages that name a user.
	subject string
}

func (f failure) name() string {
	if f.subject == "" {
		return "cet utilisateur"
	}
	return f.subject
}

// messageFor returns the user-facing message for a domain error, or ""
// when the error has no dedicated wording.
func (f failure) messageFor(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		return "Identifiants invalides. Veuillez réessayer."

	case errors.Is(err, model.ErrUserNotFound):
		if f.subject == "" {
			return "Cet utilisateur n'existe pas."
		}
		return fmt.Sprintf("L'utilisateur %s n'existe pas.", f.subject)
	case errors.Is(err, model.ErrUsernameExists):
		return "Ce nom d'utilisateur est déjà pris."
	case errors.Is(err, model.ErrEmailExists):
		return "Cette adresse e-mail est déjà utilisée."

	case errors.Is(err, model.ErrCannotFollowSelf):
		return "Vous ne pouvez pas vous suivre vous-même."
	case errors.Is(err, model.ErrAlreadyFollowing):
		return fmt.Sprintf("Vous suivez déjà %s.", f.name())
	case errors.Is(err, model.ErrNotFollowing):
		return fmt.Sprintf("Vous ne suivez pas %s.", f.name())
	case errors.Is(err, model.ErrYouBlockedUser):
		return "Vous ne pouvez pas suivre un utilisateur que vous avez bloqué."
	case errors.Is(err, model.ErrUserBlockedYou):
		return "Vous ne pouvez pas suivre cet utilisateur car il vous a bloqué."
	case errors.Is(err, model.ErrFollowBlocked):
		return "Vous ne pouvez pas suivre cet utilisateur."
	case errors.Is(err, model.ErrCannotBlockSelf):
		return "Vous ne pouvez pas vous bloquer vous-même."
	case errors.Is(err, model.ErrAlreadyBlocking):
		return "Vous bloquez déjà cet utilisateur."
	case errors.Is(err, model.ErrNotBlocking):
		return "Vous ne bloquez pas cet utilisateur."

	case errors.Is(err, model.ErrTicketNotFound):
		return "Ce billet n'existe pas."
	case errors.Is(err, model.ErrTicketEditForbidden):
		return "Vous n'avez pas la permission de modifier ce billet."
	case errors.Is(err, model.ErrTicketDeleteForbidden):
		return "Vous n'avez pas la permission de supprimer ce billet."
	case errors.Is(err, model.ErrReviewNotFound):
		return "Cette critique n'existe pas."
	case errors.Is(err, model.ErrAlreadyReviewed):
		return "Vous avez déjà critiqué ce billet."
	case errors.Is(err, model.ErrReviewEditForbidden):
		return "Vous n'avez pas la permission de modifier cette critique."
	case errors.Is(err, model.ErrReviewDeleteForbidden):
		return "Vous n'avez pas la permission de supprimer cette critique."

	case errors.Is(err, model.ErrFileTooLarge):
		return "L'image dépasse la limite de 5 Mo."
	case errors.Is(err, model.ErrInvalidImageType):
		return "Format d'image non pris en charge. Formats acceptés : jpeg, png, gif, webp."
	case errors.Is(err, model.ErrUploadsDisabled):
		return "L'envoi d'images n'est pas disponible."
	}
	return ""
}

// codeFor keeps the upload error codes the clients branch on.
func codeFor(err error, status int) string {
	switch {
	case errors.Is(err, model.ErrFileTooLarge):
		return model.CodeFileTooLarge
	case errors.Is(err, model.ErrInvalidImageType):
		return model.CodeInvalidImageType
	case errors.Is(err, model.ErrUploadsDisabled):
		return model.CodeUploadsDisabled
	}
	return httputil.CodeFor(status)
}

// write renders err as an error envelope. Errors outside the domain taxonomy
// are logged and reported as a generic 500.
func (f failure) write(w http.ResponseWriter, r *http.Request, err error) {
	status := httputil.StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
		httputil.WriteInternalError(w, msgUnexpected)
		return
	}

	message := f.messageFor(err)
	if message == "" {
		switch {
		case errors.Is(err, model.ErrInvalidInput) && f.invalid != "":
			message = f.invalid
		default:
			message = err.Error()
		}
	}
	httputil.WriteError(w, status, codeFor(err, status), message)
}
