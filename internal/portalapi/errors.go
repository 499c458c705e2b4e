package portalapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MarkoPoloResearchLab/cartegrise/pkg/portal"
	"github.com/gin-gonic/gin"
)

const (
	messageUnauthenticated    = "Authentification requise."
	messageProfileNotFound    = "Profil introuvable. Veuillez finaliser votre inscription."
	messageAdminRequired      = "Accès refusé. Droits administrateur requis."
	messageSuperAdminRequired = "Accès refusé. Droits super administrateur requis."
	messageMainAdminProtected = "Le rôle de l'administrateur principal ne peut pas être modifié."
	messageOrderNotOwned      = "Commande introuvable ou non autorisée."
	messageForbidden          = "Accès refusé."
	messageOrderNotFound      = "Commande introuvable."
	messageDocumentNotFound   = "Document introuvable."
	messageNotFound           = "Ressource introuvable."
	messageMissingOrderFields = "Le type et le prix sont requis."
	messageInvalidPrice       = "Le prix doit être supérieur à zéro."
	messageInvalidAmount      = "Le montant doit être supérieur à zéro."
	messageUnknownOrderType   = "Type de commande inconnu."
	messageUnknownStatus      = "Statut de commande inconnu."
	messageUnknownRole        = "Rôle inconnu."
	messageEmptyFile          = "Le fichier est vide."
	messageFileTooLarge       = "Le fichier est trop volumineux."
	messageInvalidDocument    = "Type de document invalide."
	messageInvalidFields      = "Données invalides : %s."
	messageInvalidRequest     = "Requête invalide."
	messageInvalidTransition  = "Ce changement de statut n'est pas autorisé."
	messageGatewayRejected    = "Le service de paiement a refusé la demande : %s"
	messageGatewayTimeout     = "Le service de paiement ne répond pas (délai dépassé). Veuillez réessayer."
	messageGatewayRefused     = "Impossible de joindre le service de paiement (connexion refusée)."
	messageGatewayNetwork     = "Erreur réseau lors de la communication avec le service de paiement."
	messageGatewayUnavailable = "Le service de paiement est temporairement indisponible."
	messageStorageFailure     = "Le stockage des documents est temporairement indisponible."
	messageInternal           = "Erreur interne du serveur."
)

func errorResponse(message string) gin.H {
	return gin.H{"error": message}
}

// respondError maps a domain error to its HTTP status and French message.
// Unexpected errors are logged and reported without detail.
func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	status, message := describeError(err)
	if status >= http.StatusInternalServerError {
		handler.logger.Error("request failed", zapRequestFields(ctx, err)...)
	}
	ctx.AbortWithStatusJSON(status, errorResponse(message))
}

func describeError(err error) (int, string) {
	var gatewayError *portal.GatewayError
	if errors.As(err, &gatewayError) {
		return describeGatewayError(gatewayError)
	}
	var validationError portal.ValidationError
	if errors.As(err, &validationError) {
		return http.StatusBadRequest, fmt.Sprintf(messageInvalidFields, strings.Join(validationError.Fields, ", "))
	}

	switch {
	case errors.Is(err, portal.ErrUnauthenticated):
		return http.StatusUnauthorized, messageUnauthenticated
	case errors.Is(err, portal.ErrProfileNotFound):
		return http.StatusNotFound, messageProfileNotFound
	case errors.Is(err, portal.ErrMainAdminProtected):
		return http.StatusForbidden, messageMainAdminProtected
	case errors.Is(err, portal.ErrSuperAdminRequired):
		return http.StatusForbidden, messageSuperAdminRequired
	case errors.Is(err, portal.ErrAdminRequired):
		return http.StatusForbidden, messageAdminRequired
	case errors.Is(err, portal.ErrOrderNotOwned):
		return http.StatusForbidden, messageOrderNotOwned
	case errors.Is(err, portal.ErrForbidden):
		return http.StatusForbidden, messageForbidden
	case errors.Is(err, portal.ErrOrderNotFound):
		return http.StatusNotFound, messageOrderNotFound
	case errors.Is(err, portal.ErrDocumentNotFound):
		return http.StatusNotFound, messageDocumentNotFound
	case errors.Is(err, portal.ErrNotFound):
		return http.StatusNotFound, messageNotFound
	case errors.Is(err, portal.ErrInvalidTransition):
		return http.StatusBadRequest, messageInvalidTransition
	case errors.Is(err, portal.ErrStorageFailure):
		return http.StatusBadGateway, messageStorageFailure
	case errors.Is(err, portal.ErrValidation):
		return http.StatusBadRequest, validationMessage(err)
	default:
		return http.StatusInternalServerError, messageInternal
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, portal.ErrMissingOrderFields):
		return messageMissingOrderFields
	case errors.Is(err, portal.ErrInvalidPrice):
		return messageInvalidPrice
	case errors.Is(err, portal.ErrInvalidAmount):
		return messageInvalidAmount
	case errors.Is(err, portal.ErrUnknownOrderType):
		return messageUnknownOrderType
	case errors.Is(err, portal.ErrUnknownStatus):
		return messageUnknownStatus
	case errors.Is(err, portal.ErrUnknownRole):
		return messageUnknownRole
	case errors.Is(err, portal.ErrEmptyFile):
		return messageEmptyFile
	case errors.Is(err, portal.ErrFileTooLarge):
		return messageFileTooLarge
	case errors.Is(err, portal.ErrInvalidDocument):
		return messageInvalidDocument
	default:
		return messageInvalidRequest
	}
}

func describeGatewayError(gatewayError *portal.GatewayError) (int, string) {
	switch gatewayError.Failure {
	case portal.GatewayRejected:
		message := strings.TrimSpace(gatewayError.Message)
		if message == "" {
			message = http.StatusText(gatewayError.StatusCode)
		}
		return http.StatusBadRequest, fmt.Sprintf(messageGatewayRejected, message)
	case portal.GatewayTimeout:
		return http.StatusBadGateway, messageGatewayTimeout
	case portal.GatewayRefused:
		return http.StatusBadGateway, messageGatewayRefused
	case portal.GatewayNetwork:
		return http.StatusBadGateway, messageGatewayNetwork
	default:
		return http.StatusBadGateway, messageGatewayUnavailable
	}
}
