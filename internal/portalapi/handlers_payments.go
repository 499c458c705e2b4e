package portalapi

import (
	"net/http"
	"strings"

	"github.com/MarkoPoloResearchLab/cartegrise/pkg/portal"
	"github.com/gin-gonic/gin"
)

// webhookPayload accepts both SumUp ({id}) and Midtrans-style ({checkout_id}, {order_id}) callbacks.
// Only the identifier is used; the status is always re-read from the gateway.
type webhookPayload struct {
	ID         string `json:"id"`
	CheckoutID string `json:"checkout_id"`
	OrderID    string `json:"order_id"`
}

func (payload webhookPayload) checkoutID() string {
	for _, candidate := range []string{payload.CheckoutID, payload.ID, payload.OrderID} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (handler *httpHandler) handleCreateCheckout(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	var request portal.CheckoutInput
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidRequest))
		return
	}
	result, err := handler.service.CreateCheckout(ctx.Request.Context(), caller, request)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (handler *httpHandler) handleCreateIntent(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	var request portal.CheckoutInput
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidRequest))
		return
	}
	result, err := handler.service.CreateIntent(ctx.Request.Context(), caller, request)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (handler *httpHandler) handleVerifyPayment(ctx *gin.Context) {
	if _, ok := handler.resolveCaller(ctx); !ok {
		return
	}
	verification, err := handler.service.VerifyPayment(ctx.Request.Context(), ctx.Param("checkoutId"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, verification)
}

func (handler *httpHandler) handlePaymentWebhook(ctx *gin.Context) {
	var payload webhookPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil || payload.checkoutID() == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidRequest))
		return
	}
	verification, err := handler.service.HandleWebhook(ctx.Request.Context(), payload.checkoutID())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": verification.Status})
}
