package portalapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/MarkoPoloResearchLab/cartegrise/pkg/portal"
	"github.com/gin-gonic/gin"
)

func (handler *httpHandler) handleSession(ctx *gin.Context) {
	claims := getClaims(ctx)
	if claims == nil {
		handler.respondError(ctx, portal.ErrUnauthenticated)
		return
	}
	response := gin.H{
		"user_id": claims.GetUserID(),
		"email":   claims.GetUserEmail(),
		"display": claims.GetUserDisplayName(),
		"expires": claims.GetExpiresAt().Unix(),
	}
	if caller, err := handler.service.ResolveCaller(ctx.Request.Context(), claims.GetUserID()); err == nil {
		response["role"] = caller.Role
	}
	ctx.JSON(http.StatusOK, response)
}

func (handler *httpHandler) handleBootstrapProfile(ctx *gin.Context) {
	claims := getClaims(ctx)
	if claims == nil {
		handler.respondError(ctx, portal.ErrUnauthenticated)
		return
	}
	profile, err := handler.service.BootstrapProfile(ctx.Request.Context(), portal.Identity{
		ID:          claims.GetUserID(),
		Email:       claims.GetUserEmail(),
		DisplayName: claims.GetUserDisplayName(),
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (handler *httpHandler) handleGetProfile(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	profile, err := handler.service.Profile(ctx.Request.Context(), caller)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (handler *httpHandler) handleUpdateProfile(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	var update portal.ContactUpdate
	if err := ctx.ShouldBindJSON(&update); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidRequest))
		return
	}
	profile, err := handler.service.UpdateContact(ctx.Request.Context(), caller, update)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (handler *httpHandler) handleCreateOrder(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	var request portal.CreateOrderInput
	if err := ctx.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidRequest))
		return
	}
	order, err := handler.service.CreateOrder(ctx.Request.Context(), caller, request)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"order": order})
}

func (handler *httpHandler) handleListOrders(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	orders, err := handler.service.ListOrders(ctx.Request.Context(), caller)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (handler *httpHandler) handleGetOrder(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	order, err := handler.service.GetOrder(ctx.Request.Context(), caller, ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}
