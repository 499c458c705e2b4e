package portalapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status string `json:"status"`
}

type roleRequest struct {
	Role string `json:"role"`
}

func (handler *httpHandler) handleAdminListOrders(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	page, err := handler.service.ListAdminOrders(ctx.Request.Context(), caller, ctx.Query("status"), pageFromQuery(ctx))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

func (handler *httpHandler) handleAdminOrderDetail(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	detail, err := handler.service.AdminOrderDetail(ctx.Request.Context(), caller, ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

func (handler *httpHandler) handleAdminUpdateStatus(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	var request statusRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidRequest))
		return
	}
	order, err := handler.service.UpdateStatus(ctx.Request.Context(), caller, ctx.Param("id"), request.Status)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

func (handler *httpHandler) handleAdminListUsers(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	page, err := handler.service.ListUsers(ctx.Request.Context(), caller, pageFromQuery(ctx))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

func (handler *httpHandler) handleAdminChangeRole(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	var request roleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidRequest))
		return
	}
	profile, err := handler.service.ChangeRole(ctx.Request.Context(), caller, ctx.Param("id"), request.Role)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (handler *httpHandler) handleAdminStats(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	stats, err := handler.service.Stats(ctx.Request.Context(), caller)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}
