package portalapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/MarkoPoloResearchLab/cartegrise/pkg/portal"
	"github.com/gin-gonic/gin"
)

const (
	formFieldFile         = "file"
	formFieldOrderID      = "orderId"
	formFieldDocumentType = "documentType"
	contentTypeZip        = "application/zip"
)

func (handler *httpHandler) handleUploadDocument(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	fileHeader, err := ctx.FormFile(formFieldFile)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("Aucun fichier fourni."))
		return
	}
	// Size is checked before the file is opened so empty uploads never reach storage.
	if fileHeader.Size <= 0 {
		handler.respondError(ctx, portal.ErrEmptyFile)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidRequest))
		return
	}
	defer file.Close()

	document, err := handler.service.Upload(ctx.Request.Context(), caller, portal.UploadInput{
		OrderID:      ctx.PostForm(formFieldOrderID),
		DocumentType: ctx.PostForm(formFieldDocumentType),
		FileName:     fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
		Body:         file,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"document": document})
}

func (handler *httpHandler) handleListMyDocuments(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	documents, err := handler.service.ListMyDocuments(ctx.Request.Context(), caller, ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"documents": documents})
}

func (handler *httpHandler) handleAdminListDocuments(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	page, err := handler.service.ListDocumentsForOrder(ctx.Request.Context(), caller, ctx.Param("id"), pageFromQuery(ctx))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

func (handler *httpHandler) handleAdminDeleteDocument(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	if err := handler.service.DeleteDocument(ctx.Request.Context(), caller, ctx.Param("id")); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (handler *httpHandler) handleAdminDownloadDocuments(ctx *gin.Context) {
	caller, ok := handler.resolveCaller(ctx)
	if !ok {
		return
	}
	archive, err := handler.service.DownloadAllForOrder(ctx.Request.Context(), caller, ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.FileName()))
	ctx.Header("X-Documents-Included", strconv.Itoa(archive.Included))
	ctx.Header("X-Documents-Skipped", strconv.Itoa(archive.Skipped))
	ctx.Data(http.StatusOK, contentTypeZip, archive.Data)
}

func pageFromQuery(ctx *gin.Context) portal.Page {
	number, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	return portal.NewPage(number, limit)
}
