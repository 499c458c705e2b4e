package portal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const sniffBytes = 3072

var documentTypePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// UploadInput is one file to attach to an order.
type UploadInput struct {
	OrderID      string
	DocumentType string
	FileName     string
	ContentType  string
	Size         int64
	Body         io.Reader
}

// DocumentPage is a window of an order's documents.
type DocumentPage struct {
	Documents []DocumentListing `json:"documents"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	Limit     int               `json:"limit"`
}

// Upload stores a file under {user}/{order}/{type}_{ms}.{ext} and records its metadata row.
// Documents of the same type accumulate.
func (service *Service) Upload(ctx context.Context, caller Caller, input UploadInput) (Document, error) {
	if service.blobs == nil {
		return Document{}, fmt.Errorf("%w: blob store is not configured", ErrInvalidServiceConfig)
	}
	if input.Size <= 0 || input.Body == nil {
		return Document{}, ErrEmptyFile
	}
	if input.Size > service.maxUploadBytes {
		return Document{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, input.Size, service.maxUploadBytes)
	}
	documentType := strings.ToLower(strings.TrimSpace(input.DocumentType))
	if !documentTypePattern.MatchString(documentType) {
		return Document{}, fmt.Errorf("%w: %q", ErrInvalidDocument, input.DocumentType)
	}
	order, err := service.store.GetOrderForUser(ctx, strings.TrimSpace(input.OrderID), caller.ID)
	if err != nil {
		return Document{}, translateNotFound(err, ErrOrderNotOwned)
	}

	body, contentType, extension, err := describeUpload(input)
	if err != nil {
		return Document{}, err
	}
	now := service.now()
	key := fmt.Sprintf("%s/%s/%s_%d.%s", caller.ID, order.ID, documentType, now.UnixMilli(), extension)
	publicURL, err := service.blobs.Put(ctx, key, body, input.Size, contentType)
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationUploadDocument, ActorID: caller.ID, OrderID: order.ID, Detail: key, Error: err})
		return Document{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	document := Document{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		Name:      documentType,
		FileURL:   publicURL,
		FileType:  contentType,
		FileSize:  input.Size,
		CreatedAt: now,
	}
	operationError := service.store.InsertDocument(ctx, document)
	service.logOperation(ctx, OperationLog{
		Operation: operationUploadDocument,
		ActorID:   caller.ID,
		OrderID:   order.ID,
		SubjectID: document.ID,
		Detail:    key,
		Error:     operationError,
	})
	if operationError != nil {
		if cleanupErr := service.blobs.Delete(context.WithoutCancel(ctx), key); cleanupErr != nil {
			service.logOperation(ctx, OperationLog{Operation: operationDeleteDocument, ActorID: caller.ID, OrderID: order.ID, Detail: key, Error: cleanupErr})
		}
		return Document{}, WrapError("service", "document", "insert", operationError)
	}
	return document, nil
}

func describeUpload(input UploadInput) (io.Reader, string, string, error) {
	header := make([]byte, sniffBytes)
	read, err := io.ReadFull(input.Body, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, "", "", fmt.Errorf("%w: read upload: %v", ErrValidation, err)
	}
	if read == 0 {
		return nil, "", "", ErrEmptyFile
	}
	header = header[:read]
	detected := mimetype.Detect(header)

	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = detected.String()
	}
	extension := strings.TrimPrefix(strings.ToLower(path.Ext(input.FileName)), ".")
	if extension == "" {
		extension = strings.TrimPrefix(detected.Extension(), ".")
	}
	if extension == "" {
		extension = "bin"
	}
	return io.MultiReader(bytes.NewReader(header), input.Body), contentType, extension, nil
}

// ListMyDocuments lists the documents of one of the caller's own orders.
func (service *Service) ListMyDocuments(ctx context.Context, caller Caller, orderID string) ([]Document, error) {
	order, err := service.store.GetOrderForUser(ctx, strings.TrimSpace(orderID), caller.ID)
	if err != nil {
		return nil, translateNotFound(err, ErrOrderNotFound)
	}
	return service.store.ListDocumentsForOrder(ctx, order.ID)
}

// ListDocumentsForOrder pages through an order's documents for the back-office, newest first.
func (service *Service) ListDocumentsForOrder(ctx context.Context, caller Caller, orderID string, page Page) (DocumentPage, error) {
	if err := caller.RequireAdmin(); err != nil {
		return DocumentPage{}, err
	}
	listings, total, err := service.store.ListDocumentListings(ctx, strings.TrimSpace(orderID), page)
	if err != nil {
		return DocumentPage{}, WrapError("service", "document", "list", err)
	}
	return DocumentPage{Documents: listings, Total: total, Page: page.Number, Limit: page.Limit}, nil
}

// DeleteDocument removes the metadata row and, when possible, the backing blob.
// A blob removal failure is logged and never blocks the row deletion.
func (service *Service) DeleteDocument(ctx context.Context, caller Caller, documentID string) error {
	if err := caller.RequireAdmin(); err != nil {
		return err
	}
	document, err := service.store.GetDocument(ctx, strings.TrimSpace(documentID))
	if err != nil {
		return translateNotFound(err, ErrDocumentNotFound)
	}
	service.removeBlob(ctx, caller, document)
	operationError := service.store.DeleteDocument(ctx, document.ID)
	service.logOperation(ctx, OperationLog{
		Operation: operationDeleteDocument,
		ActorID:   caller.ID,
		OrderID:   document.OrderID,
		SubjectID: document.ID,
		Error:     operationError,
	})
	return translateNotFound(operationError, ErrDocumentNotFound)
}

func (service *Service) removeBlob(ctx context.Context, caller Caller, document Document) {
	entry := OperationLog{
		Operation: operationDeleteDocument,
		ActorID:   caller.ID,
		OrderID:   document.OrderID,
		SubjectID: document.ID,
	}
	if service.blobs == nil {
		entry.Status = operationStatusSkipped
		entry.Detail = "blob store not configured"
		service.logOperation(ctx, entry)
		return
	}
	key, ok := StorageKeyFromURL(document.FileURL, service.blobs.Bucket())
	if !ok {
		entry.Status = operationStatusSkipped
		entry.Detail = "unresolved storage key: " + document.FileURL
		service.logOperation(ctx, entry)
		return
	}
	entry.Detail = key
	if err := service.blobs.Delete(ctx, key); err != nil {
		entry.Status = operationStatusDegraded
		entry.Error = err
		service.logOperation(ctx, entry)
	}
}
