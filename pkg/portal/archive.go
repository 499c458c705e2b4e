package portal

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"
)

// DocumentArchive is a zip of the retrievable documents of an order.
// Included may be lower than the order's document count.
type DocumentArchive struct {
	OrderReference string
	Data           []byte
	Included       int
	Skipped        int
}

// FileName is the attachment name offered to the browser.
func (archive DocumentArchive) FileName() string {
	if archive.OrderReference == "" {
		return "documents.zip"
	}
	return fmt.Sprintf("documents-%s.zip", archive.OrderReference)
}

// DownloadAllForOrder packs every document that can be fetched into one archive.
// A blob is read from object storage first, then from its public URL; documents failing both are skipped.
func (service *Service) DownloadAllForOrder(ctx context.Context, caller Caller, orderID string) (DocumentArchive, error) {
	if err := caller.RequireAdmin(); err != nil {
		return DocumentArchive{}, err
	}
	order, err := service.store.GetOrder(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return DocumentArchive{}, translateNotFound(err, ErrOrderNotFound)
	}
	documents, err := service.store.ListDocumentsForOrder(ctx, order.ID)
	if err != nil {
		return DocumentArchive{}, WrapError("service", "document", "list", err)
	}

	contents := make([][]byte, len(documents))
	var group errgroup.Group
	group.SetLimit(archiveFetchLimit)
	for index, document := range documents {
		group.Go(func() error {
			contents[index] = service.fetchDocument(ctx, caller, document)
			return nil
		})
	}
	_ = group.Wait()

	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	names := make(map[string]int, len(documents))
	archive := DocumentArchive{OrderReference: order.Reference}
	for index, document := range documents {
		if contents[index] == nil {
			archive.Skipped++
			continue
		}
		entry, err := writer.CreateHeader(&zip.FileHeader{
			Name:     uniqueEntryName(names, document),
			Method:   zip.Deflate,
			Modified: document.CreatedAt,
		})
		if err != nil {
			return DocumentArchive{}, fmt.Errorf("zip entry: %w", err)
		}
		if _, err := entry.Write(contents[index]); err != nil {
			return DocumentArchive{}, fmt.Errorf("zip write: %w", err)
		}
		archive.Included++
	}
	if err := writer.Close(); err != nil {
		return DocumentArchive{}, fmt.Errorf("zip close: %w", err)
	}
	archive.Data = buffer.Bytes()

	entry := OperationLog{
		Operation: operationDownloadArchive,
		ActorID:   caller.ID,
		OrderID:   order.ID,
		Detail:    fmt.Sprintf("included=%d skipped=%d", archive.Included, archive.Skipped),
	}
	if archive.Skipped > 0 {
		entry.Status = operationStatusDegraded
	}
	service.logOperation(ctx, entry)
	return archive, nil
}

func (service *Service) fetchDocument(ctx context.Context, caller Caller, document Document) []byte {
	var failures []string
	if service.blobs != nil {
		if key, ok := StorageKeyFromURL(document.FileURL, service.blobs.Bucket()); ok {
			data, err := service.blobs.Get(ctx, key)
			if err == nil {
				return data
			}
			failures = append(failures, "storage: "+err.Error())
		}
	}
	if service.fetcher != nil && document.FileURL != "" {
		data, err := service.fetcher.Fetch(ctx, document.FileURL)
		if err == nil {
			return data
		}
		failures = append(failures, "url: "+err.Error())
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationDownloadArchive,
		ActorID:   caller.ID,
		OrderID:   document.OrderID,
		SubjectID: document.ID,
		Status:    operationStatusSkipped,
		Detail:    strings.Join(failures, "; "),
	})
	return nil
}

func uniqueEntryName(seen map[string]int, document Document) string {
	base := strings.TrimSpace(document.Name)
	if base == "" {
		base = document.ID
	}
	extension := ""
	if parsed, err := url.Parse(document.FileURL); err == nil {
		extension = strings.ToLower(path.Ext(parsed.Path))
	}
	if strings.HasSuffix(strings.ToLower(base), extension) {
		extension = ""
	}
	name := base + extension
	seen[name]++
	if count := seen[name]; count > 1 {
		name = fmt.Sprintf("%s (%d)%s", base, count, extension)
	}
	return name
}
