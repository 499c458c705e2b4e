package portal

import (
	"context"
	"sync"
)

// SecondaryWriter runs best-effort writes whose failure must not fail the primary operation.
// Outcomes are reported by the task itself.
type SecondaryWriter interface {
	Submit(ctx context.Context, task string, fn func(ctx context.Context) error)
}

// InlineSecondaryWriter runs the task before returning.
type InlineSecondaryWriter struct{}

// Submit runs fn synchronously and drops its error.
func (InlineSecondaryWriter) Submit(ctx context.Context, _ string, fn func(ctx context.Context) error) {
	_ = fn(ctx)
}

// AsyncSecondaryWriter runs tasks in their own goroutine, detached from request cancellation.
type AsyncSecondaryWriter struct {
	group sync.WaitGroup
}

// NewAsyncSecondaryWriter returns a writer ready for use.
func NewAsyncSecondaryWriter() *AsyncSecondaryWriter {
	return &AsyncSecondaryWriter{}
}

// Submit schedules fn and returns immediately.
func (writer *AsyncSecondaryWriter) Submit(ctx context.Context, _ string, fn func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)
	writer.group.Add(1)
	go func() {
		defer writer.group.Done()
		_ = fn(detached)
	}()
}

// Wait blocks until every submitted task finished or ctx is done.
func (writer *AsyncSecondaryWriter) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		writer.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (service *Service) submitSecondary(ctx context.Context, entry OperationLog, fn func(ctx context.Context) error) {
	service.secondary.Submit(ctx, entry.Operation, func(taskContext context.Context) error {
		err := fn(taskContext)
		entry.Error = err
		service.logOperation(taskContext, entry)
		return err
	})
}
