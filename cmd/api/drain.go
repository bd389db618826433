package main

import (
	"context"
	"errors"
	"log"
	"time"
)

type drainer interface {
	Close(ctx context.Context) error
}

// drainPasses waits for in-flight batch passes to settle. When the first
// deadline passes it waits up to grace more before giving up; orders of a
// pass still running after that stay processing until the next start.
func drainPasses(d drainer, timeout, grace time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	err := d.Close(ctx)
	cancel()
	if !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	log.Printf("[Shutdown] Batch passes still running after %s, waiting up to %s more", timeout, grace)
	ctx, cancel = context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		log.Printf("[Shutdown] Giving up on running passes; their orders stay processing: %v", err)
		return err
	}
	return nil
}
