package instrument

import (
	"context"
	"log"
	"time"
)

// CleanupOldEvents deletes events older than retentionDays from the sink.
func CleanupOldEvents(ctx context.Context, sink EventSink, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	deleted, err := sink.DeleteEventsOlderThan(ctx, retentionDays)
	if err != nil {
		log.Printf("ERROR: event cleanup: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Event cleanup: deleted %d old events", deleted)
	}
}

// StartCleanup runs CleanupOldEvents once now and then every interval until ctx is done.
func StartCleanup(ctx context.Context, sink EventSink, retentionDays int, interval time.Duration) {
	go func() {
		CleanupOldEvents(ctx, sink, retentionDays)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CleanupOldEvents(ctx, sink, retentionDays)
			}
		}
	}()
}
