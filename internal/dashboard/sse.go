package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// handleEvents streams sync-state changes as server-sent events. It polls the
// local database and emits a "sync" event whenever the pending or error counts
// move, so a UI can watch the backlog drain without polling the API itself.
func handleEvents(db *gorm.DB, workerID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"workerId": workerID})
		c.Writer.Flush()

		var lastPending, lastErrors int64 = -1, -1
		if overview, err := SyncSummary(db, workerID); err == nil {
			lastPending, lastErrors = overview.Pending, overview.Errors
		}

		ctx := c.Request.Context()
		poll := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer poll.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-poll.C:
				overview, err := SyncSummary(db, workerID)
				if err != nil {
					continue
				}
				if overview.Pending == lastPending && overview.Errors == lastErrors {
					continue
				}
				lastPending, lastErrors = overview.Pending, overview.Errors
				writeSSE(c.Writer, "sync", overview)
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
}
