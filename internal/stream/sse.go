package stream

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler returns the gin handler for the long-lived event stream
// endpoint. Each request registers one client and writes SSE frames
// until the client disconnects; the handler never closes the stream on
// its own.
func Handler(reg *Registry, b *Broadcaster, buffer int) gin.HandlerFunc {
	return func(c *gin.Context) {
		w := c.Writer
		flusher, ok := w.(http.Flusher)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		client := reg.Add(buffer)
		defer reg.Remove(client)

		// Greet the new client alone, then refresh everyone's heartbeat
		// so existing clients see the connection count is still live.
		b.SendTo(client, NewEvent(EventConnected, HeartbeatData{Timestamp: time.Now().UTC()}))
		b.Heartbeat()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-client.Frames():
				if !ok {
					// Removed by a failed broadcast write.
					return
				}
				if _, err := w.Write(frame); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
