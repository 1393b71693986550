package server

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

// sseBufferSize is how many receipts a slow client may lag behind before
// the node starts dropping for it.
const sseBufferSize = 64

// events streams every committed contract event as an SSE message named
// after the event type, with the transaction id as message id and the
// {"type":...,"attributes":{...}} object as data.
func (s *Server) events(c *gin.Context) {
	// every commit after the client sees the 200 is delivered
	receipts, unsubscribe := s.ledger.Subscribe(sseBufferSize)
	defer unsubscribe()

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Disable buffering in nginx/proxies
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
	log.Printf("events: client %s connected", c.ClientIP())

	heartbeat := time.NewTicker(s.opts.Heartbeat)
	defer heartbeat.Stop()
	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			log.Printf("events: client %s gone", c.ClientIP())
			return false
		case <-heartbeat.C:
			_, err := fmt.Fprint(w, ": ping\n\n")
			return err == nil
		case rec, open := <-receipts:
			if !open {
				return false
			}
			for _, ev := range rec.Events {
				c.Render(-1, sse.Event{Event: ev.Type, Id: rec.TxId, Data: ev})
			}
			return true
		}
	})
}
