package api

import (
	"bufio"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/sse"
)

const eventsHeartbeat = 15 * time.Second

// handleEvents streams lifecycle events until the client goes away or the
// stream is closed.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	if s.config.Events == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "event stream is not configured",
		})
	}

	events, cancel := s.config.Events.Subscribe()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		heartbeat := time.NewTicker(eventsHeartbeat)
		defer heartbeat.Stop()

		for {
			var err error
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				err = ev.Encode(w)
			case <-heartbeat.C:
				err = sse.Comment(w, "ping")
			}
			if err == nil {
				err = w.Flush()
			}
			if err != nil {
				s.logger.Debug("event stream client gone", zap.Error(err))
				return
			}
		}
	})
	return nil
}
