package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

// events streams a "change" event carrying the state after every
// notification. The first event is the state at connect time. Event ids
// are notification generations; signals coalesce, so ids may skip.
func (s *Server) events(c *gin.Context) {
	sub := s.manager.Subscribe()
	defer sub.Close() // nolint:errcheck

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	s.sendState(c)

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-s.stop:
			return false
		case _, ok := <-sub.C():
			if !ok {
				return false
			}
			s.sendState(c)
			return true
		}
	})
}

func (s *Server) sendState(c *gin.Context) {
	c.Render(-1, sse.Event{
		Id:    strconv.FormatUint(s.manager.Generation(), 10),
		Event: "change",
		Data:  s.manager.State(),
	})
	c.Writer.Flush()
}
