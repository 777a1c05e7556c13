package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jackfish212/assetfs"
	"github.com/jackfish212/assetfs/assets"
	"github.com/jackfish212/assetfs/types"
)

// statusFor maps manager errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidInput),
		errors.Is(err, types.ErrIsDir),
		errors.Is(err, types.ErrNotDir):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrNotWritable):
		return http.StatusMethodNotAllowed
	case errors.Is(err, types.ErrAlreadyExists),
		errors.Is(err, types.ErrNotMounted):
		return http.StatusConflict
	case errors.Is(err, types.ErrMountFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, types.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// decode reads a JSON body with sonic.
func decode(c *gin.Context, v any) error {
	body, err := c.GetRawData()
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return errors.Join(types.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"generation": s.manager.Generation(),
	})
}

func (s *Server) state(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.State())
}

// selection applies a mount selection and answers with the new state.
func (s *Server) selection(c *gin.Context) {
	var req assetfs.SelectionRequest
	if err := decode(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	sel, err := req.Selection(s.host)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.manager.Apply(c.Request.Context(), sel); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.manager.State())
}

// dropped mounts archives uploaded as multipart "files".
func (s *Server) dropped(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.fail(c, errors.Join(types.ErrInvalidInput, err))
		return
	}
	headers := form.File["files"]
	items := make([]assetfs.DroppedItem, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.fail(c, errors.Join(types.ErrInvalidInput, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.fail(c, errors.Join(types.ErrInvalidInput, err))
			return
		}
		items = append(items, assetfs.DroppedItem{Name: fh.Filename, Data: data})
	}
	if err := s.manager.MountDropped(c.Request.Context(), items, s.drop); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.manager.State())
}

func (s *Server) rebuild(c *gin.Context) {
	if err := s.manager.Rebuild(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.manager.State())
}

// readFile lists a directory or returns a file's bytes.
func (s *Server) readFile(c *gin.Context) {
	ctx := c.Request.Context()
	p := c.Param("path")
	entry, err := s.manager.Stat(ctx, p)
	if err != nil {
		s.fail(c, err)
		return
	}
	if entry.IsDir {
		entries, err := s.manager.List(ctx, p)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"path": entry.Path, "entries": entries})
		return
	}
	data, err := s.manager.ReadFile(ctx, p)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, assets.MimeType(entry.Path), data)
}

func (s *Server) writeFile(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		s.fail(c, errors.Join(types.ErrInvalidInput, err))
		return
	}
	if err := s.manager.WriteFile(c.Request.Context(), c.Param("path"), data); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) unlink(c *gin.Context) {
	if err := s.manager.Unlink(c.Request.Context(), c.Param("path")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) mkdir(c *gin.Context) {
	if err := s.manager.Mkdir(c.Request.Context(), c.Param("path")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type renameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) rename(c *gin.Context) {
	var req renameRequest
	if err := decode(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.manager.Rename(c.Request.Context(), req.From, req.To); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// blob serves the bytes behind a live blob URL.
func (s *Server) blob(c *gin.Context) {
	b, ok := s.manager.Registry().Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "blob not found"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, b.MimeType, b.Data)
}
