package httpapi

import (
	"encoding/base64"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lautaromei/wpbb10/internal/media"
)

const (
	defaultChatLimit    = 20
	defaultMessageLimit = 50
)

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service":   "wpbb10",
		"state":     string(s.manager.State()),
		"publicUrl": s.publicURL,
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"state": string(s.manager.State()),
	})
}

// handleQR reports the pending pairing code, qr:null outside pairing.
func (s *Server) handleQR(c echo.Context) error {
	if qr := s.manager.QRCode(); qr != "" {
		return c.JSON(http.StatusOK, map[string]any{"qr": qr})
	}
	return c.JSON(http.StatusOK, map[string]any{"qr": nil})
}

func (s *Server) handleTunnel(c echo.Context) error {
	if s.publicURL == "" {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no public url configured"})
	}
	return c.JSON(http.StatusOK, map[string]string{"url": s.publicURL})
}

func (s *Server) handleChats(c echo.Context) error {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultChatLimit
	}
	chats := s.manager.Chats(c.Request().Context(), limit)
	return c.JSON(http.StatusOK, map[string]any{"chats": chats})
}

func (s *Server) handleMessages(c echo.Context) error {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultMessageLimit
	}
	msgs := s.manager.Messages(c.Request().Context(), param(c, "id"), limit, s.baseURL(c))
	return c.JSON(http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleSendText(c echo.Context) error {
	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "body is required"})
	}
	msg, err := s.manager.SendText(c.Request().Context(), param(c, "id"), req.Body)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"message": msg})
}

// handleSendMedia accepts either a multipart upload (field "file",
// optional "caption") or a JSON body with a base64 payload, which is
// what the legacy client sends.
func (s *Server) handleSendMedia(c echo.Context) error {
	var (
		data     []byte
		mimetype string
		caption  string
	)

	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return httpError(c, err)
		}
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			return httpError(c, err)
		}
		mimetype = fh.Header.Get("Content-Type")
		caption = c.FormValue("caption")
	} else {
		var req struct {
			Data     string `json:"data"`
			Mimetype string `json:"mimetype"`
			Caption  string `json:"caption"`
		}
		if err := c.Bind(&req); err != nil || req.Data == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "file or base64 data is required"})
		}
		if data, err = base64.StdEncoding.DecodeString(req.Data); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "data is not valid base64"})
		}
		mimetype = req.Mimetype
		caption = req.Caption
	}

	if mimetype == "" {
		mimetype = http.DetectContentType(data)
	}

	msg, err := s.manager.SendMedia(c.Request().Context(), param(c, "id"), data, mimetype, caption, s.baseURL(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"message": msg})
}

func (s *Server) handleReact(c echo.Context) error {
	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := c.Bind(&req); err != nil || req.Emoji == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "emoji is required"})
	}
	if err := s.manager.React(c.Request().Context(), param(c, "msgId"), req.Emoji); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSeen(c echo.Context) error {
	if err := s.manager.MarkRead(c.Request().Context(), param(c, "id")); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handlePicture(c echo.Context) error {
	link := s.manager.AvatarURL(c.Request().Context(), param(c, "id"))
	if link == "" {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no picture available"})
	}
	return c.JSON(http.StatusOK, map[string]string{"url": link})
}

// handleMedia serves cached media payloads. Audio is served as an MP3
// variant because the legacy client cannot play OGG Opus; the variant
// is transcoded once and cached next to the original, which stays
// reachable via ?format=original. Transcode failure falls back to the
// original bytes.
func (s *Server) handleMedia(c echo.Context) error {
	id := param(c, "id")
	cache := s.manager.Cache()

	blob, ok := cache.Get(id)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "media not cached"})
	}

	if strings.HasPrefix(blob.Mimetype, "audio/") && c.QueryParam("format") != "original" {
		derived, err := cache.GetOrDerive(id, media.ProfileMP3.Name, func(orig media.Blob) (media.Blob, error) {
			tr := s.manager.Transcoder()
			if tr == nil {
				return media.Blob{}, media.ErrTranscoderUnavailable
			}
			data, mimetype, err := tr.Transcode(c.Request().Context(), orig.Data, media.ProfileMP3)
			if err != nil {
				return media.Blob{}, err
			}
			return media.Blob{Data: data, Mimetype: mimetype}, nil
		})
		if err != nil {
			s.logger.Warn("mp3 variant unavailable, serving original", zap.String("media", id), zap.Error(err))
		} else {
			blob = derived
		}
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Blob(http.StatusOK, blob.Mimetype, blob.Data)
}
