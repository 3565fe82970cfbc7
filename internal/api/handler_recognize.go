package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voltfox-backend/internal/vision"
)

// Recognize handles POST /api/recognize. The photo is sent as the multipart
// field "image". Clients fall back to manual entry on 502 and 503.
func (h *Handler) Recognize(c *gin.Context) {
	if h.recognizer == nil {
		respondError(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "photo recognition is disabled", nil)
		return
	}

	// Leave room for the multipart framing around the image.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+64<<10)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.imageTooLarge(c)
			return
		}
		invalidInput(c, "multipart field image is required", err.Error())
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, h.maxImageBytes+1))
	if err != nil {
		invalidInput(c, "failed to read image", err.Error())
		return
	}
	if int64(len(image)) > h.maxImageBytes {
		h.imageTooLarge(c)
		return
	}
	if len(image) == 0 {
		invalidInput(c, "image is empty", nil)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		invalidInput(c, fmt.Sprintf("unsupported content type %s", mimeType), nil)
		return
	}

	rec, err := h.recognizer.Recognize(c.Request.Context(), image, mimeType)
	if errors.Is(err, vision.ErrUnavailable) {
		_ = c.Error(err)
		respondError(c, http.StatusBadGateway, ErrCodeBadGateway, "recognition service unavailable", nil)
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) imageTooLarge(c *gin.Context) {
	respondError(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
		fmt.Sprintf("image exceeds %d bytes", h.maxImageBytes), nil)
}
