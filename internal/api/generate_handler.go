package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"cardgen/internal/gencontent"
	"cardgen/internal/logger"
	"cardgen/internal/models"
)

// multipartMemory caps how much of the upload is buffered in memory.
const multipartMemory = 8 << 20

// handleGenerate accepts a multipart form with a "type" field, an
// optional "text" field and an optional "image" file, and returns the
// generated card as JSON.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	// Leave headroom for the multipart framing around the image.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			PayloadTooLarge(w, fmt.Sprintf("request exceeds the %d byte upload limit", s.cfg.MaxFileSize))
			return
		}
		BadRequest(w, "expected a multipart form")
		return
	}

	contentType := models.ContentType(r.FormValue("type"))
	if !contentType.Valid() {
		BadRequest(w, `field "type" must be one of: image_only, text_only, both`)
		return
	}

	text := strings.TrimSpace(r.FormValue("text"))
	needsText := contentType == models.ContentTypeTextOnly || contentType == models.ContentTypeBoth
	if needsText {
		if text == "" {
			BadRequest(w, `field "text" is required for this content type`)
			return
		}
		if len([]rune(text)) > s.cfg.MaxTextLength {
			BadRequest(w, fmt.Sprintf("text exceeds the %d character limit", s.cfg.MaxTextLength))
			return
		}
	}

	var imageBytes []byte
	var mimeType string
	needsImage := contentType == models.ContentTypeImageOnly || contentType == models.ContentTypeBoth
	if needsImage {
		file, header, err := r.FormFile("image")
		if err != nil {
			BadRequest(w, `file "image" is required for this content type`)
			return
		}
		defer func() { _ = file.Close() }()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !models.SupportedImageExtensions[ext] {
			BadRequest(w, fmt.Sprintf("unsupported image format %q, use jpg, jpeg, png or webp", ext))
			return
		}
		if header.Size > s.cfg.MaxFileSize {
			PayloadTooLarge(w, fmt.Sprintf("image exceeds the %d byte limit", s.cfg.MaxFileSize))
			return
		}

		imageBytes, err = io.ReadAll(file)
		if err != nil {
			InternalError(w, fmt.Errorf("failed to read uploaded image: %w", err))
			return
		}
		mimeType = imageMIME(ext)
	}

	start := time.Now()
	card, err := s.generate(r, contentType, imageBytes, mimeType, text)
	generationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		generationsTotal.WithLabelValues(string(contentType), "error").Inc()
		switch {
		case errors.Is(err, gencontent.ErrGenerateTimeout):
			Error(w, http.StatusGatewayTimeout, "GENERATION_TIMEOUT", "card generation timed out, try again")
		case errors.Is(err, gencontent.ErrLowQuality):
			Error(w, http.StatusBadGateway, "GENERATION_FAILED", "could not produce a quality card, try a clearer photo or description")
		default:
			InternalError(w, err)
		}
		return
	}

	generationsTotal.WithLabelValues(string(contentType), "success").Inc()
	logger.Log.Info().
		Str("type", string(contentType)).
		Str("text", logger.SanitizeText(text)).
		Int("image_bytes", len(imageBytes)).
		Dur("duration", time.Since(start)).
		Msg("Card generated")
	JSON(w, http.StatusOK, card)
}

func (s *Server) generate(r *http.Request, contentType models.ContentType, imageBytes []byte, mimeType, text string) (*models.Card, error) {
	ctx := r.Context()
	switch contentType {
	case models.ContentTypeTextOnly:
		return s.generator.GenerateFromText(ctx, text)
	case models.ContentTypeImageOnly:
		return s.generator.GenerateFromImage(ctx, imageBytes, mimeType)
	default:
		return s.generator.GenerateFromBoth(ctx, imageBytes, mimeType, text)
	}
}

func imageMIME(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
