package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chatapp/realtime-chat/internal/logging"
	"github.com/chatapp/realtime-chat/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MaxUploadSize bounds a single uploaded file.
const MaxUploadSize = 10 << 20

// inlineImages are the detected types stored as IMAGE messages and served
// inline. Everything else is a FILE and is served as a download.
var inlineImages = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// activeTypes are never stored under an extension a browser would render.
var activeTypes = []string{
	"text/html",
	"image/svg+xml",
	"application/xhtml+xml",
	"text/xml",
	"application/xml",
	"application/javascript",
	"text/javascript",
	"application/x-shockwave-flash",
}

// classifyUpload picks the message type and stored extension from the
// detected content type. The client's filename and part Content-Type are
// ignored.
func classifyUpload(m *mimetype.MIME) (models.MessageType, string) {
	for mt := m; mt != nil; mt = mt.Parent() {
		if ext, ok := inlineImages[mt.String()]; ok {
			return models.MessageImage, ext
		}
	}
	for _, active := range activeTypes {
		if m.Is(active) {
			return models.MessageFile, ".bin"
		}
	}
	ext := m.Extension()
	if ext == "" {
		ext = ".bin"
	}
	return models.MessageFile, ext
}

// IsInlineUpload reports whether a stored upload name may be rendered by
// the browser rather than downloaded.
func IsInlineUpload(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, inline := range inlineImages {
		if ext == inline {
			return true
		}
	}
	return false
}

// UploadHeaders hardens responses for stored uploads: nothing is sniffed,
// and anything but a known image is sent as an attachment.
func UploadHeaders(c *fiber.Ctx) error {
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	if !IsInlineUpload(c.Path()) {
		c.Set(fiber.HeaderContentDisposition, "attachment")
	}
	return nil
}

// UploadHandler stores a multipart "file" under uploadDir and posts it to
// the session as an IMAGE or FILE message whose content is the public URL.
func UploadHandler(chat ChatAPI, relay Relayer, uploadDir, baseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
		}
		if fileHeader.Size > MaxUploadSize {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file is too large"})
		}

		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			logging.Error().Err(err).Str("dir", uploadDir).Msg("failed to create upload dir")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create upload dir"})
		}

		src, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is unreadable"})
		}
		detected, err := mimetype.DetectReader(src)
		_ = src.Close()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is unreadable"})
		}
		msgType, ext := classifyUpload(detected)

		filename := uuid.New().String() + ext
		destPath := filepath.Join(uploadDir, filename)
		if err := c.SaveFile(fileHeader, destPath); err != nil {
			logging.Error().Err(err).Str("path", destPath).Msg("failed to save upload")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save file"})
		}

		url := "/uploads/" + filename
		if baseURL != "" {
			url = fmt.Sprintf("%s/uploads/%s", strings.TrimRight(baseURL, "/"), filename)
		}

		msg, err := chat.SendMessage(c.Context(), c.Params("id"), currentUserID(c), url, msgType)
		if err != nil {
			_ = os.Remove(destPath)
			return respondError(c, err, sessionNotFound, "Failed to upload file")
		}
		if relay != nil {
			relay.RelayMessage(msg)
		}
		return c.Status(fiber.StatusCreated).JSON(msg)
	}
}
