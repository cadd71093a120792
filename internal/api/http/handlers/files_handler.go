package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/service"
	"github.com/spec-kit/case-service/internal/storage"
)

// FilesHandler streams stored uploads.
type FilesHandler struct {
	reports *service.ReportService
	users   *service.UserService
}

// NewFilesHandler constructs handler.
func NewFilesHandler(reportService *service.ReportService, userService *service.UserService) *FilesHandler {
	return &FilesHandler{reports: reportService, users: userService}
}

// Report GET /files/reports/:name.
func (h *FilesHandler) Report(c *fiber.Ctx) error {
	obj, err := h.reports.OpenFile(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return stream(c, obj)
}

// Avatar GET /files/avatars/:name.
func (h *FilesHandler) Avatar(c *fiber.Ctx) error {
	obj, err := h.users.OpenAvatar(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return stream(c, obj)
}

// stream hands the body to fasthttp, which closes it once written.
func stream(c *fiber.Ctx, obj *storage.Object) error {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	size := -1
	if obj.Size > 0 {
		size = int(obj.Size)
	}
	return c.SendStream(obj.Body, size)
}
