package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/service"
	"github.com/spec-kit/case-service/internal/validation"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

// parseBody decodes the request body into dst and validates it.
func parseBody(c *fiber.Ctx, v *validation.Validator, dst any) error {
	if err := decodeBody(c, dst); err != nil {
		return err
	}
	return validate(v, dst)
}

func decodeBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func validate(v *validation.Validator, dst any) error {
	fieldErrs := v.Struct(dst)
	if len(fieldErrs) == 0 {
		return nil
	}
	details := make(map[string]any, len(fieldErrs))
	for field, msg := range fieldErrs {
		details[field] = msg
	}
	return apperrors.NewValidationError("validation failed", details)
}

func parseRole(raw string) (domain.Role, error) {
	role, err := domain.ParseRole(raw)
	if err != nil {
		return "", apperrors.NewValidationError("validation failed", map[string]any{"role": err.Error()})
	}
	return role, nil
}

// pathID returns the named path parameter once it parses as a UUID.
func pathID(c *fiber.Ctx, name string) (string, error) {
	raw := c.Params(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NewValidationError("invalid "+name, map[string]any{name: name + " must be a valid id"})
	}
	return id.String(), nil
}

// optionalPathID is pathID for routes mounted both flat and nested under a case.
func optionalPathID(c *fiber.Ctx, name string) (*string, error) {
	if c.Params(name) == "" {
		return nil, nil
	}
	id, err := pathID(c, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func pageQuery(c *fiber.Ctx) (dto.PageQuery, error) {
	var q dto.PageQuery
	if err := c.QueryParser(&q); err != nil {
		return q, apperrors.NewValidationError("invalid pagination", map[string]any{"limit": "limit and page must be numbers"})
	}
	return q.Normalize(), nil
}

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// formFile opens an uploaded file. A missing optional file yields a nil upload.
// The returned closer is never nil.
func formFile(c *fiber.Ctx, field string, required bool) (*service.Upload, func(), error) {
	noop := func() {}
	missing := func() (*service.Upload, func(), error) {
		if required {
			return nil, noop, apperrors.NewValidationError(field+" file is required", map[string]any{field: field + " is required"})
		}
		return nil, noop, nil
	}
	if !isMultipart(c) {
		return missing()
	}
	fh, err := c.FormFile(field)
	if err != nil {
		return missing()
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, apperrors.NewInternalError(err)
	}
	return &service.Upload{Reader: f, Size: fh.Size}, func() { _ = f.Close() }, nil
}

func listData(key string, items any, q dto.PageQuery, total int) fiber.Map {
	return fiber.Map{key: items, "pagination": dto.NewPagination(q, total)}
}
