package service

import (
	"io"

	apperrors "github.com/spec-kit/case-service/pkg/util"
)

// Sentinel outcomes. They are DomainErrors so handlers render them directly and
// callers can still match them with errors.Is.
var (
	ErrEmailTaken           = apperrors.NewConflict("email is already registered", nil)
	ErrInvalidCredentials   = apperrors.NewInvalidCredentials()
	ErrInvalidOrExpiredCode = apperrors.NewInvalidResetCode()
	ErrNotVerified          = apperrors.NewNotVerified()
	ErrDeliveryFailed       = apperrors.NewDeliveryFailed(nil)
	ErrForbidden            = apperrors.NewForbidden("you are not allowed to perform this action")
	ErrRoleChangeForbidden  = apperrors.NewForbidden("only a super admin can change roles")

	ErrUserNotFound     = apperrors.NewNotFound("user", nil)
	ErrCaseNotFound     = apperrors.NewNotFound("case", nil)
	ErrReportNotFound   = apperrors.NewNotFound("report", nil)
	ErrVisitingNotFound = apperrors.NewNotFound("visiting", nil)
	ErrFileNotFound     = apperrors.NewNotFound("file", nil)

	ErrReportNotPDF   = apperrors.NewValidationError("report must be a PDF file", map[string]any{"report": "must be a PDF file"})
	ErrAvatarNotImage = apperrors.NewValidationError("avatar must be an image", map[string]any{"avatar": "must be an image"})
)

// Upload is a file received from a client.
type Upload struct {
	Reader io.Reader
	Size   int64
}
