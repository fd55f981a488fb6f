package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/campusevents/event-api/internal/models"
	appErrors "github.com/campusevents/event-api/pkg/errors"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// requireRole gates an operation on the principal holding one of roles.
func requireRole(principal *models.Principal, roles ...models.UserRole) error {
	if principal == nil || principal.UserID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if !models.AuthorizeAny(principal, roles...) {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}
	return nil
}

func validateID(id, label string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, label+" id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid "+label+" id")
	}
	return nil
}

func strPtr(value string) *string {
	return &value
}
