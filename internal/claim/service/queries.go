package service

import (
	"context"

	audit "placeclaim/internal/audit/models"
	"placeclaim/internal/claim/models"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
)

// GetClaim returns one of the caller's claims.
func (s *Service) GetClaim(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.loadOwned(ctx, claimID, userID)
}

// ListAuditLog returns the audit trail of one of the caller's claims.
func (s *Service) ListAuditLog(ctx context.Context, claimID id.ClaimID) ([]*audit.Entry, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadOwned(ctx, claimID, userID); err != nil {
		return nil, err
	}
	return s.audit.List(ctx, claimID)
}

// AdminGetClaim returns any claim to an administrator.
func (s *Service) AdminGetClaim(ctx context.Context, claimID id.ClaimID, actorID string) (*models.Claim, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.load(ctx, claimID)
}

// AdminListAuditLog returns the audit trail of any claim to an administrator.
func (s *Service) AdminListAuditLog(ctx context.Context, claimID id.ClaimID, actorID string) ([]*audit.Entry, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, claimID); err != nil {
		return nil, err
	}
	return s.audit.List(ctx, claimID)
}

func (s *Service) requireAdmin(ctx context.Context, actorID string) error {
	if actorID == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "admin identity is required")
	}
	ok, err := s.admins.IsAdmin(ctx, actorID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check admin authority")
	}
	if !ok {
		return dErrors.New(dErrors.CodeForbidden, "actor is not an administrator")
	}
	return nil
}
