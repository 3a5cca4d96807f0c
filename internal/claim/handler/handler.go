package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	audit "placeclaim/internal/audit/models"
	"placeclaim/internal/claim/models"
	review "placeclaim/internal/review/models"
	verification "placeclaim/internal/verification/models"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/platform/httputil"
	"placeclaim/pkg/platform/middleware/admin"
	"placeclaim/pkg/requestcontext"
)

// Service defines the claim workflow operations.
type Service interface {
	SubmitClaim(ctx context.Context, placeID id.PlaceID) (*models.Claim, error)
	GetClaim(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	SubmitBusinessInfo(ctx context.Context, claimID id.ClaimID, info models.BusinessInfo) (*models.Claim, error)
	SendVerificationCode(ctx context.Context, claimID id.ClaimID) (*verification.Outcome, error)
	ResendVerificationCode(ctx context.Context, claimID id.ClaimID) (*verification.Outcome, error)
	VerifyPhoneCode(ctx context.Context, claimID id.ClaimID, code string) (*models.VerifyResult, error)
	CancelClaim(ctx context.Context, claimID id.ClaimID, reason string) (*models.Claim, error)
	ListAuditLog(ctx context.Context, claimID id.ClaimID) ([]*audit.Entry, error)
	AdminGetClaim(ctx context.Context, claimID id.ClaimID, actorID string) (*models.Claim, error)
	AdminListAuditLog(ctx context.Context, claimID id.ClaimID, actorID string) ([]*audit.Entry, error)
	AdminReviewClaim(ctx context.Context, claimID id.ClaimID, actorID string, req *review.ReviewRequest) (*models.ReviewResult, error)
}

// Handler wires claim endpoints to the claim service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the claimant endpoints. The router must authenticate the
// caller before these run.
func (h *Handler) Register(r chi.Router) {
	r.Route("/claims", func(r chi.Router) {
		r.Use(rateLimitHeaders)
		r.Post("/", h.HandleSubmitClaim)
		r.Get("/{id}", h.HandleGetClaim)
		r.Post("/{id}/business-info", h.HandleBusinessInfo)
		r.Post("/{id}/verification/send", h.HandleSendCode)
		r.Post("/{id}/verification/verify", h.HandleVerifyCode)
		r.Post("/{id}/verification/resend", h.HandleResendCode)
		r.Post("/{id}/cancel", h.HandleCancelClaim)
		r.Get("/{id}/audit", h.HandleListAudit)
	})
}

// RegisterAdmin mounts the review endpoints behind the admin token.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/admin/claims", func(r chi.Router) {
		r.Use(rateLimitHeaders)
		r.Get("/{id}", h.HandleAdminGetClaim)
		r.Post("/{id}/review", h.HandleAdminReview)
		r.Get("/{id}/audit", h.HandleAdminListAudit)
	})
}

// HandleSubmitClaim handles POST /claims.
func (h *Handler) HandleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SubmitClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	placeID, err := req.ParsedPlaceID()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	claim, err := h.service.SubmitClaim(ctx, placeID)
	if err != nil {
		h.fail(ctx, w, "submit claim failed", err, "place_id", placeID.String())
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, models.ToClaimResponse(claim))
}

// HandleGetClaim handles GET /claims/{id}.
func (h *Handler) HandleGetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}
	claim, err := h.service.GetClaim(ctx, claimID)
	if err != nil {
		h.fail(ctx, w, "get claim failed", err, "claim_id", claimID.String())
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, models.ToClaimResponse(claim))
}

// HandleBusinessInfo handles POST /claims/{id}/business-info.
func (h *Handler) HandleBusinessInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.BusinessInfoRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claim, err := h.service.SubmitBusinessInfo(ctx, claimID, req.ToBusinessInfo())
	if err != nil {
		h.fail(ctx, w, "business info failed", err, "claim_id", claimID.String())
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, models.ToClaimResponse(claim))
}

// HandleSendCode handles POST /claims/{id}/verification/send.
func (h *Handler) HandleSendCode(w http.ResponseWriter, r *http.Request) {
	h.handleIssue(w, r, h.service.SendVerificationCode)
}

// HandleResendCode handles POST /claims/{id}/verification/resend.
func (h *Handler) HandleResendCode(w http.ResponseWriter, r *http.Request) {
	h.handleIssue(w, r, h.service.ResendVerificationCode)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request, issue func(context.Context, id.ClaimID) (*verification.Outcome, error)) {
	ctx := r.Context()
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}
	outcome, err := issue(ctx, claimID)
	if err != nil {
		h.fail(ctx, w, "issue verification code failed", err, "claim_id", claimID.String())
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, outcome)
}

// HandleVerifyCode handles POST /claims/{id}/verification/verify. A claim
// rejected by fraud screening is reported as a failure carrying the claim.
func (h *Handler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.VerifyCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.VerifyPhoneCode(ctx, claimID, req.Code)
	if err != nil {
		h.fail(ctx, w, "verify code failed", err, "claim_id", claimID.String())
		return
	}

	h.logger.InfoContext(ctx, "phone code verified",
		"request_id", requestID,
		"claim_id", claimID.String(),
		"outcome", result.Outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if result.Outcome == models.OutcomeRejected {
		httputil.WriteErrorWithData(w,
			dErrors.New(dErrors.CodeFraudRejected, "claim rejected by fraud screening"),
			models.ToVerifyResponse(result))
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, models.ToVerifyResponse(result))
}

// HandleCancelClaim handles POST /claims/{id}/cancel.
func (h *Handler) HandleCancelClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.CancelClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claim, err := h.service.CancelClaim(ctx, claimID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "cancel claim failed", err, "claim_id", claimID.String())
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, models.ToClaimResponse(claim))
}

// HandleListAudit handles GET /claims/{id}/audit.
func (h *Handler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.ListAuditLog(ctx, claimID)
	if err != nil {
		h.fail(ctx, w, "list audit failed", err, "claim_id", claimID.String())
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, models.ToAuditResponse(entries))
}

// HandleAdminGetClaim handles GET /admin/claims/{id}.
func (h *Handler) HandleAdminGetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}
	claim, err := h.service.AdminGetClaim(ctx, claimID, admin.GetAdminActorID(ctx))
	if err != nil {
		h.fail(ctx, w, "admin get claim failed", err, "claim_id", claimID.String())
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, models.ToClaimResponse(claim))
}

// HandleAdminReview handles POST /admin/claims/{id}/review.
func (h *Handler) HandleAdminReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actorID := admin.GetAdminActorID(ctx)
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[review.ReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.AdminReviewClaim(ctx, claimID, actorID, req)
	if err != nil {
		h.fail(ctx, w, "admin review failed", err, "claim_id", claimID.String(), "actor_id", actorID)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, toReviewResponse(result))
}

// HandleAdminListAudit handles GET /admin/claims/{id}/audit.
func (h *Handler) HandleAdminListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.AdminListAuditLog(ctx, claimID, admin.GetAdminActorID(ctx))
	if err != nil {
		h.fail(ctx, w, "admin list audit failed", err, "claim_id", claimID.String())
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, models.ToAuditResponse(entries))
}

func (h *Handler) claimID(w http.ResponseWriter, r *http.Request) (id.ClaimID, bool) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ClaimID{}, false
	}
	return claimID, true
}

// fail logs and writes a service error. Expected business rejections log at
// warn; everything else at error.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, args ...any) {
	args = append(args, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.CodeOf(err) == dErrors.CodeTimeout {
		h.logger.ErrorContext(ctx, msg, args...)
	} else {
		h.logger.WarnContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}
