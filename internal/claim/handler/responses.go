package handler

import "placeclaim/internal/claim/models"

type ReviewResponse struct {
	Claim   *models.ClaimResponse `json:"claim"`
	OwnerID string                `json:"verified_owner_id,omitempty"`
}

func toReviewResponse(r *models.ReviewResult) *ReviewResponse {
	resp := &ReviewResponse{Claim: models.ToClaimResponse(r.Claim)}
	if r.Owner != nil {
		resp.OwnerID = r.Owner.ID.String()
	}
	return resp
}
