package models

import (
	"strings"

	id "placeclaim/pkg/domain"
	"placeclaim/pkg/platform/validation"
)

type SubmitClaimRequest struct {
	PlaceID string `json:"place_id" validate:"required,uuid"`
}

func (r *SubmitClaimRequest) Normalize() {
	r.PlaceID = strings.TrimSpace(r.PlaceID)
}

func (r *SubmitClaimRequest) Validate() error {
	return validation.Struct(r)
}

// ParsedPlaceID returns the typed place ID. Call after Validate.
func (r *SubmitClaimRequest) ParsedPlaceID() (id.PlaceID, error) {
	return id.ParsePlaceID(r.PlaceID)
}

type BusinessInfoRequest struct {
	Role            string `json:"role" validate:"required,oneof=owner manager"`
	BusinessEmail   string `json:"business_email" validate:"required,email,max=254"`
	Description     string `json:"description" validate:"notblank,max=2000"`
	YearsAtLocation int    `json:"years_at_location" validate:"min=0,max=150"`
	PhoneNumber     string `json:"phone_number" validate:"required,phone"`
}

func (r *BusinessInfoRequest) Normalize() {
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
	r.BusinessEmail = strings.ToLower(strings.TrimSpace(r.BusinessEmail))
	r.Description = strings.TrimSpace(r.Description)
	r.PhoneNumber = strings.Join(strings.FieldsFunc(r.PhoneNumber, func(c rune) bool {
		return c == ' ' || c == '-' || c == '(' || c == ')' || c == '.'
	}), "")
}

func (r *BusinessInfoRequest) Validate() error {
	return validation.Struct(r)
}

func (r *BusinessInfoRequest) ToBusinessInfo() BusinessInfo {
	return BusinessInfo{
		Role:            Role(r.Role),
		BusinessEmail:   r.BusinessEmail,
		Description:     r.Description,
		YearsAtLocation: r.YearsAtLocation,
		PhoneNumber:     r.PhoneNumber,
	}
}

type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func (r *VerifyCodeRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyCodeRequest) Validate() error {
	return validation.Struct(r)
}

type CancelClaimRequest struct {
	Reason string `json:"reason" validate:"notblank,max=500"`
}

func (r *CancelClaimRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *CancelClaimRequest) Validate() error {
	return validation.Struct(r)
}
