package profile

// ProfileCreateInput for POST /profile
type ProfileCreateInput struct {
	Body struct {
		Name            string `json:"name"                  minLength:"1" maxLength:"100" required:"true" doc:"Display name"               example:"Sun"`
		PartnerNameHint string `json:"partnerNameHint,omitempty"           maxLength:"100"                 doc:"Partner name entered at signup" example:"Moon"`
		Email           string `json:"email,omitempty"       format:"email"                                doc:"Email address"              example:"sun@example.com"`
		PhoneNumber     string `json:"phoneNumber,omitempty" pattern:"^\\+[1-9]\\d{6,14}$"                doc:"Phone (E.164)"              example:"+358401234567"`
		Gender          string `json:"gender,omitempty"      enum:"Male,Female,Other"                      doc:"Gender as picked at signup" example:"Female"`
		AnniversaryDate string `json:"anniversaryDate,omitempty" format:"date"                            doc:"Relationship anniversary"   example:"2021-06-12"`
	}
}

// ProfileGetInput for GET /profile (no body needed)
type ProfileGetInput struct{}
