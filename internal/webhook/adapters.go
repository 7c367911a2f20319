package webhook

import (
	"encoding/json"
	"strings"

	"github.com/N8Nexus-ai/product/internal/leads/service"

	"github.com/google/uuid"
)

// Channel source tags written to leads.source.
const (
	SourceFacebook    = "facebook"
	SourceGoogle      = "google"
	SourceLinkedIn    = "linkedin"
	SourceTypeform    = "typeform"
	SourceLandingPage = "landing-page"
)

// facebookPayload is the lead-ad shape pushed by the Facebook webhook.
type facebookPayload struct {
	FieldData  []facebookField `json:"field_data"`
	CampaignID string          `json:"campaign_id"`
}

type facebookField struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

func (p facebookPayload) field(name string) *string {
	for _, f := range p.FieldData {
		if f.Name == name && len(f.Values) > 0 && strings.TrimSpace(f.Values[0]) != "" {
			value := f.Values[0]
			return &value
		}
	}
	return nil
}

// extractFacebook maps a Facebook lead-ad payload onto the canonical input.
func extractFacebook(companyID uuid.UUID, body json.RawMessage) (service.CreateInput, error) {
	var payload facebookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return service.CreateInput{}, err
	}

	name := payload.field("full_name")
	if name == nil {
		name = payload.field("first_name")
	}

	fields, _ := json.Marshal(payload.FieldData)

	return service.CreateInput{
		CompanyID:    companyID,
		Name:         name,
		Email:        payload.field("email"),
		Phone:        payload.field("phone_number"),
		Message:      payload.field("message"),
		Source:       SourceFacebook,
		CustomFields: fields,
		CampaignID:   parseCampaignID(payload.CampaignID),
	}, nil
}

// googlePayload is the flat shape pushed by Google Ads lead form extensions.
type googlePayload struct {
	Name        *string `json:"name"`
	FullName    *string `json:"fullName"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	PhoneNumber *string `json:"phoneNumber"`
	Message     *string `json:"message"`
	Comments    *string `json:"comments"`
	CampaignID  string  `json:"campaignId"`
}

func extractGoogle(companyID uuid.UUID, body json.RawMessage) (service.CreateInput, error) {
	var payload googlePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return service.CreateInput{}, err
	}

	return service.CreateInput{
		CompanyID:    companyID,
		Name:         firstNonBlank(payload.Name, payload.FullName),
		Email:        payload.Email,
		Phone:        firstNonBlank(payload.Phone, payload.PhoneNumber),
		Message:      firstNonBlank(payload.Message, payload.Comments),
		Source:       SourceGoogle,
		CustomFields: body,
		CampaignID:   parseCampaignID(payload.CampaignID),
	}, nil
}

// linkedinPayload is the shape pushed by LinkedIn Lead Gen Forms.
type linkedinPayload struct {
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	EmailAddress *string `json:"emailAddress"`
	PhoneNumber  *string `json:"phoneNumber"`
	Message      *string `json:"message"`
	CompanyName  string  `json:"companyName"`
	JobTitle     string  `json:"jobTitle"`
	CampaignID   string  `json:"campaignId"`
}

func extractLinkedIn(companyID uuid.UUID, body json.RawMessage) (service.CreateInput, error) {
	var payload linkedinPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return service.CreateInput{}, err
	}

	var name *string
	if full := strings.TrimSpace(payload.FirstName + " " + payload.LastName); full != "" {
		name = &full
	}

	// Company and role ride along as custom fields for scoring and CRM notes.
	fields := map[string]any{}
	_ = json.Unmarshal(body, &fields)
	fields["company"] = payload.CompanyName
	fields["jobTitle"] = payload.JobTitle
	custom, _ := json.Marshal(fields)

	return service.CreateInput{
		CompanyID:    companyID,
		Name:         name,
		Email:        payload.EmailAddress,
		Phone:        payload.PhoneNumber,
		Message:      payload.Message,
		Source:       SourceLinkedIn,
		CustomFields: custom,
		CampaignID:   parseCampaignID(payload.CampaignID),
	}, nil
}

// typeformPayload is the form_response envelope pushed by Typeform.
type typeformPayload struct {
	FormResponse struct {
		FormID  string           `json:"form_id"`
		Answers []typeformAnswer `json:"answers"`
	} `json:"form_response"`
}

type typeformAnswer struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Field       struct {
		Ref   string `json:"ref"`
		Title string `json:"title"`
	} `json:"field"`
}

func extractTypeform(companyID uuid.UUID, body json.RawMessage) (service.CreateInput, error) {
	var payload typeformPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return service.CreateInput{}, err
	}
	answers := payload.FormResponse.Answers

	var name, email, phone *string
	for _, answer := range answers {
		switch {
		case answer.Type == "email" && answer.Email != "":
			value := answer.Email
			email = &value
		case answer.Type == "phone_number" && answer.PhoneNumber != "":
			value := answer.PhoneNumber
			phone = &value
		case answer.Type == "text" && answer.Text != "":
			label := strings.ToLower(answer.Field.Ref + " " + answer.Field.Title)
			if name == nil && strings.Contains(label, "name") {
				value := answer.Text
				name = &value
			}
			if phone == nil && strings.Contains(label, "phone") {
				value := answer.Text
				phone = &value
			}
		}
	}

	custom, _ := json.Marshal(map[string]any{
		"formId":  payload.FormResponse.FormID,
		"answers": answers,
	})

	return service.CreateInput{
		CompanyID:    companyID,
		Name:         name,
		Email:        email,
		Phone:        phone,
		Source:       SourceTypeform,
		CustomFields: custom,
	}, nil
}

// landingPagePayload is the generic shape sent by site forms.
type landingPagePayload struct {
	Name        *string `json:"name"`
	FullName    *string `json:"fullName"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	PhoneNumber *string `json:"phoneNumber"`
	Message     *string `json:"message"`
	Comments    *string `json:"comments"`
	Source      string  `json:"source"`
}

func extractLandingPage(companyID uuid.UUID, body json.RawMessage) (service.CreateInput, error) {
	var payload landingPagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return service.CreateInput{}, err
	}

	source := payload.Source
	if source == "" {
		source = SourceLandingPage
	}

	return service.CreateInput{
		CompanyID:    companyID,
		Name:         firstNonBlank(payload.Name, payload.FullName),
		Email:        payload.Email,
		Phone:        firstNonBlank(payload.Phone, payload.PhoneNumber),
		Message:      firstNonBlank(payload.Message, payload.Comments),
		Source:       source,
		CustomFields: body,
	}, nil
}

func firstNonBlank(values ...*string) *string {
	for _, value := range values {
		if value != nil && strings.TrimSpace(*value) != "" {
			return value
		}
	}
	return nil
}

func parseCampaignID(raw string) *uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &id
}
