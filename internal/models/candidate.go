package models

// SourceTag is the fixed provenance marker attached to every submitted
// candidate record. The remote service uses it to identify the origin
// channel.
const SourceTag = "linkedin_extension"

// Experience is one work-history entry on a candidate profile.
type Experience struct {
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	DateFrom    string `json:"date_from,omitempty"`
	DateTo      string `json:"date_to,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Education is one education entry on a candidate profile.
type Education struct {
	Institution string `json:"institution,omitempty"`
	Degree      string `json:"degree,omitempty"`
	DateFrom    string `json:"date_from,omitempty"`
	DateTo      string `json:"date_to,omitempty"`
}

// CandidateRecord is the structured payload produced by the page
// extractor. Immutable once constructed; the delivery client adds the
// provenance tag at transmission time.
type CandidateRecord struct {
	Name             string       `json:"name" validate:"required,min=1"`
	LastName         string       `json:"last_name,omitempty"`
	ProfileURL       string       `json:"linkedin_url,omitempty" validate:"omitempty,url"`
	Role             string       `json:"role,omitempty"`
	Organization     string       `json:"organization,omitempty"`
	Phone            string       `json:"phone,omitempty"`
	Email            string       `json:"email,omitempty" validate:"omitempty,email"`
	Location         string       `json:"location,omitempty"`
	PlaceOfResidency string       `json:"place_of_residency,omitempty"`
	About            string       `json:"about,omitempty"`
	WorkExperience   []Experience `json:"work_experience,omitempty"`
	Education        []Education  `json:"education,omitempty"`
	Skills           []string     `json:"skills,omitempty"`
	LevelOfEnglish   string       `json:"level_of_english,omitempty"`
}
