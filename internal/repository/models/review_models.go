package models

// UnknownID marks a foreign reference that ingestion could not resolve.
const UnknownID = "unknown"

// Review is one customer review as stored after ingestion.
type Review struct {
	ID              string `json:"id"`
	ExternalID      string `json:"external_id,omitempty"`
	AgentID         string `json:"agent_id"`
	AgentKey        string `json:"agent_key,omitempty"`
	DepartmentID    string `json:"department_id"`
	Rating          int    `json:"rating"`
	Comment         string `json:"comment"`
	ReviewTimestamp string `json:"review_timestamp"`
	Source          string `json:"source"`
}

// ValidRating reports whether the rating counts toward aggregate metrics.
func (r Review) ValidRating() bool {
	return r.Rating >= 1 && r.Rating <= 5
}

type Agent struct {
	ID           string `json:"id" validate:"required"`
	AgentKey     string `json:"agent_key" validate:"required"`
	DisplayName  string `json:"display_name"`
	DepartmentID string `json:"department_id"`
	ImageURL     string `json:"image_url,omitempty" validate:"omitempty,url"`
	Hidden       bool   `json:"hidden"`
}

type Department struct {
	ID     string `json:"id" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Custom bool   `json:"custom"`
}
