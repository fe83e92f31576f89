package models

import "time"

// Response is one respondent's answer sheet for one vendor: the respondent's
// attributes plus one 1-5 score per evaluation item. Item scores are keyed by
// the item identifiers declared in the survey schema; a missing cell means the
// respondent skipped that item. A (RespondentID, VendorID) pair is unique
// after cleansing.
type Response struct {
	ResponseID         int             `json:"response_id"`
	RespondentID       int             `json:"respondent_id"`
	VendorID           string          `json:"vendor_id"`
	Timestamp          time.Time       `json:"timestamp"`
	Department         string          `json:"department"`
	Role               string          `json:"role"`
	UsageFrequency     string          `json:"usage_frequency"`
	IncidentExperience bool            `json:"incident_experience"`
	Comment            string          `json:"comment,omitempty"`
	Scores             map[string]Cell `json:"scores"`
}

// Score returns the raw rating for item, missing when unanswered or undeclared.
func (r *Response) Score(item string) Cell {
	return r.Scores[item]
}

// NormalizedResponse augments a Response with per-respondent bias-corrected
// scores: Z holds the respondent-standardized value per item and Z5 holds the
// same value rescaled onto the nominal 1-5 range using the dataset-wide spread
// of that item's z column.
type NormalizedResponse struct {
	Response
	Z  map[string]Cell `json:"z"`
	Z5 map[string]Cell `json:"z5"`
}

// ZScore returns the respondent-standardized score for item.
func (n *NormalizedResponse) ZScore(item string) Cell {
	return n.Z[item]
}

// Z5Score returns the 1-5 rescaled standardized score for item.
func (n *NormalizedResponse) Z5Score(item string) Cell {
	return n.Z5[item]
}
