package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FieldNames lists the persisted record fields in display/edit order.
// These are the only fields ever sent back to the server.
var FieldNames = []string{"doc_id", "type", "counterparty", "project", "expiry_date", "amount"}

// CleanedRecord is a record restricted to the six persisted fields.
// This is the shape sent in validate/submit payloads and returned in
// the server's cleaned_items.
type CleanedRecord struct {
	DocID        string  `json:"doc_id"`
	Type         string  `json:"type"`
	Counterparty string  `json:"counterparty"`
	Project      string  `json:"project"`
	ExpiryDate   string  `json:"expiry_date"`
	Amount       float64 `json:"amount"`
}

// Record is one editable normalized document entry: the persisted fields
// plus derived annotations the server attaches during normalization.
type Record struct {
	CleanedRecord

	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	SourceIndex int      `json:"source_index"`
	IsValid     bool     `json:"is_valid"`
}

// Cleaned projects the record onto its six persisted fields.
func (r Record) Cleaned() CleanedRecord {
	return r.CleanedRecord
}

// FieldValue returns the string form of a persisted field for display
// and editing. Unknown names return "".
func (r Record) FieldValue(name string) string {
	switch name {
	case "doc_id":
		return r.DocID
	case "type":
		return r.Type
	case "counterparty":
		return r.Counterparty
	case "project":
		return r.Project
	case "expiry_date":
		return r.ExpiryDate
	case "amount":
		return strconv.FormatFloat(r.Amount, 'f', -1, 64)
	}
	return ""
}

// SetFieldValue assigns a persisted field from its string form.
// Amount must parse as a non-negative number.
func (r *Record) SetFieldValue(name, raw string) error {
	switch name {
	case "doc_id":
		r.DocID = raw
	case "type":
		r.Type = raw
	case "counterparty":
		r.Counterparty = raw
	case "project":
		r.Project = raw
	case "expiry_date":
		r.ExpiryDate = raw
	case "amount":
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("amount %q is not a number", raw)
		}
		if v < 0 {
			return fmt.Errorf("amount must be non-negative, got %v", v)
		}
		r.Amount = v
	default:
		return fmt.Errorf("unknown field %q", name)
	}
	return nil
}

// Summary holds the normalization counts the server reports with a batch.
type Summary struct {
	RawItems          int `json:"raw_items"`
	NormalizedItems   int `json:"normalized_items"`
	DuplicatesRemoved int `json:"duplicates_removed"`
	ItemsWithErrors   int `json:"items_with_errors"`
}

// Batch is the immutable snapshot returned by a fetch. It is replaced
// wholesale on every successful fetch, never partially updated.
type Batch struct {
	BatchID     string          `json:"batch_id"`
	CandidateID string          `json:"candidate_id"`
	Raw         json.RawMessage `json:"raw_data"` // opaque, display-only
	Items       []Record        `json:"items"`
	Summary     Summary         `json:"summary"`
}

// ValidateRequest is the body posted to /validate/.
type ValidateRequest struct {
	Items []Record `json:"items"`
}

// ValidateResponse carries cleaned records (positionally aligned with the
// submitted items) and a flat list of human-readable error strings, each
// optionally prefixed "Item N: detail".
type ValidateResponse struct {
	CleanedItems []CleanedRecord `json:"cleaned_items"`
	Errors       []string        `json:"errors"`
}

// SubmitRequest is the body posted to /submit/.
type SubmitRequest struct {
	CandidateName string          `json:"candidate_name"`
	BatchID       string          `json:"batch_id"`
	CleanedItems  []CleanedRecord `json:"cleaned_items"`
}

// ScoreResponse is the scoring result attached to a successful submit.
// The server may include fields beyond score/message; Raw preserves the
// whole object for display.
type ScoreResponse struct {
	Score   float64         `json:"score"`
	Message string          `json:"message,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps a copy of the raw object alongside the known fields.
func (s *ScoreResponse) UnmarshalJSON(b []byte) error {
	type alias ScoreResponse
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*s = ScoreResponse(a)
	s.Raw = append([]byte(nil), b...)
	return nil
}

// SubmitResponse echoes the exact payload sent plus the scoring result.
type SubmitResponse struct {
	Payload       json.RawMessage `json:"payload"`
	ScoreResponse ScoreResponse   `json:"score_response"`
}
