// Package model defines the canonical prospect record produced by the pipeline.
package model

import "strings"

// Outcome classifies how an extraction attempt ended.
type Outcome string

const (
	OutcomeExtracted      Outcome = "extracted"
	OutcomeCaptchaBlocked Outcome = "captcha-blocked"
	OutcomeRobotsDenied   Outcome = "robots-denied"
	OutcomeTransportError Outcome = "transport-error"
)

// Prospect is one discovered business contact, normalized into the shape
// downstream sales tooling expects. It is immutable once yielded; enrichment
// (scoring, pitch generation) happens outside this pipeline.
type Prospect struct {
	ClinicID   string   `json:"clinic_id"`
	ClinicName string   `json:"clinic_name"`
	OwnerName  string   `json:"owner_name"`
	Phone      string   `json:"phone"`
	PhoneE164  string   `json:"phone_e164"`
	Email      string   `json:"email"`
	Website    string   `json:"website"`
	Address    string   `json:"address"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	PostalCode string   `json:"postal_code"`
	Country    string   `json:"country"`
	Timezone   string   `json:"timezone"`
	SourceURL  string   `json:"source_url"`
	Notes      []string `json:"notes,omitempty"`
}

// AddNote appends a short diagnostic token (e.g. "no phone", "captcha-blocked").
func (p *Prospect) AddNote(note string) {
	if note == "" {
		return
	}
	p.Notes = append(p.Notes, note)
}

// NotesText joins notes for display and export.
func (p *Prospect) NotesText() string {
	return strings.Join(p.Notes, "; ")
}

// CSVHeader is the fixed export column order expected by downstream tooling.
var CSVHeader = []string{
	"clinic_id", "clinic_name", "owner_name", "phone", "phone_e164", "email",
	"website", "address", "city", "state", "postal_code", "country",
	"timezone", "source_url", "notes",
}

// CSVRow renders the prospect in CSVHeader order.
func (p *Prospect) CSVRow() []string {
	return []string{
		p.ClinicID, p.ClinicName, p.OwnerName, p.Phone, p.PhoneE164, p.Email,
		p.Website, p.Address, p.City, p.State, p.PostalCode, p.Country,
		p.Timezone, p.SourceURL, p.NotesText(),
	}
}
