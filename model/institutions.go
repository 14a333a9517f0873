package model

import "time"

// Institution is the stored record for an accredited issuing entity.
// CreatedAt is fixed at first upsert; later upserts only touch Name, Active
// and LastUpdatedAt. An inactive institution keeps its history readable but
// may not issue new credentials.
type Institution struct {
	ObjectType    string    `json:"objectType"` // "Institution"
	Identity      string    `json:"identity"`
	Name          string    `json:"name"`
	Active        bool      `json:"active"`
	RegisteredBy  string    `json:"registeredBy"` // Registrar that created the record
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// InstitutionView is the public lookup answer for any identity, known or not.
type InstitutionView struct {
	Exists        bool      `json:"exists"`
	Name          string    `json:"name,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt,omitempty"`
}
