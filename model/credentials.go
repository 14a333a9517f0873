package model

import "time"

// Credential is the stored unit representing one issued, possibly later
// revoked, fingerprinted document. Core fields are set once at issuance and
// never change; only the revocation fields are written afterwards, and only
// once.
type Credential struct {
	ObjectType          string     `json:"objectType"` // "Credential"
	ID                  uint64     `json:"id"`         // Sequential identifier, starts at 1
	Student             string     `json:"student"`    // Student-controlled identity
	Institution         string     `json:"institution"`
	Fingerprint         string     `json:"fingerprint"` // 64-char lower-hex digest
	MetadataURI         string     `json:"metadataUri"`
	EncryptedPayloadURI string     `json:"encryptedPayloadUri"`
	IssuedAt            time.Time  `json:"issuedAt"`
	ExpiresAt           int64      `json:"expiresAt"` // Unix seconds; 0 means never expires
	Revoked             bool       `json:"revoked"`
	RevokedAt           *time.Time `json:"revokedAt,omitempty"`
	RevokedBy           string     `json:"revokedBy,omitempty"`
	RevocationReason    string     `json:"revocationReason,omitempty"` // Reason digest, hex
}

// CredentialStatus is the read-side view computed from a stored credential.
// Exists=false is a valid answer for an unknown id, not an error.
type CredentialStatus struct {
	Exists      bool      `json:"exists"`
	Valid       bool      `json:"valid"`
	Revoked     bool      `json:"revoked"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Student     string    `json:"student,omitempty"`
	Institution string    `json:"institution,omitempty"`
	IssuedAt    time.Time `json:"issuedAt,omitempty"`
	ExpiresAt   int64     `json:"expiresAt"`
	RevokedAt   time.Time `json:"revokedAt,omitempty"`
}
