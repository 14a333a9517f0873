package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"credvault/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Query Functions (all public, all side-effect-free) ---

// getInstitutionByIdentity is an internal helper to retrieve and unmarshal an
// institution record; absence is ErrNotFound.
func (s *CredVaultSmartContract) getInstitutionByIdentity(ctx contractapi.TransactionContextInterface, identity string) (*model.Institution, error) {
	key, err := institutionKey(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to create institution key for '%s': %w", identity, err)
	}
	raw, err := ctx.GetStub().GetState(key)
	if err != nil {
		return nil, fmt.Errorf("ledger error reading institution '%s': %w", identity, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: institution '%s'", ErrNotFound, identity)
	}
	var institution model.Institution
	if err := json.Unmarshal(raw, &institution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal institution '%s': %w", identity, err)
	}
	return &institution, nil
}

// getCredentialByID is an internal helper to retrieve and unmarshal a
// credential record; absence is ErrNotFound.
func (s *CredVaultSmartContract) getCredentialByID(ctx contractapi.TransactionContextInterface, id uint64) (*model.Credential, error) {
	key, err := credentialKey(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential key for %d: %w", id, err)
	}
	raw, err := ctx.GetStub().GetState(key)
	if err != nil {
		return nil, fmt.Errorf("ledger error reading credential %d: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: credential %d", ErrNotFound, id)
	}
	var credential model.Credential
	if err := json.Unmarshal(raw, &credential); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential %d: %w", id, err)
	}
	return &credential, nil
}

// GetCredentialStatus computes the read-side view of a credential. An unknown
// id yields Exists=false, never an error; Expired is derived at read time and
// never stored.
func (s *CredVaultSmartContract) GetCredentialStatus(ctx contractapi.TransactionContextInterface, credentialID uint64) (*model.CredentialStatus, error) {
	key, err := credentialKey(ctx, credentialID)
	if err != nil {
		return nil, fmt.Errorf("GetCredentialStatus: failed to create credential key for %d: %w", credentialID, err)
	}
	raw, err := ctx.GetStub().GetState(key)
	if err != nil {
		return nil, fmt.Errorf("GetCredentialStatus: ledger error reading credential %d: %w", credentialID, err)
	}
	if raw == nil {
		return &model.CredentialStatus{Exists: false}, nil
	}
	var credential model.Credential
	if err := json.Unmarshal(raw, &credential); err != nil {
		return nil, fmt.Errorf("GetCredentialStatus: failed to unmarshal credential %d: %w", credentialID, err)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetCredentialStatus: %w", err)
	}

	status := &model.CredentialStatus{
		Exists:      true,
		Valid:       !credential.Revoked && (credential.ExpiresAt == 0 || credential.ExpiresAt >= now.Unix()),
		Revoked:     credential.Revoked,
		Fingerprint: credential.Fingerprint,
		Student:     credential.Student,
		Institution: credential.Institution,
		IssuedAt:    credential.IssuedAt,
		ExpiresAt:   credential.ExpiresAt,
	}
	if credential.RevokedAt != nil {
		status.RevokedAt = *credential.RevokedAt
	}
	return status, nil
}

// VerifyFingerprint reports whether a supplied fingerprint matches an
// existing, unrevoked, unexpired credential. Any mismatch, malformed input or
// unknown id yields false; it never errors and is safe for unauthenticated
// verifiers.
func (s *CredVaultSmartContract) VerifyFingerprint(ctx contractapi.TransactionContextInterface, credentialID uint64, fingerprint string) bool {
	supplied, err := normalizeDigest(fingerprint, "fingerprint")
	if err != nil {
		logger.Debugf("VerifyFingerprint: malformed fingerprint for credential %d: %v", credentialID, err)
		return false
	}
	credential, err := s.getCredentialByID(ctx, credentialID)
	if err != nil {
		logger.Debugf("VerifyFingerprint: credential %d not readable: %v", credentialID, err)
		return false
	}
	if credential.Revoked || credential.Fingerprint != supplied {
		return false
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		logger.Debugf("VerifyFingerprint: failed to get timestamp: %v", err)
		return false
	}
	return credential.ExpiresAt == 0 || credential.ExpiresAt >= now.Unix()
}

// GetCredential returns the stored record for an id. Fails with ErrNotFound
// for unknown ids; use GetCredentialStatus for an absence-tolerant answer.
func (s *CredVaultSmartContract) GetCredential(ctx contractapi.TransactionContextInterface, credentialID uint64) (*model.Credential, error) {
	credential, err := s.getCredentialByID(ctx, credentialID)
	if err != nil {
		return nil, fmt.Errorf("GetCredential: %w", err)
	}
	return credential, nil
}

// GetStudentCredentials enumerates a student's credential ids in issuance
// order. The index is append-only; revoked credentials stay listed.
func (s *CredVaultSmartContract) GetStudentCredentials(ctx contractapi.TransactionContextInterface, student string) ([]uint64, error) {
	student = strings.TrimSpace(student)
	if student == "" {
		return nil, fmt.Errorf("GetStudentCredentials: %w: student identity cannot be empty", ErrInvalidArgument)
	}

	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(studentIndexObjectType, []string{student})
	if err != nil {
		return nil, fmt.Errorf("GetStudentCredentials: failed to get student index iterator for '%s': %w", student, err)
	}
	defer iterator.Close()

	ids := []uint64{}
	for iterator.HasNext() {
		entry, iterErr := iterator.Next()
		if iterErr != nil {
			logger.Warningf("GetStudentCredentials: failed to get next index entry for '%s': %v. Skipping.", student, iterErr)
			continue
		}
		id, parseErr := strconv.ParseUint(string(entry.Value), 10, 64)
		if parseErr != nil {
			logger.Warningf("GetStudentCredentials: corrupt index value '%s' under key '%s': %v. Skipping.", string(entry.Value), entry.Key, parseErr)
			continue
		}
		ids = append(ids, id)
	}
	logger.Debugf("GetStudentCredentials: returning %d ids for student '%s'", len(ids), student)
	return ids, nil
}

// GetInstitution is the public directory lookup. Unknown identities yield
// Exists=false rather than an error.
func (s *CredVaultSmartContract) GetInstitution(ctx contractapi.TransactionContextInterface, identity string) (*model.InstitutionView, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, fmt.Errorf("GetInstitution: %w: institution identity cannot be empty", ErrInvalidArgument)
	}
	institution, err := s.getInstitutionByIdentity(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		return &model.InstitutionView{Exists: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetInstitution: %w", err)
	}
	return &model.InstitutionView{
		Exists:        true,
		Name:          institution.Name,
		Active:        institution.Active,
		CreatedAt:     institution.CreatedAt,
		LastUpdatedAt: institution.LastUpdatedAt,
	}, nil
}

// ListInstitutions returns every institution record in the directory.
func (s *CredVaultSmartContract) ListInstitutions(ctx contractapi.TransactionContextInterface) ([]model.Institution, error) {
	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(institutionObjectType, []string{})
	if err != nil {
		return nil, fmt.Errorf("ListInstitutions: failed to get institutions iterator: %w", err)
	}
	defer iterator.Close()

	institutions := []model.Institution{}
	for iterator.HasNext() {
		entry, iterErr := iterator.Next()
		if iterErr != nil {
			logger.Warningf("ListInstitutions: failed to get next institution: %v. Skipping.", iterErr)
			continue
		}
		var institution model.Institution
		if err := json.Unmarshal(entry.Value, &institution); err != nil {
			logger.Warningf("ListInstitutions: failed to unmarshal institution under key '%s': %v. Skipping.", entry.Key, err)
			continue
		}
		institutions = append(institutions, institution)
	}
	return institutions, nil
}

// CanIssueForInstitution exposes the issuance authorization gate as a public
// read, for preflight checks by the surrounding service.
func (s *CredVaultSmartContract) CanIssueForInstitution(ctx contractapi.TransactionContextInterface, institution, candidate string) (bool, error) {
	institution = strings.TrimSpace(institution)
	candidate = strings.TrimSpace(candidate)
	if institution == "" || candidate == "" {
		return false, nil
	}
	return NewAccessManager(ctx).CanIssueFor(institution, candidate)
}

// IsRegistrar reports whether identity currently holds an enabled registrar flag.
func (s *CredVaultSmartContract) IsRegistrar(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return false, nil
	}
	return NewAccessManager(ctx).IsRegistrar(identity)
}

// GetSuperAdmin returns the current super admin identity, empty before bootstrap.
func (s *CredVaultSmartContract) GetSuperAdmin(ctx contractapi.TransactionContextInterface) (string, error) {
	return NewAccessManager(ctx).GetSuperAdmin()
}

// IsPaused reports the pause flag.
func (s *CredVaultSmartContract) IsPaused(ctx contractapi.TransactionContextInterface) (bool, error) {
	return NewAccessManager(ctx).IsPaused()
}
