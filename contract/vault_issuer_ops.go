package contract

import (
	"encoding/json"
	"fmt"
	"strconv"

	"credvault/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Lifecycle: Issuer Operations (credential ledger) ---

// nextCredentialID reads the issuance counter. Ids start at 1; the counter is
// written back only by a successful issuance, so rejected calls never advance
// the sequence.
func (s *CredVaultSmartContract) nextCredentialID(ctx contractapi.TransactionContextInterface) (uint64, error) {
	key, err := vaultStateKey(ctx, stateCredentialCounter)
	if err != nil {
		return 0, fmt.Errorf("failed to create credential counter key: %w", err)
	}
	raw, err := ctx.GetStub().GetState(key)
	if err != nil {
		return 0, fmt.Errorf("ledger error reading credential counter: %w", err)
	}
	if raw == nil {
		return 1, nil
	}
	counter, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt credential counter value '%s': %w", string(raw), err)
	}
	return counter + 1, nil
}

// IssueCredential anchors a new credential fingerprint for a student and
// returns the allocated sequential identifier.
func (s *CredVaultSmartContract) IssueCredential(ctx contractapi.TransactionContextInterface,
	institution, student, fingerprint, metadataURI, encryptedPayloadURI string, expiresAt int64) (uint64, error) {

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: failed to get actor info: %w", err)
	}
	am := NewAccessManager(ctx)
	if err := am.RequireNotPaused(); err != nil {
		return 0, fmt.Errorf("IssueCredential: %w", err)
	}

	institution, err = validateIdentity(institution, "institution identity")
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: %w", err)
	}
	mayIssue, err := am.CanIssueFor(institution, actor.fullID)
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: %w", err)
	}
	if !mayIssue {
		return 0, fmt.Errorf("IssueCredential: %w: caller '%s' may not issue for institution '%s'", ErrNotAuthorized, actor.fullID, institution)
	}

	record, err := s.getInstitutionByIdentity(ctx, institution)
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: %w", err)
	}
	if !record.Active {
		return 0, fmt.Errorf("IssueCredential: %w: institution '%s' may not issue new credentials", ErrInactive, institution)
	}

	student, err = validateIdentity(student, "student identity")
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: %w", err)
	}
	fingerprint, err = normalizeDigest(fingerprint, "fingerprint")
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: %w", err)
	}
	if isZeroDigest(fingerprint) {
		return 0, fmt.Errorf("IssueCredential: %w: fingerprint is the zero digest", ErrInvalidArgument)
	}
	if err := validateOptionalString(metadataURI, "metadataURI", maxURILength); err != nil {
		return 0, fmt.Errorf("IssueCredential: %w", err)
	}
	if err := validateOptionalString(encryptedPayloadURI, "encryptedPayloadURI", maxURILength); err != nil {
		return 0, fmt.Errorf("IssueCredential: %w", err)
	}
	if expiresAt < 0 {
		return 0, fmt.Errorf("IssueCredential: %w: expiresAt cannot be negative", ErrInvalidArgument)
	}

	fpKey, err := fingerprintKey(ctx, fingerprint)
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: failed to create fingerprint key: %w", err)
	}
	consumed, err := ctx.GetStub().GetState(fpKey)
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: failed to check fingerprint index: %w", err)
	}
	if consumed != nil {
		return 0, fmt.Errorf("IssueCredential: %w: fingerprint already consumed by credential %s", ErrAlreadyUsed, string(consumed))
	}

	id, err := s.nextCredentialID(ctx)
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: %w", err)
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: %w", err)
	}

	credential := model.Credential{
		ObjectType:          credentialObjectType,
		ID:                  id,
		Student:             student,
		Institution:         institution,
		Fingerprint:         fingerprint,
		MetadataURI:         metadataURI,
		EncryptedPayloadURI: encryptedPayloadURI,
		IssuedAt:            now,
		ExpiresAt:           expiresAt,
	}
	credentialBytes, err := json.Marshal(credential)
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: failed to marshal credential %d: %w", id, err)
	}

	credKey, err := credentialKey(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: failed to create credential key for %d: %w", id, err)
	}
	if err := ctx.GetStub().PutState(credKey, credentialBytes); err != nil {
		return 0, fmt.Errorf("IssueCredential: failed to save credential %d: %w", id, err)
	}

	idDecimal := []byte(strconv.FormatUint(id, 10))
	if err := ctx.GetStub().PutState(fpKey, idDecimal); err != nil {
		return 0, fmt.Errorf("IssueCredential: failed to mark fingerprint consumed for credential %d: %w", id, err)
	}
	studentKey, err := studentIndexKey(ctx, student, id)
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: failed to create student index key for credential %d: %w", id, err)
	}
	if err := ctx.GetStub().PutState(studentKey, idDecimal); err != nil {
		return 0, fmt.Errorf("IssueCredential: failed to append credential %d to student index: %w", id, err)
	}
	counterKey, err := vaultStateKey(ctx, stateCredentialCounter)
	if err != nil {
		return 0, fmt.Errorf("IssueCredential: failed to create credential counter key: %w", err)
	}
	if err := ctx.GetStub().PutState(counterKey, idDecimal); err != nil {
		return 0, fmt.Errorf("IssueCredential: failed to advance credential counter to %d: %w", id, err)
	}

	s.emitVaultEvent(ctx, "CredentialIssued", map[string]interface{}{
		"credentialId":        id,
		"student":             student,
		"institution":         institution,
		"fingerprint":         fingerprint,
		"metadataUri":         metadataURI,
		"encryptedPayloadUri": encryptedPayloadURI,
		"expiresAt":           expiresAt,
	})
	logger.Infof("Credential %d issued for student '%s' by '%s' on behalf of institution '%s'", id, student, actor.fullID, institution)
	return id, nil
}

// RevokeCredential moves a credential into its terminal revoked state. The
// revoked flag, timestamp and reason digest are written once; everything else
// stays immutable, and there is no transition back.
func (s *CredVaultSmartContract) RevokeCredential(ctx contractapi.TransactionContextInterface, credentialID uint64, reasonDigest string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("RevokeCredential: failed to get actor info: %w", err)
	}
	am := NewAccessManager(ctx)
	if err := am.RequireNotPaused(); err != nil {
		return fmt.Errorf("RevokeCredential: %w", err)
	}

	credential, err := s.getCredentialByID(ctx, credentialID)
	if err != nil {
		return fmt.Errorf("RevokeCredential: %w", err)
	}

	mayRevoke, err := am.CanIssueFor(credential.Institution, actor.fullID)
	if err != nil {
		return fmt.Errorf("RevokeCredential: %w", err)
	}
	if !mayRevoke {
		return fmt.Errorf("RevokeCredential: %w: caller '%s' may not revoke for institution '%s'", ErrNotAuthorized, actor.fullID, credential.Institution)
	}
	if credential.Revoked {
		return fmt.Errorf("RevokeCredential: %w: credential %d", ErrAlreadyRevoked, credentialID)
	}

	reasonDigest, err = normalizeDigest(reasonDigest, "reasonDigest")
	if err != nil {
		return fmt.Errorf("RevokeCredential: %w", err)
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("RevokeCredential: %w", err)
	}

	credential.Revoked = true
	credential.RevokedAt = &now
	credential.RevokedBy = actor.fullID
	credential.RevocationReason = reasonDigest

	credKey, err := credentialKey(ctx, credentialID)
	if err != nil {
		return fmt.Errorf("RevokeCredential: failed to create credential key for %d: %w", credentialID, err)
	}
	updatedBytes, err := json.Marshal(credential)
	if err != nil {
		return fmt.Errorf("RevokeCredential: failed to marshal revoked credential %d: %w", credentialID, err)
	}
	if err := ctx.GetStub().PutState(credKey, updatedBytes); err != nil {
		return fmt.Errorf("RevokeCredential: failed to save revoked credential %d: %w", credentialID, err)
	}

	s.emitVaultEvent(ctx, "CredentialRevoked", map[string]interface{}{
		"credentialId": credentialID,
		"revokedBy":    actor.fullID,
		"reasonDigest": reasonDigest,
		"revokedAt":    now,
	})
	logger.Infof("Credential %d revoked by '%s'", credentialID, actor.fullID)
	return nil
}
