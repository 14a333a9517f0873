package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Core Helper Methods (used across multiple operations) ---

// getCurrentTxTimestamp retrieves the current transaction timestamp from the stub.
func (s *CredVaultSmartContract) getCurrentTxTimestamp(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

// getCurrentActorInfo resolves the transaction invoker's identity.
func (s *CredVaultSmartContract) getCurrentActorInfo(ctx contractapi.TransactionContextInterface) (*actorInfo, error) {
	clientIdentity := ctx.GetClientIdentity()
	if clientIdentity == nil {
		return nil, errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return nil, fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return nil, errors.New("client identity ID from context is empty")
	}
	mspID, err := clientIdentity.GetMSPID()
	if err != nil {
		return nil, fmt.Errorf("failed to get client MSPID from context: %w", err)
	}
	return &actorInfo{fullID: id, mspID: mspID}, nil
}

// --- Key Creation Helpers (using Composite Keys) ---

func vaultStateKey(ctx contractapi.TransactionContextInterface, field string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(vaultStateObjectType, []string{field})
}

func registrarKey(ctx contractapi.TransactionContextInterface, identity string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(registrarObjectType, []string{identity})
}

func institutionKey(ctx contractapi.TransactionContextInterface, identity string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(institutionObjectType, []string{identity})
}

func controllerKey(ctx contractapi.TransactionContextInterface, institution, controller string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(controllerObjectType, []string{institution, controller})
}

func credentialKey(ctx contractapi.TransactionContextInterface, id uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(credentialObjectType, []string{padCredentialID(id)})
}

func fingerprintKey(ctx contractapi.TransactionContextInterface, fingerprint string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(fingerprintObjectType, []string{fingerprint})
}

func studentIndexKey(ctx contractapi.TransactionContextInterface, student string, id uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(studentIndexObjectType, []string{student, padCredentialID(id)})
}

// padCredentialID renders an id with fixed width so composite-key range scans
// return credentials in issuance order.
func padCredentialID(id uint64) string {
	return fmt.Sprintf("%0*d", credentialIDPadWidth, id)
}

// --- Validation Helper Functions ---

func validateIdentity(value, field string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: %s cannot be empty", ErrInvalidArgument, field)
	}
	if len(trimmed) > maxIdentityLength {
		return "", fmt.Errorf("%w: %s exceeds max length %d", ErrInvalidArgument, field, maxIdentityLength)
	}
	return trimmed, nil
}

func validateRequiredString(input, field string, max int) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidArgument, field)
	}
	if len(input) > max {
		return fmt.Errorf("%w: %s exceeds max length %d", ErrInvalidArgument, field, max)
	}
	return nil
}

func validateOptionalString(input, field string, max int) error {
	if input != "" && len(input) > max {
		return fmt.Errorf("%w: %s exceeds max length %d", ErrInvalidArgument, field, max)
	}
	return nil
}

// normalizeDigest canonicalizes a 32-byte digest supplied as hex: an optional
// 0x prefix is accepted, the result is always 64 lower-hex characters.
func normalizeDigest(value, field string) (string, error) {
	cleaned := strings.TrimSpace(value)
	cleaned = strings.TrimPrefix(cleaned, "0x")
	cleaned = strings.TrimPrefix(cleaned, "0X")
	cleaned = strings.ToLower(cleaned)
	if len(cleaned) != digestHexLength {
		return "", fmt.Errorf("%w: %s must be %d hex characters, got %d", ErrInvalidArgument, field, digestHexLength, len(cleaned))
	}
	for _, c := range cleaned {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w: %s contains non-hex character %q", ErrInvalidArgument, field, c)
		}
	}
	return cleaned, nil
}

func isZeroDigest(digest string) bool {
	for _, c := range digest {
		if c != '0' {
			return false
		}
	}
	return true
}

// --- Boolean state encoding (registrar and controller flags) ---

func boolToState(b bool) []byte {
	if b {
		return []byte("true")
	}
	return []byte("false")
}

func stateToBool(raw []byte) bool {
	return raw != nil && string(raw) == "true"
}

// emitVaultEvent sends a chaincode event. Emission failures are logged, never
// surfaced: the transaction outcome must not depend on the notification path.
func (s *CredVaultSmartContract) emitVaultEvent(ctx contractapi.TransactionContextInterface, eventName string, payload map[string]interface{}) {
	for k, v := range payload {
		if t, ok := v.(time.Time); ok {
			payload[k] = t.Format(time.RFC3339)
		}
	}
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		logger.Warningf("emitVaultEvent: failed to marshal payload for event '%s': %v", eventName, err)
		return
	}
	if errSet := ctx.GetStub().SetEvent(eventName, eventBytes); errSet != nil {
		logger.Warningf("emitVaultEvent: failed to set event '%s': %v", eventName, errSet)
	}
}
