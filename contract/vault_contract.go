package contract

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("credvault.vaultcontract")

// Object types for composite keys, also usable as 'docType' for CouchDB queries.
const (
	vaultStateObjectType   = "VaultState"            // Singleton fields, attribute: field name.
	registrarObjectType    = "Registrar"             // Registrar enabled flag, attribute: identity.
	institutionObjectType  = "Institution"           // Institution records, attribute: identity.
	controllerObjectType   = "InstitutionController" // Controller flag, attributes: institution, controller.
	credentialObjectType   = "Credential"            // Credential records, attribute: zero-padded id.
	fingerprintObjectType  = "Fingerprint"           // Fingerprint uniqueness index, attribute: hex digest.
	studentIndexObjectType = "StudentCredential"     // Per-student index, attributes: student, zero-padded id.
)

// Field names under vaultStateObjectType.
const (
	stateSuperAdmin        = "superAdmin"
	statePendingAdmin      = "pendingAdmin"
	statePaused            = "paused"
	stateCredentialCounter = "credentialCounter"
)

// Constants for input validation and limits.
const (
	maxIdentityLength    = 256
	maxNameLength        = 200
	maxURILength         = 500
	digestHexLength      = 64 // 32-byte digest as lower-hex
	credentialIDPadWidth = 20 // Zero-padding keeps composite-key scans in issuance order.
)

// CredVaultSmartContract anchors credential fingerprints against
// student-controlled identities and serves the read-side status checks.
type CredVaultSmartContract struct {
	contractapi.Contract
}

// actorInfo holds commonly needed details about the transaction invoker.
type actorInfo struct {
	fullID string
	mspID  string
}

// Instantiate is called during chaincode instantiation.
func (s *CredVaultSmartContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Info("CredVaultSmartContract Instantiated/Upgraded")
}
