package contract

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var amLogger = flogging.MustGetLogger("credvault.accessmanager")

// AccessManager handles the permission hierarchy: the single super admin, the
// pending-successor slot, the registrar set, the pause flag and the
// controller predicate. Every mutating entry point of the vault consults one
// of its predicates before touching state.
type AccessManager struct {
	Ctx contractapi.TransactionContextInterface
}

// NewAccessManager creates a new instance of AccessManager.
func NewAccessManager(ctx contractapi.TransactionContextInterface) *AccessManager {
	return &AccessManager{Ctx: ctx}
}

// --- Internal state accessors ---

func (am *AccessManager) getStateString(field string) (string, error) {
	key, err := vaultStateKey(am.Ctx, field)
	if err != nil {
		return "", fmt.Errorf("failed to create state key for '%s': %w", field, err)
	}
	raw, err := am.Ctx.GetStub().GetState(key)
	if err != nil {
		return "", fmt.Errorf("ledger error reading state field '%s': %w", field, err)
	}
	return string(raw), nil
}

func (am *AccessManager) putStateString(field, value string) error {
	key, err := vaultStateKey(am.Ctx, field)
	if err != nil {
		return fmt.Errorf("failed to create state key for '%s': %w", field, err)
	}
	if err := am.Ctx.GetStub().PutState(key, []byte(value)); err != nil {
		return fmt.Errorf("failed to save state field '%s': %w", field, err)
	}
	return nil
}

// --- Super admin and succession ---

// GetSuperAdmin returns the current super admin identity, empty when the
// vault has not been bootstrapped yet.
func (am *AccessManager) GetSuperAdmin() (string, error) {
	return am.getStateString(stateSuperAdmin)
}

// GetPendingSuperAdmin returns the proposed successor, empty when no handover
// is in flight.
func (am *AccessManager) GetPendingSuperAdmin() (string, error) {
	return am.getStateString(statePendingAdmin)
}

// RequireSuperAdmin fails with ErrNotAuthorized unless caller is the current
// super admin.
func (am *AccessManager) RequireSuperAdmin(caller string) error {
	superAdmin, err := am.GetSuperAdmin()
	if err != nil {
		return err
	}
	if superAdmin == "" || caller != superAdmin {
		return fmt.Errorf("%w: caller '%s' is not the super admin", ErrNotAuthorized, caller)
	}
	return nil
}

// Bootstrap claims the super admin slot for caller. Valid exactly once, on a
// fresh ledger.
func (am *AccessManager) Bootstrap(caller string) error {
	superAdmin, err := am.GetSuperAdmin()
	if err != nil {
		return err
	}
	if superAdmin != "" {
		return fmt.Errorf("vault already bootstrapped; super admin is '%s'", superAdmin)
	}
	if err := am.putStateString(stateSuperAdmin, caller); err != nil {
		return err
	}
	amLogger.Infof("Bootstrap: identity '%s' is now super admin", caller)
	return nil
}

// ProposeSuccessor stores candidate in the pending slot. Only the current
// super admin may propose; only the candidate may later accept.
func (am *AccessManager) ProposeSuccessor(caller, candidate string) error {
	if err := am.RequireSuperAdmin(caller); err != nil {
		return err
	}
	candidate, err := validateIdentity(candidate, "candidate")
	if err != nil {
		return err
	}
	if err := am.putStateString(statePendingAdmin, candidate); err != nil {
		return err
	}
	amLogger.Infof("Super admin '%s' proposed successor '%s'", caller, candidate)
	return nil
}

// AcceptSuccession promotes the pending candidate to super admin and clears
// the pending slot. Returns the previous super admin.
func (am *AccessManager) AcceptSuccession(caller string) (string, error) {
	pending, err := am.GetPendingSuperAdmin()
	if err != nil {
		return "", err
	}
	if pending == "" || caller != pending {
		return "", fmt.Errorf("%w: caller '%s' is not the pending successor", ErrNotAuthorized, caller)
	}
	previous, err := am.GetSuperAdmin()
	if err != nil {
		return "", err
	}
	if err := am.putStateString(stateSuperAdmin, caller); err != nil {
		return "", err
	}
	pendingKey, err := vaultStateKey(am.Ctx, statePendingAdmin)
	if err != nil {
		return "", fmt.Errorf("failed to create state key for '%s': %w", statePendingAdmin, err)
	}
	if err := am.Ctx.GetStub().DelState(pendingKey); err != nil {
		return "", fmt.Errorf("failed to clear pending successor slot: %w", err)
	}
	amLogger.Infof("Succession accepted: '%s' replaced '%s' as super admin", caller, previous)
	return previous, nil
}

// --- Registrars ---

// IsRegistrar reports whether identity holds an enabled registrar flag.
func (am *AccessManager) IsRegistrar(identity string) (bool, error) {
	key, err := registrarKey(am.Ctx, identity)
	if err != nil {
		return false, fmt.Errorf("failed to create registrar key for '%s': %w", identity, err)
	}
	raw, err := am.Ctx.GetStub().GetState(key)
	if err != nil {
		return false, fmt.Errorf("ledger error checking registrar flag for '%s': %w", identity, err)
	}
	return stateToBool(raw), nil
}

// SetRegistrar toggles the registrar flag for identity. Entries are never
// deleted, only toggled.
func (am *AccessManager) SetRegistrar(caller, identity string, enabled bool) error {
	if err := am.RequireSuperAdmin(caller); err != nil {
		return err
	}
	identity, err := validateIdentity(identity, "registrar identity")
	if err != nil {
		return err
	}
	key, err := registrarKey(am.Ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to create registrar key for '%s': %w", identity, err)
	}
	if err := am.Ctx.GetStub().PutState(key, boolToState(enabled)); err != nil {
		return fmt.Errorf("failed to save registrar flag for '%s': %w", identity, err)
	}
	amLogger.Infof("Registrar '%s' set to enabled=%t by super admin '%s'", identity, enabled, caller)
	return nil
}

// RequireRegistrar fails with ErrNotAuthorized unless caller is an enabled
// registrar.
func (am *AccessManager) RequireRegistrar(caller string) error {
	enabled, err := am.IsRegistrar(caller)
	if err != nil {
		return err
	}
	if !enabled {
		return fmt.Errorf("%w: caller '%s' is not an enabled registrar", ErrNotAuthorized, caller)
	}
	return nil
}

// --- Pause switch ---

// IsPaused reports the pause flag consulted by issuance and revocation.
func (am *AccessManager) IsPaused() (bool, error) {
	value, err := am.getStateString(statePaused)
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

// SetPaused toggles the pause flag. Idempotent.
func (am *AccessManager) SetPaused(caller string, paused bool) error {
	if err := am.RequireSuperAdmin(caller); err != nil {
		return err
	}
	value := "false"
	if paused {
		value = "true"
	}
	if err := am.putStateString(statePaused, value); err != nil {
		return err
	}
	amLogger.Infof("Pause flag set to %t by super admin '%s'", paused, caller)
	return nil
}

// RequireNotPaused fails with ErrPaused while the vault is paused.
func (am *AccessManager) RequireNotPaused() error {
	paused, err := am.IsPaused()
	if err != nil {
		return err
	}
	if paused {
		return fmt.Errorf("%w: mutating credential operations are suspended", ErrPaused)
	}
	return nil
}

// --- Issuance authorization gate ---

// CanIssueFor reports whether candidate may issue or revoke on behalf of
// institution: the institution identity itself always may, otherwise an
// explicit true controller entry is required. This is the single gate
// consulted by the credential ledger.
func (am *AccessManager) CanIssueFor(institution, candidate string) (bool, error) {
	if candidate != "" && candidate == institution {
		return true, nil
	}
	key, err := controllerKey(am.Ctx, institution, candidate)
	if err != nil {
		return false, fmt.Errorf("failed to create controller key for '%s'/'%s': %w", institution, candidate, err)
	}
	raw, err := am.Ctx.GetStub().GetState(key)
	if err != nil {
		return false, fmt.Errorf("ledger error checking controller flag for '%s'/'%s': %w", institution, candidate, err)
	}
	return stateToBool(raw), nil
}

// CanAdministerControllers reports whether caller may toggle controller
// entries for institution: the super admin, any enabled registrar, or the
// institution identity itself.
func (am *AccessManager) CanAdministerControllers(caller, institution string) (bool, error) {
	if caller == institution {
		return true, nil
	}
	superAdmin, err := am.GetSuperAdmin()
	if err != nil {
		return false, err
	}
	if superAdmin != "" && caller == superAdmin {
		return true, nil
	}
	return am.IsRegistrar(caller)
}
