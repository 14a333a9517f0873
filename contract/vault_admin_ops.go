package contract

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Lifecycle: Super Admin Operations ---

// BootstrapLedger claims the vacant super admin slot for the transaction
// invoker. It is valid exactly once; re-running it on a bootstrapped vault is
// an error.
func (s *CredVaultSmartContract) BootstrapLedger(ctx contractapi.TransactionContextInterface) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("BootstrapLedger: failed to get actor info: %w", err)
	}
	am := NewAccessManager(ctx)
	if err := am.Bootstrap(actor.fullID); err != nil {
		return fmt.Errorf("BootstrapLedger: %w", err)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("BootstrapLedger: %w", err)
	}
	s.emitVaultEvent(ctx, "SuperAdminChanged", map[string]interface{}{
		"previousSuperAdmin": "",
		"newSuperAdmin":      actor.fullID,
		"timestamp":          now,
	})
	logger.Infof("BootstrapLedger: vault bootstrapped, super admin is '%s' (MSP: %s)", actor.fullID, actor.mspID)
	return nil
}

// ProposeSuperAdmin stores a successor candidate in the pending slot. The
// handover completes only when the candidate calls AcceptSuperAdmin.
func (s *CredVaultSmartContract) ProposeSuperAdmin(ctx contractapi.TransactionContextInterface, candidate string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("ProposeSuperAdmin: failed to get actor info: %w", err)
	}
	if err := NewAccessManager(ctx).ProposeSuccessor(actor.fullID, candidate); err != nil {
		return fmt.Errorf("ProposeSuperAdmin: %w", err)
	}
	return nil
}

// AcceptSuperAdmin completes a two-phase handover: the caller must equal the
// pending slot's value.
func (s *CredVaultSmartContract) AcceptSuperAdmin(ctx contractapi.TransactionContextInterface) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("AcceptSuperAdmin: failed to get actor info: %w", err)
	}
	previous, err := NewAccessManager(ctx).AcceptSuccession(actor.fullID)
	if err != nil {
		return fmt.Errorf("AcceptSuperAdmin: %w", err)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("AcceptSuperAdmin: %w", err)
	}
	s.emitVaultEvent(ctx, "SuperAdminChanged", map[string]interface{}{
		"previousSuperAdmin": previous,
		"newSuperAdmin":      actor.fullID,
		"timestamp":          now,
	})
	return nil
}

// SetRegistrar toggles the enabled flag for a registrar identity.
func (s *CredVaultSmartContract) SetRegistrar(ctx contractapi.TransactionContextInterface, identity string, enabled bool) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("SetRegistrar: failed to get actor info: %w", err)
	}
	if err := NewAccessManager(ctx).SetRegistrar(actor.fullID, identity, enabled); err != nil {
		return fmt.Errorf("SetRegistrar: %w", err)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("SetRegistrar: %w", err)
	}
	s.emitVaultEvent(ctx, "RegistrarUpdated", map[string]interface{}{
		"registrar": identity,
		"enabled":   enabled,
		"updatedBy": actor.fullID,
		"timestamp": now,
	})
	return nil
}

// SetPaused toggles the pause flag. While paused, credential issuance and
// revocation are blocked; directory administration stays available as a
// recovery path.
func (s *CredVaultSmartContract) SetPaused(ctx contractapi.TransactionContextInterface, paused bool) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("SetPaused: failed to get actor info: %w", err)
	}
	if err := NewAccessManager(ctx).SetPaused(actor.fullID, paused); err != nil {
		return fmt.Errorf("SetPaused: %w", err)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("SetPaused: %w", err)
	}
	s.emitVaultEvent(ctx, "PauseStateChanged", map[string]interface{}{
		"paused":    paused,
		"changedBy": actor.fullID,
		"timestamp": now,
	})
	return nil
}
