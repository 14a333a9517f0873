package contract

import (
	"encoding/json"
	"fmt"

	"credvault/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Lifecycle: Registrar Operations (institution directory) ---

// UpsertInstitution onboards or updates an institution record. The first call
// for an identity creates the record and fixes its creation timestamp; every
// later call overwrites name and active flag and refreshes the update
// timestamp only. Deliberately allowed while the vault is paused so the
// directory can be repaired during an incident.
func (s *CredVaultSmartContract) UpsertInstitution(ctx contractapi.TransactionContextInterface, identity, name string, active bool) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("UpsertInstitution: failed to get actor info: %w", err)
	}
	am := NewAccessManager(ctx)
	if err := am.RequireRegistrar(actor.fullID); err != nil {
		return fmt.Errorf("UpsertInstitution: %w", err)
	}

	identity, err = validateIdentity(identity, "institution identity")
	if err != nil {
		return fmt.Errorf("UpsertInstitution: %w", err)
	}
	if err := validateRequiredString(name, "institution name", maxNameLength); err != nil {
		return fmt.Errorf("UpsertInstitution: %w", err)
	}

	key, err := institutionKey(ctx, identity)
	if err != nil {
		return fmt.Errorf("UpsertInstitution: failed to create institution key for '%s': %w", identity, err)
	}
	existingBytes, err := ctx.GetStub().GetState(key)
	if err != nil {
		return fmt.Errorf("UpsertInstitution: failed to read institution '%s': %w", identity, err)
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("UpsertInstitution: %w", err)
	}

	var institution model.Institution
	if existingBytes == nil {
		institution = model.Institution{
			ObjectType:    institutionObjectType,
			Identity:      identity,
			Name:          name,
			Active:        active,
			RegisteredBy:  actor.fullID,
			CreatedAt:     now,
			LastUpdatedAt: now,
		}
		logger.Infof("Registrar '%s' onboarding institution '%s' (%s)", actor.fullID, identity, name)
	} else {
		if err := json.Unmarshal(existingBytes, &institution); err != nil {
			return fmt.Errorf("UpsertInstitution: failed to unmarshal institution '%s': %w", identity, err)
		}
		// CreatedAt and RegisteredBy survive every update.
		institution.Name = name
		institution.Active = active
		institution.LastUpdatedAt = now
		logger.Infof("Registrar '%s' updating institution '%s' (%s, active=%t)", actor.fullID, identity, name, active)
	}

	updatedBytes, err := json.Marshal(institution)
	if err != nil {
		return fmt.Errorf("UpsertInstitution: failed to marshal institution '%s': %w", identity, err)
	}
	if err := ctx.GetStub().PutState(key, updatedBytes); err != nil {
		return fmt.Errorf("UpsertInstitution: failed to save institution '%s': %w", identity, err)
	}

	s.emitVaultEvent(ctx, "InstitutionUpserted", map[string]interface{}{
		"institution": identity,
		"name":        name,
		"active":      active,
		"timestamp":   now,
	})
	return nil
}

// SetInstitutionController grants or revokes delegated issuance authority for
// a candidate identity. Pure idempotent toggle; entries are never deleted.
// Allowed while paused.
func (s *CredVaultSmartContract) SetInstitutionController(ctx contractapi.TransactionContextInterface, institution, controller string, allowed bool) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("SetInstitutionController: failed to get actor info: %w", err)
	}
	institution, err = validateIdentity(institution, "institution identity")
	if err != nil {
		return fmt.Errorf("SetInstitutionController: %w", err)
	}

	am := NewAccessManager(ctx)
	mayAdminister, err := am.CanAdministerControllers(actor.fullID, institution)
	if err != nil {
		return fmt.Errorf("SetInstitutionController: %w", err)
	}
	if !mayAdminister {
		return fmt.Errorf("SetInstitutionController: %w: caller '%s' is not the super admin, an enabled registrar, or institution '%s'", ErrNotAuthorized, actor.fullID, institution)
	}

	if _, err := s.getInstitutionByIdentity(ctx, institution); err != nil {
		return fmt.Errorf("SetInstitutionController: %w", err)
	}
	controller, err = validateIdentity(controller, "controller identity")
	if err != nil {
		return fmt.Errorf("SetInstitutionController: %w", err)
	}

	key, err := controllerKey(ctx, institution, controller)
	if err != nil {
		return fmt.Errorf("SetInstitutionController: failed to create controller key for '%s'/'%s': %w", institution, controller, err)
	}
	if err := ctx.GetStub().PutState(key, boolToState(allowed)); err != nil {
		return fmt.Errorf("SetInstitutionController: failed to save controller flag for '%s'/'%s': %w", institution, controller, err)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("SetInstitutionController: %w", err)
	}
	s.emitVaultEvent(ctx, "ControllerUpdated", map[string]interface{}{
		"institution": institution,
		"controller":  controller,
		"allowed":     allowed,
		"updatedBy":   actor.fullID,
		"timestamp":   now,
	})
	logger.Infof("Controller '%s' for institution '%s' set to allowed=%t by '%s'", controller, institution, allowed, actor.fullID)
	return nil
}
