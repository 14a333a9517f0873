package contract

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type QueryOpsSuite struct {
	suite.Suite
	vault *CredVaultSmartContract
	ctx   *fakeContext
}

func (s *QueryOpsSuite) SetupTest() {
	s.vault = &CredVaultSmartContract{}
	s.ctx = newFakeContext(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s.Require().NoError(s.vault.BootstrapLedger(s.ctx.as(adminID)))
	s.Require().NoError(s.vault.SetRegistrar(s.ctx.as(adminID), registrarID, true))
	s.Require().NoError(s.vault.UpsertInstitution(s.ctx.as(registrarID), institutionID, "State University", true))
}

func TestQueryOpsSuite(t *testing.T) {
	suite.Run(t, new(QueryOpsSuite))
}

func (s *QueryOpsSuite) TestVerifyFingerprint() {
	id, err := s.vault.IssueCredential(s.ctx.as(institutionID), institutionID, studentID, fingerprintA, "", "", 0)
	s.Require().NoError(err)

	s.Run("matching fingerprint", func() {
		s.True(s.vault.VerifyFingerprint(s.ctx, id, fingerprintA))
	})

	s.Run("accepts prefixed and uppercased input", func() {
		s.True(s.vault.VerifyFingerprint(s.ctx, id, "0x"+fingerprintA))
		s.True(s.vault.VerifyFingerprint(s.ctx, id, "0X"+strings.ToUpper(fingerprintA)))
	})

	s.Run("unknown id", func() {
		s.False(s.vault.VerifyFingerprint(s.ctx, 42, fingerprintA))
	})

	s.Run("malformed fingerprint", func() {
		s.False(s.vault.VerifyFingerprint(s.ctx, id, "zz"))
		s.False(s.vault.VerifyFingerprint(s.ctx, id, ""))
	})

	s.Run("mismatched fingerprint", func() {
		s.False(s.vault.VerifyFingerprint(s.ctx, id, fingerprintB))
	})

	s.Run("expired credential", func() {
		expiry := s.ctx.stub.now.Add(time.Hour).Unix()
		expiring, err := s.vault.IssueCredential(s.ctx.as(institutionID), institutionID, studentID, fingerprintB, "", "", expiry)
		s.Require().NoError(err)
		s.True(s.vault.VerifyFingerprint(s.ctx, expiring, fingerprintB))

		s.ctx.stub.now = s.ctx.stub.now.Add(2 * time.Hour)
		s.False(s.vault.VerifyFingerprint(s.ctx, expiring, fingerprintB))
		s.ctx.stub.now = s.ctx.stub.now.Add(-2 * time.Hour)
	})

	s.Run("revoked credential", func() {
		s.Require().NoError(s.vault.RevokeCredential(s.ctx.as(institutionID), id, reasonA))
		s.False(s.vault.VerifyFingerprint(s.ctx, id, fingerprintA))
	})
}

func (s *QueryOpsSuite) TestStatusAndRecordReads() {
	s.Run("unknown id reads as absent", func() {
		status, err := s.vault.GetCredentialStatus(s.ctx, 999)
		s.Require().NoError(err)
		s.False(status.Exists)
		s.False(status.Valid)
	})

	s.Run("record lookup fails for unknown id", func() {
		_, err := s.vault.GetCredential(s.ctx, 999)
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("record carries the issuance metadata", func() {
		id, err := s.vault.IssueCredential(s.ctx.as(institutionID), institutionID, studentID, fingerprintA,
			"ipfs://meta", "ipfs://payload", 0)
		s.Require().NoError(err)

		record, err := s.vault.GetCredential(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(studentID, record.Student)
		s.Equal(institutionID, record.Institution)
		s.Equal("ipfs://meta", record.MetadataURI)
		s.Equal("ipfs://payload", record.EncryptedPayloadURI)
		s.Equal(int64(0), record.ExpiresAt)
		s.False(record.Revoked)
		s.Nil(record.RevokedAt)
	})
}

func (s *QueryOpsSuite) TestStudentCredentialIndex() {
	s.Run("empty student identity is rejected", func() {
		_, err := s.vault.GetStudentCredentials(s.ctx, " ")
		s.Require().ErrorIs(err, ErrInvalidArgument)
	})

	s.Run("unknown student has an empty listing", func() {
		ids, err := s.vault.GetStudentCredentials(s.ctx, studentID)
		s.Require().NoError(err)
		s.Empty(ids)
	})

	s.Run("issuance-order enumeration per student", func() {
		digests := []string{
			"1111111111111111111111111111111111111111111111111111111111111111",
			"2222222222222222222222222222222222222222222222222222222222222222",
			"3333333333333333333333333333333333333333333333333333333333333333",
		}
		students := []string{studentID, otherStudentID, studentID}
		for i, digest := range digests {
			_, err := s.vault.IssueCredential(s.ctx.as(institutionID), institutionID, students[i], digest, "", "", 0)
			s.Require().NoError(err)
		}

		ids, err := s.vault.GetStudentCredentials(s.ctx, studentID)
		s.Require().NoError(err)
		s.Equal([]uint64{1, 3}, ids)

		ids, err = s.vault.GetStudentCredentials(s.ctx, otherStudentID)
		s.Require().NoError(err)
		s.Equal([]uint64{2}, ids)
	})

	s.Run("revoked credentials stay listed", func() {
		id, err := s.vault.IssueCredential(s.ctx.as(institutionID), institutionID, studentID, fingerprintA, "", "", 0)
		s.Require().NoError(err)
		s.Require().NoError(s.vault.RevokeCredential(s.ctx.as(institutionID), id, reasonA))

		ids, err := s.vault.GetStudentCredentials(s.ctx, studentID)
		s.Require().NoError(err)
		s.Contains(ids, id)
	})
}

func (s *QueryOpsSuite) TestAccessReads() {
	s.Run("super admin identity", func() {
		admin, err := s.vault.GetSuperAdmin(s.ctx)
		s.Require().NoError(err)
		s.Equal(adminID, admin)
	})

	s.Run("registrar flag", func() {
		enabled, err := s.vault.IsRegistrar(s.ctx, registrarID)
		s.Require().NoError(err)
		s.True(enabled)

		enabled, err = s.vault.IsRegistrar(s.ctx, strangerID)
		s.Require().NoError(err)
		s.False(enabled)

		enabled, err = s.vault.IsRegistrar(s.ctx, "")
		s.Require().NoError(err)
		s.False(enabled)
	})

	s.Run("issuance gate preflight tolerates blanks", func() {
		allowed, err := s.vault.CanIssueForInstitution(s.ctx, "", controllerID)
		s.Require().NoError(err)
		s.False(allowed)

		allowed, err = s.vault.CanIssueForInstitution(s.ctx, institutionID, "")
		s.Require().NoError(err)
		s.False(allowed)
	})

	s.Run("pause flag", func() {
		paused, err := s.vault.IsPaused(s.ctx)
		s.Require().NoError(err)
		s.False(paused)

		s.Require().NoError(s.vault.SetPaused(s.ctx.as(adminID), true))
		paused, err = s.vault.IsPaused(s.ctx)
		s.Require().NoError(err)
		s.True(paused)
	})
}
