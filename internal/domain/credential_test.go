package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialStateDerivation(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	otp := "123456"
	future := now.Add(10 * time.Minute)
	past := now.Add(-time.Minute)
	token := "access"

	tests := []struct {
		name string
		cred Credential
		want CredentialState
	}{
		{"fresh credential", Credential{}, CredentialStateIssued},
		{"code outstanding", Credential{OTP: &otp, OTPExpiresAt: &future}, CredentialStateCodeSent},
		{"code expired", Credential{OTP: &otp, OTPExpiresAt: &past}, CredentialStateExpired},
		{"attempts exhausted", Credential{OTP: &otp, OTPExpiresAt: &future, OTPAttempts: 3}, CredentialStateLocked},
		{"access granted", Credential{AccessToken: &token, AccessExpiresAt: &future}, CredentialStateVerified},
		{"ballot cast", Credential{Used: true, AccessToken: &token, AccessExpiresAt: &future}, CredentialStateConsumed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cred.State(now, 3))
		})
	}
}

func TestCredentialAccessValid(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	token := "access"
	future := now.Add(time.Hour)
	past := now.Add(-time.Second)

	assert.False(t, (&Credential{}).AccessValid(now))
	assert.True(t, (&Credential{AccessToken: &token, AccessExpiresAt: &future}).AccessValid(now))
	assert.False(t, (&Credential{AccessToken: &token, AccessExpiresAt: &past}).AccessValid(now))
}

func TestMaskedEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"ama.mensah@example.edu", "a********h@example.edu"},
		{"ab@example.edu", "a***@example.edu"},
		{"a@example.edu", "a***@example.edu"},
		{"not-an-email", "not-an-email"},
	}
	for _, tt := range tests {
		cred := Credential{Email: tt.email}
		assert.Equal(t, tt.want, cred.MaskedEmail(), tt.email)
	}
}
