package provision

import (
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"

	"go.mozilla.org/pkcs7"
	gop12 "software.sslmate.com/src/go-pkcs12"
)

// ErrUnknownSecret is returned when decoded secret bytes are neither a
// provisioning profile nor a PKCS#12 bundle
var ErrUnknownSecret = errors.New("secret is neither a provisioning profile nor a PKCS#12 bundle")

// SecretKind identifies what a cleaned base64 secret decodes to
type SecretKind string

const (
	SecretUnknown SecretKind = "unknown"
	SecretProfile SecretKind = "provisioning-profile"
	SecretP12     SecretKind = "pkcs12"
)

// SecretInfo describes a decoded secret
type SecretInfo struct {
	Kind SecretKind

	// Set for SecretProfile
	Profile *ProvisioningProfile

	// Set for SecretP12 when the password is correct
	Certificate *x509.Certificate
	TeamID      string
}

// Describe returns a one-line summary suitable for status output
func (s *SecretInfo) Describe() string {
	switch s.Kind {
	case SecretProfile:
		return fmt.Sprintf("provisioning profile %q (%s)", s.Profile.Name, s.Profile.UUID)
	case SecretP12:
		if s.Certificate == nil {
			return "PKCS#12 bundle"
		}
		return fmt.Sprintf("PKCS#12 bundle for %q", s.Certificate.Subject.CommonName)
	default:
		return string(s.Kind)
	}
}

// VerifySecret decodes a cleaned base64 secret and identifies it.
//
// A PKCS#12 bundle that fails to decrypt with password is still reported as
// SecretP12 together with the decode error.
func VerifySecret(cleaned, password string) (*SecretInfo, error) {
	der, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return &SecretInfo{Kind: SecretUnknown}, fmt.Errorf("failed to decode base64: %w", err)
	}

	if p7, err := pkcs7.Parse(der); err == nil {
		profile, err := ParseProfile(p7.Content)
		if err != nil {
			return &SecretInfo{Kind: SecretUnknown}, err
		}
		return &SecretInfo{Kind: SecretProfile, Profile: profile}, nil
	}

	_, cert, _, err := gop12.DecodeChain(der, password)
	if err == nil {
		return &SecretInfo{
			Kind:        SecretP12,
			Certificate: cert,
			TeamID:      extractTeamID(cert),
		}, nil
	}
	if errors.Is(err, gop12.ErrIncorrectPassword) {
		return &SecretInfo{Kind: SecretP12}, fmt.Errorf("failed to decode P12: %w", err)
	}

	return &SecretInfo{Kind: SecretUnknown}, ErrUnknownSecret
}

func extractTeamID(cert *x509.Certificate) string {
	// Apple Team IDs are 10 characters in the OU
	for _, ou := range cert.Subject.OrganizationalUnit {
		if len(ou) == 10 {
			return ou
		}
	}
	return ""
}
