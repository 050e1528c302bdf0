package provision

import (
	"crypto/x509"
	"fmt"
	"io"
	"time"

	"howett.net/plist"
)

// ProvisioningProfile is the plist payload of a .mobileprovision file
type ProvisioningProfile struct {
	Name                        string                 `plist:"Name"`
	TeamName                    string                 `plist:"TeamName"`
	TeamIdentifier              []string               `plist:"TeamIdentifier"`
	AppIDName                   string                 `plist:"AppIDName"`
	ApplicationIdentifierPrefix []string               `plist:"ApplicationIdentifierPrefix"`
	Entitlements                map[string]interface{} `plist:"Entitlements"`
	DeveloperCertificates       [][]byte               `plist:"DeveloperCertificates"`
	ProvisionedDevices          []string               `plist:"ProvisionedDevices"`
	ProvisionsAllDevices        bool                   `plist:"ProvisionsAllDevices"`
	CreationDate                time.Time              `plist:"CreationDate"`
	ExpirationDate              time.Time              `plist:"ExpirationDate"`
	UUID                        string                 `plist:"UUID"`
	Platform                    []string               `plist:"Platform"`
}

// ParseProfile decodes an extracted profile plist
func ParseProfile(data []byte) (*ProvisioningProfile, error) {
	var profile ProvisioningProfile
	if _, err := plist.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse provisioning profile plist: %w", err)
	}
	return &profile, nil
}

// GetTeamID returns the team identifier, falling back to the app ID prefix
func (p *ProvisioningProfile) GetTeamID() string {
	if len(p.TeamIdentifier) > 0 {
		return p.TeamIdentifier[0]
	}
	if len(p.ApplicationIdentifierPrefix) > 0 {
		return p.ApplicationIdentifierPrefix[0]
	}
	return ""
}

// GetApplicationIdentifier returns the application-identifier entitlement
func (p *ProvisioningProfile) GetApplicationIdentifier() string {
	if appID, ok := p.Entitlements["application-identifier"].(string); ok {
		return appID
	}
	return ""
}

// IsExpired checks if the provisioning profile has expired
func (p *ProvisioningProfile) IsExpired() bool {
	return p.isExpiredAt(time.Now())
}

func (p *ProvisioningProfile) isExpiredAt(now time.Time) bool {
	return now.After(p.ExpirationDate)
}

// GetCertificates parses the developer certificates embedded in the profile
func (p *ProvisioningProfile) GetCertificates() ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for i, certData := range p.DeveloperCertificates {
		cert, err := x509.ParseCertificate(certData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate %d: %w", i, err)
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

// PrintProfileInfo writes a short summary of the profile to w
func PrintProfileInfo(p *ProvisioningProfile, w io.Writer) {
	fmt.Fprintln(w, "Provisioning Profile")
	fmt.Fprintln(w, "--------------------")
	fmt.Fprintf(w, "Name:           %s\n", p.Name)
	fmt.Fprintf(w, "UUID:           %s\n", p.UUID)
	fmt.Fprintf(w, "Team ID:        %s\n", p.GetTeamID())
	fmt.Fprintf(w, "App ID:         %s\n", p.GetApplicationIdentifier())
	fmt.Fprintf(w, "Expiration:     %s\n", p.ExpirationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Expired:        %v\n", p.IsExpired())

	certs, err := p.GetCertificates()
	if err != nil {
		fmt.Fprintf(w, "Certificates:   unreadable (%v)\n", err)
		return
	}
	fmt.Fprintf(w, "Certificates:   %d\n", len(certs))
	for i, cert := range certs {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, cert.Subject.CommonName)
		fmt.Fprintf(w, "      Expires: %s\n", cert.NotAfter.Format("2006-01-02"))
	}
}
