package provision

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"sync"
	"testing"
	"time"

	"go.mozilla.org/pkcs7"
	gop12 "software.sslmate.com/src/go-pkcs12"
)

const testProfilePlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>AppIDName</key>
	<string>Test App</string>
	<key>ApplicationIdentifierPrefix</key>
	<array>
		<string>ABCDE12345</string>
	</array>
	<key>CreationDate</key>
	<date>2024-01-01T00:00:00Z</date>
	<key>Entitlements</key>
	<dict>
		<key>application-identifier</key>
		<string>ABCDE12345.com.example.testapp</string>
		<key>get-task-allow</key>
		<true/>
	</dict>
	<key>ExpirationDate</key>
	<date>2025-01-01T00:00:00Z</date>
	<key>Name</key>
	<string>Test Development Profile</string>
	<key>TeamIdentifier</key>
	<array>
		<string>ABCDE12345</string>
	</array>
	<key>TeamName</key>
	<string>Example Team</string>
	<key>UUID</key>
	<string>0F4D2E7C-1111-2222-3333-444455556666</string>
</dict>
</plist>`

type testIdentity struct {
	key  *rsa.PrivateKey
	cert *x509.Certificate
}

var (
	testIdentityOnce sync.Once
	testIdentityVal  *testIdentity
	testIdentityErr  error
)

// getTestIdentity returns a self-signed signing identity shared by all tests
func getTestIdentity(t *testing.T) *testIdentity {
	t.Helper()

	testIdentityOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			testIdentityErr = err
			return
		}

		template := &x509.Certificate{
			SerialNumber: big.NewInt(42),
			Subject: pkix.Name{
				CommonName:         "iPhone Developer: Test User",
				OrganizationalUnit: []string{"ABCDE12345"},
			},
			NotBefore:   time.Now().Add(-time.Hour),
			NotAfter:    time.Now().Add(24 * time.Hour),
			KeyUsage:    x509.KeyUsageDigitalSignature,
			ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning},
		}

		der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
		if err != nil {
			testIdentityErr = err
			return
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			testIdentityErr = err
			return
		}

		testIdentityVal = &testIdentity{key: key, cert: cert}
	})

	if testIdentityErr != nil {
		t.Fatalf("Failed to create test identity: %v", testIdentityErr)
	}
	return testIdentityVal
}

// signedProfile wraps content in a PKCS#7 signed-data container, like a .mobileprovision
func signedProfile(t *testing.T, content []byte) []byte {
	t.Helper()

	id := getTestIdentity(t)

	sd, err := pkcs7.NewSignedData(content)
	if err != nil {
		t.Fatalf("NewSignedData failed: %v", err)
	}
	if err := sd.AddSigner(id.cert, id.key, pkcs7.SignerInfoConfig{}); err != nil {
		t.Fatalf("AddSigner failed: %v", err)
	}
	data, err := sd.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	return data
}

// p12Bundle encodes the test identity as a PKCS#12 bundle
func p12Bundle(t *testing.T, password string) []byte {
	t.Helper()

	id := getTestIdentity(t)
	data, err := gop12.Modern.Encode(id.key, id.cert, nil, password)
	if err != nil {
		t.Fatalf("Failed to encode P12: %v", err)
	}
	return data
}
