package provision

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// EmbeddedProfileName is the provisioning profile file inside an .app bundle
const EmbeddedProfileName = "embedded.mobileprovision"

// ErrNoEmbeddedProfile is returned when an IPA or .app has no embedded profile
var ErrNoEmbeddedProfile = errors.New("no embedded.mobileprovision found")

// ReadProfileData returns the raw profile bytes for path.
//
// An .ipa is searched for Payload/<name>.app/embedded.mobileprovision and a
// .app directory for its embedded.mobileprovision. Anything else is read as
// the profile itself.
func ReadProfileData(p string) ([]byte, error) {
	if strings.HasSuffix(strings.ToLower(p), ".ipa") {
		return readIPAProfile(p)
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		data, err := os.ReadFile(filepath.Join(p, EmbeddedProfileName))
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", p, ErrNoEmbeddedProfile)
		}
		return data, err
	}

	return os.ReadFile(p)
}

func readIPAProfile(ipaPath string) ([]byte, error) {
	r, err := zip.OpenReader(ipaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open IPA: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if !isMainAppProfile(f.Name) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("%s: %w", ipaPath, ErrNoEmbeddedProfile)
}

// isMainAppProfile matches Payload/X.app/embedded.mobileprovision but not
// profiles of nested bundles such as PlugIns/Y.appex.
func isMainAppProfile(name string) bool {
	dir, file := path.Split(name)
	if file != EmbeddedProfileName {
		return false
	}
	parts := strings.Split(strings.TrimSuffix(dir, "/"), "/")
	return len(parts) == 2 && parts[0] == "Payload" && strings.HasSuffix(parts[1], ".app")
}
