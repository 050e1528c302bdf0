package provision

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"code.cloudfoundry.org/lager"
	"github.com/hashicorp/go-multierror"
)

// ErrNoSecret is returned when a document contains no MII-prefixed base64 run
var ErrNoSecret = errors.New("no base64 secret found")

// DefaultSecretFiles are the RTF exports cleaned when no files are named
var DefaultSecretFiles = []string{"p12_base64.txt.rtf", "profile_base64.txt.rtf"}

const (
	rtfSuffix   = ".txt.rtf"
	cleanSuffix = "_clean.txt"
)

// DER SEQUENCEs (P12, CMS) of 256 bytes up to 16KiB base64-encode to "MII...".
// RTF exports wrap the text with backslash line continuations.
var (
	secretPattern   = regexp.MustCompile(`MII[A-Za-z0-9+/= \r\n\\]+`)
	rtfNoisePattern = regexp.MustCompile(`[\s\\]`)
)

// CleanRTFToBase64 returns the first base64 secret found in content with
// all whitespace and backslashes removed
func CleanRTFToBase64(content string) (string, bool) {
	raw := secretPattern.FindString(content)
	if raw == "" {
		return "", false
	}
	return rtfNoisePattern.ReplaceAllString(raw, ""), true
}

// CleanedName maps an RTF export name to the name of its cleaned sibling
func CleanedName(filename string) string {
	return strings.ReplaceAll(filename, rtfSuffix, cleanSuffix)
}

// CleanResult is the outcome of cleaning one file
type CleanResult struct {
	Input   string
	Output  string
	Cleaned string
	Err     error
}

// OK reports whether the file was cleaned and written
func (r CleanResult) OK() bool {
	return r.Err == nil
}

// Cleaner extracts base64 secrets from RTF files into plain text files
type Cleaner struct {
	logger lager.Logger
}

func NewCleaner(logger lager.Logger) *Cleaner {
	return &Cleaner{
		logger: logger.Session("cleaner"),
	}
}

// CleanFile cleans a single RTF file and writes the result next to it
func (c *Cleaner) CleanFile(path string) CleanResult {
	logger := c.logger.Session("clean-file", lager.Data{"path": path})
	logger.Debug("starting")
	defer logger.Debug("done")

	result := CleanResult{Input: path}

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("failed-to-read", lager.Data{"error": err.Error()})
		result.Err = fmt.Errorf("failed to read %s: %w", path, err)
		return result
	}

	cleaned, ok := CleanRTFToBase64(string(content))
	if !ok {
		logger.Debug("no-secret-found")
		result.Err = fmt.Errorf("%s: %w", path, ErrNoSecret)
		return result
	}

	outPath := filepath.Join(filepath.Dir(path), CleanedName(filepath.Base(path)))
	if err := os.WriteFile(outPath, []byte(cleaned), 0644); err != nil {
		logger.Debug("failed-to-write", lager.Data{"output": outPath, "error": err.Error()})
		result.Err = fmt.Errorf("failed to write %s: %w", outPath, err)
		return result
	}

	logger.Debug("wrote", lager.Data{"output": outPath, "length": len(cleaned)})
	result.Output = outPath
	result.Cleaned = cleaned
	return result
}

// CleanFiles cleans each of files inside dir. Every file is attempted; the
// returned error aggregates all failures.
func (c *Cleaner) CleanFiles(dir string, files []string) ([]CleanResult, error) {
	var result *multierror.Error

	results := make([]CleanResult, 0, len(files))
	for _, name := range files {
		path := name
		if !filepath.IsAbs(name) {
			path = filepath.Join(dir, name)
		}

		r := c.CleanFile(path)
		if r.Err != nil {
			result = multierror.Append(result, r.Err)
		}
		results = append(results, r)
	}

	return results, result.ErrorOrNil()
}
