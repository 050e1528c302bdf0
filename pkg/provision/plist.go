package provision

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"

	"code.cloudfoundry.org/lager"
	"go.mozilla.org/pkcs7"
)

// ErrPlistNotFound is returned when no <?xml ... </plist> span exists in the input
var ErrPlistNotFound = errors.New("could not find XML plist in data")

const (
	xmlMarker = "<?xml"
	plistEnd  = "</plist>"

	startSampleSize = 100
	tailSampleSize  = 200
)

// MatchMode selects which closing </plist> tag ends the match
type MatchMode int

const (
	// MatchGreedy extends the match to the last </plist> in the data
	MatchGreedy MatchMode = iota
	// MatchLazy stops at the first </plist> after the XML declaration
	MatchLazy
)

var (
	greedyPlistPattern = regexp.MustCompile(`(?s)<\?xml.*</plist>`)
	lazyPlistPattern   = regexp.MustCompile(`(?s)<\?xml.*?</plist>`)
)

func (m MatchMode) pattern() *regexp.Regexp {
	if m == MatchLazy {
		return lazyPlistPattern
	}
	return greedyPlistPattern
}

func (m MatchMode) String() string {
	switch m {
	case MatchGreedy:
		return "greedy"
	case MatchLazy:
		return "lazy"
	default:
		return fmt.Sprintf("MatchMode(%d)", int(m))
	}
}

// Source records where a plist match was found
type Source string

const (
	// SourceScan means the plist was found by scanning the raw bytes
	SourceScan Source = "scan"
	// SourceCMS means the plist was found in the decoded PKCS#7 content
	SourceCMS Source = "cms"
	// SourceBase64 means the input was a base64 encoded profile
	SourceBase64 Source = "base64"
)

// Match is a located plist span.
// For SourceScan, Start and End are offsets into the input. Otherwise they
// are offsets into the decoded data the plist was found in.
type Match struct {
	Start   int
	End     int
	Content []byte
	Source  Source
}

// Len returns the size of the matched plist in bytes
func (m *Match) Len() int {
	return len(m.Content)
}

// ExtractOptions controls how ExtractPlist searches its input
type ExtractOptions struct {
	Mode MatchMode

	// Decode enables the PKCS#7 and base64 fallbacks. Without it only the
	// raw bytes are scanned.
	Decode bool
}

// ExtractPlist locates the XML plist embedded in a provisioning profile.
//
// The raw bytes are scanned first. With opts.Decode set, a failed scan is
// retried on the PKCS#7 signed content, and input that is itself a base64
// encoded profile (as written by the secret cleaner) is decoded and
// searched the same way.
func ExtractPlist(logger lager.Logger, data []byte, opts ExtractOptions) (*Match, error) {
	logger = logger.Session("extract-plist", lager.Data{"size": len(data), "mode": opts.Mode.String(), "decode": opts.Decode})
	logger.Debug("starting")
	defer logger.Debug("done")

	if match := scanPlist(data, opts.Mode, SourceScan); match != nil {
		logger.Debug("found-in-raw-data", lager.Data{"start": match.Start, "end": match.End})
		return match, nil
	}

	if !opts.Decode {
		return nil, ErrPlistNotFound
	}

	if match := scanCMS(logger, data, opts.Mode); match != nil {
		return match, nil
	}

	der, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data)))
	if err != nil || len(der) == 0 {
		return nil, ErrPlistNotFound
	}

	logger.Debug("decoded-base64", lager.Data{"decoded-size": len(der)})
	match := scanPlist(der, opts.Mode, SourceBase64)
	if match == nil {
		match = scanCMS(logger, der, opts.Mode)
	}
	if match == nil {
		return nil, ErrPlistNotFound
	}
	match.Source = SourceBase64
	return match, nil
}

func scanCMS(logger lager.Logger, data []byte, mode MatchMode) *Match {
	p7, err := pkcs7.Parse(data)
	if err != nil {
		logger.Debug("not-pkcs7", lager.Data{"error": err.Error()})
		return nil
	}

	if match := scanPlist(p7.Content, mode, SourceCMS); match != nil {
		logger.Debug("found-in-cms-content", lager.Data{"start": match.Start, "end": match.End})
		return match
	}

	logger.Debug("cms-content-has-no-plist", lager.Data{"content-size": len(p7.Content)})
	return nil
}

func scanPlist(data []byte, mode MatchMode, source Source) *Match {
	loc := mode.pattern().FindIndex(data)
	if loc == nil {
		return nil
	}

	return &Match{
		Start:   loc[0],
		End:     loc[1],
		Content: data[loc[0]:loc[1]],
		Source:  source,
	}
}

// Diagnostics describes why a plist could not be located
type Diagnostics struct {
	Size int

	HasXMLMarker bool
	XMLOffset    int
	StartSample  []byte

	HasPlistEnd    bool
	PlistEndOffset int // offset of the last </plist>
	TailSample     []byte
}

// Diagnose inspects data for the plist markers.
// StartSample holds up to 100 bytes from the first <?xml. TailSample holds
// the last 200 bytes and is only set when </plist> is absent.
func Diagnose(data []byte) Diagnostics {
	diag := Diagnostics{
		Size:           len(data),
		XMLOffset:      -1,
		PlistEndOffset: -1,
	}

	if idx := bytes.Index(data, []byte(xmlMarker)); idx >= 0 {
		diag.HasXMLMarker = true
		diag.XMLOffset = idx
		end := idx + startSampleSize
		if end > len(data) {
			end = len(data)
		}
		diag.StartSample = data[idx:end]
	}

	if idx := bytes.LastIndex(data, []byte(plistEnd)); idx >= 0 {
		diag.HasPlistEnd = true
		diag.PlistEndOffset = idx
	} else {
		start := len(data) - tailSampleSize
		if start < 0 {
			start = 0
		}
		diag.TailSample = data[start:]
	}

	return diag
}

// PrintDiagnostics writes a human readable report of diag to w
func PrintDiagnostics(diag Diagnostics, w io.Writer) {
	if diag.HasXMLMarker {
		fmt.Fprintf(w, "Found %s at offset %d\n", xmlMarker, diag.XMLOffset)
		fmt.Fprintf(w, "Start sample: %q\n", diag.StartSample)
	} else {
		fmt.Fprintf(w, "NO %s found in data!\n", xmlMarker)
	}

	if diag.HasPlistEnd {
		fmt.Fprintf(w, "Found %s at offset %d\n", plistEnd, diag.PlistEndOffset)
	} else {
		fmt.Fprintf(w, "NO %s found in data!\n", plistEnd)
		fmt.Fprintf(w, "Last %d bytes: %q\n", tailSampleSize, diag.TailSample)
	}

	fmt.Fprintf(w, "Total file size: %d bytes\n", diag.Size)
}
