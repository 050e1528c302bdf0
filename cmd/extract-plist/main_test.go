package main

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const samplePlist = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
	<key>Name</key>
	<string>CLI Profile</string>
	<key>UUID</key>
	<string>ABCD</string>
</dict>
</plist>`

func writeInput(t *testing.T, data []byte) (string, string) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "profile.mobileprovision")
	if err := os.WriteFile(input, data, 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}
	return input, filepath.Join(dir, "profile.plist")
}

func TestRun_Success(t *testing.T) {
	data := append([]byte("\x30\x80header"), samplePlist...)
	data = append(data, "\x00\x00trailer"...)
	input, output := writeInput(t, data)

	var stdout, stderr bytes.Buffer
	code := run([]string{input, output}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d\nstdout:\n%s\nstderr:\n%s", code, stdout.String(), stderr.String())
	}

	written, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Output not written: %v", err)
	}
	if string(written) != samplePlist {
		t.Errorf("Expected output to be the plist span, got:\n%s", written)
	}

	out := stdout.String()
	for _, want := range []string{
		"Read " + strconv.Itoa(len(data)) + " bytes from " + input,
		"Found XML plist: " + strconv.Itoa(len(samplePlist)) + " bytes at offset 8",
		"Wrote to " + output,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected stdout to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRun_Info(t *testing.T) {
	input, output := writeInput(t, []byte(samplePlist))

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--info", input, output}, &stdout, &stderr); code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Name:           CLI Profile") {
		t.Errorf("Expected profile summary, got:\n%s", stdout.String())
	}
}

func TestRun_Lazy(t *testing.T) {
	input, output := writeInput(t, []byte("<?xml a</plist>b</plist>"))

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--lazy", input, output}, &stdout, &stderr); code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, stderr.String())
	}
	written, _ := os.ReadFile(output)
	if string(written) != "<?xml a</plist>" {
		t.Errorf("Expected lazy match, got %q", written)
	}
}

func TestRun_NoXMLMarker(t *testing.T) {
	input, output := writeInput(t, []byte("\x30\x82 binary only </plist>"))

	var stdout, stderr bytes.Buffer
	code := run([]string{input, output}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("Expected exit 1, got %d", code)
	}

	out := stdout.String()
	for _, want := range []string{
		"ERROR: Could not find XML plist in data",
		"NO <?xml found in data!",
		"Found </plist> at offset 15",
		"Total file size: 23 bytes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected stdout to contain %q, got:\n%s", want, out)
		}
	}

	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("Output file should not be created on failure")
	}
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	code := run([]string{filepath.Join(dir, "nope"), filepath.Join(dir, "out.plist")}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("Expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "failed to read input file") {
		t.Errorf("Expected read error on stderr, got:\n%s", stderr.String())
	}
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no args", nil, 1},
		{"one arg", []string{"in.mobileprovision"}, 1},
		{"three args", []string{"a", "b", "c"}, 1},
		{"help", []string{"--help"}, 0},
		{"version", []string{"--version"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != tt.code {
				t.Errorf("Expected exit %d, got %d", tt.code, code)
			}
			if stdout.Len() == 0 {
				t.Errorf("Expected usage or version output")
			}
		})
	}
}

func TestRun_AppBundle(t *testing.T) {
	appPath := filepath.Join(t.TempDir(), "Test.app")
	if err := os.MkdirAll(appPath, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(appPath, "embedded.mobileprovision"), []byte("\x30\x80"+samplePlist), 0644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(t.TempDir(), "out.plist")

	var stdout, stderr bytes.Buffer
	if code := run([]string{appPath, output}, &stdout, &stderr); code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, stderr.String())
	}
	written, _ := os.ReadFile(output)
	if string(written) != samplePlist {
		t.Errorf("Expected embedded profile plist, got:\n%s", written)
	}
}

func TestRun_Base64InputNeedsDecode(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(samplePlist))
	input, output := writeInput(t, []byte(encoded))

	var stdout, stderr bytes.Buffer
	if code := run([]string{input, output}, &stdout, &stderr); code != 1 {
		t.Fatalf("Expected exit 1 without --decode, got %d\n%s", code, stdout.String())
	}
	if !strings.Contains(stdout.String(), "NO <?xml found in data!") {
		t.Errorf("Expected missing marker diagnostics, got:\n%s", stdout.String())
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("Output file should not be created without --decode")
	}

	stdout.Reset()
	stderr.Reset()
	if code := run([]string{"--decode", input, output}, &stdout, &stderr); code != 0 {
		t.Fatalf("Expected exit 0 with --decode, got %d\n%s%s", code, stdout.String(), stderr.String())
	}
	written, _ := os.ReadFile(output)
	if string(written) != samplePlist {
		t.Errorf("Expected decoded plist, got:\n%s", written)
	}
	if !strings.Contains(stdout.String(), "of the base64 decoded data") {
		t.Errorf("Expected the decoded source to be reported, got:\n%s", stdout.String())
	}
}
