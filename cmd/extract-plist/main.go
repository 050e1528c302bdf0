package main

import (
	"fmt"
	"io"
	"os"

	"code.cloudfoundry.org/lager"
	"github.com/docopt/docopt-go"

	"github.com/aluedeke/go-provtools/pkg/provision"
)

const version = "1.0.0"

const usage = `extract-plist - Extract the XML plist from a provisioning profile

Usage:
  extract-plist [--lazy] [--decode] [--info] [--debug] <input.mobileprovision> <output.plist>
  extract-plist -h | --help
  extract-plist --version

Options:
  --lazy        Stop at the first </plist> instead of the last
  --decode      Also search the PKCS#7 content and base64 encoded input
  --info        Print a summary of the extracted profile
  --debug       Enable debug logging on stderr
  -h --help     Show this help message
  --version     Show version

<input.mobileprovision> may also be an .ipa or .app bundle, in which case its
embedded.mobileprovision is used. With --decode, a base64 encoded profile
such as clean-secrets output is accepted too.

Exit status is 0 when the plist was written and 1 otherwise.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	exitCode := -1
	parser := &docopt.Parser{
		HelpHandler: func(err error, usage string) {
			fmt.Fprintln(stdout, usage)
			if err != nil {
				exitCode = 1
			} else {
				exitCode = 0
			}
		},
	}

	opts, err := parser.ParseArgs(usage, argv, version)
	if exitCode >= 0 {
		return exitCode
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing arguments: %v\n", err)
		return 1
	}

	inputPath, _ := opts.String("<input.mobileprovision>")
	outputPath, _ := opts.String("<output.plist>")
	lazy, _ := opts.Bool("--lazy")
	decode, _ := opts.Bool("--decode")
	showInfo, _ := opts.Bool("--info")
	debug, _ := opts.Bool("--debug")

	logger := lager.NewLogger("extract-plist")
	if debug {
		logger.RegisterSink(lager.NewWriterSink(stderr, lager.DEBUG))
	} else {
		logger.RegisterSink(lager.NewWriterSink(stderr, lager.INFO))
	}

	extractOpts := provision.ExtractOptions{Mode: provision.MatchGreedy, Decode: decode}
	if lazy {
		extractOpts.Mode = provision.MatchLazy
	}

	if err := extract(logger, inputPath, outputPath, extractOpts, showInfo, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func extract(logger lager.Logger, inputPath, outputPath string, extractOpts provision.ExtractOptions, showInfo bool, stdout io.Writer) error {
	data, err := provision.ReadProfileData(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	fmt.Fprintf(stdout, "Read %d bytes from %s\n", len(data), inputPath)

	match, err := provision.ExtractPlist(logger, data, extractOpts)
	if err != nil {
		fmt.Fprintln(stdout, "ERROR: Could not find XML plist in data")
		provision.PrintDiagnostics(provision.Diagnose(data), stdout)
		return err
	}

	if match.Source != provision.SourceScan {
		fmt.Fprintf(stdout, "Found XML plist: %d bytes at offset %d of the %s decoded data\n", match.Len(), match.Start, match.Source)
	} else {
		fmt.Fprintf(stdout, "Found XML plist: %d bytes at offset %d\n", match.Len(), match.Start)
	}

	if err := os.WriteFile(outputPath, match.Content, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(stdout, "Wrote to %s\n", outputPath)

	if showInfo {
		profile, err := provision.ParseProfile(match.Content)
		if err != nil {
			logger.Info("profile-info-unavailable", lager.Data{"error": err.Error()})
			return nil
		}
		fmt.Fprintln(stdout)
		provision.PrintProfileInfo(profile, stdout)
	}

	return nil
}
