package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"code.cloudfoundry.org/lager"
	"github.com/docopt/docopt-go"
	"github.com/mgutz/ansi"

	"github.com/aluedeke/go-provtools/pkg/provision"
)

const version = "1.0.0"

const usage = `clean-secrets - Recover base64 secrets from RTF exports

Usage:
  clean-secrets [--dir=<path>] [--config=<path>] [--verify] [--password=<password>] [--strict] [--no-color] [--debug] [<file>...]
  clean-secrets -h | --help
  clean-secrets --version

Each <file> (default: p12_base64.txt.rtf profile_base64.txt.rtf) is read from
the secrets directory, and the first MII... base64 run is written with all
whitespace and backslashes removed to a sibling file named *_clean.txt.

Options:
  --dir=<path>            Directory holding the RTF files (or PROVTOOLS_SECRETS_DIR env var)
  --config=<path>         YAML config file with dir, files, verify and password keys
  --verify                Decode each cleaned secret and report what it contains
  --password=<password>   P12 password used by --verify (or PROVTOOLS_P12_PASSWORD env var)
  --strict                Exit with status 1 if any file failed
  --no-color              Disable coloured status output
  --debug                 Enable debug logging on stderr
  -h --help               Show this help message
  --version               Show version
`

const passwordEnv = "PROVTOOLS_P12_PASSWORD"

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

	debug, _ := opts.Bool("--debug")
	logger := lager.NewLogger("clean-secrets")
	if debug {
		logger.RegisterSink(lager.NewWriterSink(stderr, lager.DEBUG))
	} else {
		logger.RegisterSink(lager.NewWriterSink(stderr, lager.INFO))
	}

	cfg, err := buildConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	strict, _ := opts.Bool("--strict")
	noColor, _ := opts.Bool("--no-color")
	p := printer{out: stdout, color: !noColor}

	cleaner := provision.NewCleaner(logger)
	results, err := cleaner.CleanFiles(cfg.Dir, cfg.Files)
	for _, r := range results {
		name := filepath.Base(r.Input)
		if !r.OK() {
			p.failure("Failed to clean %s", name)
			continue
		}
		p.success("Cleaned %s -> %s", name, filepath.Base(r.Output))

		if cfg.Verify {
			info, verr := provision.VerifySecret(r.Cleaned, cfg.Password)
			if verr != nil {
				p.warn("  %s: %v", info.Kind, verr)
			} else {
				fmt.Fprintf(stdout, "  %s\n", info.Describe())
			}
		}
	}

	if err != nil {
		logger.Debug("some-files-failed", lager.Data{"error": err.Error()})
		if strict {
			return 1
		}
	}
	return 0
}

// buildConfig layers command line flags over the config file, then the environment
func buildConfig(opts docopt.Opts) (*provision.CleanConfig, error) {
	configPath, _ := opts.String("--config")
	cfg, err := provision.LoadCleanConfig(configPath)
	if err != nil {
		return nil, err
	}

	if dir, _ := opts.String("--dir"); dir != "" {
		cfg.Dir = dir
	}
	if files, ok := opts["<file>"].([]string); ok && len(files) > 0 {
		cfg.Files = files
	}
	if verify, _ := opts.Bool("--verify"); verify {
		cfg.Verify = true
	}
	if password, _ := opts.String("--password"); password != "" {
		cfg.Password = password
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv(passwordEnv)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

type printer struct {
	out   io.Writer
	color bool
}

func (p printer) line(style, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if p.color {
		msg = ansi.Color(msg, style)
	}
	fmt.Fprintln(p.out, msg)
}

func (p printer) success(format string, args ...interface{}) { p.line("green", format, args...) }
func (p printer) failure(format string, args ...interface{}) { p.line("red+b", format, args...) }
func (p printer) warn(format string, args ...interface{})    { p.line("yellow", format, args...) }
