package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/etnz/debutils/apt"
	"github.com/etnz/debutils/deb"
	"github.com/etnz/debutils/internal/logging"
	"github.com/etnz/debutils/manifest"
	"github.com/etnz/debutils/pgp"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"
)

// Custom flag types for repeated flags
type arrayFlags []string

// String implements the flag.Value interface.
func (i *arrayFlags) String() string {
	return strings.Join(*i, ", ")
}

// Set implements the flag.Value interface.
func (i *arrayFlags) Set(value string) error {
	*i = append(*i, value)
	return nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "check":
		err = runCheck(ctx, os.Args[2:])
	case "release":
		err = runRelease(ctx, os.Args[2:], os.Stdout)
	case "deb":
		err = runDeb(os.Args[2:], os.Stdout)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: debutils <command> [flags]")
	fmt.Println("\nCommands:")
	fmt.Println("  check     Verify the repositories listed in a manifest")
	fmt.Println("  release   Fetch, decode and verify a distribution Release")
	fmt.Println("  deb       Show the metadata and contents of a .deb file")
}

// logFlags registers the logging flags on fs and returns a constructor for the logger.
func logFlags(fs *flag.FlagSet) func() (*zap.Logger, error) {
	level := fs.String("log-level", "info", "Log level: debug, info, warn, error")
	format := fs.String("log-format", "console", "Log format: console or json")
	return func() (*zap.Logger, error) {
		return logging.NewLogger(*level, *format)
	}
}

// runCheck executes the 'check' subcommand. Events are printed to stdout, one JSON object per line.
func runCheck(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	path := fs.String("manifest", "debutils.yaml", "Path to the manifest file")
	newLogger := logFlags(fs)
	fs.Parse(args)

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	m, err := manifest.Load(*path)
	if err != nil {
		return err
	}
	listener := func(e fmt.Stringer) { fmt.Println(e) }
	if err := m.Check(ctx, m.NewFetcher(logger), listener); err != nil {
		return err
	}
	logger.Info("All sources verified", zap.Int("sources", len(m.Sources)))
	return nil
}

// releaseReport is the printable summary of a distribution.
type releaseReport struct {
	URL           string        `json:"url" yaml:"url"`
	Origin        string        `json:"origin,omitempty" yaml:"origin,omitempty"`
	Label         string        `json:"label,omitempty" yaml:"label,omitempty"`
	Suite         string        `json:"suite,omitempty" yaml:"suite,omitempty"`
	Version       string        `json:"version,omitempty" yaml:"version,omitempty"`
	Codename      string        `json:"codename,omitempty" yaml:"codename,omitempty"`
	Date          string        `json:"date,omitempty" yaml:"date,omitempty"`
	ValidUntil    string        `json:"valid_until,omitempty" yaml:"valid_until,omitempty"`
	Architectures []string      `json:"architectures,omitempty" yaml:"architectures,omitempty"`
	Components    []string      `json:"components,omitempty" yaml:"components,omitempty"`
	Files         int           `json:"files" yaml:"files"`
	Signature     signatureInfo `json:"signature" yaml:"signature"`
	SignedBy      *pgp.Signer   `json:"signed_by,omitempty" yaml:"signed_by,omitempty"`
}

type signatureInfo struct {
	Issuer        string `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	Fingerprint   string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	KeyAlgorithm  string `json:"key_algorithm" yaml:"key_algorithm"`
	HashAlgorithm string `json:"hash_algorithm" yaml:"hash_algorithm"`
	Created       string `json:"created,omitempty" yaml:"created,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func newReleaseReport(url string, d *deb.Dist) *releaseReport {
	r := d.Release
	rep := &releaseReport{
		URL:           url,
		Origin:        r.Origin,
		Label:         r.Label,
		Suite:         r.Suite,
		Version:       r.Version,
		Codename:      r.Codename,
		Date:          formatTime(r.Date),
		ValidUntil:    formatTime(r.ValidUntil),
		Architectures: r.Architectures,
		Components:    r.Components,
		Files:         len(r.Files),
	}
	p := d.Signature.Packet
	rep.Signature.KeyAlgorithm = p.KeyAlgorithm.String()
	rep.Signature.HashAlgorithm = p.HashAlgorithm.String()
	rep.Signature.Issuer, _ = p.IssuerKeyID()
	rep.Signature.Fingerprint, _ = p.IssuerFingerprint()
	if t, ok := p.CreationTime(); ok {
		rep.Signature.Created = formatTime(t)
	}
	return rep
}

// runRelease executes the 'release' subcommand.
func runRelease(ctx context.Context, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("release", flag.ExitOnError)
	url := fs.String("url", "", "Repository URL or local directory")
	suite := fs.String("suite", "", "Suite (empty for a flat repository)")
	format := fs.String("format", "yaml", "Output format: yaml or json")
	maxSize := fs.Int64("max-size", apt.DefaultMaxSize, "Maximum size of a fetched file in bytes")
	var keyrings arrayFlags
	fs.Var(&keyrings, "keyring", "Armored public key file to verify with (repeatable)")
	newLogger := logFlags(fs)
	fs.Parse(args)

	if *url == "" {
		return fmt.Errorf("missing -url")
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	f := apt.NewFetcher(logger)
	f.MaxSize = *maxSize
	repo := apt.RepoConfig{URL: *url, Suite: *suite}
	d, err := f.FetchDist(ctx, repo)
	if err != nil {
		return err
	}
	rep := newReleaseReport(*url, d)

	if len(keyrings) > 0 {
		k := &pgp.Keyring{}
		for _, path := range keyrings {
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			kr, err := pgp.ReadKeyring(file)
			file.Close()
			if err != nil {
				return err
			}
			k.Merge(kr)
		}
		if rep.SignedBy, err = d.Verify(k); err != nil {
			return err
		}
	}

	switch *format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
}

// runDeb executes the 'deb' subcommand.
func runDeb(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("deb", flag.ExitOnError)
	contents := fs.Bool("contents", false, "List the data tarball like 'dpkg-deb -c'")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: debutils deb [-contents] <file.deb>")
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	pkg, err := deb.NewPackage(f)
	if err != nil {
		return fmt.Errorf("%s: %w", fs.Arg(0), err)
	}
	if *contents {
		_, err := io.WriteString(w, pkg.Files.String())
		return err
	}

	fmt.Fprintf(w, " new Debian package, version %s.\n", pkg.FormatVersion)
	fmt.Fprintf(w, " members: %s\n", strings.Join(pkg.Members, ", "))
	for _, e := range pkg.Control {
		if len(e.Contents) > 0 {
			fmt.Fprintf(w, " %7d bytes, %3d lines      %s\n", e.Size, strings.Count(string(e.Contents), "\n"), strings.TrimPrefix(e.Name, "./"))
		}
	}
	if control, ok := pkg.Control.Find(string(deb.FileControl)); ok {
		for _, line := range strings.SplitAfter(string(control.Contents), "\n") {
			if line != "" {
				fmt.Fprintf(w, " %s", line)
			}
		}
	}
	return nil
}
