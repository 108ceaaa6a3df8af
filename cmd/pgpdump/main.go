package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/debutils/internal/logging"
	"github.com/etnz/debutils/pgp"
	"go.uber.org/zap"
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

// main is the entry point for the pgpdump CLI tool.
func main() {
	os.Exit(run(os.Args[1:]))
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintln(fs.Output(), "Usage: pgpdump [flags] <Release.gpg>...")
	fmt.Fprintln(fs.Output(), "\nDecodes ASCII-armored detached signatures and prints their structure.")
	fmt.Fprintln(fs.Output(), "\nFlags:")
	fs.PrintDefaults()
}

// run executes the command and returns the process exit code.
func run(args []string) int {
	fs := flag.NewFlagSet("pgpdump", flag.ContinueOnError)
	format := fs.String("format", "text", "Output format: text or yaml")
	signed := fs.String("signed", "", "Signed file (e.g. Release) to verify the signatures against")
	maxSize := fs.Int64("max-size", 1<<20, "Maximum size of a signature file in bytes")
	logLevel := fs.String("log-level", "warn", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "console", "Log format: console or json")
	var keyrings arrayFlags
	fs.Var(&keyrings, "keyring", "Armored public key file trusted for verification (repeatable)")
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		printUsage(fs)
		return 2
	}
	if len(keyrings) > 0 && *signed == "" {
		fmt.Fprintln(fs.Output(), "--keyring requires --signed")
		return 2
	}

	logger, err := logging.NewLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		return 2
	}
	defer logger.Sync()

	var keyring *pgp.Keyring
	var content []byte
	if *signed != "" {
		if content, err = os.ReadFile(*signed); err != nil {
			logger.Error("Failed to read signed file", zap.String("path", *signed), zap.Error(err))
			return 1
		}
		keyring = &pgp.Keyring{}
		for _, path := range keyrings {
			f, err := os.Open(path)
			if err != nil {
				logger.Error("Failed to open keyring", zap.String("path", path), zap.Error(err))
				return 1
			}
			k, err := pgp.ReadKeyring(f)
			f.Close()
			if err != nil {
				logger.Error("Failed to read keyring", zap.String("path", path), zap.Error(err))
				return 1
			}
			keyring.Merge(k)
		}
		logger.Debug("Loaded keyring", zap.Strings("key_ids", keyring.KeyIDs()))
	}

	var dumps []*fileDump
	status := 0
	for _, path := range fs.Args() {
		d, err := dumpFile(path, *maxSize, keyring, content)
		if err != nil {
			logger.Error("Failed to decode signature",
				zap.String("path", path),
				zap.String("kind", pgp.KindOf(err).String()),
				zap.Error(err),
			)
			status = 1
		}
		if d != nil {
			dumps = append(dumps, d)
		}
	}

	if err := writeDumps(os.Stdout, *format, dumps); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		return 2
	}
	return status
}

// dumpFile decodes the signature at path and, when keyring is set, verifies it over signed.
// A verification failure still returns the dump.
func dumpFile(path string, maxSize int64, keyring *pgp.Keyring, signed []byte) (*fileDump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sig, err := pgp.LoadSignature(f, maxSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d := newFileDump(path, sig)
	if keyring == nil {
		return d, nil
	}
	signer, err := keyring.Verify(sig, bytes.NewReader(signed))
	if err != nil {
		return d, fmt.Errorf("%s: %w", path, err)
	}
	d.Verified = &signerDump{KeyID: signer.KeyID, Fingerprint: signer.Fingerprint, UserIDs: signer.UserIDs}
	return d, nil
}
