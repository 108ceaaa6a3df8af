package deb

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotListed is returned by Release.Check for a path the Release does not list.
	ErrNotListed = errors.New("deb: file not listed in Release")
	// ErrMismatch is returned by Release.Check when a size or hash differs.
	ErrMismatch = errors.New("deb: file does not match Release")
)

// releaseDateFormats are tried in order. Debian archives write UTC dates;
// some third party archives write a numeric zone.
var releaseDateFormats = []string{
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// FileHashes is a file listed by a Release, relative to the dists/<suite>/ directory.
type FileHashes struct {
	Path   string
	Size   int64
	MD5    string
	SHA1   string
	SHA256 string
}

// Release is a parsed Debian Release file.
//
// Reference: https://wiki.debian.org/DebianRepository/Format#A.22Release.22_files
type Release struct {
	Origin        string
	Label         string
	Suite         string
	Version       string
	Codename      string
	Date          time.Time
	ValidUntil    time.Time
	Architectures []string
	Components    []string
	Description   string

	// ExtraFields holds every other field, keyed by field name.
	ExtraFields map[string]string

	// Files lists every file in order of first appearance.
	Files []*FileHashes
	index map[string]*FileHashes
}

// ParseRelease parses the content of a Release file.
func ParseRelease(data []byte) (*Release, error) {
	r := &Release{ExtraFields: make(map[string]string)}
	keys, values := parseFields(string(data))
	for _, key := range keys {
		val := values[key]
		var err error
		switch ReleaseField(key) {
		case RelOrigin:
			r.Origin = val
		case RelLabel:
			r.Label = val
		case RelSuite:
			r.Suite = val
		case RelVersion:
			r.Version = val
		case RelCodename:
			r.Codename = val
		case RelDate:
			r.Date, err = parseReleaseDate(val)
		case RelValidUntil:
			r.ValidUntil, err = parseReleaseDate(val)
		case RelArchitectures:
			r.Architectures = strings.Fields(val)
		case RelComponents:
			r.Components = strings.Fields(val)
		case RelDescription:
			r.Description = val
		case RelMD5Sum, RelSHA1, RelSHA256:
			err = r.parseFileList(ReleaseField(key), val)
		default:
			r.ExtraFields[key] = val
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", key, err)
		}
	}
	return r, nil
}

func parseReleaseDate(s string) (time.Time, error) {
	for _, layout := range releaseDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseFileList reads the " <hash> <size> <path>" lines of a hash section.
func (r *Release) parseFileList(section ReleaseField, list string) error {
	for _, line := range strings.Split(list, "\n") {
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		if len(parts) != 3 {
			return fmt.Errorf("malformed file line %q", line)
		}
		if _, err := hex.DecodeString(parts[0]); err != nil {
			return fmt.Errorf("malformed hash %q", parts[0])
		}
		size, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("malformed size %q", parts[1])
		}
		f := r.file(parts[2])
		f.Size = size
		switch section {
		case RelMD5Sum:
			f.MD5 = parts[0]
		case RelSHA1:
			f.SHA1 = parts[0]
		case RelSHA256:
			f.SHA256 = parts[0]
		}
	}
	return nil
}

func (r *Release) file(path string) *FileHashes {
	if r.index == nil {
		r.index = make(map[string]*FileHashes)
	}
	f, ok := r.index[path]
	if !ok {
		f = &FileHashes{Path: path}
		r.index[path] = f
		r.Files = append(r.Files, f)
	}
	return f
}

// File returns the entry for path.
func (r *Release) File(path string) (*FileHashes, bool) {
	f, ok := r.index[path]
	return f, ok
}

// AddFile records path with its size and hashes, as computed from content.
func (r *Release) AddFile(path string, content []byte) {
	f := r.file(path)
	f.Size = int64(len(content))
	f.MD5 = hexSum(md5.New(), content)
	f.SHA1 = hexSum(sha1.New(), content)
	f.SHA256 = hexSum(sha256.New(), content)
}

// Check verifies content against the size and every hash the Release lists for path.
func (r *Release) Check(path string, content []byte) error {
	f, ok := r.File(path)
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotListed)
	}
	if f.Size != int64(len(content)) {
		return fmt.Errorf("%s: size %d, want %d: %w", path, len(content), f.Size, ErrMismatch)
	}
	checks := []struct {
		name string
		want string
		h    hash.Hash
	}{
		{"SHA256", f.SHA256, sha256.New()},
		{"SHA1", f.SHA1, sha1.New()},
		{"MD5", f.MD5, md5.New()},
	}
	for _, c := range checks {
		if c.want == "" {
			continue
		}
		if got := hexSum(c.h, content); got != strings.ToLower(c.want) {
			return fmt.Errorf("%s: %s %s, want %s: %w", path, c.name, got, c.want, ErrMismatch)
		}
	}
	return nil
}

func hexSum(h hash.Hash, content []byte) string {
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// WriteTo writes r in Release file format to w.
// This satisfies the io.WriterTo interface.
func (r *Release) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	writeField := func(key ReleaseField, value string) {
		if value != "" {
			fmt.Fprintf(cw, "%s: %s\n", key, value)
		}
	}
	writeDate := func(key ReleaseField, t time.Time) {
		if !t.IsZero() {
			writeField(key, t.UTC().Format(time.RFC1123))
		}
	}

	writeField(RelOrigin, r.Origin)
	writeField(RelLabel, r.Label)
	writeField(RelSuite, r.Suite)
	writeField(RelVersion, r.Version)
	writeField(RelCodename, r.Codename)
	writeDate(RelDate, r.Date)
	writeDate(RelValidUntil, r.ValidUntil)
	writeField(RelArchitectures, strings.Join(r.Architectures, " "))
	writeField(RelComponents, strings.Join(r.Components, " "))
	writeField(RelDescription, r.Description)

	sections := []struct {
		key ReleaseField
		sum func(*FileHashes) string
	}{
		{RelMD5Sum, func(f *FileHashes) string { return f.MD5 }},
		{RelSHA1, func(f *FileHashes) string { return f.SHA1 }},
		{RelSHA256, func(f *FileHashes) string { return f.SHA256 }},
	}
	for _, s := range sections {
		header := false
		for _, f := range r.Files {
			if s.sum(f) == "" {
				continue
			}
			if !header {
				fmt.Fprintf(cw, "%s:\n", s.key)
				header = true
			}
			fmt.Fprintf(cw, " %s %16d %s\n", s.sum(f), f.Size, f.Path)
		}
	}
	return cw.n, cw.err
}
