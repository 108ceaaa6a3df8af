package deb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Package is the read-only view of a Debian binary package.
type Package struct {
	// FormatVersion is the content of the debian-binary member, e.g. "2.0".
	FormatVersion string
	// Members lists the ar members in archive order.
	Members []string

	Metadata Metadata
	Scripts  Scripts
	// Conffiles lists the absolute paths declared in the conffiles control file.
	Conffiles []string

	// Control lists the control tarball, with file contents.
	Control Listing
	// Files lists the data tarball. Contents are not kept.
	Files Listing
}

// Metadata maps the fields of the Debian 'control' file.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#binary-package-control-files-debian-control
type Metadata struct {
	Package      string
	Version      string
	Architecture string
	Maintainer   string
	// Description holds the synopsis on its first line, then the extended description.
	Description string
	Section     string
	Priority    string
	Homepage    string
	Essential   bool
	Source      string

	// InstalledSize is the estimated installed size in KiB.
	InstalledSize int64

	// Relationship fields, split on commas.
	//
	// Reference: https://www.debian.org/doc/debian-policy/ch-relationships.html
	Depends    []string
	PreDepends []string
	Recommends []string
	Suggests   []string
	Conflicts  []string
	Breaks     []string
	Replaces   []string
	Provides   []string

	// ExtraFields holds every other field, keyed by field name.
	ExtraFields map[string]string
}

// Scripts holds the maintainer scripts found in the control tarball.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-maintainerscripts.html
type Scripts struct {
	PreInst  string
	PostInst string
	PreRm    string
	PostRm   string
	Config   string
}

// Entry is one member of a tarball inside a .deb.
type Entry struct {
	Name     string
	Type     byte // tar.TypeReg, tar.TypeDir, tar.TypeSymlink, ...
	Mode     int64
	UID      int
	GID      int
	Uname    string
	Gname    string
	Size     int64
	ModTime  time.Time
	Linkname string
	// Contents is only kept for control tarball entries.
	Contents []byte
}

// Listing is an ordered list of tarball entries.
type Listing []Entry

// Find returns the entry whose name, without a leading "./", is name.
func (l Listing) Find(name string) (Entry, bool) {
	for _, e := range l {
		if strings.TrimPrefix(e.Name, "./") == strings.TrimPrefix(name, "./") {
			return e, true
		}
	}
	return Entry{}, false
}

// String renders the listing the way 'dpkg-deb -c' does:
//
//	drwxr-xr-x root/root         0 2012-04-25 22:49 ./usr/
func (l Listing) String() string {
	var b strings.Builder
	for _, e := range l {
		kind := "-"
		name := e.Name
		switch e.Type {
		case tar.TypeDir:
			kind = "d"
			if !strings.HasSuffix(name, "/") {
				name += "/"
			}
		case tar.TypeSymlink, tar.TypeLink:
			kind = "l"
			name += " -> " + e.Linkname
		}
		fmt.Fprintf(&b, "%-10s %s/%s %9d %s %s\n",
			kind+modeString(e.Mode), e.Uname, e.Gname, e.Size,
			e.ModTime.UTC().Format("2006-01-02 15:04"), name)
	}
	return b.String()
}

// StandardFilename returns the canonical filename for the package.
// Format: {Package}_{Version}_{Architecture}.deb
//
// Reference: https://www.debian.org/doc/manuals/debian-faq/ch-pkg_basics.en.html#s-pkgname
func (p *Package) StandardFilename() string {
	return fmt.Sprintf("%s_%s_%s.deb", p.Metadata.Package, p.Metadata.Version, p.Metadata.Architecture)
}

// NewPackage reads a .deb file from r.
// The control and data members may be gzip compressed or plain tarballs.
func NewPackage(r io.Reader) (*Package, error) {
	members, err := ReadArchive(r)
	if err != nil {
		return nil, err
	}

	pkg := &Package{
		Metadata: Metadata{ExtraFields: make(map[string]string)},
	}
	var sawControl bool
	for _, m := range members {
		pkg.Members = append(pkg.Members, m.Name)
		switch {
		case m.Name == string(PkgDebianBinary):
			pkg.FormatVersion = strings.TrimSpace(string(m.Data))
		case strings.HasPrefix(m.Name, string(PkgControlTar)):
			sawControl = true
			pkg.Control, err = readListing(m.Name, m.Data, true)
			if err != nil {
				return nil, err
			}
			if err := pkg.loadControl(); err != nil {
				return nil, err
			}
		case strings.HasPrefix(m.Name, string(PkgDataTar)):
			pkg.Files, err = readListing(m.Name, m.Data, false)
			if err != nil {
				return nil, err
			}
		}
	}
	if pkg.FormatVersion == "" {
		return nil, fmt.Errorf("missing %s member", PkgDebianBinary)
	}
	if !sawControl {
		return nil, fmt.Errorf("missing %s member", PkgControlTar)
	}
	return pkg, nil
}

// loadControl fills Metadata, Scripts and Conffiles from the control listing.
func (p *Package) loadControl() error {
	found := false
	for _, e := range p.Control {
		if e.Type != tar.TypeReg {
			continue
		}
		content := string(e.Contents)
		switch ControlFile(path.Base(e.Name)) {
		case FileControl:
			found = true
			if err := parseControlFile(content, &p.Metadata); err != nil {
				return fmt.Errorf("parsing control file: %w", err)
			}
		case FileConffiles:
			for _, line := range strings.Split(content, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					p.Conffiles = append(p.Conffiles, line)
				}
			}
		case FilePreinst:
			p.Scripts.PreInst = content
		case FilePostinst:
			p.Scripts.PostInst = content
		case FilePrerm:
			p.Scripts.PreRm = content
		case FilePostrm:
			p.Scripts.PostRm = content
		case FileConfig:
			p.Scripts.Config = content
		}
	}
	if !found {
		return fmt.Errorf("control file not found")
	}
	return nil
}

// readListing lists a tarball member, decompressing it when its name ends in ".gz".
func readListing(name string, data []byte, keepContents bool) (Listing, error) {
	var r io.Reader = bytes.NewReader(data)
	switch path.Ext(name) {
	case ".gz":
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		defer gzr.Close()
		r = gzr
	case ".tar":
	default:
		return nil, fmt.Errorf("%s: unsupported compression", name)
	}

	var l Listing
	tr := tar.NewReader(r)
	for {
		th, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s header: %w", name, err)
		}
		e := Entry{
			Name:     th.Name,
			Type:     th.Typeflag,
			Mode:     th.Mode,
			UID:      th.Uid,
			GID:      th.Gid,
			Uname:    th.Uname,
			Gname:    th.Gname,
			Size:     th.Size,
			ModTime:  th.ModTime,
			Linkname: th.Linkname,
		}
		if keepContents && th.Typeflag == tar.TypeReg {
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, tr); err != nil {
				return nil, fmt.Errorf("reading %s: %w", th.Name, err)
			}
			e.Contents = buf.Bytes()
		}
		l = append(l, e)
	}
	return l, nil
}
