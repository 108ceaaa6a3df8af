package deb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/blakesmith/ar"
)

var fixtureTime = time.Date(2012, 4, 25, 22, 49, 23, 0, time.UTC)

// tarEntry describes one member of a test tarball.
type tarEntry struct {
	name     string
	typ      byte
	mode     int64
	body     string
	linkname string
}

func buildTar(t *testing.T, gz bool, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	var tw *tar.Writer
	var gw *gzip.Writer
	if gz {
		gw = gzip.NewWriter(&buf)
		tw = tar.NewWriter(gw)
	} else {
		tw = tar.NewWriter(&buf)
	}
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: e.typ,
			Mode:     e.mode,
			Size:     int64(len(e.body)),
			Linkname: e.linkname,
			Uname:    "root",
			Gname:    "root",
			ModTime:  fixtureTime,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader failed: %v", err)
		}
		if _, err := tw.Write([]byte(e.body)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if gw != nil {
		if err := gw.Close(); err != nil {
			t.Fatal(err)
		}
	}
	return buf.Bytes()
}

// buildAr writes members (name, body pairs) into an ar archive.
func buildAr(t *testing.T, members ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	arW := ar.NewWriter(&buf)
	if err := arW.WriteGlobalHeader(); err != nil {
		t.Fatalf("WriteGlobalHeader failed: %v", err)
	}
	for i := 0; i < len(members); i += 2 {
		hdr := &ar.Header{
			Name:    members[i],
			Size:    int64(len(members[i+1])),
			Mode:    0644,
			ModTime: fixtureTime,
		}
		if err := arW.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader failed: %v", err)
		}
		if _, err := arW.Write([]byte(members[i+1])); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	return buf.Bytes()
}

const testControl = `Package: hello
Version: 2.10-2
Architecture: amd64
Maintainer: Maintainer <m@example.com>
Installed-Size: 280
Depends: libc6 (>= 2.14), dpkg
Section: devel
Priority: optional
Bugs: https://bugs.example.com
Description: example package
 Long description line 1
 Long description line 2
`

func buildTestDeb(t *testing.T) []byte {
	control := buildTar(t, true, []tarEntry{
		{name: "./", typ: tar.TypeDir, mode: 0755},
		{name: "./control", typ: tar.TypeReg, mode: 0644, body: testControl},
		{name: "./conffiles", typ: tar.TypeReg, mode: 0644, body: "/etc/hello.conf\n"},
		{name: "./postinst", typ: tar.TypeReg, mode: 0755, body: "#!/bin/sh\nexit 0\n"},
	})
	data := buildTar(t, false, []tarEntry{
		{name: "./", typ: tar.TypeDir, mode: 0755},
		{name: "./usr/bin/", typ: tar.TypeDir, mode: 0755},
		{name: "./usr/bin/hello", typ: tar.TypeReg, mode: 0755, body: "binary"},
		{name: "./usr/bin/hi", typ: tar.TypeSymlink, mode: 0777, linkname: "hello"},
		{name: "./etc/hello.conf", typ: tar.TypeReg, mode: 0644, body: "greeting=hello\n"},
	})
	return buildAr(t,
		"debian-binary", "2.0\n",
		"control.tar.gz", string(control),
		"data.tar", string(data),
	)
}

func TestReadArchive(t *testing.T) {
	members, err := ReadArchive(bytes.NewReader(buildAr(t, "a.txt", "odd", "b.txt", "even")))
	if err != nil {
		t.Fatalf("ReadArchive failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].Name != "a.txt" || string(members[0].Data) != "odd" || members[0].Size != 3 {
		t.Errorf("unexpected first member %+v", members[0])
	}
	if members[1].Name != "b.txt" || string(members[1].Data) != "even" {
		t.Errorf("unexpected second member %+v", members[1])
	}
	if members[0].Mode != 0644 || !members[0].ModTime.Equal(fixtureTime) {
		t.Errorf("unexpected member attributes %+v", members[0])
	}
}

// rawArHeader formats an ar member header by hand so that the size field
// can hold values the ar writer refuses to produce.
func rawArHeader(name, size string) string {
	return fmt.Sprintf("%-16s%-12d%-6d%-6d%-8s%-10s`\n", name, fixtureTime.Unix(), 0, 0, "100644", size)
}

func TestReadArchiveBadSize(t *testing.T) {
	tests := []struct {
		name string
		size string
	}{
		{"negative", "-5"},
		{"larger than input", "9999999999"},
		{"truncated", "12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := arMagic + rawArHeader("debian-binary", tt.size) + "2.0\n"
			members, err := ReadArchive(strings.NewReader(in))
			if err == nil {
				t.Errorf("expected an error, got %d members", len(members))
			}
		})
	}
}

func TestReadArchiveNotAr(t *testing.T) {
	for _, in := range []string{"", "!<arch", "PK\x03\x04 not an archive"} {
		if _, err := ReadArchive(strings.NewReader(in)); !errors.Is(err, ErrNotArchive) {
			t.Errorf("ReadArchive(%q): expected ErrNotArchive, got %v", in, err)
		}
	}
}

func TestNewPackage(t *testing.T) {
	pkg, err := NewPackage(bytes.NewReader(buildTestDeb(t)))
	if err != nil {
		t.Fatalf("NewPackage failed: %v", err)
	}
	if pkg.FormatVersion != "2.0" {
		t.Errorf("unexpected format version %q", pkg.FormatVersion)
	}
	if got := strings.Join(pkg.Members, ","); got != "debian-binary,control.tar.gz,data.tar" {
		t.Errorf("unexpected members %s", got)
	}

	m := pkg.Metadata
	if m.Package != "hello" || m.Version != "2.10-2" || m.Architecture != "amd64" {
		t.Errorf("unexpected metadata %+v", m)
	}
	if m.InstalledSize != 280 {
		t.Errorf("expected Installed-Size 280, got %d", m.InstalledSize)
	}
	if len(m.Depends) != 2 || m.Depends[0] != "libc6 (>= 2.14)" {
		t.Errorf("unexpected depends %v", m.Depends)
	}
	if m.ExtraFields["Bugs"] != "https://bugs.example.com" {
		t.Errorf("expected Bugs in ExtraFields, got %v", m.ExtraFields)
	}
	if !strings.HasPrefix(m.Description, "example package\n Long description line 1") {
		t.Errorf("unexpected description %q", m.Description)
	}
	if pkg.StandardFilename() != "hello_2.10-2_amd64.deb" {
		t.Errorf("unexpected filename %s", pkg.StandardFilename())
	}
	if len(pkg.Conffiles) != 1 || pkg.Conffiles[0] != "/etc/hello.conf" {
		t.Errorf("unexpected conffiles %v", pkg.Conffiles)
	}
	if pkg.Scripts.PostInst != "#!/bin/sh\nexit 0\n" {
		t.Errorf("unexpected postinst %q", pkg.Scripts.PostInst)
	}

	control, ok := pkg.Control.Find("control")
	if !ok || string(control.Contents) != testControl {
		t.Errorf("control file contents not kept")
	}
	hello, ok := pkg.Files.Find("./usr/bin/hello")
	if !ok || hello.Size != 6 || hello.Contents != nil {
		t.Errorf("unexpected data entry %+v", hello)
	}
}

func TestListingString(t *testing.T) {
	pkg, err := NewPackage(bytes.NewReader(buildTestDeb(t)))
	if err != nil {
		t.Fatalf("NewPackage failed: %v", err)
	}
	want := "" +
		"drwxr-xr-x root/root         0 2012-04-25 22:49 ./\n" +
		"drwxr-xr-x root/root         0 2012-04-25 22:49 ./usr/bin/\n" +
		"-rwxr-xr-x root/root         6 2012-04-25 22:49 ./usr/bin/hello\n" +
		"lrwxrwxrwx root/root         0 2012-04-25 22:49 ./usr/bin/hi -> hello\n" +
		"-rw-r--r-- root/root        15 2012-04-25 22:49 ./etc/hello.conf\n"
	if got := pkg.Files.String(); got != want {
		t.Errorf("unexpected listing:\n%s\nwant:\n%s", got, want)
	}
}

func TestNewPackageMissingMembers(t *testing.T) {
	control := buildTar(t, true, []tarEntry{
		{name: "./control", typ: tar.TypeReg, mode: 0644, body: testControl},
	})
	tests := []struct {
		name string
		deb  []byte
	}{
		{"no debian-binary", buildAr(t, "control.tar.gz", string(control))},
		{"no control", buildAr(t, "debian-binary", "2.0\n")},
		{"xz control", buildAr(t, "debian-binary", "2.0\n", "control.tar.xz", "xz")},
		{"control without control file", buildAr(t, "debian-binary", "2.0\n", "control.tar", string(buildTar(t, false, nil)))},
	}
	for _, tt := range tests {
		if _, err := NewPackage(bytes.NewReader(tt.deb)); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func TestModeString(t *testing.T) {
	tests := map[int64]string{
		0755: "rwxr-xr-x",
		0644: "rw-r--r--",
		0777: "rwxrwxrwx",
		0:    "---------",
		0100: "--x------",
	}
	for mode, want := range tests {
		if got := modeString(mode); got != want {
			t.Errorf("modeString(%o) = %s, want %s", mode, got, want)
		}
	}
}

func TestCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := &countingWriter{w: &buf}

	n, err := cw.Write([]byte("hello"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 5 || cw.n != 5 {
		t.Errorf("expected 5 bytes counted, got %d/%d", n, cw.n)
	}
	if buf.String() != "hello" {
		t.Errorf("buffer mismatch")
	}
}
