package deb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blakesmith/ar"
)

const arMagic = "!<arch>\n"

// ErrNotArchive is returned when the input does not start with the ar magic.
var ErrNotArchive = errors.New("deb: not an ar archive")

// Member is one file stored in an ar archive.
type Member struct {
	Name    string
	ModTime time.Time
	UID     int
	GID     int
	Mode    int64
	Size    int64
	Data    []byte
}

// ReadArchive reads every member of the ar archive in r, in archive order.
// GNU style trailing slashes are removed from member names.
func ReadArchive(r io.Reader) ([]Member, error) {
	magic := make([]byte, len(arMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != arMagic {
		return nil, ErrNotArchive
	}

	arR := ar.NewReader(io.MultiReader(bytes.NewReader(magic), r))
	var members []Member
	for {
		header, err := arR.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ar header: %w", err)
		}
		if header.Size < 0 {
			return nil, fmt.Errorf("ar member %s: negative size %d", header.Name, header.Size)
		}
		data, err := io.ReadAll(arR)
		if err != nil {
			return nil, fmt.Errorf("reading ar member %s: %w", header.Name, err)
		}
		if int64(len(data)) != header.Size {
			return nil, fmt.Errorf("reading ar member %s: %w", header.Name, io.ErrUnexpectedEOF)
		}
		members = append(members, Member{
			Name:    strings.TrimSuffix(strings.TrimSpace(header.Name), "/"),
			ModTime: header.ModTime,
			UID:     header.Uid,
			GID:     header.Gid,
			Mode:    header.Mode,
			Size:    header.Size,
			Data:    data,
		})
	}
	return members, nil
}
