package band

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fenilsonani/conserve/internal/core/index"
	"github.com/fenilsonani/conserve/internal/core/transport"
)

const (
	// HeadName marks a band's birth; it is written at creation.
	HeadName = "BANDHEAD"
	// TailName marks a band's completion; a band is closed iff it exists.
	TailName = "BANDTAIL"
	// IndexDirName holds the band's index hunks.
	IndexDirName = "i"

	// FormatVersion is written into new band heads.
	FormatVersion = "0.6.3"
)

// Head is the BANDHEAD metadata, created when the band is born.
type Head struct {
	StartTime         int64    `json:"start_time"`
	BandFormatVersion string   `json:"band_format_version"`
	FormatFlags       []string `json:"format_flags,omitempty"`
}

// Tail is the BANDTAIL metadata, written when the band is closed.
type Tail struct {
	EndTime        int64 `json:"end_time"`
	IndexHunkCount int   `json:"index_hunk_count"`
}

// Info is the combined head and, if the band is closed, tail metadata.
type Info struct {
	Id        Id
	IsClosed  bool
	StartTime time.Time
	// EndTime and IndexHunkCount are meaningful only when IsClosed.
	EndTime        time.Time
	IndexHunkCount int
}

// Band is one versioned backup within an archive: a header, an ordered
// sequence of index hunks, and, once closed, a tail. Bands are mutated
// only by appending hunks; after Close they are immutable.
type Band struct {
	id        Id
	transport transport.Transport
	head      Head
}

// HeadMissingError means the band directory exists but has no BANDHEAD.
type HeadMissingError struct {
	Id Id
}

func (e *HeadMissingError) Error() string {
	return fmt.Sprintf("band %s head file missing", e.Id)
}

// UnsupportedVersionError means the band was written by a newer format.
type UnsupportedVersionError struct {
	Id      Id
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("band %s version %q is not supported", e.Id, e.Version)
}

// UnsupportedFlagsError means the band requires format features this
// version does not know.
type UnsupportedFlagsError struct {
	Id    Id
	Flags []string
}

func (e *UnsupportedFlagsError) Error() string {
	return fmt.Sprintf("band %s has unsupported format flags %v", e.Id, e.Flags)
}

// IncompleteError means a closed band was required but the band has no
// tail.
type IncompleteError struct {
	Id Id
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("band %s is incomplete", e.Id)
}

// Create makes a new band directory under the archive transport and
// writes its head.
func Create(archiveTransport transport.Transport, id Id) (*Band, error) {
	t := archiveTransport.Sub(id.String())
	if err := archiveTransport.CreateDir(id.String()); err != nil {
		return nil, fmt.Errorf("create band %s: %w", id, err)
	}
	if err := t.CreateDir(IndexDirName); err != nil {
		return nil, fmt.Errorf("create band %s: %w", id, err)
	}
	head := Head{
		StartTime:         time.Now().Unix(),
		BandFormatVersion: FormatVersion,
	}
	data, err := json.Marshal(head)
	if err != nil {
		return nil, fmt.Errorf("serialize band head: %w", err)
	}
	if err := t.WriteFile(HeadName, data); err != nil {
		return nil, fmt.Errorf("create band %s: %w", id, err)
	}
	return &Band{id: id, transport: t, head: head}, nil
}

// Open reads an existing band's head, rejecting unsupported versions and
// unknown format flags.
func Open(archiveTransport transport.Transport, id Id) (*Band, error) {
	t := archiveTransport.Sub(id.String())
	data, err := t.ReadFile(HeadName)
	if err != nil {
		if transport.IsNotFound(err) {
			return nil, &HeadMissingError{Id: id}
		}
		return nil, fmt.Errorf("open band %s: %w", id, err)
	}
	var head Head
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("deserialize band %s head: %w", id, err)
	}
	if !versionSupported(head.BandFormatVersion) {
		return nil, &UnsupportedVersionError{Id: id, Version: head.BandFormatVersion}
	}
	if len(head.FormatFlags) > 0 {
		return nil, &UnsupportedFlagsError{Id: id, Flags: head.FormatFlags}
	}
	return &Band{id: id, transport: t, head: head}, nil
}

// versionSupported accepts band versions up to and including the current
// format version, compared component-wise.
func versionSupported(version string) bool {
	have := strings.Split(version, ".")
	max := strings.Split(FormatVersion, ".")
	for i := 0; i < len(have) && i < len(max); i++ {
		h, err := strconv.Atoi(have[i])
		if err != nil {
			return false
		}
		m, _ := strconv.Atoi(max[i])
		if h != m {
			return h < m
		}
	}
	return len(have) <= len(max)
}

// Id returns the band's id.
func (b *Band) Id() Id {
	return b.id
}

// Head returns the parsed band head.
func (b *Band) Head() Head {
	return b.head
}

// IsClosed reports whether the band has a tail.
func (b *Band) IsClosed() (bool, error) {
	_, err := b.transport.Metadata(TailName)
	switch {
	case err == nil:
		return true, nil
	case transport.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Close writes the band tail, making the band immutable.
func (b *Band) Close(indexHunkCount int) error {
	tail := Tail{
		EndTime:        time.Now().Unix(),
		IndexHunkCount: indexHunkCount,
	}
	data, err := json.Marshal(tail)
	if err != nil {
		return fmt.Errorf("serialize band tail: %w", err)
	}
	if err := b.transport.WriteFile(TailName, data); err != nil {
		return fmt.Errorf("close band %s: %w", b.id, err)
	}
	return nil
}

// Info returns the combined head and tail metadata.
func (b *Band) Info() (Info, error) {
	info := Info{
		Id:        b.id,
		StartTime: time.Unix(b.head.StartTime, 0),
	}
	data, err := b.transport.ReadFile(TailName)
	if transport.IsNotFound(err) {
		return info, nil
	}
	if err != nil {
		return info, err
	}
	var tail Tail
	if err := json.Unmarshal(data, &tail); err != nil {
		return info, fmt.Errorf("deserialize band %s tail: %w", b.id, err)
	}
	info.IsClosed = true
	info.EndTime = time.Unix(tail.EndTime, 0)
	info.IndexHunkCount = tail.IndexHunkCount
	return info, nil
}

// IndexBuilder returns a builder writing this band's index hunks.
func (b *Band) IndexBuilder() *index.Builder {
	return index.NewBuilder(b.transport.Sub(IndexDirName))
}

// IterHunks returns an iterator over this band's index hunks in order.
func (b *Band) IterHunks() *index.HunkIter {
	return index.IterHunks(b.transport.Sub(IndexDirName))
}
