package conserve

import (
	"errors"
	"fmt"

	"github.com/fenilsonani/conserve/internal/core/band"
)

// Sentinel errors for whole-archive conditions.
var (
	ErrNotAnArchive                 = errors.New("not a conserve archive")
	ErrArchiveEmpty                 = errors.New("archive has no bands")
	ErrNewArchiveDirectoryNotEmpty  = errors.New("directory for new archive is not empty")
	ErrDestinationNotEmpty          = errors.New("destination directory not empty")
	ErrDeleteWithConcurrentActivity = errors.New("archive was changed by another process; can't continue with deletion")
	ErrGarbageCollectionLockHeld    = errors.New("Archive is locked for garbage collection")
)

// UnsupportedArchiveVersionError means the archive header names a format
// this version does not read.
type UnsupportedArchiveVersionError struct {
	Version string
}

func (e *UnsupportedArchiveVersionError) Error() string {
	return fmt.Sprintf("archive version %q is not supported", e.Version)
}

// DuplicateBandDirectoryError means two directory names parse to the
// same band id.
type DuplicateBandDirectoryError struct {
	Id band.Id
}

func (e *DuplicateBandDirectoryError) Error() string {
	return fmt.Sprintf("duplicated band directory for %s", e.Id)
}

// DeleteWithIncompleteBackupError means the newest band is still open
// and not itself a deletion target, so a backup may be writing blocks.
type DeleteWithIncompleteBackupError struct {
	Id band.Id
}

func (e *DeleteWithIncompleteBackupError) Error() string {
	return fmt.Sprintf("can't delete blocks because the last band (%s) is incomplete and may be in use", e.Id)
}
