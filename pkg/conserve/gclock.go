package conserve

import (
	"fmt"

	"github.com/fenilsonani/conserve/internal/core/transport"
)

// GarbageCollectionLock excludes backups and other garbage collections
// while blocks are being deleted. It is a file whose atomic creation is
// the acquisition.
type GarbageCollectionLock struct {
	archive *Archive
}

// NewGarbageCollectionLock acquires the lock, failing with
// ErrGarbageCollectionLockHeld if another process holds it.
func NewGarbageCollectionLock(a *Archive) (*GarbageCollectionLock, error) {
	err := a.transport.WriteNewFile(GCLockName, nil)
	if err != nil {
		if transport.IsExist(err) {
			return nil, ErrGarbageCollectionLockHeld
		}
		return nil, fmt.Errorf("acquire gc lock: %w", err)
	}
	return &GarbageCollectionLock{archive: a}, nil
}

// BreakGarbageCollectionLock forcibly removes a lock left behind by a
// dead process. Removing an absent lock is not an error.
func BreakGarbageCollectionLock(a *Archive) error {
	err := a.transport.RemoveFile(GCLockName)
	if err != nil && !transport.IsNotFound(err) {
		return fmt.Errorf("break gc lock: %w", err)
	}
	return nil
}

// Release removes the lock.
func (l *GarbageCollectionLock) Release() error {
	return BreakGarbageCollectionLock(l.archive)
}
