package engine

import (
	"path/filepath"

	"github.com/gofrs/flock"

	ncerrors "github.com/notecove/notecove/internal/errors"
)

// lockFileName lives in the data directory next to the store.
const lockFileName = "notecove.lock"

// acquireLock takes the exclusive data-directory lock. The SQLite pool
// is capped at one writer inside a process; the flock keeps a second
// process from opening the same store at all.
func acquireLock(dataDir string) (*flock.Flock, error) {
	path := filepath.Join(dataDir, lockFileName)
	lock := flock.New(path)

	ok, err := lock.TryLock()
	if err != nil {
		return nil, ncerrors.IOFailure(path, err)
	}
	if !ok {
		return nil, ncerrors.Newf(ncerrors.ErrCodeLockHeld,
			"data directory %s is in use by another process", dataDir)
	}
	return lock, nil
}
