package supervisor

import (
	"errors"
	"fmt"
)

// ErrSpawn is matched by errors.Is for any child that could not be launched.
var ErrSpawn = errors.New("process spawn failed")

// SpawnError reports a binary that could not be started.
type SpawnError struct {
	Role string
	Bin  string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s (%s): %v", e.Role, e.Bin, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }

// IsSpawnError reports whether err was caused by a failed launch.
func IsSpawnError(err error) bool { return errors.Is(err, ErrSpawn) }

// archiveError reports an archiver that ran but did not succeed.
type archiveError struct{ err error }

func (e archiveError) Error() string { return "model archive failed: " + e.err.Error() }

func (e archiveError) Unwrap() error { return e.err }

// IsArchiveFailed reports whether err came from a failed archiver run.
func IsArchiveFailed(err error) bool {
	var ae archiveError
	return errors.As(err, &ae)
}
