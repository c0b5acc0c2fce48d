package filestore

import "fmt"

// Health is the access state of the database file.
type Health int

const (
	// PermissionsUnknown is the zero value: nothing has been opened yet.
	PermissionsUnknown Health = iota
	OK
	ReadOnly
	Corrupt
	Locked
)

func (h Health) String() string {
	switch h {
	case OK:
		return "ok"
	case ReadOnly:
		return "read-only"
	case PermissionsUnknown:
		return "permissions unknown"
	case Corrupt:
		return "corrupt"
	case Locked:
		return "locked"
	default:
		return fmt.Sprintf("Health(%d)", int(h))
	}
}

// Readable reports whether records may be loaded from the file.
func (h Health) Readable() bool {
	return h == OK || h == ReadOnly
}

// Err returns the error a write is refused with, or nil when writes are
// allowed.
func (h Health) Err() error {
	switch h {
	case OK:
		return nil
	case ReadOnly:
		return ErrReadOnly
	case Corrupt:
		return ErrCorrupt
	case Locked:
		return ErrLocked
	default:
		return ErrPermissionsUnknown
	}
}
