package cacheinfra

// EntryState tags the three possible outcomes of a cache read.
type EntryState uint8

const (
	// EntryAbsent means the key holds nothing (never written, expired or deleted).
	EntryAbsent EntryState = iota
	// EntryValue means the key holds a value.
	EntryValue
	// EntryNotFound means the key holds a negative marker: the source of truth
	// confirmed the record does not exist.
	EntryNotFound
)

// String returns a short name for the state, used in logs.
func (s EntryState) String() string {
	switch s {
	case EntryValue:
		return "value"
	case EntryNotFound:
		return "not_found"
	default:
		return "absent"
	}
}

// Entry is the result of a cache read.
// Value is only set when State is EntryValue.
type Entry struct {
	State EntryState
	Value []byte
}

// Absent returns an entry for a missing key.
func Absent() Entry {
	return Entry{State: EntryAbsent}
}

// Found returns an entry holding value.
func Found(value []byte) Entry {
	return Entry{State: EntryValue, Value: value}
}

// NotFound returns an entry holding a negative marker.
func NotFound() Entry {
	return Entry{State: EntryNotFound}
}

// IsAbsent reports whether the key held nothing.
func (e Entry) IsAbsent() bool { return e.State == EntryAbsent }

// IsValue reports whether the key held a value.
func (e Entry) IsValue() bool { return e.State == EntryValue }

// IsNotFound reports whether the key held a negative marker.
func (e Entry) IsNotFound() bool { return e.State == EntryNotFound }
