package tickv

import "fmt"

// KeyNotFoundError reports a Get or Invalidate for a key with no valid
// object in the database.
type KeyNotFoundError struct{ Key string }

func (e *KeyNotFoundError) Error() string { return fmt.Sprintf("tickv: key %q not found", e.Key) }

// NoSpaceError reports that an Append found no region with enough
// remaining room, after scanning every region once.
type NoSpaceError struct{ HashedKey uint64 }

func (e *NoSpaceError) Error() string {
	return fmt.Sprintf("tickv: no space to append object with hashed key 0x%016x", e.HashedKey)
}
