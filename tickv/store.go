package tickv

import "fmt"

// magicInitKey is the sentinel key written as region 0's one-time
// initialization object on a freshly reset database.
const magicInitKey = "tickv-init"

// Store is a TicKV-formatted database backed by a flat binary buffer
// divided into fixed-size regions. It performs no I/O of its own;
// callers supply the buffer read from flash and read Binary back out
// after any mutating call.
type Store struct {
	binary     []byte
	regionSize int
}

// Open wraps an existing TicKV binary. len(raw) must be a multiple of
// regionSize.
func Open(raw []byte, regionSize int) (*Store, error) {
	if regionSize <= 0 || len(raw)%regionSize != 0 {
		return nil, fmt.Errorf("tickv storage length %d is not a multiple of region size %d", len(raw), regionSize)
	}
	buf := make([]byte, len(raw))
	copy(buf, raw)
	return &Store{binary: buf, regionSize: regionSize}, nil
}

// NumRegions returns the number of fixed-size regions in the database.
func (s *Store) NumRegions() int { return len(s.binary) / s.regionSize }

// Binary returns the database's current on-flash representation.
func (s *Store) Binary() []byte { return s.binary }

func (s *Store) region(i int) []byte {
	return s.binary[i*s.regionSize : (i+1)*s.regionSize]
}

// startingRegion picks the region an object's scan starts from, using
// the low 16 bits of its hashed key.
func (s *Store) startingRegion(hashedKey uint64) int {
	return int(hashedKey&0xFFFF) % s.NumRegions()
}

// regionRange returns every region index once, starting at start and
// wrapping circularly.
func (s *Store) regionRange(start int) []int {
	n := s.NumRegions()
	order := make([]int, n)
	for i := 0; i < n; i++ {
		order[i] = (start + i) % n
	}
	return order
}

// scanRegion walks every parseable object in region, invoking fn with
// each object's byte offset. fn returns false to stop early.
func scanRegion(region []byte, fn func(offset int, obj *Object) bool) {
	offset := 0
	for offset < len(region) {
		obj, ok := ParseObject(region[offset:])
		if !ok {
			return
		}
		if !fn(offset, obj) {
			return
		}
		offset += obj.Size()
	}
}

// Get returns the value most recently appended under key.
func (s *Store) Get(key string) ([]byte, error) {
	hashedKey := hashKey(key)
	for _, idx := range s.regionRange(s.startingRegion(hashedKey)) {
		var found *Object
		scanRegion(s.region(idx), func(_ int, obj *Object) bool {
			if obj.IsValid() && obj.HashedKey == hashedKey {
				found = obj
			}
			return true
		})
		if found != nil {
			return found.Value, nil
		}
	}
	return nil, &KeyNotFoundError{Key: key}
}

// Append stores value under key, invalidating any prior object for the
// same key so Get always returns the latest write.
func (s *Store) Append(key string, value []byte) error {
	return s.appendObject(NewObject(key, value))
}

func (s *Store) appendObject(obj *Object) error {
	s.invalidateHashedKey(obj.HashedKey)

	encoded := obj.Emit()
	for _, idx := range s.regionRange(s.startingRegion(obj.HashedKey)) {
		region := s.region(idx)
		end := 0
		scanRegion(region, func(offset int, o *Object) bool {
			end = offset + o.Size()
			return true
		})
		if len(region)-end >= len(encoded) {
			copy(region[end:], encoded)
			return nil
		}
	}
	return &NoSpaceError{HashedKey: obj.HashedKey}
}

// Invalidate clears the valid bit of the stored object for key.
func (s *Store) Invalidate(key string) error {
	if !s.invalidateHashedKey(hashKey(key)) {
		return &KeyNotFoundError{Key: key}
	}
	return nil
}

func (s *Store) invalidateHashedKey(hashedKey uint64) bool {
	found := false
	for _, idx := range s.regionRange(s.startingRegion(hashedKey)) {
		region := s.region(idx)
		scanRegion(region, func(offset int, obj *Object) bool {
			if obj.IsValid() && obj.HashedKey == hashedKey {
				obj.Invalidate()
				copy(region[offset:], obj.Emit())
				found = true
			}
			return true
		})
	}
	return found
}

// Objects returns every valid object currently stored in region i.
func (s *Store) Objects(region int) []*Object {
	var objs []*Object
	scanRegion(s.region(region), func(_ int, obj *Object) bool {
		if obj.IsValid() {
			objs = append(objs, obj)
		}
		return true
	})
	return objs
}

// Cleanup compacts every region: invalidated objects are dropped, the
// surviving valid ones are re-appended in their original scan order,
// and the remainder of each region is erased.
func (s *Store) Cleanup() error {
	initHash := hashKey(magicInitKey)

	var valid []*Object
	for i := 0; i < s.NumRegions(); i++ {
		scanRegion(s.region(i), func(_ int, obj *Object) bool {
			if obj.IsValid() && obj.HashedKey != initHash {
				valid = append(valid, obj)
			}
			return true
		})
	}

	s.Reset()
	for _, obj := range valid {
		if err := s.appendObject(obj); err != nil {
			return err
		}
	}
	return nil
}

// Reset erases the database and writes region 0's initialization
// marker at its start.
func (s *Store) Reset() {
	for i := range s.binary {
		s.binary[i] = 0xFF
	}
	encoded := NewObject(magicInitKey, nil).Emit()
	copy(s.region(0), encoded)
}
