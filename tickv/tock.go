package tickv

// GetTock retrieves the Tock-formatted value stored under key.
func (s *Store) GetTock(key string) (*StorageObject, error) {
	raw, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	return ParseStorageObject(raw)
}

// AppendTock stores value under key wrapped in a Tock StorageObject
// carrying writeID, the access-control tag the kernel uses to decide
// which app may read or overwrite this entry.
func (s *Store) AppendTock(key string, value []byte, writeID uint32) error {
	so := &StorageObject{WriteID: writeID, Value: value}
	return s.Append(key, so.Emit())
}
