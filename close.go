package diskmap

// Close persists the serializer table and closes the volume. Closing an
// in-memory map discards it. Close is idempotent.
func (m *Map) Close() error {
	if m == nil || m.closed.Swap(true) {
		return nil
	}
	var firstErr error
	if err := m.persistSerializers(); err != nil {
		firstErr = err
	}
	if err := m.s.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Delete closes the map and removes its backing file.
func (m *Map) Delete() error {
	if err := m.Close(); err != nil {
		return err
	}
	return m.s.Delete()
}
