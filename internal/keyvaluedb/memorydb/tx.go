package memorydb

import "github.com/codypharm/Opensafari/internal/keyvaluedb"

// Tx buffers changes until Commit, reads see the pending changes on top of the committed data.
type Tx struct {
	mem     *MemoryDB
	changes map[string][]byte
	deleted map[string]struct{}
	closed  bool
}

func (t *Tx) Read(key []byte, v any) (bool, error) {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return false, err
	}
	if t.closed {
		return false, keyvaluedb.ErrTxClosed
	}
	if data, ok := t.changes[string(key)]; ok {
		return true, t.mem.decoder(data, v)
	}
	if _, ok := t.deleted[string(key)]; ok {
		return false, nil
	}
	return t.mem.Read(key, v)
}

func (t *Tx) Write(key []byte, value any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, value); err != nil {
		return err
	}
	if t.closed {
		return keyvaluedb.ErrTxClosed
	}
	b, err := t.mem.encoder(value)
	if err != nil {
		return err
	}
	delete(t.deleted, string(key))
	t.changes[string(key)] = b
	return nil
}

func (t *Tx) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	if t.closed {
		return keyvaluedb.ErrTxClosed
	}
	delete(t.changes, string(key))
	t.deleted[string(key)] = struct{}{}
	return nil
}

func (t *Tx) Rollback() error {
	t.closed = true
	t.changes, t.deleted = nil, nil
	return nil
}

func (t *Tx) Commit() error {
	if t.closed {
		return keyvaluedb.ErrTxClosed
	}
	t.closed = true
	t.mem.lock.Lock()
	defer t.mem.lock.Unlock()
	if t.mem.writeErr != nil {
		return t.mem.writeErr
	}
	for k := range t.deleted {
		delete(t.mem.db, k)
	}
	for k, v := range t.changes {
		t.mem.db[k] = v
	}
	return nil
}
