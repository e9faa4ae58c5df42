package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/codypharm/Opensafari/internal/keyvaluedb"
	"github.com/codypharm/Opensafari/internal/types"
)

type (
	/*
	State is a write buffer on top of the key-value database.

	All changes are kept in memory until Commit writes them to the database in a
	single DB transaction. Savepoint adds a marker that allows all changes made
	after it to be rolled back (RollbackToSavepoint) or merged into the previous
	savepoint (ReleaseToSavepoint). Revert drops all uncommitted changes.
	*/
	State struct {
		mutex sync.RWMutex
		db    keyvaluedb.KeyValueDB
		// savepoints[0] holds changes not belonging to any explicit savepoint
		savepoints []changeSet
	}

	changeSet map[string]*entry

	entry struct {
		value   []byte // CBOR encoding of the value
		deleted bool
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUncommittedChanges = errors.New("state has uncommitted changes")
)

func New(db keyvaluedb.KeyValueDB) (*State, error) {
	if db == nil {
		return nil, errors.New("state db is nil")
	}
	return &State{db: db, savepoints: []changeSet{{}}}, nil
}

// Get decodes value of the key into v, returns false when key doesn't exist.
func (s *State) Get(key []byte, v any) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.get(key, v)
}

func (s *State) get(key []byte, v any) (bool, error) {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return false, err
	}
	for i := len(s.savepoints) - 1; i >= 0; i-- {
		if e, ok := s.savepoints[i][string(key)]; ok {
			if e.deleted {
				return false, nil
			}
			return true, types.Cbor.Unmarshal(e.value, v)
		}
	}
	var raw []byte
	found, err := s.db.Read(key, &raw)
	if err != nil || !found {
		return found, err
	}
	return true, types.Cbor.Unmarshal(raw, v)
}

// Apply executes actions atomically, either all of them succeed or the state is not changed.
func (s *State) Apply(actions ...Action) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id := s.createSavepoint()
	for _, action := range actions {
		if err := action(s); err != nil {
			s.rollbackToSavepoint(id)
			return err
		}
	}
	s.releaseToSavepoint(id)
	return nil
}

func (s *State) set(key []byte, v any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return err
	}
	b, err := types.Cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}
	s.latestSavepoint()[string(key)] = &entry{value: b}
	return nil
}

func (s *State) delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	s.latestSavepoint()[string(key)] = &entry{deleted: true}
	return nil
}

// Savepoint creates a new savepoint and returns its id. Use RollbackToSavepoint to roll back all
// changes made after calling Savepoint method, ReleaseToSavepoint to keep them.
func (s *State) Savepoint() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.createSavepoint()
}

// RollbackToSavepoint drops all changes made after the savepoint with given id was created.
func (s *State) RollbackToSavepoint(id int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.rollbackToSavepoint(id)
}

// ReleaseToSavepoint destroys the savepoint (and the ones created after it) keeping all the changes.
func (s *State) ReleaseToSavepoint(id int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.releaseToSavepoint(id)
}

// Commit writes all changes into the database and releases all savepoints.
// On error the state is left unchanged, call Revert to drop the changes.
func (s *State) Commit() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.releaseToSavepoint(1)
	changes := s.savepoints[0]
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.db.StartTx()
	if err != nil {
		return fmt.Errorf("starting db transaction: %w", err)
	}
	for k, e := range changes {
		if e.deleted {
			err = tx.Delete([]byte(k))
		} else {
			err = tx.Write([]byte(k), e.value)
		}
		if err != nil {
			return errors.Join(fmt.Errorf("writing %x: %w", k, err), tx.Rollback())
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing db transaction: %w", err)
	}
	s.savepoints = []changeSet{{}}
	return nil
}

// Revert rolls back all uncommitted changes.
func (s *State) Revert() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.savepoints = []changeSet{{}}
}

// isCommitted returns true when there are no uncommitted changes. Callers hold the mutex.
func (s *State) isCommitted() bool {
	for _, sp := range s.savepoints {
		if len(sp) > 0 {
			return false
		}
	}
	return true
}

/*
The methods below read the database directly, they fail with ErrUncommittedChanges
unless all changes have been committed.
*/

// IsEmpty returns true when nothing has been committed to the database.
func (s *State) IsEmpty() (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isCommitted() {
		return false, ErrUncommittedChanges
	}
	return keyvaluedb.IsEmpty(s.db)
}

// ForEach calls fn with every committed key starting with prefix, in key order.
func (s *State) ForEach(prefix []byte, fn func(key []byte, it keyvaluedb.Iterator) error) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isCommitted() {
		return ErrUncommittedChanges
	}
	return keyvaluedb.ForEachWithPrefix(s.db, prefix, fn)
}

// Last decodes the value of the greatest committed key with the prefix into v, nil key means not found.
func (s *State) Last(prefix []byte, v any) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isCommitted() {
		return nil, ErrUncommittedChanges
	}
	return keyvaluedb.LastWithPrefix(s.db, prefix, v)
}

func (s *State) createSavepoint() int {
	s.savepoints = append(s.savepoints, changeSet{})
	return len(s.savepoints) - 1
}

func (s *State) rollbackToSavepoint(id int) {
	if id < 1 || id >= len(s.savepoints) {
		return
	}
	s.savepoints = s.savepoints[:id]
}

func (s *State) releaseToSavepoint(id int) {
	if id < 1 || id >= len(s.savepoints) {
		return
	}
	target := s.savepoints[id-1]
	for _, sp := range s.savepoints[id:] {
		for k, e := range sp {
			target[k] = e
		}
	}
	s.savepoints = s.savepoints[:id]
}

func (s *State) latestSavepoint() changeSet {
	return s.savepoints[len(s.savepoints)-1]
}
