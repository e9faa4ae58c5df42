package boltdb

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/codypharm/Opensafari/internal/keyvaluedb"
	"github.com/codypharm/Opensafari/internal/types"
)

// chainBucket holds all the chain data, one node uses one database file.
const chainBucket = "chain"

// lockTimeout is how long New waits for the file lock held by another process.
var lockTimeout = 3 * time.Second

// ErrDatabaseLocked is returned by New when another process holds the database file.
var ErrDatabaseLocked = errors.New("database is in use by another process")

type (
	EncodeFn func(v any) ([]byte, error)
	DecodeFn func(data []byte, v any) error

	// BoltDB is keyvaluedb.KeyValueDB on a bolt file, values are CBOR encoded.
	BoltDB struct {
		db     *bolt.DB
		bucket []byte
		encode EncodeFn
		decode DecodeFn
	}
)

// New opens the database file, the file is created when it doesn't exist.
func New(dbFile string) (*BoltDB, error) {
	db, err := bolt.Open(dbFile, 0600, &bolt.Options{Timeout: lockTimeout}) // -rw-------
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("opening bolt db %q: %w", dbFile, ErrDatabaseLocked)
		}
		return nil, fmt.Errorf("opening bolt db %q: %w", dbFile, err)
	}
	s := &BoltDB{
		db:     db,
		bucket: []byte(chainBucket),
		encode: types.Cbor.Marshal,
		decode: types.Cbor.Unmarshal,
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	}); err != nil {
		return nil, errors.Join(fmt.Errorf("creating bucket %q: %w", chainBucket, err), db.Close())
	}
	return s, nil
}

func (db *BoltDB) Path() string {
	return db.db.Path()
}

func (db *BoltDB) view(fn func(b *bolt.Bucket) error) error {
	return db.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(db.bucket))
	})
}

func (db *BoltDB) update(fn func(b *bolt.Bucket) error) error {
	return db.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(db.bucket))
	})
}

func (db *BoltDB) Read(key []byte, v any) (found bool, err error) {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return false, err
	}
	err = db.view(func(b *bolt.Bucket) error {
		data := b.Get(key)
		if found = data != nil; !found {
			return nil
		}
		return db.decode(data, v)
	})
	if err != nil {
		return found, fmt.Errorf("bolt db read failed: %w", err)
	}
	return found, nil
}

func (db *BoltDB) Write(key []byte, v any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return err
	}
	data, err := db.encode(v)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}
	if err := db.update(func(b *bolt.Bucket) error { return b.Put(key, data) }); err != nil {
		return fmt.Errorf("bolt db write failed: %w", err)
	}
	return nil
}

func (db *BoltDB) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	if err := db.update(func(b *bolt.Bucket) error { return b.Delete(key) }); err != nil {
		return fmt.Errorf("bolt db delete failed: %w", err)
	}
	return nil
}

// First, Last and Find keep a read transaction open until the iterator is closed.
func (db *BoltDB) First() keyvaluedb.Iterator {
	it := newIterator(db.db, db.bucket, db.decode)
	it.first()
	return it
}

func (db *BoltDB) Last() keyvaluedb.Iterator {
	it := newIterator(db.db, db.bucket, db.decode)
	it.last()
	return it
}

func (db *BoltDB) Find(key []byte) keyvaluedb.Iterator {
	it := newIterator(db.db, db.bucket, db.decode)
	it.seek(key)
	return it
}

func (db *BoltDB) StartTx() (keyvaluedb.DBTransaction, error) {
	tx, err := NewBoltTx(db.db, db.bucket, db.encode, db.decode)
	if err != nil {
		return nil, fmt.Errorf("starting bolt tx: %w", err)
	}
	return tx, nil
}

func (db *BoltDB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}
