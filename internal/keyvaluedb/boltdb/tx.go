package boltdb

import (
	"errors"

	bolt "go.etcd.io/bbolt"

	"github.com/codypharm/Opensafari/internal/keyvaluedb"
)

type Tx struct {
	tx     *bolt.Tx
	b      *bolt.Bucket
	enc    EncodeFn
	dec    DecodeFn
	closed bool
}

// NewBoltTx starts read-write transaction, bolt allows only one at a time so
// this blocks until the previous one is completed.
func NewBoltTx(db *bolt.DB, bucket []byte, e EncodeFn, d DecodeFn) (*Tx, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	tx, err := db.Begin(true)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx:  tx,
		b:   tx.Bucket(bucket),
		enc: e,
		dec: d,
	}, nil
}

func (t *Tx) Read(key []byte, v any) (bool, error) {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return false, err
	}
	if t.closed {
		return false, keyvaluedb.ErrTxClosed
	}
	data := t.b.Get(key)
	if data == nil {
		return false, nil
	}
	return true, t.dec(data, v)
}

func (t *Tx) Write(key []byte, value any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, value); err != nil {
		return err
	}
	if t.closed {
		return keyvaluedb.ErrTxClosed
	}
	b, err := t.enc(value)
	if err != nil {
		return err
	}
	return t.b.Put(key, b)
}

func (t *Tx) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	if t.closed {
		return keyvaluedb.ErrTxClosed
	}
	return t.b.Delete(key)
}

func (t *Tx) Rollback() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.tx.Rollback()
}

func (t *Tx) Commit() error {
	if t.closed {
		return keyvaluedb.ErrTxClosed
	}
	t.closed = true
	return t.tx.Commit()
}
