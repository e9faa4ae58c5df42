package keyvaluedb

import (
	"bytes"
	"errors"
)

/*
ForEachWithPrefix calls fn for every key starting with prefix in ascending
key order. Iteration stops at the first error returned by fn.
*/
func ForEachWithPrefix(db Iterable, prefix []byte, fn func(key []byte, it Iterator) error) (err error) {
	it := db.Find(prefix)
	defer func() { err = errors.Join(err, it.Close()) }()
	for ; it.Valid() && bytes.HasPrefix(it.Key(), prefix); it.Next() {
		if err := fn(it.Key(), it); err != nil {
			return err
		}
	}
	return nil
}

// LastWithPrefix decodes the value of the greatest key starting with prefix into v.
// Returns nil key when there are no such keys.
func LastWithPrefix(db Iterable, prefix []byte, v any) (key []byte, err error) {
	if err := CheckKeyAndValue(prefix, v); err != nil {
		return nil, err
	}
	it := db.Last()
	if upper := prefixUpperBound(prefix); upper != nil {
		if next := db.Find(upper); next.Valid() {
			if err := it.Close(); err != nil {
				return nil, errors.Join(err, next.Close())
			}
			it = next
			it.Prev()
		} else if err := next.Close(); err != nil {
			return nil, errors.Join(err, it.Close())
		}
	}
	defer func() { err = errors.Join(err, it.Close()) }()

	if !it.Valid() || !bytes.HasPrefix(it.Key(), prefix) {
		return nil, nil
	}
	if err := it.Value(v); err != nil {
		return nil, err
	}
	return it.Key(), nil
}

// prefixUpperBound returns the smallest key greater than all keys with the prefix,
// nil if there is no such key (prefix is all 0xff bytes).
func prefixUpperBound(prefix []byte) []byte {
	upper := bytes.Clone(prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
