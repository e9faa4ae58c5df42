package keyvaluedb_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codypharm/Opensafari/internal/keyvaluedb"
	"github.com/codypharm/Opensafari/internal/keyvaluedb/boltdb"
	"github.com/codypharm/Opensafari/internal/keyvaluedb/memorydb"
)

func testDBs(t *testing.T) map[string]keyvaluedb.KeyValueDB {
	bolt, err := boltdb.New(filepath.Join(t.TempDir(), "prefix.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, bolt.Close()) })
	return map[string]keyvaluedb.KeyValueDB{"memorydb": memorydb.New(), "boltdb": bolt}
}

func writeAll(t *testing.T, db keyvaluedb.KeyValueDB, values map[string]uint64) {
	for k, v := range values {
		require.NoError(t, db.Write([]byte(k), v))
	}
}

func TestForEachWithPrefix(t *testing.T) {
	for name, db := range testDBs(t) {
		t.Run(name, func(t *testing.T) {
			writeAll(t, db, map[string]uint64{"a1": 1, "b1": 2, "b2": 3, "b3": 4, "c": 5})

			var keys []string
			var sum uint64
			require.NoError(t, keyvaluedb.ForEachWithPrefix(db, []byte("b"), func(key []byte, it keyvaluedb.Iterator) error {
				var v uint64
				if err := it.Value(&v); err != nil {
					return err
				}
				keys = append(keys, string(key))
				sum += v
				return nil
			}))
			require.Equal(t, []string{"b1", "b2", "b3"}, keys)
			require.EqualValues(t, 9, sum)

			calls := 0
			require.NoError(t, keyvaluedb.ForEachWithPrefix(db, []byte("x"), func(key []byte, it keyvaluedb.Iterator) error {
				calls++
				return nil
			}))
			require.Zero(t, calls)

			err := keyvaluedb.ForEachWithPrefix(db, []byte("b"), func(key []byte, it keyvaluedb.Iterator) error {
				calls++
				return keyvaluedb.ErrInvalidKey
			})
			require.ErrorIs(t, err, keyvaluedb.ErrInvalidKey)
			require.Equal(t, 1, calls)
		})
	}
}

func TestLastWithPrefix(t *testing.T) {
	for name, db := range testDBs(t) {
		t.Run(name, func(t *testing.T) {
			var v uint64
			key, err := keyvaluedb.LastWithPrefix(db, []byte("b"), &v)
			require.NoError(t, err)
			require.Nil(t, key)

			writeAll(t, db, map[string]uint64{"a1": 1, "b1": 2, "b2": 3, "c": 5})

			// prefix in the middle of the key range
			key, err = keyvaluedb.LastWithPrefix(db, []byte("b"), &v)
			require.NoError(t, err)
			require.Equal(t, []byte("b2"), key)
			require.EqualValues(t, 3, v)

			// prefix at the end of the key range
			key, err = keyvaluedb.LastWithPrefix(db, []byte("c"), &v)
			require.NoError(t, err)
			require.Equal(t, []byte("c"), key)
			require.EqualValues(t, 5, v)

			// prefix at the start of the key range
			key, err = keyvaluedb.LastWithPrefix(db, []byte("a"), &v)
			require.NoError(t, err)
			require.Equal(t, []byte("a1"), key)

			key, err = keyvaluedb.LastWithPrefix(db, []byte("bb"), &v)
			require.NoError(t, err)
			require.Nil(t, key)

			_, err = keyvaluedb.LastWithPrefix(db, nil, &v)
			require.ErrorIs(t, err, keyvaluedb.ErrInvalidKey)
		})
	}
}
