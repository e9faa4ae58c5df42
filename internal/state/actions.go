package state

import (
	"errors"
	"fmt"

	"github.com/codypharm/Opensafari/internal/keyvaluedb"
	"github.com/codypharm/Opensafari/internal/types"
)

type (
	// Action is a state change executed by State.Apply.
	Action func(s *State) error

	// ContractInfo describes a deployed contract.
	ContractInfo struct {
		_           struct{}      `cbor:",toarray"`
		Type        string        `json:"type"`
		Address     types.Address `json:"address"`
		Deployer    types.Address `json:"deployer"`
		BlockNumber uint64        `json:"blockNumber"`
	}
)

const (
	prefixNonce    = 'n'
	prefixContract = 'c'
	prefixStorage  = 's'
)

func NonceKey(addr types.Address) []byte {
	return append([]byte{prefixNonce}, addr.Bytes()...)
}

func ContractKey(addr types.Address) []byte {
	return append([]byte{prefixContract}, addr.Bytes()...)
}

func StorageKey(addr types.Address, slot []byte) []byte {
	key := make([]byte, 0, 1+types.AddressLength+len(slot))
	key = append(key, prefixStorage)
	key = append(key, addr.Bytes()...)
	return append(key, slot...)
}

// PutValue stores arbitrary CBOR encodable value under the key.
func PutValue(key []byte, v any) Action {
	return func(s *State) error {
		return s.set(key, v)
	}
}

// IncrementNonce bumps the account nonce by one.
func IncrementNonce(addr types.Address) Action {
	return func(s *State) error {
		var n uint64
		if _, err := s.get(NonceKey(addr), &n); err != nil {
			return fmt.Errorf("reading nonce of %s: %w", addr, err)
		}
		return s.set(NonceKey(addr), n+1)
	}
}

// AddContract registers new contract, fails if there is a contract at the address already.
func AddContract(info *ContractInfo) Action {
	return func(s *State) error {
		if info == nil {
			return errors.New("contract info is nil")
		}
		var existing ContractInfo
		found, err := s.get(ContractKey(info.Address), &existing)
		if err != nil {
			return fmt.Errorf("reading contract %s: %w", info.Address, err)
		}
		if found {
			return fmt.Errorf("contract %s already exists", info.Address)
		}
		return s.set(ContractKey(info.Address), info)
	}
}

// SetStorage writes contract storage slot, empty value deletes the slot.
func SetStorage(addr types.Address, slot, value []byte) Action {
	return func(s *State) error {
		if len(value) == 0 {
			return s.delete(StorageKey(addr, slot))
		}
		return s.set(StorageKey(addr, slot), value)
	}
}

func (s *State) GetNonce(addr types.Address) (uint64, error) {
	var n uint64
	if _, err := s.Get(NonceKey(addr), &n); err != nil {
		return 0, fmt.Errorf("reading nonce of %s: %w", addr, err)
	}
	return n, nil
}

func (s *State) GetContract(addr types.Address) (*ContractInfo, error) {
	info := &ContractInfo{}
	found, err := s.Get(ContractKey(addr), info)
	if err != nil {
		return nil, fmt.Errorf("reading contract %s: %w", addr, err)
	}
	if !found {
		return nil, fmt.Errorf("contract %s: %w", addr, ErrNotFound)
	}
	return info, nil
}

// Contracts returns all deployed contracts ordered by address.
func (s *State) Contracts() ([]*ContractInfo, error) {
	var contracts []*ContractInfo
	err := s.ForEach([]byte{prefixContract}, func(key []byte, it keyvaluedb.Iterator) error {
		info := &ContractInfo{}
		if err := it.Value(info); err != nil {
			return fmt.Errorf("decoding contract %x: %w", key[1:], err)
		}
		contracts = append(contracts, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing contracts: %w", err)
	}
	return contracts, nil
}

func (s *State) GetStorage(addr types.Address, slot []byte) ([]byte, error) {
	var v []byte
	if _, err := s.Get(StorageKey(addr, slot), &v); err != nil {
		return nil, fmt.Errorf("reading storage of %s: %w", addr, err)
	}
	return v, nil
}

// ContractStorage binds storage access to single contract address.
type ContractStorage struct {
	s    *State
	addr types.Address
}

func (s *State) ContractStorage(addr types.Address) *ContractStorage {
	return &ContractStorage{s: s, addr: addr}
}

func (cs *ContractStorage) Get(slot []byte) ([]byte, error) {
	return cs.s.GetStorage(cs.addr, slot)
}

func (cs *ContractStorage) Set(slot, value []byte) error {
	return cs.s.Apply(SetStorage(cs.addr, slot, value))
}
