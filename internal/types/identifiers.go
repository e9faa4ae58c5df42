package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type (
	Address = common.Address
	Hash    = common.Hash
)

const AddressLength = common.AddressLength

var ZeroAddress = Address{}

// ContractAddress returns the address a contract deployed by sender with given nonce ends up at.
func ContractAddress(sender Address, nonce uint64) Address {
	return crypto.CreateAddress(sender, nonce)
}

func Keccak256(data ...[]byte) Hash {
	return crypto.Keccak256Hash(data...)
}
