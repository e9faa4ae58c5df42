package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

type TxKind uint8

const (
	TxKindDeploy TxKind = iota + 1
	TxKindCall
)

var (
	ErrTxIsNil          = errors.New("transaction is nil")
	ErrMissingSignature = errors.New("transaction is not signed")
	ErrInvalidSender    = errors.New("signature does not match sender")
	ErrInvalidSignature = errors.New("invalid signature")
)

/*
TransactionOrder is a request, signed by From, to either deploy a named
contract (TxKindDeploy, Input holds ABI-encoded constructor arguments) or to
invoke a method of the contract at To (TxKindCall, Input holds method
selector followed by ABI-encoded arguments).
*/
type TransactionOrder struct {
	_         struct{}      `cbor:",toarray"`
	Kind      TxKind        `json:"kind"`
	From      Address       `json:"from"`
	Nonce     uint64        `json:"nonce"`
	To        Address       `json:"to"`
	Contract  string        `json:"contract,omitempty"`
	Input     hexutil.Bytes `json:"input"`
	Signature hexutil.Bytes `json:"signature"`
}

func (k TxKind) String() string {
	switch k {
	case TxKindDeploy:
		return "deploy"
	case TxKindCall:
		return "call"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// SigBytes returns the encoding of the transaction without the signature.
func (t *TransactionOrder) SigBytes() ([]byte, error) {
	cpy := *t
	cpy.Signature = nil
	return Cbor.Marshal(cpy)
}

// SigningHash is the digest the sender signs.
func (t *TransactionOrder) SigningHash() (Hash, error) {
	b, err := t.SigBytes()
	if err != nil {
		return Hash{}, fmt.Errorf("encoding transaction: %w", err)
	}
	return Keccak256(b), nil
}

// Hash identifies the signed transaction.
func (t *TransactionOrder) Hash() (Hash, error) {
	b, err := Cbor.Marshal(t)
	if err != nil {
		return Hash{}, fmt.Errorf("encoding transaction: %w", err)
	}
	return Keccak256(b), nil
}

func (t *TransactionOrder) Sign(key *ecdsa.PrivateKey) error {
	h, err := t.SigningHash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(h.Bytes(), key)
	if err != nil {
		return fmt.Errorf("signing transaction: %w", err)
	}
	t.Signature = sig
	return nil
}

// Sender recovers the address of the signer.
func (t *TransactionOrder) Sender() (Address, error) {
	if len(t.Signature) == 0 {
		return Address{}, ErrMissingSignature
	}
	h, err := t.SigningHash()
	if err != nil {
		return Address{}, err
	}
	pub, err := crypto.SigToPub(h.Bytes(), t.Signature)
	if err != nil {
		return Address{}, fmt.Errorf("%w: recovering public key: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifySender checks that the transaction is signed by the account in From.
func (t *TransactionOrder) VerifySender() error {
	if t == nil {
		return ErrTxIsNil
	}
	sender, err := t.Sender()
	if err != nil {
		return err
	}
	if sender != t.From {
		return fmt.Errorf("%w: signed by %s, from %s", ErrInvalidSender, sender, t.From)
	}
	return nil
}
