package account

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	acc "github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"

	"github.com/codypharm/Opensafari/internal/types"
)

// DefaultMnemonic is the well known development mnemonic, never use it for real funds.
const DefaultMnemonic = "test test test test test test test test test test test junk"

const (
	DefaultAccountCount    = 20
	mnemonicEntropyBitSize = 128
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Signer is an account able to sign transactions.
type Signer struct {
	key            *ecdsa.PrivateKey
	address        types.Address
	derivationPath string
}

func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *Signer) Address() types.Address {
	return s.address
}

func (s *Signer) DerivationPath() string {
	return s.derivationPath
}

func (s *Signer) PrivateKey() *ecdsa.PrivateKey {
	return s.key
}

// SignTx sets From to the signer address and signs the transaction.
func (s *Signer) SignTx(tx *types.TransactionOrder) error {
	if tx == nil {
		return types.ErrTxIsNil
	}
	tx.From = s.address
	return tx.Sign(s.key)
}

// FromMnemonic derives count accounts using derivation path m/44'/60'/0'/0/i.
// Empty mnemonic means DefaultMnemonic.
func FromMnemonic(mnemonic string, count int) ([]*Signer, error) {
	if mnemonic == "" {
		mnemonic = DefaultMnemonic
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	if count < 1 {
		return nil, fmt.Errorf("account count must be positive, got %d", count)
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, err
	}
	// only HDPrivateKeyID is used from chaincfg.MainNetParams, as the version flag of the extended key
	masterKey, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	signers := make([]*Signer, 0, count)
	for i := 0; i < count; i++ {
		path := NewDerivationPath(uint64(i))
		key, err := derivePrivateKey(masterKey, path)
		if err != nil {
			return nil, fmt.Errorf("deriving account %d: %w", i, err)
		}
		s := NewSigner(key)
		s.derivationPath = path
		signers = append(signers, s)
	}
	return signers, nil
}

// GenerateMnemonic creates new random 12 word mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBitSize)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// NewDerivationPath returns BIP-44 ethereum derivation path for given address index.
func NewDerivationPath(index uint64) string {
	// m / purpose' / coin_type' / account' / change / address_index
	return fmt.Sprintf("m/44'/60'/0'/0/%d", index)
}

func derivePrivateKey(masterKey *hdkeychain.ExtendedKey, derivationPath string) (*ecdsa.PrivateKey, error) {
	path, err := acc.ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, err
	}
	derivedKey := masterKey
	for _, n := range path {
		derivedKey, err = derivedKey.Derive(n)
		if err != nil {
			return nil, err
		}
	}
	privateKey, err := derivedKey.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return privateKey.ToECDSA(), nil
}
