package vrf

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// WordSource produces the random words delivered for a request
type WordSource interface {
	Words(requestID int64, numWords uint32) ([]*big.Int, error)
}

// DeterministicWords derives word i of a request as keccak256(requestID, i),
// with both values ABI-encoded as uint256. Replaying a request yields the same words.
type DeterministicWords struct{}

// Words implements WordSource
func (DeterministicWords) Words(requestID int64, numWords uint32) ([]*big.Int, error) {
	id := common.BigToHash(big.NewInt(requestID))
	words := make([]*big.Int, numWords)
	for i := range words {
		index := common.BigToHash(big.NewInt(int64(i)))
		words[i] = new(big.Int).SetBytes(crypto.Keccak256(id.Bytes(), index.Bytes()))
	}
	return words, nil
}

// SecureWords draws uniformly distributed 256-bit words from the operating system
type SecureWords struct{}

var maxWord = new(big.Int).Lsh(big.NewInt(1), 256)

// Words implements WordSource
func (SecureWords) Words(_ int64, numWords uint32) ([]*big.Int, error) {
	words := make([]*big.Int, numWords)
	for i := range words {
		word, err := rand.Int(rand.Reader, maxWord)
		if err != nil {
			return nil, fmt.Errorf("failed to read random word: %w", err)
		}
		words[i] = word
	}
	return words, nil
}

// NewWordSource returns the source for a configured mode ("deterministic" or "secure")
func NewWordSource(mode string) (WordSource, error) {
	switch mode {
	case "", "deterministic":
		return DeterministicWords{}, nil
	case "secure":
		return SecureWords{}, nil
	default:
		return nil, fmt.Errorf("unknown randomness mode %q", mode)
	}
}
