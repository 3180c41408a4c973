// Package crypto provides request signing and key management for the
// easybet API. Callers are identified by secp256k1 signature recovery:
// every mutating request carries the caller's address, a timestamp, and a
// signature over the request digest, and the server recovers the signing
// address instead of trusting the header.
package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// requestPrefix namespaces signed request digests so signatures cannot be
// replayed as transactions or messages in other systems.
const requestPrefix = "\x19EasyBet Signed Request:\n"

// RequestDigest computes the keccak256 digest a caller signs for one
// request: prefix, unix timestamp, HTTP method, path, and the keccak256 of
// the body, newline-separated.
func RequestDigest(timestamp int64, method, path string, body []byte) []byte {
	bodyHash := ethcrypto.Keccak256(body)
	msg := requestPrefix +
		strconv.FormatInt(timestamp, 10) + "\n" +
		method + "\n" +
		path + "\n" +
		hex.EncodeToString(bodyHash)
	return ethcrypto.Keccak256([]byte(msg))
}

// Signer signs API requests with a secp256k1 private key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the address corresponding to the signing key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignRequest produces the hex-encoded 65-byte recoverable signature for a
// request at the given timestamp.
func (s *Signer) SignRequest(timestamp int64, method, path string, body []byte) (string, error) {
	digest := RequestDigest(timestamp, method, path, body)
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto: sign request: %w", err)
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// Verifier checks request signatures and timestamp freshness.
type Verifier struct {
	maxSkew time.Duration
}

// NewVerifier creates a Verifier that rejects request timestamps further
// than maxSkew from the current time in either direction.
func NewVerifier(maxSkew time.Duration) *Verifier {
	return &Verifier{maxSkew: maxSkew}
}

// RecoverAddress verifies the signature against the request digest and
// returns the recovered signing address. It does not compare against a
// claimed address; callers decide whether the recovered identity is
// acceptable.
func (v *Verifier) RecoverAddress(timestamp int64, method, path string, body []byte, sigHex string, now time.Time) (common.Address, error) {
	ts := time.Unix(timestamp, 0)
	skew := now.Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > v.maxSkew {
		return common.Address{}, fmt.Errorf("crypto: request timestamp outside allowed window")
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: signature is not valid hex: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("crypto: signature must be 65 bytes, got %d", len(sig))
	}

	// Normalise V from 27/28 to 0/1 if the client used the legacy form.
	if sig[64] >= 27 {
		sig = append(append([]byte(nil), sig[:64]...), sig[64]-27)
	}

	digest := RequestDigest(timestamp, method, path, body)
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
