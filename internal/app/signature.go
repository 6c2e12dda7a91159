package app

import (
	"crypto/ed25519"

	"daily-quiz-service/internal/domain"
	"github.com/mr-tron/base58"
)

// nonceMessagePrefix is the exact byte prefix wallets sign. Changing it breaks
// every client.
const nonceMessagePrefix = "Login nonce: "

// SignatureVerifier checks that a signature binds a wallet to a nonce.
type SignatureVerifier interface {
	Verify(walletAddress, signature, nonce string) error
}

// Ed25519Verifier verifies Solana-style detached signatures: the wallet
// address is the base58-encoded Ed25519 public key, the signature is base58
// as well. Any decode or verification failure is a hard rejection.
type Ed25519Verifier struct{}

func NewEd25519Verifier() Ed25519Verifier {
	return Ed25519Verifier{}
}

func (Ed25519Verifier) Verify(walletAddress, signature, nonce string) error {
	sig, err := base58.Decode(signature)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	pub, err := base58.Decode(walletAddress)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return domain.ErrInvalidSignature
	}

	message := []byte(nonceMessagePrefix + nonce)
	if !ed25519.Verify(ed25519.PublicKey(pub), message, sig) {
		return domain.ErrInvalidSignature
	}
	return nil
}
