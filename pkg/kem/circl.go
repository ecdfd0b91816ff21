// circl.go implements the real KEM backend on top of CIRCL's generic
// kem.Scheme interface. Keys and ciphertexts cross package boundaries as raw
// bytes; this file owns all marshalling.
package kem

import (
	"fmt"

	circlkem "github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/schemes"

	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
)

// providerErr ties an unexpected backend failure to ErrProviderFailure so the
// session layer can recognize it when deciding the availability fallback.
func providerErr(op string, err error) error {
	return qerrors.NewCryptoError(op, fmt.Errorf("%w: %v", qerrors.ErrProviderFailure, err))
}

// circlProvider is the real backend. It is stateless; the scheme objects are
// resolved per call from CIRCL's registry.
type circlProvider struct{}

// schemeFor maps a supported Algorithm to its CIRCL scheme.
func schemeFor(alg Algorithm) (circlkem.Scheme, error) {
	switch alg {
	case Kyber512:
		return schemes.ByName("Kyber512"), nil
	case Frodo640:
		return schemes.ByName("FrodoKEM-640-SHAKE"), nil
	default:
		return nil, qerrors.ErrUnsupportedAlgorithm
	}
}

func (p *circlProvider) Mode() Mode { return ModeReal }

func (p *circlProvider) GenerateKeyPair(alg Algorithm) (*KeyPair, error) {
	sch, err := schemeFor(alg)
	if err != nil {
		return nil, err
	}

	pk, sk, err := sch.GenerateKeyPair()
	if err != nil {
		return nil, providerErr("kem.GenerateKeyPair", err)
	}

	pkBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, providerErr("kem.GenerateKeyPair", err)
	}
	skBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, providerErr("kem.GenerateKeyPair", err)
	}

	return &KeyPair{Algorithm: alg, PublicKey: pkBytes, SecretKey: skBytes}, nil
}

func (p *circlProvider) Encapsulate(publicKey []byte, alg Algorithm) ([]byte, []byte, error) {
	sch, err := schemeFor(alg)
	if err != nil {
		return nil, nil, err
	}
	if len(publicKey) != sch.PublicKeySize() {
		return nil, nil, qerrors.ErrInvalidPublicKey
	}

	pk, err := sch.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return nil, nil, qerrors.ErrInvalidPublicKey
	}

	ct, ss, err := sch.Encapsulate(pk)
	if err != nil {
		return nil, nil, providerErr("kem.Encapsulate", err)
	}
	return ct, ss, nil
}

func (p *circlProvider) Decapsulate(secretKey, ciphertext []byte, alg Algorithm) ([]byte, error) {
	sch, err := schemeFor(alg)
	if err != nil {
		return nil, err
	}
	if len(secretKey) != sch.PrivateKeySize() {
		return nil, qerrors.ErrInvalidSecretKey
	}
	if len(ciphertext) != sch.CiphertextSize() {
		return nil, qerrors.ErrInvalidCiphertext
	}

	sk, err := sch.UnmarshalBinaryPrivateKey(secretKey)
	if err != nil {
		return nil, qerrors.ErrInvalidSecretKey
	}

	ss, err := sch.Decapsulate(sk, ciphertext)
	if err != nil {
		return nil, providerErr("kem.Decapsulate", err)
	}
	return ss, nil
}
