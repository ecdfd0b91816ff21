// dilithium.go implements the real signature backend on CIRCL's Dilithium2.
package sign

import (
	"sync"

	circlsign "github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/schemes"

	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
)

// dilithiumSigner is the real backend.
type dilithiumSigner struct{}

func dilithiumScheme() circlsign.Scheme {
	return schemes.ByName("Dilithium2")
}

func (s *dilithiumSigner) Mode() Mode { return ModeReal }

func (s *dilithiumSigner) GenerateKeyPair() (*KeyPair, error) {
	sch := dilithiumScheme()
	pk, sk, err := sch.GenerateKey()
	if err != nil {
		return nil, qerrors.NewCryptoError("sign.GenerateKeyPair", err)
	}

	pkBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, qerrors.NewCryptoError("sign.GenerateKeyPair", err)
	}
	skBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, qerrors.NewCryptoError("sign.GenerateKeyPair", err)
	}
	return &KeyPair{PublicKey: pkBytes, SecretKey: skBytes}, nil
}

func (s *dilithiumSigner) Sign(secretKey, message []byte) ([]byte, error) {
	sch := dilithiumScheme()
	sk, err := sch.UnmarshalBinaryPrivateKey(secretKey)
	if err != nil {
		return nil, qerrors.ErrInvalidSecretKey
	}
	return sch.Sign(sk, message, nil), nil
}

func (s *dilithiumSigner) Verify(publicKey, message, signature []byte) bool {
	sch := dilithiumScheme()
	pk, err := sch.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return false
	}
	return sch.Verify(pk, message, signature, nil)
}

var (
	detectOnce sync.Once
	detected   Mode
)

// Detect probes Dilithium2 once per process: a sign/verify round trip must
// succeed and a tampered message must fail. Returns ModeSimulated on any
// probe failure.
func Detect() Mode {
	detectOnce.Do(func() {
		detected = probe()
	})
	return detected
}

func probe() Mode {
	s := &dilithiumSigner{}
	kp, err := s.GenerateKeyPair()
	if err != nil {
		return ModeSimulated
	}
	msg := []byte("cryptexq-sign-probe")
	sig, err := s.Sign(kp.SecretKey, msg)
	if err != nil {
		return ModeSimulated
	}
	if !s.Verify(kp.PublicKey, msg, sig) {
		return ModeSimulated
	}
	if s.Verify(kp.PublicKey, []byte("cryptexq-sign-probe-tampered"), sig) {
		return ModeSimulated
	}
	return ModeReal
}
