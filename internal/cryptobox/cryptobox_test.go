package cryptobox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/suite"
)

// CryptoboxSuite exercises the round-trip and tamper-detection contract:
// open(seal(m, k), k) = m, and any altered byte of ciphertext, nonce, or key
// fails instead of returning garbage.
type CryptoboxSuite struct {
	suite.Suite
	key []byte
}

func TestCryptoboxSuite(t *testing.T) {
	suite.Run(t, new(CryptoboxSuite))
}

func (s *CryptoboxSuite) SetupTest() {
	key, err := NewKey()
	s.Require().NoError(err)
	s.key = key
}

func (s *CryptoboxSuite) TestRoundTrip() {
	s.Run("plaintext survives seal then open", func() {
		msg := []byte(`{"accuracy":0.95,"wpm":45}`)
		ct, nonce, err := Seal(msg, s.key)
		s.Require().NoError(err)

		got, err := Open(ct, nonce, s.key)
		s.Require().NoError(err)
		s.Equal(msg, got)
	})

	s.Run("empty plaintext round-trips", func() {
		ct, nonce, err := Seal(nil, s.key)
		s.Require().NoError(err)

		got, err := Open(ct, nonce, s.key)
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("fresh nonce on every seal", func() {
		msg := []byte("same message")
		_, nonce1, err := Seal(msg, s.key)
		s.Require().NoError(err)
		_, nonce2, err := Seal(msg, s.key)
		s.Require().NoError(err)
		s.NotEqual(nonce1, nonce2)
	})
}

func (s *CryptoboxSuite) TestTamperDetection() {
	msg := []byte("behavioral data point")
	ct, nonce, err := Seal(msg, s.key)
	s.Require().NoError(err)

	s.Run("flipped ciphertext byte fails", func() {
		tampered := bytes.Clone(ct)
		tampered[0] ^= 0x01
		_, err := Open(tampered, nonce, s.key)
		s.ErrorIs(err, ErrDecryptFailed)
	})

	s.Run("flipped auth tag byte fails", func() {
		tampered := bytes.Clone(ct)
		tampered[len(tampered)-1] ^= 0x01
		_, err := Open(tampered, nonce, s.key)
		s.ErrorIs(err, ErrDecryptFailed)
	})

	s.Run("flipped nonce byte fails", func() {
		badNonce := bytes.Clone(nonce)
		badNonce[3] ^= 0x01
		_, err := Open(ct, badNonce, s.key)
		s.ErrorIs(err, ErrDecryptFailed)
	})

	s.Run("wrong key fails", func() {
		other, err := NewKey()
		s.Require().NoError(err)
		_, err = Open(ct, nonce, other)
		s.ErrorIs(err, ErrDecryptFailed)
	})

	s.Run("truncated nonce fails", func() {
		_, err := Open(ct, nonce[:NonceSize-1], s.key)
		s.ErrorIs(err, ErrDecryptFailed)
	})
}

func (s *CryptoboxSuite) TestKeyValidation() {
	s.Run("short key rejected on seal", func() {
		_, _, err := Seal([]byte("x"), make([]byte, 16))
		s.ErrorIs(err, ErrInvalidKeyLength)
	})

	s.Run("short key rejected on open", func() {
		_, err := Open([]byte("x"), make([]byte, NonceSize), make([]byte, 16))
		s.ErrorIs(err, ErrInvalidKeyLength)
	})
}

func (s *CryptoboxSuite) TestWipe() {
	buf := []byte("sensitive plaintext")
	Wipe(buf)
	s.Equal(make([]byte, len(buf)), buf)
}
