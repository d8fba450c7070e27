package audit

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

// Signer signs audit records with an Ed25519 key kept under the key
// directory, generating one on first use.
type Signer struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
	KeyID      string
	keyDir     string
}

// NewSigner creates or loads a signer for keyID under keyDir.
func NewSigner(keyDir, keyID string) (*Signer, error) {
	if keyID == "" {
		return nil, fmt.Errorf("key id required")
	}
	if err := os.MkdirAll(keyDir, 0700); err != nil {
		return nil, err
	}

	keyPath := filepath.Join(keyDir, keyID+".key")

	var privateKey ed25519.PrivateKey

	data, err := os.ReadFile(keyPath)
	if err == nil {
		if len(data) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("invalid private key size in %s", keyPath)
		}
		privateKey = ed25519.PrivateKey(data)
	} else {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		privateKey = priv
		if err := os.WriteFile(keyPath, []byte(privateKey), 0600); err != nil {
			return nil, err
		}
	}

	return &Signer{
		PrivateKey: privateKey,
		PublicKey:  privateKey.Public().(ed25519.PublicKey),
		KeyID:      keyID,
		keyDir:     keyDir,
	}, nil
}

// Sign attaches a signature over the record's canonical payload.
func (s *Signer) Sign(r *Record) error {
	if r == nil {
		return fmt.Errorf("record required")
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if err := r.Verify(); err != nil {
		return err
	}

	payload, err := recordHashPayload(r)
	if err != nil {
		return err
	}

	sig := ed25519.Sign(s.PrivateKey, []byte(payload))
	r.Signature = &Signature{
		Alg:      "ed25519",
		PubKeyID: s.KeyID,
		Sig:      base64.StdEncoding.EncodeToString(sig),
	}
	return nil
}

// VerifySignature checks the attached signature against the record payload
// using keys under keyDir.
func VerifySignature(keyDir string, r *Record) error {
	if r == nil {
		return fmt.Errorf("record required")
	}
	if r.Signature == nil {
		return fmt.Errorf("signature required")
	}
	if r.Signature.Alg != "ed25519" {
		return fmt.Errorf("unsupported signature alg %q", r.Signature.Alg)
	}
	if err := r.Verify(); err != nil {
		return err
	}

	pubKey, err := loadPublicKey(keyDir, r.Signature.PubKeyID)
	if err != nil {
		return err
	}

	sigBytes, err := base64.StdEncoding.DecodeString(r.Signature.Sig)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	payload, err := recordHashPayload(r)
	if err != nil {
		return err
	}

	if !ed25519.Verify(pubKey, []byte(payload), sigBytes) {
		return fmt.Errorf("invalid record signature")
	}
	return nil
}

func loadPublicKey(keyDir, keyID string) (ed25519.PublicKey, error) {
	if keyID == "" {
		return nil, fmt.Errorf("pubkey_id required")
	}
	data, err := os.ReadFile(filepath.Join(keyDir, keyID+".key"))
	if err != nil {
		return nil, err
	}
	priv := ed25519.PrivateKey(data)
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size")
	}
	return priv.Public().(ed25519.PublicKey), nil
}
