// Package gpg verifies detached OpenPGP signatures over downloaded
// artifacts against a caller-supplied public keyring.
//
// Signature verification proves authenticity on top of the integrity
// guarantee a digest gives: a matching digest says the bytes arrived
// intact, a valid signature says they came from the key holder.
package gpg

import (
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// Verifier checks detached signatures against one public keyring.
type Verifier struct {
	keyringPath string
}

// NewVerifier creates a verifier bound to a keyring file. The keyring
// may be armored or binary.
func NewVerifier(keyringPath string) *Verifier {
	return &Verifier{keyringPath: keyringPath}
}

// VerifyDetached verifies artifactPath against the detached signature
// at sigPath. Armored signatures are tried first, then binary.
func (v *Verifier) VerifyDetached(artifactPath, sigPath string) error {
	keyring, err := v.loadKeyring()
	if err != nil {
		return err
	}

	artifactFile, err := os.Open(artifactPath)
	if err != nil {
		return &SignatureError{Artifact: artifactPath, Err: fmt.Errorf("open artifact: %w", err)}
	}
	defer artifactFile.Close()

	sigFile, err := os.Open(sigPath)
	if err != nil {
		return &SignatureError{Artifact: artifactPath, Err: fmt.Errorf("open signature: %w", err)}
	}
	defer sigFile.Close()

	// Try armored first, fall back to binary
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, artifactFile, sigFile, nil)
	if err != nil {
		artifactFile.Seek(0, io.SeekStart)
		sigFile.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(keyring, artifactFile, sigFile, nil)
	}
	if err != nil {
		return &SignatureError{Artifact: artifactPath, Err: err}
	}

	return nil
}

// loadKeyring reads the public keyring, trying armored then binary.
func (v *Verifier) loadKeyring() (openpgp.EntityList, error) {
	keyringFile, err := os.Open(v.keyringPath)
	if err != nil {
		return nil, &KeyringError{Path: v.keyringPath, Err: err}
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		keyringFile.Seek(0, io.SeekStart)
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, &KeyringError{Path: v.keyringPath, Err: err}
		}
	}

	if len(keyring) == 0 {
		return nil, &KeyringError{Path: v.keyringPath, Err: fmt.Errorf("keyring is empty")}
	}

	return keyring, nil
}
