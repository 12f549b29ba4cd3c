package credentials

import (
	"crypto/ed25519"
	"encoding/pem"
	stderrors "errors"
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/mrz1836/codexbuild/internal/errors"
	"github.com/mrz1836/codexbuild/internal/logging"
)

// keyFilePerm restricts the transient key to its owner; ssh refuses
// group- or world-readable keys.
const keyFilePerm = 0o600

// prepareKey validates the private key and returns the bytes to write.
// An encrypted key is decrypted with the passphrase and re-encoded without
// encryption so ssh never prompts.
func prepareKey(key, passphrase Secret) ([]byte, error) {
	raw := []byte(key.Reveal())

	if passphrase.IsZero() {
		if _, err := ssh.ParseRawPrivateKey(raw); err != nil {
			var missing *ssh.PassphraseMissingError
			if stderrors.As(err, &missing) {
				return nil, errors.Wrap(errors.ErrCredentialInvalid, "ssh key is encrypted and no passphrase was provided")
			}
			return nil, errors.Wrapf(errors.ErrCredentialInvalid, "parse ssh key: %s", err.Error())
		}
		return raw, nil
	}

	parsed, err := ssh.ParseRawPrivateKeyWithPassphrase(raw, []byte(passphrase.Reveal()))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCredentialInvalid, "decrypt ssh key: %s", err.Error())
	}
	if p, ok := parsed.(*ed25519.PrivateKey); ok {
		parsed = *p
	}
	block, err := ssh.MarshalPrivateKey(parsed, "codexbuild")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCredentialInvalid, "re-encode ssh key: %s", err.Error())
	}
	return pem.EncodeToMemory(block), nil
}

// writeKeyFile materializes key into a new owner-only file under dir and
// returns its path. The file is removed again if anything fails.
func writeKeyFile(dir string, key, passphrase Secret) (path string, err error) {
	content, err := prepareKey(key, passphrase)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, logging.KeyFilePattern+"*")
	if err != nil {
		return "", errors.Wrapf(errors.ErrCredentialInvalid, "create key file: %s", err.Error())
	}
	path = f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err = f.Chmod(keyFilePerm); err != nil {
		_ = f.Close()
		return "", errors.Wrapf(errors.ErrCredentialInvalid, "restrict key file: %s", err.Error())
	}
	if _, err = f.Write(content); err != nil {
		_ = f.Close()
		return "", errors.Wrapf(errors.ErrCredentialInvalid, "write key file: %s", err.Error())
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrapf(errors.ErrCredentialInvalid, "close key file: %s", err.Error())
	}
	return path, nil
}
