// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
)

// Credentials identify a contributor to the exchange server. The access key
// is a token minted by the server operator; it travels as the basic-auth
// password.
type Credentials struct {
	Email     string `json:"email"`
	AccessKey string `json:"access_key"`
}

func (c *Credentials) BasicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Email+":"+c.AccessKey))
}

var (
	ErrNoCredentials      = errors.New("no stored credentials, run login first")
	ErrCorruptCredentials = errors.New("corrupt credentials file")
)

// machineKey derives the sealing key from stable machine identity, binding
// the credentials file to the host it was written on.
func machineKey() ([]byte, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	h.Write([]byte(hostname))
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for _, iface := range ifaces {
		if len(iface.HardwareAddr) != 0 {
			h.Write(iface.HardwareAddr)
			break
		}
	}
	return h.Sum(nil), nil
}

func credentialsPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "modfold", "credentials"), nil
}

func sealCredentials(c *Credentials, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func openCredentials(sealed, key []byte) (*Credentials, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrCorruptCredentials
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCredentials, err)
	}
	var c Credentials
	if err := json.Unmarshal(plaintext, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCredentials, err)
	}
	return &c, nil
}

// SaveCredentials seals and stores the credentials for later client runs.
func SaveCredentials(email, accessKey string) error {
	key, err := machineKey()
	if err != nil {
		return err
	}
	sealed, err := sealCredentials(&Credentials{Email: email, AccessKey: accessKey}, key)
	if err != nil {
		return err
	}
	path, err := credentialsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, sealed, 0o600)
}

// LoadCredentials opens the stored credentials on the machine that sealed
// them.
func LoadCredentials() (*Credentials, error) {
	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}
	sealed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, err
	}
	key, err := machineKey()
	if err != nil {
		return nil, err
	}
	return openCredentials(sealed, key)
}
