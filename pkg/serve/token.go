// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package serve

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrBadAccessKey = errors.New("bad access key")
)

// MintAccessKey signs an access key for email. The key is handed out by the
// operator and presented by the client as its basic-auth password.
func MintAccessKey(secret, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  email,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyAccessKey checks the key's signature and that it was minted for
// email.
func VerifyAccessKey(secret, email, accessKey string) error {
	token, err := jwt.ParseWithClaims(accessKey, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadAccessKey, err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject != email {
		return ErrBadAccessKey
	}
	return nil
}
