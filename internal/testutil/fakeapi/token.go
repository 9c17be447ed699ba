package fakeapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/sitekeeper/internal/common"
)

const tokenIssuer = "sitekeeper-fakeapi"

// signer mints and checks the HS256 bearer tokens handed out by the fake
// backend. The user id travels as the subject; the role is informational.
type signer struct {
	secret []byte
}

type siteClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func newSigner() signer {
	return signer{secret: common.GenerateRandByteArray(32)}
}

func (s signer) mint(userID int64, role string, ttl time.Duration) (string, error) {
	jti, err := common.MakeRandHexString(8)
	if err != nil {
		return "", err
	}
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, siteClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString(s.secret)
}

// userID maps every failure onto ErrTokenExpired or ErrInvalidToken.
func (s signer) userID(raw string) (int64, error) {
	var c siteClaims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return 0, common.ErrTokenExpired
	case err != nil:
		return 0, common.ErrInvalidToken
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.ErrInvalidToken
	}
	return id, nil
}
