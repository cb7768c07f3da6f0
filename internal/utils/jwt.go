package utils // package utils provides helper functions for token creation

import (
    "errors"  // errors reports invalid arguments
    "strings" // strings trims and normalizes claims
    "time"    // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Access tokens are encoded in the Authorization
// header when calling protected endpoints.
type AccessToken struct {
    Token string    `json:"token"`      // the serialized JWT string
    Exp   time.Time `json:"expires_at"` // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  It takes the
// signing secret, the user id, the user's role (ADMIN or CUSTOMER), and a
// TTL in minutes.  The JWT carries the standard claims sub, exp and iat
// plus the role.
func NewAccessToken(secret, userID, role string, ttlMin int) (AccessToken, error) {
    if secret == "" {
        return AccessToken{}, errors.New("empty signing secret")
    }
    userID = strings.TrimSpace(userID)
    if userID == "" {
        return AccessToken{}, errors.New("empty user id")
    }
    if ttlMin <= 0 {
        return AccessToken{}, errors.New("ttl must be positive")
    }
    now := time.Now().UTC()
    // Calculate the expiration time by adding the TTL to the current UTC time.
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  userID,
        "role": strings.ToUpper(strings.TrimSpace(role)),
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    // Sign the token with the provided secret and obtain the string form.
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
