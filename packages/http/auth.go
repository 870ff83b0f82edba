package http

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidAuthScheme = errors.New("authorization scheme must not be empty")

// AuthScheme is the scheme part of an Authorization header. Any non-empty
// value is accepted; the constants cover the common cases.
type AuthScheme string

const (
	AuthBasic  AuthScheme = "Basic"
	AuthBearer AuthScheme = "Bearer"
	AuthID     AuthScheme = "AuthId"
)

// Authorization is applied to every request of a client until replaced.
type Authorization struct {
	Scheme AuthScheme
	Token  string
}

// HeaderValue renders the Authorization header value.
func (a Authorization) HeaderValue() string {
	return string(a.Scheme) + " " + a.Token
}

// Validate rejects an empty scheme.
func (a Authorization) Validate() error {
	if strings.TrimSpace(string(a.Scheme)) == "" {
		return ErrInvalidAuthScheme
	}
	return nil
}

// BasicToken encodes a username and password for use with AuthBasic.
func BasicToken(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
