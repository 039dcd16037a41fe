package rmux

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"
)

// Cookie is a single buffered Set-Cookie entry.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	Expires  time.Time
	MaxAge   int
	Plain    bool
	HTTPOnly bool
}

// CookieOption modifies a cookie before it is buffered.
type CookieOption func(*Cookie)

// Plain stores the cookie value without sealing it,
// making it readable by client-side scripts.
func Plain() CookieOption {
	return func(cookie *Cookie) {
		cookie.Plain = true
	}
}

// WithExpiry sets the expiry time of the cookie.
func WithExpiry(expires time.Time) CookieOption {
	return func(cookie *Cookie) {
		cookie.Expires = expires
	}
}

// WithMaxAge sets the Max-Age attribute in seconds.
func WithMaxAge(seconds int) CookieOption {
	return func(cookie *Cookie) {
		cookie.MaxAge = seconds
	}
}

// WithPath sets the path the cookie applies to.
func WithPath(path string) CookieOption {
	return func(cookie *Cookie) {
		cookie.Path = path
	}
}

// WithHTTPOnly hides the cookie from client-side scripts.
// Sealed cookies are HttpOnly regardless of this option.
func WithHTTPOnly() CookieOption {
	return func(cookie *Cookie) {
		cookie.HTTPOnly = true
	}
}

// SetCookie buffers a cookie for the response, overwriting any
// buffered cookie of the same name. Values are sealed unless
// the cookie is explicitly marked as plain.
func (res *response) SetCookie(name string, value string, options ...CookieOption) error {
	cookie := Cookie{
		Name:  name,
		Value: value,
		Path:  "/",
	}

	for _, option := range options {
		option(&cookie)
	}

	if !cookie.Plain {
		sealed, err := res.sealer.Seal(cookie.Value)

		if err != nil {
			return err
		}

		cookie.Value = sealed
	}

	for index := range res.cookies {
		if res.cookies[index].Name == name {
			res.cookies[index] = cookie
			return nil
		}
	}

	res.cookies = append(res.cookies, cookie)
	return nil
}

// ClearCookie buffers a cookie entry whose expiry lies in the past,
// instructing the client to delete the cookie.
func (res *response) ClearCookie(name string) {
	res.cookies = append(res.cookies, Cookie{
		Name:    name,
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
		Plain:   true,
	})
}

// render serializes the cookie into a Set-Cookie header value.
func (cookie *Cookie) render() string {
	serialized := http.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     cookie.Path,
		Expires:  cookie.Expires,
		MaxAge:   cookie.MaxAge,
		HttpOnly: cookie.HTTPOnly || !cookie.Plain,
	}

	return serialized.String()
}

// cookieSealer encrypts and authenticates cookie values.
type cookieSealer struct {
	aead cipher.AEAD
}

// newCookieSealer creates a sealer from an AES key.
// The key length must be 16, 24 or 32 bytes.
func newCookieSealer(key []byte) (*cookieSealer, error) {
	block, err := aes.NewCipher(key)

	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)

	if err != nil {
		return nil, err
	}

	return &cookieSealer{aead: aead}, nil
}

// Seal encrypts the given value and encodes it for use in a cookie.
func (sealer *cookieSealer) Seal(value string) (string, error) {
	nonce := make([]byte, sealer.aead.NonceSize())

	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := sealer.aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed cookie value.
func (sealer *cookieSealer) Open(value string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(value)

	if err != nil {
		return "", err
	}

	nonceSize := sealer.aead.NonceSize()

	if len(data) < nonceSize {
		return "", errors.New("sealed value is too short")
	}

	opened, err := sealer.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)

	if err != nil {
		return "", err
	}

	return string(opened), nil
}
