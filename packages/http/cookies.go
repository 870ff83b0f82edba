package http

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	neturl "net/url"

	"golang.org/x/net/publicsuffix"
)

var ErrNilCookie = errors.New("cookie must not be nil")

// NewCookieJar returns a jar that honors public suffix boundaries.
func NewCookieJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// AddCookie stores a cookie for the client's base URL.
func (c *Client) AddCookie(cookie *http.Cookie) error {
	if cookie == nil {
		return ErrNilCookie
	}
	u, err := neturl.Parse(c.baseURL)
	if err != nil {
		return err
	}
	c.jar.SetCookies(u, []*http.Cookie{cookie})
	return nil
}

// Cookies returns the cookies named name that the jar would send to the base URL.
func (c *Client) Cookies(name string) []*http.Cookie {
	u, err := neturl.Parse(c.baseURL)
	if err != nil {
		return nil
	}
	var out []*http.Cookie
	for _, cookie := range c.jar.Cookies(u) {
		if cookie.Name == name {
			out = append(out, cookie)
		}
	}
	return out
}
