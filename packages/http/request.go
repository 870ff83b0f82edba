package http

import (
	"encoding/xml"
	"errors"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/abdul-hamid-achik/apiharness/packages/decode"
	"github.com/abdul-hamid-achik/apiharness/packages/result"
)

var ErrNilFormParams = errors.New("form parameters must not be nil")

const (
	contentTypeJSON = "application/json"
	contentTypeXML  = "application/xml"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// Get sends a GET request for path and decodes a 2xx body into T.
// Query parameters are expected to be part of path already.
func Get[T, E any](c *Client, path string) (*result.Request[T, E], error) {
	return execute[T, E](c, c.chain, http.MethodGet, path, nil)
}

// GetString sends a GET request and returns the raw body text.
func GetString[E any](c *Client, path string) (*result.Request[string, E], error) {
	return execute[string, E](c, c.stringChain, http.MethodGet, path, nil)
}

// Post serializes payload in the client's RequestFormat and sends it with POST.
func Post[T, E any](c *Client, path string, payload any) (*result.Request[T, E], error) {
	body, contentType, err := c.encode(payload)
	if err != nil {
		return nil, err
	}
	return PostString[T, E](c, path, body, contentType)
}

// PostJSON serializes payload as JSON regardless of the RequestFormat. Contract
// values get their type discriminator.
func PostJSON[T, E any](c *Client, path string, payload any) (*result.Request[T, E], error) {
	body, err := decode.Encode(payload, c.indentJSON)
	if err != nil {
		return nil, err
	}
	return PostString[T, E](c, path, string(body), contentTypeJSON)
}

// PostString sends an already encoded body. An empty contentType means JSON.
func PostString[T, E any](c *Client, path, body, contentType string) (*result.Request[T, E], error) {
	return execute[T, E](c, c.chain, http.MethodPost, path, withBody(body, contentType))
}

// PostForm sends params as an application/x-www-form-urlencoded body.
func PostForm[T, E any](c *Client, path string, params map[string]string) (*result.Request[T, E], error) {
	if params == nil {
		return nil, ErrNilFormParams
	}
	form := make(map[string]string, len(params))
	for k, v := range params {
		form[k] = v
	}
	return execute[T, E](c, c.chain, http.MethodPost, path, func(req *resty.Request) {
		req.SetHeader("Content-Type", contentTypeForm).SetFormData(form)
	})
}

// Put serializes payload in the client's RequestFormat and sends it with PUT.
func Put[T, E any](c *Client, path string, payload any) (*result.Request[T, E], error) {
	body, contentType, err := c.encode(payload)
	if err != nil {
		return nil, err
	}
	return PutString[T, E](c, path, body, contentType)
}

// PutString sends an already encoded body with PUT.
func PutString[T, E any](c *Client, path, body, contentType string) (*result.Request[T, E], error) {
	return execute[T, E](c, c.chain, http.MethodPut, path, withBody(body, contentType))
}

func Delete[T, E any](c *Client, path string) (*result.Request[T, E], error) {
	return execute[T, E](c, c.chain, http.MethodDelete, path, nil)
}

func (c *Client) encode(payload any) (string, string, error) {
	if c.format == FormatXML {
		body, err := xml.Marshal(payload)
		if err != nil {
			return "", "", err
		}
		return string(body), contentTypeXML, nil
	}
	body, err := decode.Encode(payload, c.indentJSON)
	if err != nil {
		return "", "", err
	}
	return string(body), contentTypeJSON, nil
}

func withBody(body, contentType string) func(*resty.Request) {
	if contentType == "" {
		contentType = contentTypeJSON
	}
	return func(req *resty.Request) {
		req.SetHeader("Content-Type", contentType).SetBody(body)
	}
}
