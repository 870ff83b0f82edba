package http

import (
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/abdul-hamid-achik/apiharness/packages/decode"
	"github.com/abdul-hamid-achik/apiharness/packages/result"
)

// execute sends one request and routes the response. A 2xx body goes through
// chain; any other status becomes a Failure. Transport faults and a 2xx body
// that no strategy accepts are returned as errors.
func execute[T, E any](c *Client, chain *decode.Chain, method, path string, prepare func(*resty.Request)) (*result.Request[T, E], error) {
	resp, err := c.send(method, path, prepare)
	if err != nil {
		return nil, err
	}

	status := resp.StatusCode()
	headers := resp.Header()
	contentType := headers.Get("Content-Type")
	body := resp.Body()

	if !result.IsSuccessStatus(status) {
		return failure[T, E](c, status, headers, contentType, body), nil
	}

	value, strategy, err := decode.Decode[T](chain, decode.Input{Body: body, ContentType: contentType})
	if err != nil {
		return nil, err
	}
	return result.Success[T, E](value, strategy, status, headers, contentType, body), nil
}

func failure[T, E any](c *Client, status int, headers http.Header, contentType string, body []byte) *result.Request[T, E] {
	text := string(body)

	var detail E
	if err := decode.DecodeError(decode.Input{Body: body, ContentType: contentType}, &detail); err != nil {
		c.logger.Debug("error body did not match the declared shape",
			zap.Int("status", status),
			zap.Error(err))
		return result.Failure[T, E](nil, text, status, headers, contentType)
	}
	return result.Failure[T, E](&detail, text, status, headers, contentType)
}
