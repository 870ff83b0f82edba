package http

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported request format")

// RequestFormat selects the media type a client accepts.
type RequestFormat int

const (
	FormatJSON RequestFormat = iota
	FormatXML
)

var requestMediaTypes = map[RequestFormat]string{
	FormatJSON: "application/json",
	FormatXML:  "application/xml",
}

// MediaType returns the Accept header value for the format.
func (f RequestFormat) MediaType() (string, error) {
	mediaType, ok := requestMediaTypes[f]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(f))
	}
	return mediaType, nil
}

func (f RequestFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	default:
		return fmt.Sprintf("RequestFormat(%d)", int(f))
	}
}

// ParseRequestFormat accepts "json" or "xml" in any case.
func ParseRequestFormat(s string) (RequestFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "xml":
		return FormatXML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}
