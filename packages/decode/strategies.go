package decode

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"mime"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// ContractStrategy decodes strict JSON. Every slot of the target typed as an
// abstract contract declared in registry, at the top level or nested in
// pointers, slices, arrays, string-keyed maps and struct fields, is resolved
// through the TypeKey discriminator.
func ContractStrategy(registry *Registry) Strategy {
	if registry == nil {
		registry = NewRegistry()
	}
	return Strategy{
		Name: StrategyContract,
		Decode: func(in Input, target any) error {
			rv := reflect.ValueOf(target).Elem()
			if !registry.holdsAbstract(rv.Type()) {
				return strictUnmarshal(in.Body, target)
			}

			var raw json.RawMessage
			if err := strictUnmarshal(in.Body, &raw); err != nil {
				return err
			}
			return decodeContract(registry, raw, rv)
		},
	}
}

// TolerantStrategy accepts any valid JSON and weakly decodes it into the
// target: numbers and strings convert into each other, unknown members are
// ignored and embedded structs are squashed. An empty body leaves the target
// at its zero value.
func TolerantStrategy() Strategy {
	return Strategy{
		Name: StrategyTolerant,
		Decode: func(in Input, target any) error {
			if len(bytes.TrimSpace(in.Body)) == 0 {
				return nil
			}
			if !gjson.ValidBytes(in.Body) {
				return ErrInvalidJSON
			}
			return weakDecode(gjson.ParseBytes(in.Body).Value(), target)
		},
	}
}

// NegotiatedStrategy picks a codec from the response media type.
func NegotiatedStrategy() Strategy {
	return Strategy{
		Name: StrategyNegotiated,
		Decode: func(in Input, target any) error {
			if in.ContentType == "" {
				return fmt.Errorf("%w: no content type", ErrUnsupportedMediaType)
			}
			mediaType, _, err := mime.ParseMediaType(in.ContentType)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnsupportedMediaType, err)
			}

			switch {
			case isJSON(mediaType):
				return json.Unmarshal(in.Body, target)
			case isXML(mediaType):
				return xml.Unmarshal(in.Body, target)
			case isYAML(mediaType):
				return yaml.Unmarshal(in.Body, target)
			case mediaType == "application/x-www-form-urlencoded":
				values, err := url.ParseQuery(string(in.Body))
				if err != nil {
					return err
				}
				return weakDecode(flattenValues(values), target)
			default:
				return fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
			}
		},
	}
}

// StringStrategy passes the raw body through when the target is a string.
func StringStrategy() Strategy {
	return Strategy{
		Name: StrategyString,
		Decode: func(in Input, target any) error {
			s, ok := target.(*string)
			if !ok {
				return fmt.Errorf("%w: %s", ErrNotString, reflect.TypeOf(target).Elem())
			}
			*s = string(in.Body)
			return nil
		},
	}
}

// DecodeError parses a failed response body into an error payload. XML and
// YAML bodies are honored when the media type says so; everything else is
// treated as JSON.
func DecodeError(in Input, target any) error {
	mediaType, _, _ := mime.ParseMediaType(in.ContentType)
	switch {
	case isXML(mediaType):
		return xml.Unmarshal(in.Body, target)
	case isYAML(mediaType):
		return yaml.Unmarshal(in.Body, target)
	default:
		return json.Unmarshal(in.Body, target)
	}
}

func strictUnmarshal(body []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return err
	}
	if dec.More() {
		return ErrTrailingData
	}
	return nil
}

func weakDecode(input, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func flattenValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return out
}

func isJSON(mediaType string) bool {
	return mediaType == "application/json" || mediaType == "text/json" || strings.HasSuffix(mediaType, "+json")
}

func isXML(mediaType string) bool {
	return mediaType == "application/xml" || mediaType == "text/xml" || strings.HasSuffix(mediaType, "+xml")
}

func isYAML(mediaType string) bool {
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return false
}
