package session

import (
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// ResolveQueryParameters sets params on path in name order. Values are
// stringified and empty ones skipped. A parameter already present in path's
// query is replaced, other existing parameters are kept in place. Each value
// is percent-encoded twice and the whole result is decoded once, so the
// returned URL carries exactly one layer of encoding. A result that cannot be
// decoded is returned as built.
func ResolveQueryParameters(path string, params map[string]any) string {
	names := make([]string, 0, len(params))
	values := make(map[string]string, len(params))
	for name, v := range params {
		value, err := cast.ToStringE(v)
		if err != nil || value == "" {
			continue
		}
		names = append(names, name)
		values[name] = value
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(withoutParams(path, values))
	for _, name := range names {
		if current := b.String(); !strings.HasSuffix(current, "?") && !strings.HasSuffix(current, "&") {
			b.WriteByte('&')
		}
		b.WriteString(escape(name))
		b.WriteByte('=')
		b.WriteString(escape(escape(values[name])))
	}

	built := b.String()
	decoded, err := url.QueryUnescape(built)
	if err != nil {
		return built
	}
	return decoded
}

// withoutParams drops the query pairs of path named in set and makes sure
// the result ends its path part with "?".
func withoutParams(path string, set map[string]string) string {
	base, query, found := strings.Cut(path, "?")
	if !found || query == "" {
		return base + "?"
	}

	kept := make([]string, 0, strings.Count(query, "&")+1)
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		name, _, _ := strings.Cut(pair, "=")
		if unescaped, err := url.QueryUnescape(name); err == nil {
			name = unescaped
		}
		if _, replaced := set[name]; replaced {
			continue
		}
		kept = append(kept, pair)
	}
	return base + "?" + strings.Join(kept, "&")
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
