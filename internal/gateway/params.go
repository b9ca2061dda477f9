package gateway

import (
	"net/url"
	"sort"
	"strings"
)

// Params is the wire-level parameter set of one payment transaction. Keys and
// values are plain strings; components consuming a Params never mutate it.
type Params map[string]string

// ParamsFromValues flattens query/form values into a Params, keeping the first
// value for repeated keys.
func ParamsFromValues(values url.Values) Params {
	p := make(Params, len(values))
	for key, vals := range values {
		if key == "" {
			continue
		}
		if len(vals) > 0 {
			p[key] = vals[0]
		} else {
			p[key] = ""
		}
	}
	return p
}

// Clone returns an independent copy of the parameter set.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Canonicalize serializes the parameter set into the exact byte string the
// processor signs: entries sorted by key in ascending byte order, joined as
// key=value pairs with '&'. Excluded keys are omitted; empty values are kept
// (field present but blank is significant). Values are used verbatim.
func (p Params) Canonicalize(exclude ...string) string {
	if len(p) == 0 {
		return ""
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, key := range exclude {
		skip[key] = struct{}{}
	}
	keys := make([]string, 0, len(p))
	for key := range p {
		if _, ok := skip[key]; ok {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(p[key])
	}
	return b.String()
}

// Encode serializes the parameter set as a URL query string (percent-encoded,
// sorted by key). This is the transport form; Canonicalize is the signing form.
func (p Params) Encode() string {
	values := make(url.Values, len(p))
	for k, v := range p {
		values.Set(k, v)
	}
	return values.Encode()
}
