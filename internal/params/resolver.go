// Package params resolves request identifiers from the URL path, the query
// string or a JSON body, in that order.
package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"
)

// Channel names reported back to callers when an identifier is missing.
const (
	ChannelPath  = "path"
	ChannelQuery = "query"
	ChannelBody  = "body"
)

// ErrInvalidBody is returned when a request body is present but is not a JSON object.
var ErrInvalidBody = errors.New("params: request body is not a valid JSON object")

// MissingError reports an identifier that no channel supplied.
type MissingError struct {
	Name    string
	Checked []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("Missing required parameter: %s (checked %s)", e.Name, strings.Join(e.Checked, ", "))
}

// Values holds resolved identifiers keyed by their camelCase name.
type Values map[string]string

// Get returns the resolved value for name.
func (v Values) Get(name string) string {
	return v[name]
}

// Resolve extracts every named identifier for the handler mounted under route.
// The i-th name is read from the i-th path segment after the route segment,
// then from the query string, then from the JSON body. The first non-empty
// source wins.
func Resolve(r *http.Request, route string, names ...string) (Values, error) {
	segments := segmentsAfter(r.URL.Path, route)
	query := r.URL.Query()

	body, bodyRead, err := readBody(r)
	if err != nil {
		return nil, err
	}

	out := make(Values, len(names))
	for i, name := range names {
		if i < len(segments) && segments[i] != "" {
			out[name] = segments[i]
			continue
		}
		if v := strings.TrimSpace(query.Get(name)); v != "" {
			out[name] = v
			continue
		}
		if v := bodyValue(body, name); v != "" {
			out[name] = v
			continue
		}
		checked := []string{ChannelPath, ChannelQuery}
		if bodyRead {
			checked = append(checked, ChannelBody)
		}
		return nil, &MissingError{Name: name, Checked: checked}
	}
	return out, nil
}

// segmentsAfter returns the trimmed path segments that follow the first
// segment equal to route. Empty segments keep their position so "/r//b"
// yields ["", "b"]. It returns nil when route does not appear.
func segmentsAfter(path, route string) []string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part != route {
			continue
		}
		rest := parts[i+1:]
		out := make([]string, 0, len(rest))
		for _, seg := range rest {
			out = append(out, strings.TrimSpace(seg))
		}
		return out
	}
	return nil
}

func readBody(r *http.Request) (map[string]any, bool, error) {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return nil, false, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, false, ErrInvalidBody
	}
	return body, true, nil
}

func bodyValue(body map[string]any, name string) string {
	if body == nil {
		return ""
	}
	for _, key := range []string{name, SnakeCase(name)} {
		if v := scalar(body[key]); v != "" {
			return v
		}
	}
	return ""
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := t.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return t.String()
	default:
		return ""
	}
}

// SnakeCase converts a camelCase identifier into snake_case.
func SnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
