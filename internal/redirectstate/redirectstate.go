// Package redirectstate extracts the continuation target a caller asked to
// return to after login.
package redirectstate

import (
	"net/url"
	"strings"
)

// ParamName is the query parameter carrying the continuation target.
const ParamName = "next"

// Resolve returns the value of the first "next" parameter in rawQuery.
//
// A literal '+' is read as a space before percent-decoding. The second return
// value is false when the parameter is missing or decodes to an empty string.
// Values with a malformed escape are returned undecoded.
func Resolve(rawQuery string) (string, bool) {
	rawQuery = strings.TrimPrefix(rawQuery, "?")

	for _, pair := range strings.Split(rawQuery, "&") {
		raw, ok := strings.CutPrefix(pair, ParamName+"=")
		if !ok {
			continue
		}

		raw = strings.ReplaceAll(raw, "+", " ")
		value, err := url.PathUnescape(raw)
		if err != nil {
			value = raw
		}
		if value == "" {
			return "", false
		}
		return value, true
	}

	return "", false
}
