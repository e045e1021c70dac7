// Package urlutil resolves this application's own URLs from its base URL.
package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// JoinPath resolves elems under base's path. base must be absolute; its query
// and fragment are dropped since callback URLs never carry them. A trailing
// slash on the last element is kept.
func JoinPath(base string, elems ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base URL %q is not absolute", base)
	}
	u.RawQuery = ""
	u.Fragment = ""

	joined := u.JoinPath(elems...)
	if len(elems) == 0 {
		joined.Path = strings.TrimSuffix(joined.Path, "/")
	}
	return joined.String(), nil
}
