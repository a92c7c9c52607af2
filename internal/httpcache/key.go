package httpcache

import (
	"net/url"
	"strings"
)

// NormalizeURL lowercases the scheme and host, sorts the query and drops the fragment
// so that equivalent urls share a cache entry.
func NormalizeURL(u *url.URL) string {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	n.Fragment = ""
	n.RawFragment = ""
	if n.RawQuery != "" {
		n.RawQuery = n.Query().Encode()
	}
	n.ForceQuery = false
	if n.Path == "" && n.Opaque == "" {
		n.Path = "/"
	}
	return n.String()
}

// Key returns the cache key of a request.
func Key(method, rawURL string) string {
	method = strings.ToUpper(method)
	u, err := url.Parse(rawURL)
	if err != nil {
		return method + " " + rawURL
	}
	return method + " " + NormalizeURL(u)
}
