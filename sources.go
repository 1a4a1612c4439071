package ngstate

import (
	"net/url"
	"strings"
)

const precomputedScheme = "precomputed://"

// PrecomputedSource returns the source url of a precomputed volume at
// location. A location that already carries the scheme is returned as is.
func PrecomputedSource(location string) string {
	if strings.HasPrefix(location, precomputedScheme) {
		return location
	}
	return precomputedScheme + location
}

// ClioAnnotationSource returns the source url of the annotation layer for
// dataset, served from annotationsURL. kind, when set, selects a typed
// annotation collection such as "atlas".
func ClioAnnotationSource(annotationsURL, dataset, kind string) string {
	source := "clio://" + strings.TrimSuffix(annotationsURL, "/") + "/" + dataset + "?auth=neurohub"
	if kind != "" {
		source += "&kind=" + url.QueryEscape(kind)
	}
	return source
}

// SourceURL returns the url of a layer source, which the viewer accepts
// either as a plain string or as an object with a "url" key.
func SourceURL(source any) string {
	switch s := source.(type) {
	case string:
		return s
	case map[string]any:
		u, _ := s["url"].(string)
		return u
	default:
		return ""
	}
}

// WithQueryParam appends key=value to rawURL, using & when rawURL already
// has a query.
func WithQueryParam(rawURL, key, value string) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
