package portal

import (
	"net/url"
	"regexp"
	"strings"
)

var storageAPIPattern = regexp.MustCompile(`/object/(?:public|sign|authenticated)/([^/]+)/(.+)$`)

// StorageKeyFromURL recovers the object key of a stored document URL.
// The storage-API and path-style forms are tried first, then a plain split on the last
// three segments ({user}/{order}/{file}).
func StorageKeyFromURL(rawURL string, bucket string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Path == "" {
		return "", false
	}
	escapedPath := parsed.EscapedPath()
	if key, ok := structuredStorageKey(escapedPath, bucket); ok {
		return key, true
	}
	return segmentStorageKey(escapedPath)
}

func structuredStorageKey(escapedPath string, bucket string) (string, bool) {
	if match := storageAPIPattern.FindStringSubmatch(escapedPath); match != nil {
		if bucket == "" || match[1] == bucket {
			return unescapeKey(match[2])
		}
	}
	if bucket == "" {
		return "", false
	}
	prefix := "/" + bucket + "/"
	if index := strings.Index(escapedPath, prefix); index >= 0 {
		return unescapeKey(escapedPath[index+len(prefix):])
	}
	return "", false
}

func segmentStorageKey(escapedPath string) (string, bool) {
	segments := make([]string, 0, 8)
	for _, segment := range strings.Split(escapedPath, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) < 3 {
		return "", false
	}
	return unescapeKey(strings.Join(segments[len(segments)-3:], "/"))
}

func unescapeKey(escaped string) (string, bool) {
	key, err := url.PathUnescape(strings.Trim(escaped, "/"))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}
