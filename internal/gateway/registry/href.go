package registry

import (
	"net/url"
	"strings"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
)

// Href is a parsed resource reference.
type Href struct {
	Collection    string
	ID            string
	Subcollection string
	SubID         string
}

// ParseHref extracts the collection and ids from an absolute ("http://host/api/vms/1")
// or relative ("/api/vms/1", "vms/1") href.
func ParseHref(raw string) (Href, error) {
	invalid := apperrors.Errorf(apperrors.ErrBadRequest, "Invalid href specified: %s", raw)

	path := raw
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		path = u.Path
	}
	path = strings.Trim(path, "/")
	if idx := strings.Index(path, "api/"); idx >= 0 && (idx == 0 || path[idx-1] == '/') {
		path = path[idx+len("api/"):]
	}

	parts := strings.Split(path, "/")
	for _, p := range parts {
		if p == "" {
			return Href{}, invalid
		}
	}

	switch len(parts) {
	case 1:
		return Href{Collection: parts[0]}, nil
	case 2:
		return Href{Collection: parts[0], ID: parts[1]}, nil
	case 3:
		return Href{Collection: parts[0], ID: parts[1], Subcollection: parts[2]}, nil
	case 4:
		return Href{Collection: parts[0], ID: parts[1], Subcollection: parts[2], SubID: parts[3]}, nil
	default:
		return Href{}, invalid
	}
}
