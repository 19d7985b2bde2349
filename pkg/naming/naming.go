// Package naming derives on-disk file names for downloaded artworks.
package naming

import (
	"net/url"
	"path"
	"strings"
)

// DefaultExtension is used when a URL carries no extension.
const DefaultExtension = ".jpg"

var forbidden = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"/", "_",
	`\`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
	" ", "-",
)

// Sanitize maps an artwork title to a filesystem-safe token. Characters that
// are invalid in file names become '_', spaces become '-', and runs of '-'
// collapse to one. Sanitize is total and idempotent.
func Sanitize(title string) string {
	name := forbidden.Replace(title)

	var b strings.Builder
	b.Grow(len(name))
	prevDash := false
	for _, r := range name {
		if r == '-' {
			if prevDash {
				continue
			}
			prevDash = true
		} else {
			prevDash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Extension returns the extension of the last path segment of rawURL,
// including the leading dot and without any query string. Percent-escapes are
// kept as written in the URL. URLs whose last segment has no extension get
// DefaultExtension.
func Extension(rawURL string) string {
	segment := lastSegment(rawURL)
	idx := strings.LastIndex(segment, ".")
	if idx < 0 || idx == len(segment)-1 {
		return DefaultExtension
	}
	return forbidden.Replace(segment[idx:])
}

// Filename joins the sanitized title with the extension derived from rawURL.
func Filename(title, rawURL string) string {
	return Sanitize(title) + Extension(rawURL)
}

func lastSegment(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return path.Base(u.EscapedPath())
	}

	// Unparseable URLs still get a best-effort answer.
	s := rawURL
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}
