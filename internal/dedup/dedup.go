// internal/dedup/dedup.go
package dedup

import (
	"net/url"
	"strings"
	"sync"
)

// ProxyPath is the same-origin media proxy route. Normalization wraps upstream
// URLs in it; Key unwraps it so wrapped and bare forms collapse together.
const ProxyPath = "/proxy"

// Key derives the canonical identity of a media URL. Two URLs with the same
// key are treated as the same underlying media:
//   - same-origin proxy wrappers are unwrapped (recursively) to the upstream URL
//   - host and path are lower-cased, query and fragment ignored
//   - Reddit video CDN paths are collapsed to their first segment, since the
//     remaining segments vary by rendition
//   - legacy .gifv suffixes are rewritten to .mp4 so Imgur variants collapse
func Key(rawURL string) string {
	unwrapped := UnwrapProxy(rawURL)

	parsed, err := url.Parse(unwrapped)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(unwrapped)
	}

	host := strings.ToLower(parsed.Host)
	path := strings.ToLower(parsed.Path)

	if isRedditVideoHost(host) {
		segments := strings.Split(strings.Trim(path, "/"), "/")
		if len(segments) > 0 && segments[0] != "" {
			path = "/" + segments[0]
		}
	}

	if strings.HasSuffix(path, ".gifv") {
		path = strings.TrimSuffix(path, ".gifv") + ".mp4"
	}

	return host + path
}

// UnwrapProxy recovers the upstream URL from a same-origin proxy reference.
// Non-proxy URLs pass through unchanged. Nested wrapping is fully unwrapped.
func UnwrapProxy(rawURL string) string {
	for {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return rawURL
		}
		if !strings.HasSuffix(parsed.Path, ProxyPath) {
			return rawURL
		}
		inner := parsed.Query().Get("url")
		if inner == "" {
			return rawURL
		}
		rawURL = inner
	}
}

func isRedditVideoHost(host string) bool {
	return host == "v.redd.it" || strings.HasSuffix(host, ".v.redd.it")
}

// SeenSet tracks accepted item IDs and media keys for one feed-building
// session. A candidate is admitted only if both its ID and its dedup key are
// unseen; admission updates both sets atomically so a candidate can never be
// accepted twice even under concurrent pagination.
type SeenSet struct {
	mu   sync.Mutex
	ids  map[string]struct{}
	keys map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{
		ids:  make(map[string]struct{}),
		keys: make(map[string]struct{}),
	}
}

// Admit reports whether the (id, videoURL) pair is new, marking both seen if
// so. Re-admitting an already-seen item is a no-op returning false.
func (s *SeenSet) Admit(id, videoURL string) bool {
	key := Key(videoURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return false
	}
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	s.keys[key] = struct{}{}
	return true
}

// Len returns the number of admitted items.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
