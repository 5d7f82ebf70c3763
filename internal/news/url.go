package news

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

var trackingQueryKeys = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
}

// CanonicalURL normalizes a source URL so that cosmetic variants map to one id.
// It returns empty strings when the value is not an absolute URL.
func CanonicalURL(raw string) (canonical string, host string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", ""
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", ""
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Hostname())
	if port := parsed.Port(); port != "" {
		defaultPort := (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443")
		if !defaultPort {
			parsed.Host = parsed.Host + ":" + port
		}
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	path := strings.TrimSpace(parsed.EscapedPath())
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		parsed.Path = unescaped
		parsed.RawPath = path
	} else {
		parsed.Path = path
		parsed.RawPath = ""
	}

	q := parsed.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(key)
			continue
		}
		if _, ok := trackingQueryKeys[lower]; ok {
			q.Del(key)
		}
	}
	parsed.RawQuery = encodeSortedQuery(q)

	hostname := parsed.Hostname()
	return parsed.String(), hostname
}

func encodeSortedQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for key := range q {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	reordered := url.Values{}
	for _, key := range keys {
		values := append([]string(nil), q[key]...)
		sort.Strings(values)
		for _, value := range values {
			reordered.Add(key, value)
		}
	}
	return reordered.Encode()
}

// IDFromURL derives the content-address id from the canonical form of raw.
func IDFromURL(raw string) (ID, string, error) {
	canonical, _ := CanonicalURL(raw)
	if canonical == "" {
		return 0, "", fmt.Errorf("url %q is not absolute", raw)
	}
	return HashID(canonical), canonical, nil
}

// HashID reads the first 16 hex digits of md5(value) as a 64-bit id.
func HashID(value string) ID {
	sum := md5.Sum([]byte(value))
	prefix := hex.EncodeToString(sum[:])[:16]
	parsed, err := strconv.ParseUint(prefix, 16, 64)
	if err != nil {
		return 0
	}
	return ID(int64(parsed))
}
