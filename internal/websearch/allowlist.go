package websearch

import (
	"net/url"
	"strings"
)

// Allowlist restricts which hosts the pipeline may cite. A single "*" entry
// allows every host.
type Allowlist struct {
	hosts    []string
	allowAll bool
}

// NewAllowlist builds an allowlist from the stored host entries. Entries are
// normalized the same way page hosts are, so "www.Example.com" and
// "example.com" are the same entry.
func NewAllowlist(hosts []string) Allowlist {
	al := Allowlist{}
	for _, h := range hosts {
		h = normalizeHost(h)
		if h == "" {
			continue
		}
		if h == "*" {
			al.allowAll = true
			continue
		}
		al.hosts = append(al.hosts, h)
	}
	return al
}

// Empty reports whether no entries exist at all. An empty allowlist blocks
// everything.
func (al Allowlist) Empty() bool {
	return !al.allowAll && len(al.hosts) == 0
}

// Allows reports whether the page URL's host matches an entry exactly or is a
// subdomain of one.
func (al Allowlist) Allows(pageURL string) bool {
	if al.allowAll {
		return true
	}
	host := hostOf(pageURL)
	if host == "" {
		return false
	}
	for _, h := range al.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Filter returns the pages whose hosts the allowlist admits, preserving
// order.
func (al Allowlist) Filter(pages []Page) []Page {
	out := make([]Page, 0, len(pages))
	for _, p := range pages {
		if al.Allows(p.URL) {
			out = append(out, p)
		}
	}
	return out
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return normalizeHost(u.Hostname())
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	return host
}
