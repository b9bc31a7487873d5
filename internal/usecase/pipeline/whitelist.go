package pipeline

import "strings"

// Whitelist is the domain predicate consulted before fingerprinting.
// An empty list allows everything.
type Whitelist struct {
	domains []string
}

func NewWhitelist(domains []string) *Whitelist {
	w := &Whitelist{}

	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			w.domains = append(w.domains, d)
		}
	}

	return w
}

// IsAllowed matches the host exactly or as a subdomain of an allowed domain,
// case-insensitively.
func (w *Whitelist) IsAllowed(host string) bool {
	if len(w.domains) == 0 {
		return true
	}

	host = strings.ToLower(host)

	for _, d := range w.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}

	return false
}
