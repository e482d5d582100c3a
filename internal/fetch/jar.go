package fetch

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stackdown/stackdown/internal/archive"
)

// Cookie is one stored cookie with its expiry and scope. A nil Expires means
// a session cookie that never expires on its own.
type Cookie struct {
	Name     string
	Value    string
	Expires  *time.Time
	Domain   string
	SameSite http.SameSite
}

// Jar holds cookies for the fetch client. Only the Client mutates it; any
// other reader gets a best-effort snapshot. Expired cookies are evicted
// lazily at lookup time.
type Jar struct {
	mu      sync.Mutex
	cookies map[string]Cookie
	clock   archive.Clock
}

// NewJar creates an empty cookie jar.
func NewJar(clock archive.Clock) *Jar {
	return &Jar{
		cookies: make(map[string]Cookie),
		clock:   clock,
	}
}

// Header builds the Cookie header value for a request to host, attaching
// only non-expired cookies whose domain matches, unless the cookie's
// SameSite policy is None. Expired entries are removed as they are seen.
func (j *Jar) Header(host string) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.clock.Now()
	var parts []string
	for name, c := range j.cookies {
		if c.Expires != nil && now.After(*c.Expires) {
			delete(j.cookies, name)
			continue
		}
		if c.SameSite != http.SameSiteNoneMode && !domainMatches(host, c.Domain) {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// SetFromResponse merges Set-Cookie header lines for host into the jar.
// Malformed lines are ignored.
func (j *Jar) SetFromResponse(host string, setCookies []string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.clock.Now()
	for _, line := range setCookies {
		parsed, err := http.ParseSetCookie(line)
		if err != nil {
			continue
		}
		c := Cookie{
			Name:     parsed.Name,
			Value:    parsed.Value,
			Domain:   parsed.Domain,
			SameSite: parsed.SameSite,
		}
		if c.Domain == "" {
			c.Domain = host
		}
		switch {
		case parsed.MaxAge > 0:
			exp := now.Add(time.Duration(parsed.MaxAge) * time.Second)
			c.Expires = &exp
		case parsed.MaxAge < 0:
			delete(j.cookies, c.Name)
			continue
		case !parsed.Expires.IsZero():
			exp := parsed.Expires
			c.Expires = &exp
		}
		j.cookies[c.Name] = c
	}
}

// Clear drops every cookie, forcing a fresh session on the next request.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies = make(map[string]Cookie)
}

// Len reports the number of stored cookies, expired ones included.
func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.cookies)
}

// domainMatches reports whether host falls under the cookie domain, using
// the usual suffix rule for dot-prefixed domains.
func domainMatches(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
