package config

import "strings"

// Delim separates path segments in the underlying store. Dots are left alone
// so host names such as db1.example.com stay a single segment.
const Delim = "/"

// Well-known scope roots.
const (
	HostsKey    = "hosts"
	ServicesKey = "services"
)

// Path addresses a value in the store as successive key segments.
type Path []string

// ParsePath splits a Delim separated string into a Path, dropping empty segments.
func ParsePath(s string) Path {
	var p Path
	for _, seg := range strings.Split(s, Delim) {
		if seg != "" {
			p = append(p, seg)
		}
	}
	return p
}

// String joins the segments with Delim.
func (p Path) String() string {
	return strings.Join(p, Delim)
}

// Leaf returns the last segment, or "" for an empty path.
func (p Path) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Append returns a new path with the segments added.
func (p Path) Append(segments ...string) Path {
	out := make(Path, 0, len(p)+len(segments))
	out = append(out, p...)
	return append(out, segments...)
}

// HostPath builds hosts/<host>/<key...>.
func HostPath(host string, key ...string) Path {
	return Path{HostsKey, host}.Append(key...)
}

// ServicePath builds services/<service>/<key...>.
func ServicePath(service string, key ...string) Path {
	return Path{ServicesKey, service}.Append(key...)
}

// Scope selects the host and service a Lookup resolves against. Empty fields
// skip that level.
type Scope struct {
	Host    string
	Service string
}

// candidates lists the paths checked for key, most specific first.
func (s Scope) candidates(key Path) []Path {
	var out []Path
	if s.Service != "" {
		out = append(out, ServicePath(s.Service, key...))
	}
	if s.Host != "" {
		out = append(out, HostPath(s.Host, key...))
	}
	return append(out, key)
}
