// Package namespace maps XML namespace prefixes to URIs and back.
//
// Serialization uses the forward map (prefix -> URI) to write xmlns
// declarations. Parsing uses the reverse map (URI -> prefix) to re-attach
// prefixes to namespace qualified tags received from the XML decoder.
package namespace

import (
	"fmt"
	"strings"
)

const (
	XSI = "http://www.w3.org/2001/XMLSchema-instance"

	EPP     = "urn:ietf:params:xml:ns:epp-1.0"
	Domain  = "urn:ietf:params:xml:ns:domain-1.0"
	Host    = "urn:ietf:params:xml:ns:host-1.0"
	Contact = "urn:ietf:params:xml:ns:contact-1.0"

	RGP          = "urn:ietf:params:xml:ns:rgp-1.0"
	SecDNS10     = "urn:ietf:params:xml:ns:secDNS-1.0"
	SecDNS       = "urn:ietf:params:xml:ns:secDNS-1.1"
	NamestoreExt = "http://www.verisign-grs.com/epp/namestoreExt-1.1"
	Launch       = "urn:ietf:params:xml:ns:launch-1.0"
	SignedMark   = "urn:ietf:params:xml:ns:signedMark-1.0"
	Mark         = "urn:ietf:params:xml:ns:mark-1.0"
)

// Binding associates a prefix with a namespace URI. The empty prefix is the
// default namespace.
type Binding struct {
	Prefix string
	URI    string
}

// Base is always present in every Registry.
var Base = []Binding{
	{Prefix: "xsi", URI: XSI},
}

// StandardObjects are the three core EPP object mappings, in the order they
// are advertised during login.
var StandardObjects = []Binding{
	{Prefix: "domain", URI: Domain},
	{Prefix: "host", URI: Host},
	{Prefix: "contact", URI: Contact},
}

// Standard is the binding set every EPP document starts from.
var Standard = concat(
	Base,
	StandardObjects,
	[]Binding{
		{Prefix: "rgp", URI: RGP},
		{Prefix: "", URI: EPP},
		{Prefix: "epp", URI: EPP},
		{Prefix: "secDNS10", URI: SecDNS10},
		{Prefix: "secDNS", URI: SecDNS},
		{Prefix: "namestoreExt", URI: NamestoreExt},
		{Prefix: "launch", URI: Launch},
		{Prefix: "smd", URI: SignedMark},
		{Prefix: "mark", URI: Mark},
	},
)

// ConfigError is returned when a short prefix cannot be expanded because the
// registry has no binding for it.
type ConfigError struct {
	Prefix string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("namespace: unknown prefix %q", e.Prefix)
}

// Registry is an immutable, ordered set of prefix bindings.
type Registry struct {
	// prefixes in first registration order
	prefixes []string
	forward  map[string]string
	reverse  map[string]string
}

// New returns a registry holding Base plus the given bindings.
func New(bindings ...Binding) *Registry {
	r := &Registry{
		forward: make(map[string]string, len(Base)+len(bindings)),
	}

	r.add(Base)
	r.add(bindings)
	r.rebuild()

	return r
}

// NewStandard returns a registry holding the Standard EPP bindings plus extra.
func NewStandard(extra ...Binding) *Registry {
	return New(concat(Standard, extra)...)
}

// With returns a copy of r extended with bindings. A binding for an existing
// prefix replaces its URI.
func (r *Registry) With(bindings ...Binding) *Registry {
	if len(bindings) == 0 {
		return r
	}

	out := &Registry{
		prefixes: append([]string(nil), r.prefixes...),
		forward:  make(map[string]string, len(r.forward)+len(bindings)),
	}

	for prefix, uri := range r.forward {
		out.forward[prefix] = uri
	}

	out.add(bindings)
	out.rebuild()

	return out
}

func (r *Registry) add(bindings []Binding) {
	for _, b := range bindings {
		if _, ok := r.forward[b.Prefix]; !ok {
			r.prefixes = append(r.prefixes, b.Prefix)
		}
		r.forward[b.Prefix] = b.URI
	}
}

// rebuild derives the reverse map. The default prefix never displaces a
// non-empty prefix, and the first non-empty prefix registered for a URI wins.
func (r *Registry) rebuild() {
	r.reverse = make(map[string]string, len(r.forward))

	for _, prefix := range r.prefixes {
		uri := r.forward[prefix]

		existing, ok := r.reverse[uri]
		switch {
		case !ok:
			r.reverse[uri] = prefix
		case existing == "" && prefix != "":
			r.reverse[uri] = prefix
		}
	}
}

// URI returns the namespace bound to prefix.
func (r *Registry) URI(prefix string) (string, bool) {
	uri, ok := r.forward[prefix]
	return uri, ok
}

// Prefix returns the preferred prefix for uri.
func (r *Registry) Prefix(uri string) (string, bool) {
	prefix, ok := r.reverse[uri]
	return prefix, ok
}

// Resolve expands a short prefix such as "host" into its URI. Values that
// already look like URIs (they contain a colon) are returned unchanged.
func (r *Registry) Resolve(nameOrURI string) (string, error) {
	if strings.Contains(nameOrURI, ":") {
		return nameOrURI, nil
	}

	uri, ok := r.forward[nameOrURI]
	if !ok {
		return "", &ConfigError{Prefix: nameOrURI}
	}

	return uri, nil
}

// Forward returns a copy of the prefix -> URI map.
func (r *Registry) Forward() map[string]string {
	out := make(map[string]string, len(r.forward))
	for k, v := range r.forward {
		out[k] = v
	}
	return out
}

// Reverse returns a copy of the URI -> prefix map.
func (r *Registry) Reverse() map[string]string {
	out := make(map[string]string, len(r.reverse))
	for k, v := range r.reverse {
		out[k] = v
	}
	return out
}

// Bindings returns the bindings in registration order.
func (r *Registry) Bindings() []Binding {
	out := make([]Binding, 0, len(r.prefixes))
	for _, prefix := range r.prefixes {
		out = append(out, Binding{Prefix: prefix, URI: r.forward[prefix]})
	}
	return out
}

func concat(sets ...[]Binding) []Binding {
	var out []Binding
	for _, set := range sets {
		out = append(out, set...)
	}
	return out
}
