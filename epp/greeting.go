package epp

import (
	"errors"

	"github.com/luma/epp/namespace"
	"github.com/luma/epp/tree"
)

var ErrNotGreeting = errors.New("document is not a greeting")

// Greeting is the frame a server sends right after the connection opens.
type Greeting struct {
	*Document
}

// ParseGreeting decodes a greeting frame.
func ParseGreeting(data []byte, extra ...namespace.Binding) (*Greeting, error) {
	doc, err := parse(GreetingKind, data, extra)
	if err != nil {
		return nil, err
	}

	if _, ok := doc.root.LookupMap("epp", "greeting"); !ok {
		return nil, ErrNotGreeting
	}

	tree.StripHints(doc.root)
	return &Greeting{Document: doc}, nil
}

// ServerID is the <svID> of the server.
func (g *Greeting) ServerID() string {
	return g.GetString("svID")
}

// ServerDate is the <svDate> as sent.
func (g *Greeting) ServerDate() string {
	return g.GetString("svDate")
}

// Versions lists the protocol versions on offer.
func (g *Greeting) Versions() []string {
	return g.texts("svcMenu", "version")
}

// Languages lists the languages on offer.
func (g *Greeting) Languages() []string {
	return g.texts("svcMenu", "lang")
}

// ObjectURIs lists the object namespaces the server supports.
func (g *Greeting) ObjectURIs() []string {
	return g.texts("svcMenu", "objURI")
}

// ExtensionURIs lists the extension namespaces the server supports.
func (g *Greeting) ExtensionURIs() []string {
	return g.texts("svcMenu", "svcExtension", "extURI")
}

func (g *Greeting) texts(path ...string) []string {
	v, _ := g.Get(path...)

	var out []string
	for _, item := range tree.AsList(v) {
		out = append(out, tree.Text(item))
	}
	return out
}
