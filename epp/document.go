// Package epp models EPP commands and responses as trees of kind-tagged
// documents.
package epp

import (
	"github.com/luma/epp/namespace"
	"github.com/luma/epp/tree"
)

// Document is an EPP message: a tree rooted at <epp> together with the Kind
// describing it. Reads and writes through Get and Set are relative to the
// kind's focus node, e.g. epp/command/login.
type Document struct {
	kind *Kind
	root *tree.Map
	ns   *namespace.Registry
}

// New returns the empty skeleton of kind.
func New(kind *Kind, extra ...namespace.Binding) *Document {
	root := tree.NewMap()
	root.EnsurePath(kind.Path...)

	return FromTree(kind, root, extra...)
}

// FromTree wraps a pre-built tree. root must hold the "epp" element.
func FromTree(kind *Kind, root *tree.Map, extra ...namespace.Binding) *Document {
	ns := namespace.NewStandard(kind.Namespaces...)
	if len(extra) > 0 {
		ns = ns.With(extra...)
	}

	return &Document{kind: kind, root: root, ns: ns}
}

// Kind returns the shape of d.
func (d *Document) Kind() *Kind {
	return d.kind
}

// Tree returns the whole tree, starting above the "epp" element.
func (d *Document) Tree() *tree.Map {
	return d.root
}

// Namespaces returns the bindings d is encoded with.
func (d *Document) Namespaces() *namespace.Registry {
	return d.ns
}

// Focus returns the node at the kind's path, creating it if needed.
func (d *Document) Focus() *tree.Map {
	return d.root.EnsurePath(d.kind.Path...)
}

// Get reads path relative to the focus node. It never modifies the tree.
func (d *Document) Get(path ...string) (tree.Value, bool) {
	full := append(append([]string(nil), d.kind.Path...), path...)
	return d.root.Lookup(full...)
}

// GetMap is Get constrained to a map result.
func (d *Document) GetMap(path ...string) (*tree.Map, bool) {
	v, ok := d.Get(path...)
	if !ok {
		return nil, false
	}
	m, ok := v.(*tree.Map)
	return m, ok
}

// GetString reads the text at path relative to the focus node.
func (d *Document) GetString(path ...string) string {
	v, _ := d.Get(path...)
	return tree.Text(v)
}

// Set stores v at path relative to the focus node, creating intermediate
// maps.
func (d *Document) Set(v tree.Value, path ...string) {
	if len(path) == 0 {
		return
	}
	parent := d.Focus().EnsurePath(path[:len(path)-1]...)
	parent.Set(path[len(path)-1], v)
}

// Command returns the <command> node, or nil if d is not a command.
func (d *Document) Command() *tree.Map {
	if !d.kind.IsCommand() {
		return nil
	}
	return d.root.EnsurePath("epp", "command")
}

// ClTRID returns the client transaction id of a command.
func (d *Document) ClTRID() string {
	cmd := d.Command()
	if cmd == nil {
		return ""
	}
	id, _ := cmd.GetString("clTRID")
	return id
}

// SetClTRID stores id as the client transaction id of a command.
func (d *Document) SetClTRID(id string) {
	if cmd := d.Command(); cmd != nil {
		cmd.Set("clTRID", id)
	}
}

// EnsureClTRID assigns a transaction id from next when the kind requires
// one and none is present. It returns the id in effect.
func (d *Document) EnsureClTRID(next func() string) string {
	if id := d.ClTRID(); id != "" || !d.kind.RequiresTRID {
		return id
	}

	id := next()
	d.SetClTRID(id)
	return id
}

// AddExtension stores v under key in the command's <extension> element.
func (d *Document) AddExtension(key string, v tree.Value) {
	if cmd := d.Command(); cmd != nil {
		cmd.Ensure("extension").Set(key, v)
	}
}

// SetNamestoreProduct adds the Verisign namestore extension selecting the
// registry sub product, e.g. "dotCOM".
func (d *Document) SetNamestoreProduct(product string) {
	d.AddExtension("namestoreExt:namestoreExt", tree.Of("namestoreExt:subProduct", product))
}

// Encode serializes d to XML.
func (d *Document) Encode(forcePrefix bool) ([]byte, error) {
	return tree.Encode(d.root, tree.EncodeOptions{
		Namespaces:  d.ns,
		Order:       d.kind.Order,
		ForcePrefix: forcePrefix,
	})
}

// String renders d as XML without forced prefixes.
func (d *Document) String() string {
	b, err := d.Encode(false)
	if err != nil {
		return "<!-- " + err.Error() + " -->"
	}
	return string(b)
}

// NormalizeResponse applies the kind's clean up to a response.
func (d *Document) NormalizeResponse(r *Response) {
	if d.kind.Normalize != nil && r != nil {
		d.kind.Normalize(r)
	}
}
