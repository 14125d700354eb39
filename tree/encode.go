package tree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/luma/epp/namespace"
)

// DefaultIndent is used when EncodeOptions.Indent is empty.
const DefaultIndent = "  "

var (
	ErrNoRoot       = errors.New("tree: no root element")
	ErrNestedList   = errors.New("tree: a list cannot directly contain another list")
	ErrInvalidValue = errors.New("tree: unsupported value type")
)

// EncodeOptions controls Encode.
type EncodeOptions struct {
	// Namespaces supplies the prefix bindings used for xmlns declarations.
	// Defaults to namespace.New().
	Namespaces *namespace.Registry

	// Order is the order-spec scope for the root element's children.
	Order *OrderSpec

	// ForcePrefix rewrites unprefixed child tags to carry their parent's
	// prefix, and stops prefixed elements from also declaring a default
	// namespace.
	ForcePrefix bool

	// Indent is the per level indentation. Defaults to DefaultIndent.
	Indent string

	// OmitHeader drops the <?xml ...?> declaration.
	OmitHeader bool
}

type encoder struct {
	enc   *xml.Encoder
	force bool

	// generated prefixes for {URI}local tags
	auto int
}

// Encode serializes the tree rooted at root into XML. root must hold exactly
// one element key, the document element.
func Encode(root *Map, opts EncodeOptions) ([]byte, error) {
	tag, ok := root.RootKey()
	if !ok {
		return nil, ErrNoRoot
	}

	reg := opts.Namespaces
	if reg == nil {
		reg = namespace.New()
	}

	indent := opts.Indent
	if indent == "" {
		indent = DefaultIndent
	}

	var buf bytes.Buffer
	if !opts.OmitHeader {
		buf.WriteString(xml.Header)
	}

	e := &encoder{
		enc:   xml.NewEncoder(&buf),
		force: opts.ForcePrefix,
	}
	e.enc.Indent("", indent)

	value, _ := root.Get(tag)
	if err := e.element(tag, value, elementScope{
		nsmap:    reg.Forward(),
		declared: map[string]bool{},
		order:    opts.Order,
		root:     true,
	}); err != nil {
		return nil, err
	}

	if err := e.enc.Flush(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// elementScope is the serialization context an element inherits from its
// parent.
type elementScope struct {
	nsmap        map[string]string
	declared     map[string]bool
	parentPrefix string

	// order-spec for the children of the element being written
	order *OrderSpec
	root  bool
}

func (e *encoder) element(tag string, v Value, s elementScope) error {
	if l, ok := v.(List); ok {
		for _, item := range l {
			if _, nested := item.(List); nested {
				return fmt.Errorf("%w: %s", ErrNestedList, tag)
			}
			if item == nil {
				continue
			}
			if err := e.element(tag, item, s); err != nil {
				return err
			}
		}
		return nil
	}

	m, isMap := v.(*Map)
	if isMap && len(m.Namespaces) > 0 {
		s.nsmap = withBindings(s.nsmap, m.Namespaces)
	}

	var (
		name  = tag
		attrs []xml.Attr
		child = elementScope{nsmap: s.nsmap, declared: s.declared}
	)

	switch prefix, local := SplitPrefix(tag); {
	case strings.HasPrefix(tag, "{"):
		var decl xml.Attr
		name, decl = e.qualifyClark(tag)
		attrs = append(attrs, decl)

	case prefix != "":
		if s.declared[prefix] {
			break
		}

		uri, ok := s.nsmap[prefix]
		if !ok || uri == "" {
			return &namespace.ConfigError{Prefix: prefix}
		}

		attrs = append(attrs, xmlnsAttr(prefix, uri))
		if !e.force {
			attrs = append(attrs, xmlnsAttr("", uri))
			child.nsmap = withBindings(s.nsmap, map[string]string{"": uri})
		}
		child.declared = withPrefix(s.declared, prefix)

	case s.root:
		if uri := s.nsmap[""]; uri != "" {
			attrs = append(attrs, xmlnsAttr("", uri))
			child.declared = withPrefix(s.declared, "")
		}

	default:
		if e.force && s.parentPrefix != "" {
			name = s.parentPrefix + ":" + local
		}
	}

	child.parentPrefix, _ = SplitPrefix(name)
	if strings.HasPrefix(tag, "{") {
		// generated prefixes are not inherited by unprefixed children
		child.parentPrefix = s.parentPrefix
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}

	if !isMap {
		start.Attr = attrs
		return e.leaf(start, v)
	}

	for _, k := range m.Keys() {
		if !strings.HasPrefix(k, AttrPrefix) {
			continue
		}

		av, _ := m.Get(k)
		if av == nil {
			continue
		}

		attrName := strings.TrimPrefix(k, AttrPrefix)
		if strings.HasPrefix(attrName, "{") {
			var decl xml.Attr
			attrName, decl = e.qualifyClark(attrName)
			attrs = append(attrs, decl)
		} else if prefix, _ := SplitPrefix(attrName); prefix != "" && prefix != "xmlns" && prefix != "xml" && !child.declared[prefix] {
			uri, ok := child.nsmap[prefix]
			if !ok {
				return &namespace.ConfigError{Prefix: prefix}
			}
			attrs = append(attrs, xmlnsAttr(prefix, uri))
			child.declared = withPrefix(child.declared, prefix)
		}

		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: attrName}, Value: textOf(av)})
	}
	start.Attr = attrs

	if err := e.enc.EncodeToken(start); err != nil {
		return err
	}

	if text, ok := m.Get(TextKey); ok && text != nil {
		if err := e.enc.EncodeToken(xml.CharData(textOf(text))); err != nil {
			return err
		}
	}

	for _, k := range orderedKeys(m, s.order) {
		if !IsElementKey(k) {
			continue
		}

		cv, _ := m.Get(k)
		if cv == nil {
			continue
		}

		child.order = s.order.Child(relativeTag(k, child.parentPrefix))
		if err := e.element(k, cv, child); err != nil {
			return err
		}
	}

	return e.enc.EncodeToken(start.End())
}

func (e *encoder) leaf(start xml.StartElement, v Value) error {
	if err := e.enc.EncodeToken(start); err != nil {
		return err
	}

	switch t := v.(type) {
	case string:
		if t != "" {
			if err := e.enc.EncodeToken(xml.CharData(t)); err != nil {
				return err
			}
		}
	case nil:
	default:
		return fmt.Errorf("%w: %T", ErrInvalidValue, v)
	}

	return e.enc.EncodeToken(start.End())
}

// relativeTag is the key an element's order-spec scope is stored under:
// the local name when the element stays in its parent's namespace, the
// qualified name otherwise.
func relativeTag(key, parentPrefix string) string {
	prefix, local := SplitPrefix(key)
	if prefix == "" || prefix == parentPrefix {
		return local
	}
	return key
}

// orderedKeys sorts the keys of m by the local override or the scope
// order. Names missing from the order list sort first, in source order.
func orderedKeys(m *Map, scope *OrderSpec) []string {
	keys := m.Keys()

	order := m.Order
	if len(order) == 0 && scope != nil {
		order = scope.Order
	}
	if len(order) == 0 {
		return keys
	}

	rank := make(map[string]int, len(order))
	for i, name := range order {
		local := LocalName(name)
		if _, ok := rank[local]; !ok {
			rank[local] = i
		}
	}

	rankOf := func(key string) int {
		if r, ok := rank[LocalName(key)]; ok {
			return r
		}
		return -1
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return rankOf(keys[i]) < rankOf(keys[j])
	})

	return keys
}

// qualifyClark rewrites a {URI}local name to a generated prefix and returns
// the declaration binding it.
func (e *encoder) qualifyClark(name string) (string, xml.Attr) {
	uri, local := splitClark(name)
	prefix := fmt.Sprintf("ns%d", e.auto)
	e.auto++

	return prefix + ":" + local, xmlnsAttr(prefix, uri)
}

func xmlnsAttr(prefix, uri string) xml.Attr {
	if prefix == "" {
		return xml.Attr{Name: xml.Name{Local: "xmlns"}, Value: uri}
	}
	return xml.Attr{Name: xml.Name{Local: "xmlns:" + prefix}, Value: uri}
}

func splitClark(tag string) (uri, local string) {
	end := strings.LastIndex(tag, "}")
	if end < 0 {
		return "", tag
	}
	return tag[1:end], tag[end+1:]
}

func withPrefix(set map[string]bool, prefix string) map[string]bool {
	out := make(map[string]bool, len(set)+1)
	for k, v := range set {
		out[k] = v
	}
	out[prefix] = true
	return out
}

func withBindings(nsmap map[string]string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(nsmap)+len(extra))
	for k, v := range nsmap {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func textOf(v Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Text(v)
}
