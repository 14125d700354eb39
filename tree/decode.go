package tree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/luma/epp/namespace"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// SchemaLocationKey is the attribute key StripHints removes.
const SchemaLocationKey = "@xsi:schemaLocation"

var (
	ErrEmptyDocument    = errors.New("no root element")
	ErrTrailingElement  = errors.New("element after document end")
	ErrTextOutsideRoot  = errors.New("character data outside root element")
	ErrUnbalancedEndTag = errors.New("unbalanced end tag")
)

// ParseError reports malformed XML.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tree: malformed XML: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DecodeOptions controls Decode.
type DecodeOptions struct {
	// Namespaces supplies the reverse map used to turn namespace URIs back
	// into prefixes. Defaults to namespace.New().
	Namespaces *namespace.Registry

	// DefaultPrefix is the prefix considered implicit for the root element.
	DefaultPrefix string

	// MultiNodes lists paths that always decode as lists.
	MultiNodes *PathSet
}

type element struct {
	space    string
	local    string
	attrs    []xml.Attr
	children []*element
	text     strings.Builder
}

type decoder struct {
	reverse map[string]string
	multi   *PathSet
}

// Decode parses XML into a tree. The returned map holds a single key, the
// qualified name of the document element.
func Decode(data []byte, opts DecodeOptions) (*Map, error) {
	root, err := parse(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	reg := opts.Namespaces
	if reg == nil {
		reg = namespace.New()
	}

	d := decoder{
		reverse: reg.Reverse(),
		multi:   opts.MultiNodes,
	}

	tag, prefix := d.qualify(root, opts.DefaultPrefix)

	out := NewMap()
	out.Set(tag, d.convert(root, prefix, tag))

	return out, nil
}

func parse(data []byte) (*element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		stack  []*element
		root   *element
		closed bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if closed {
				return nil, fmt.Errorf("%w: %s", ErrTrailingElement, t.Name.Local)
			}

			el := &element{
				space: t.Name.Space,
				local: t.Name.Local,
				attrs: append([]xml.Attr(nil), t.Attr...),
			}

			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			} else {
				root = el
			}
			stack = append(stack, el)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, ErrUnbalancedEndTag
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				closed = true
			}

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, ErrTextOutsideRoot
				}
				continue
			}
			stack[len(stack)-1].text.Write(t)
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	if !closed {
		return nil, io.ErrUnexpectedEOF
	}

	return root, nil
}

// qualify computes the key for el. The prefix is dropped when it matches
// the prefix inherited from the parent, and the new inherited prefix is
// returned. Unknown namespaces keep the {URI}local form.
func (d *decoder) qualify(el *element, inherited string) (string, string) {
	if el.space == "" {
		return el.local, inherited
	}

	prefix, ok := d.reverse[el.space]
	if !ok {
		return "{" + el.space + "}" + el.local, inherited
	}

	if prefix == inherited || prefix == "" {
		return el.local, prefix
	}

	return prefix + ":" + el.local, prefix
}

func (d *decoder) attrName(a xml.Attr) (string, bool) {
	switch {
	case a.Name.Space == "" && a.Name.Local == "xmlns":
		return "", false
	case a.Name.Space == "xmlns":
		return "", false
	case a.Name.Space == "":
		return a.Name.Local, true
	case a.Name.Space == xmlNamespace:
		return "xml:" + a.Name.Local, true
	}

	if prefix, ok := d.reverse[a.Name.Space]; ok && prefix != "" {
		return prefix + ":" + a.Name.Local, true
	}

	return "{" + a.Name.Space + "}" + a.Name.Local, true
}

func (d *decoder) convert(el *element, inherited, path string) Value {
	m := NewMap()

	for _, a := range el.attrs {
		if name, ok := d.attrName(a); ok {
			m.Set(AttrPrefix+name, a.Value)
		}
	}

	var order []string
	for _, c := range el.children {
		tag, prefix := d.qualify(c, inherited)
		childPath := path + PathSeparator + tag
		item := d.convert(c, prefix, childPath)

		if existing, ok := m.values[tag]; ok {
			if l, isList := existing.(List); isList {
				m.values[tag] = append(l, item)
			} else {
				m.values[tag] = List{existing, item}
			}
			continue
		}

		order = append(order, tag)
		if d.multi.Has(childPath) {
			m.Set(tag, List{item})
		} else {
			m.Set(tag, item)
		}
	}

	for _, key := range d.multi.ChildrenOf(path) {
		if !m.Has(key) {
			m.Set(key, List{})
		}
	}

	text := strings.TrimSpace(el.text.String())
	if m.Len() == 0 {
		return text
	}

	if text != "" {
		m.Set(TextKey, text)
	}
	if len(order) > 0 {
		m.Order = order
	}

	return m
}

// StripHints removes decode bookkeeping from the tree rooted at v: Order
// trails and xsi:schemaLocation attributes.
func StripHints(v Value) {
	stack := []Value{v}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch t := cur.(type) {
		case *Map:
			t.Order = nil
			t.Delete(SchemaLocationKey)
			for _, k := range t.keys {
				stack = append(stack, t.values[k])
			}
		case List:
			for _, item := range t {
				stack = append(stack, item)
			}
		}
	}
}
