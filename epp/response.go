package epp

import (
	"strings"

	"github.com/luma/epp/namespace"
	"github.com/luma/epp/tree"
)

// DefaultPrefix is the prefix implied for the <epp> envelope when parsing.
const DefaultPrefix = "epp"

// NoCode is reported by Response.Code when the response carries no result.
const NoCode = "0000"

// Response is a parsed <epp><response>.
type Response struct {
	*Document
}

// ParseResponse decodes a response frame.
func ParseResponse(data []byte, extra ...namespace.Binding) (*Response, error) {
	doc, err := parse(ResponseKind, data, extra)
	if err != nil {
		return nil, err
	}
	return &Response{Document: doc}, nil
}

// NewResponse wraps a pre-built response tree.
func NewResponse(root *tree.Map, extra ...namespace.Binding) *Response {
	return &Response{Document: FromTree(ResponseKind, root, extra...)}
}

func parse(kind *Kind, data []byte, extra []namespace.Binding) (*Document, error) {
	ns := namespace.NewStandard(kind.Namespaces...)
	if len(extra) > 0 {
		ns = ns.With(extra...)
	}

	root, err := tree.Decode(data, tree.DecodeOptions{
		Namespaces:    ns,
		DefaultPrefix: DefaultPrefix,
		MultiNodes:    kind.MultiNodes,
	})
	if err != nil {
		return nil, err
	}

	return &Document{kind: kind, root: root, ns: ns}, nil
}

// StripHints removes decode bookkeeping (order trails and schema locations)
// from the response tree.
func (r *Response) StripHints() {
	tree.StripHints(r.root)
}

// Results returns every <result> entry.
func (r *Response) Results() []*tree.Map {
	v, _ := r.Get("result")

	var out []*tree.Map
	for _, item := range tree.AsList(v) {
		if m, ok := item.(*tree.Map); ok {
			out = append(out, m)
		}
	}
	return out
}

// FirstResult returns the first <result>, or nil.
func (r *Response) FirstResult() *tree.Map {
	results := r.Results()
	if len(results) == 0 {
		return nil
	}
	return results[0]
}

// Code is the result code of the first result, or NoCode.
func (r *Response) Code() string {
	res := r.FirstResult()
	if res == nil {
		return NoCode
	}
	if code, ok := res.GetString("@code"); ok {
		return code
	}
	return NoCode
}

// OK reports code 1000.
func (r *Response) OK() bool {
	return r.Code() == CodeOK
}

// Pending reports code 1001.
func (r *Response) Pending() bool {
	return r.Code() == CodeOKPending
}

// Success reports codes 1000 and 1001.
func (r *Response) Success() bool {
	return r.OK() || r.Pending()
}

// Msg is the human readable message of the first result followed by any
// <value> and <extValue> reasons the server attached, joined with "; ".
func (r *Response) Msg() string {
	res := r.FirstResult()
	if res == nil {
		return ""
	}

	var parts []string

	msg, _ := res.Get("msg")
	if s := tree.Text(msg); s != "" {
		parts = append(parts, s)
	}

	for _, v := range res.GetList("value") {
		if s := valueText(v); s != "" {
			parts = append(parts, s)
		}
	}

	for _, v := range res.GetList("extValue") {
		m, ok := v.(*tree.Map)
		if !ok {
			continue
		}
		reason, _ := m.Get("reason")
		if s := tree.Text(reason); s != "" {
			parts = append(parts, s)
		}
	}

	return strings.Join(parts, "; ")
}

// valueText flattens a <value> entry. Servers put arbitrary elements in
// there, e.g. {urn:afilias:params:xml:ns:oxrs-1.1}xcp.
func valueText(v tree.Value) string {
	m, ok := v.(*tree.Map)
	if !ok {
		return tree.Text(v)
	}

	var texts []string
	for _, k := range m.Keys() {
		if !tree.IsElementKey(k) {
			continue
		}
		child, _ := m.Get(k)
		if s := tree.Text(child); s != "" {
			texts = append(texts, s)
		}
	}
	return strings.Join(texts, ", ")
}

// ResData returns <resData>, or nil.
func (r *Response) ResData() *tree.Map {
	m, _ := r.GetMap("resData")
	return m
}

// Extension returns the response extension stored under key, e.g.
// "rgp:infData".
func (r *Response) Extension(key string) (tree.Value, bool) {
	return r.Get("extension", key)
}

// MsgQ returns <msgQ>, or nil.
func (r *Response) MsgQ() *tree.Map {
	m, _ := r.GetMap("msgQ")
	return m
}

// ClTRID returns the echoed client transaction id.
func (r *Response) ClTRID() string {
	return r.GetString("trID", "clTRID")
}

// SvTRID returns the server transaction id.
func (r *Response) SvTRID() string {
	return r.GetString("trID", "svTRID")
}
