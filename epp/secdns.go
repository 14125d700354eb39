package epp

import (
	"errors"
	"fmt"
	"sort"

	"github.com/luma/epp/tree"
)

// secDNS record types.
const (
	SecDNSDS         = "ds"
	SecDNSKey        = "key"
	SecDNSMaxSigLife = "maxSigLife"
	SecDNSAll        = "all"
)

var ErrInvalidSecDNSRecord = errors.New("invalid secDNS record")

var (
	dsFields  = []string{"keyTag", "alg", "digestType", "digest"}
	keyFields = []string{"flags", "protocol", "alg", "pubKey"}
)

// SecDNSRecord is one entry of a secDNS update action.
type SecDNSRecord struct {
	// Type is one of SecDNSDS, SecDNSKey ("keyData" is accepted too),
	// SecDNSMaxSigLife or SecDNSAll.
	Type string

	// Fields holds the record fields of ds and key records, without
	// prefix, e.g. "keyTag".
	Fields map[string]interface{}

	// Value is the scalar of maxSigLife and all records.
	Value string
}

// AddSecDNS attaches a secDNS-1.1 <update> extension built from a mapping of
// action ("add", "rem", "chg") to records. Records of one action that end up
// with the same element name are grouped, a single record stays a scalar.
func (d *Document) AddSecDNS(update map[string][]SecDNSRecord) error {
	ext, err := BuildSecDNSUpdate(update)
	if err != nil {
		return err
	}

	d.AddExtension("secDNS:update", ext)
	return nil
}

// BuildSecDNSUpdate returns the content of a <secDNS:update> element.
func BuildSecDNSUpdate(update map[string][]SecDNSRecord) (*tree.Map, error) {
	actions := make([]string, 0, len(update))
	for action := range update {
		actions = append(actions, action)
	}
	sort.Strings(actions)

	out := tree.NewMap()
	for _, action := range actions {
		switch action {
		case "add", "rem", "chg":
		default:
			return nil, fmt.Errorf("action %q: %w", action, ErrInvalidSecDNSRecord)
		}

		group := tree.NewMap()
		for _, rec := range update[action] {
			key, value, err := rec.element()
			if err != nil {
				return nil, err
			}

			existing, ok := group.Get(key)
			switch {
			case !ok:
				group.Set(key, value)
			case isList(existing):
				group.Set(key, append(existing.(tree.List), value))
			default:
				group.Set(key, tree.List{existing, value})
			}
		}

		out.Set("secDNS:"+action, group)
	}

	return out, nil
}

func (r SecDNSRecord) element() (string, tree.Value, error) {
	switch r.Type {
	case SecDNSDS:
		return "secDNS:dsData", r.record(dsFields), nil
	case SecDNSKey, "keyData":
		return "secDNS:keyData", r.record(keyFields), nil
	case SecDNSMaxSigLife:
		return "secDNS:maxSigLife", r.Value, nil
	case SecDNSAll:
		value := r.Value
		if value == "" {
			value = "true"
		}
		return "secDNS:all", value, nil
	}

	return "", nil, fmt.Errorf("record type %q: %w", r.Type, ErrInvalidSecDNSRecord)
}

// record lays the fields out in order, unknown fields last in name order.
func (r SecDNSRecord) record(order []string) *tree.Map {
	m := tree.NewMap()

	known := map[string]bool{}
	for _, name := range order {
		known[name] = true
		if v, ok := r.Fields[name]; ok {
			m.Set("secDNS:"+name, v)
		}
	}

	var rest []string
	for name := range r.Fields {
		if !known[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		m.Set("secDNS:"+name, r.Fields[name])
	}

	m.Order = append(append([]string(nil), order...), rest...)
	return m
}

func isList(v tree.Value) bool {
	_, ok := v.(tree.List)
	return ok
}
