package tree

import "strings"

// OrderSpec declares the required order of child elements, scoped per
// nesting level. Children holds the scopes of nested elements keyed by the
// element key as it appears in the tree (qualified when the child changes
// namespace, local otherwise).
type OrderSpec struct {
	Order    []string
	Children map[string]*OrderSpec
}

// Ordered is shorthand for an OrderSpec with no nested scopes.
func Ordered(names ...string) *OrderSpec {
	return &OrderSpec{Order: names}
}

// With returns a copy of s with a nested scope added under key.
func (s *OrderSpec) With(key string, child *OrderSpec) *OrderSpec {
	out := s.clone()
	if out.Children == nil {
		out.Children = make(map[string]*OrderSpec)
	}
	out.Children[key] = child
	return out
}

// Child returns the scope for the element key. A qualified key falls back
// to its local name.
func (s *OrderSpec) Child(key string) *OrderSpec {
	if s == nil || s.Children == nil {
		return nil
	}
	if c, ok := s.Children[key]; ok {
		return c
	}
	if local := LocalName(key); local != key {
		return s.Children[local]
	}
	return nil
}

// At returns a spec that places s at path, relative to an empty root.
func At(path []string, s *OrderSpec) *OrderSpec {
	if len(path) == 0 {
		return s.clone()
	}
	return (&OrderSpec{}).With(path[0], At(path[1:], s))
}

// Merge composes two specs by value. Scopes present in both are merged
// recursively; a non-empty Order in other replaces the Order of s.
func (s *OrderSpec) Merge(other *OrderSpec) *OrderSpec {
	if s == nil {
		return other.clone()
	}
	if other == nil {
		return s.clone()
	}

	out := s.clone()
	if len(other.Order) > 0 {
		out.Order = append([]string(nil), other.Order...)
	}

	for k, child := range other.Children {
		if out.Children == nil {
			out.Children = make(map[string]*OrderSpec)
		}
		out.Children[k] = out.Children[k].Merge(child)
	}

	return out
}

func (s *OrderSpec) clone() *OrderSpec {
	if s == nil {
		return &OrderSpec{}
	}

	out := &OrderSpec{}
	if s.Order != nil {
		out.Order = append([]string(nil), s.Order...)
	}
	if s.Children != nil {
		out.Children = make(map[string]*OrderSpec, len(s.Children))
		for k, c := range s.Children {
			out.Children[k] = c.clone()
		}
	}
	return out
}

// PathSeparator joins path segments in a PathSet.
const PathSeparator = "/"

// PathSet is a set of fully qualified element paths, such as
// "epp/response/result", whose elements always decode as lists.
type PathSet struct {
	paths    map[string]struct{}
	children map[string][]string
}

// NewPathSet builds a PathSet from slash separated paths.
func NewPathSet(paths ...string) *PathSet {
	s := &PathSet{
		paths:    make(map[string]struct{}, len(paths)),
		children: make(map[string][]string),
	}
	s.Add(paths...)
	return s
}

// Add inserts paths into the set.
func (s *PathSet) Add(paths ...string) {
	for _, p := range paths {
		p = strings.Trim(p, PathSeparator)
		if _, ok := s.paths[p]; ok {
			continue
		}
		s.paths[p] = struct{}{}

		if i := strings.LastIndex(p, PathSeparator); i >= 0 {
			parent := p[:i]
			s.children[parent] = append(s.children[parent], p[i+1:])
		}
	}
}

// Has reports whether path is in the set.
func (s *PathSet) Has(path string) bool {
	if s == nil {
		return false
	}
	_, ok := s.paths[path]
	return ok
}

// ChildrenOf returns the keys of member paths directly under parent.
func (s *PathSet) ChildrenOf(parent string) []string {
	if s == nil {
		return nil
	}
	return s.children[parent]
}

// Paths returns every path in the set.
func (s *PathSet) Paths() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	return out
}

// JoinPath joins path segments with PathSeparator.
func JoinPath(segments ...string) string {
	return strings.Join(segments, PathSeparator)
}
