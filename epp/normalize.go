package epp

import "github.com/luma/epp/tree"

// normalizeContactInfo makes <voice> and <fax> always maps, since the x
// attribute is optional.
func normalizeContactInfo(r *Response) {
	data, ok := r.ResData().GetMap("contact:infData")
	if !ok {
		return
	}

	for _, key := range []string{"voice", "fax"} {
		if v, ok := data.Get(key); ok {
			if s, isText := v.(string); isText {
				data.Set(key, tree.Of(tree.TextKey, s))
			}
		}
	}
}

// normalizeHostInfo makes every <addr> entry a map, since the ip attribute
// is optional.
func normalizeHostInfo(r *Response) {
	data, ok := r.ResData().GetMap("host:infData")
	if !ok {
		return
	}

	v, ok := data.Get("addr")
	if !ok {
		return
	}

	addrs := tree.AsList(v)
	for i, addr := range addrs {
		if s, isText := addr.(string); isText {
			addrs[i] = tree.Of(tree.TextKey, s)
		}
	}

	if _, isList := v.(tree.List); isList {
		return
	}
	data.Set("addr", addrs)
}
