package tree_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/epp/tree"
)

var _ = Describe("Map", func() {
	It("keeps insertion order and positions of overwritten keys", func() {
		m := tree.Of("b", "1", "a", "2")
		m.Set("c", "3")
		m.Set("b", "4")

		Expect(m.Keys()).To(Equal([]string{"b", "a", "c"}))
		Expect(str(m, "b")).To(Equal("4"))
	})

	It("deletes keys", func() {
		m := tree.Of("a", "1", "b", "2", "c", "3")
		m.Delete("b")
		m.Delete("missing")

		Expect(m.Keys()).To(Equal([]string{"a", "c"}))
		Expect(m.Has("b")).To(BeFalse())
	})

	It("converts convenience values", func() {
		m := tree.NewMap()
		m.Set("names", []string{"a.com", "b.com"})
		m.Set("keyTag", 12345)

		Expect(m.GetList("names")).To(Equal(tree.List{"a.com", "b.com"}))
		Expect(str(m, "keyTag")).To(Equal("12345"))
	})

	It("wraps single values in GetList", func() {
		m := tree.Of("status", tree.Of("@s", "ok"))
		Expect(m.GetList("status")).To(HaveLen(1))
		Expect(m.GetList("missing")).To(BeNil())
	})

	It("reads _text through GetString", func() {
		m := tree.Of("msg", tree.Of("@lang", "en", "_text", "Command completed successfully"))
		Expect(str(m, "msg")).To(Equal("Command completed successfully"))
	})

	It("creates and walks paths", func() {
		m := tree.NewMap()
		m.EnsurePath("epp", "command", "login").Set("clID", "registrar")

		v, ok := m.Lookup("epp", "command", "login", "clID")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("registrar"))

		_, ok = m.Lookup("epp", "response")
		Expect(ok).To(BeFalse())
	})

	It("walks into the first element of lists", func() {
		m := tree.Of("result", tree.List{
			tree.Of("@code", "2303"),
			tree.Of("@code", "2400"),
		})

		v, ok := m.Lookup("result", "@code")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("2303"))
	})

	It("deep clones", func() {
		orig := tree.Of("a", tree.Of("b", tree.List{"1", "2"}))
		orig.Order = []string{"a"}

		clone := orig.Clone()
		inner, _ := clone.GetMap("a")
		inner.Set("b", "changed")

		v, _ := orig.Lookup("a", "b")
		Expect(v).To(Equal(tree.List{"1", "2"}))
		Expect(clone.Order).To(Equal([]string{"a"}))
	})

	It("renders ordered JSON", func() {
		m := tree.Of("z", "1", "a", tree.List{"x", tree.Of("@k", "v")})
		b, err := m.MarshalJSON()
		Expect(err).To(Succeed())
		Expect(string(b)).To(Equal(`{"z":"1","a":["x",{"@k":"v"}]}`))
	})

	Describe("names", func() {
		It("splits prefixes", func() {
			p, l := tree.SplitPrefix("domain:name")
			Expect(p).To(Equal("domain"))
			Expect(l).To(Equal("name"))

			p, l = tree.SplitPrefix("{urn:x}name")
			Expect(p).To(BeEmpty())
			Expect(l).To(Equal("{urn:x}name"))
		})

		It("computes local names", func() {
			Expect(tree.LocalName("domain:name")).To(Equal("name"))
			Expect(tree.LocalName("{urn:ietf:params:xml:ns:x}name")).To(Equal("name"))
			Expect(tree.LocalName("name")).To(Equal("name"))
		})

		It("classifies keys", func() {
			Expect(tree.IsElementKey("name")).To(BeTrue())
			Expect(tree.IsElementKey("@op")).To(BeFalse())
			Expect(tree.IsElementKey("_text")).To(BeFalse())
			Expect(tree.IsElementKey("_x")).To(BeTrue())
		})
	})
})

var _ = Describe("OrderSpec", func() {
	It("places a spec at a path", func() {
		spec := tree.At([]string{"command", "login"}, tree.Ordered("clID", "pw"))
		Expect(spec.Child("command").Child("login").Order).To(Equal([]string{"clID", "pw"}))
	})

	It("merges by value", func() {
		base := tree.At([]string{"command"}, tree.Ordered("login", "extension", "clTRID"))
		leaf := tree.At([]string{"command", "login"}, tree.Ordered("clID", "pw"))

		merged := base.Merge(leaf)
		Expect(merged.Child("command").Order).To(Equal([]string{"login", "extension", "clTRID"}))
		Expect(merged.Child("command").Child("login").Order).To(Equal([]string{"clID", "pw"}))

		Expect(base.Child("command").Child("login")).To(BeNil())
	})

	It("falls back to local names for qualified keys", func() {
		spec := (&tree.OrderSpec{}).With("dsData", tree.Ordered("keyTag"))
		Expect(spec.Child("secDNS:dsData")).NotTo(BeNil())
	})
})

var _ = Describe("PathSet", func() {
	It("indexes children of parents", func() {
		s := tree.NewPathSet("epp/response/result", "/epp/response/resData/domain:infData/status/")

		Expect(s.Has("epp/response/result")).To(BeTrue())
		Expect(s.Has("epp/response/resData/domain:infData/status")).To(BeTrue())
		Expect(s.ChildrenOf("epp/response")).To(ConsistOf("result"))
		Expect(s.ChildrenOf("epp/response/resData/domain:infData")).To(ConsistOf("status"))
	})

	It("is safe to use when nil", func() {
		var s *tree.PathSet
		Expect(s.Has("x")).To(BeFalse())
		Expect(s.ChildrenOf("x")).To(BeEmpty())
	})
})

func str(m *tree.Map, key string) string {
	s, _ := m.GetString(key)
	return s
}
