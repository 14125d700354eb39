package epp

import (
	"sort"

	"github.com/luma/epp/namespace"
	"github.com/luma/epp/tree"
)

// Kind describes one command or response shape: where its focus node sits
// inside the <epp> envelope, the child order the wire format mandates and
// how responses to it are cleaned up.
type Kind struct {
	Name string

	// Path locates the focus node, starting at "epp".
	Path []string

	// Order is the order-spec scope for the children of <epp>.
	Order *tree.OrderSpec

	// Namespaces are added on top of namespace.Standard.
	Namespaces []namespace.Binding

	// MultiNodes are the paths that always parse as lists.
	MultiNodes *tree.PathSet

	// RequiresTRID marks state changing commands, which get a clTRID at
	// send time if they lack one.
	RequiresTRID bool

	// Normalize, when set, reshapes a parsed response to this command.
	Normalize func(*Response)
}

// IsCommand reports whether documents of this kind live under
// <epp><command>.
func (k *Kind) IsCommand() bool {
	return len(k.Path) >= 2 && k.Path[1] == "command"
}

// Anchor is the last element of Path.
func (k *Kind) Anchor() string {
	return k.Path[len(k.Path)-1]
}

var kinds = map[string]*Kind{}

func register(k *Kind) *Kind {
	if _, dup := kinds[k.Name]; dup {
		panic("epp: duplicate kind " + k.Name)
	}
	kinds[k.Name] = k
	return k
}

// Lookup returns the kind registered under name, e.g. "create-domain".
func Lookup(name string) (*Kind, bool) {
	k, ok := kinds[name]
	return k, ok
}

// KindNames lists every registered kind, sorted.
func KindNames() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	commandOrder = tree.At([]string{"command"}, tree.Ordered(
		"login", "logout", "check", "info", "create", "delete",
		"renew", "transfer", "update", "poll", "extension", "clTRID",
	).With("extension", (&tree.OrderSpec{}).
		With("secDNS:update", tree.Ordered("rem", "add", "chg")),
	))

	postalInfoOrder = tree.Ordered("name", "org", "addr").
			With("addr", tree.Ordered("street", "city", "sp", "pc", "cc"))

	discloseOrder = tree.Ordered("name", "org", "addr", "voice", "fax", "email")

	domainNSOrder = tree.Ordered("hostObj", "hostAttr").
			With("hostAttr", tree.Ordered("hostName", "hostAddr"))
)

func command(name string, trid bool, leaf *tree.OrderSpec, sub ...string) *Kind {
	path := append([]string{"epp", "command"}, sub...)

	return register(&Kind{
		Name:         name,
		Path:         path,
		Order:        commandOrder.Merge(tree.At(path[1:], leaf)),
		RequiresTRID: trid,
	})
}

var (
	Hello = register(&Kind{Name: "hello", Path: []string{"epp", "hello"}})

	Login = command("login", true, tree.Ordered("clID", "pw", "newPW", "options", "svcs").
		With("options", tree.Ordered("version", "lang")).
		With("svcs", tree.Ordered("objURI", "svcExtension")), "login")

	Logout = command("logout", false, nil, "logout")

	CheckDomain  = command("check-domain", false, nil, "check", "domain:check")
	CheckContact = command("check-contact", false, nil, "check", "contact:check")
	CheckHost    = command("check-host", false, nil, "check", "host:check")

	InfoDomain  = command("info-domain", false, tree.Ordered("name", "authInfo"), "info", "domain:info")
	InfoContact = command("info-contact", false, tree.Ordered("id", "authInfo"), "info", "contact:info")
	InfoHost    = command("info-host", false, nil, "info", "host:info")

	CreateDomain = command("create-domain", true,
		tree.Ordered("name", "period", "ns", "registrant", "contact", "authInfo").
			With("ns", domainNSOrder),
		"create", "domain:create")

	CreateContact = command("create-contact", true,
		tree.Ordered("id", "postalInfo", "voice", "fax", "email", "authInfo", "disclose").
			With("postalInfo", postalInfoOrder).
			With("disclose", discloseOrder),
		"create", "contact:create")

	CreateHost = command("create-host", true, tree.Ordered("name", "addr"), "create", "host:create")

	UpdateDomain = command("update-domain", true,
		tree.Ordered("name", "add", "rem", "chg").
			With("add", tree.Ordered("ns", "contact", "status").With("ns", domainNSOrder)).
			With("rem", tree.Ordered("ns", "contact", "status").With("ns", domainNSOrder)).
			With("chg", tree.Ordered("registrant", "authInfo")),
		"update", "domain:update")

	UpdateContact = command("update-contact", true,
		tree.Ordered("id", "add", "rem", "chg").
			With("chg", tree.Ordered("postalInfo", "voice", "fax", "email", "authInfo", "disclose").
				With("postalInfo", postalInfoOrder).
				With("disclose", discloseOrder)),
		"update", "contact:update")

	UpdateHost = command("update-host", true,
		tree.Ordered("name", "add", "rem", "chg").
			With("add", tree.Ordered("addr", "status")).
			With("rem", tree.Ordered("addr", "status")),
		"update", "host:update")

	RenewDomain = command("renew-domain", true, tree.Ordered("name", "curExpDate", "period"), "renew", "domain:renew")

	TransferDomain = command("transfer-domain", true, tree.Ordered("name", "period", "authInfo"), "transfer", "domain:transfer")

	TransferContact = command("transfer-contact", true, tree.Ordered("id", "period", "authInfo"), "transfer", "contact:transfer")

	DeleteDomain  = command("delete-domain", true, nil, "delete", "domain:delete")
	DeleteContact = command("delete-contact", true, nil, "delete", "contact:delete")
	DeleteHost    = command("delete-host", true, nil, "delete", "host:delete")

	Poll = command("poll", false, nil, "poll")

	ResponseKind = register(&Kind{
		Name: "response",
		Path: []string{"epp", "response"},
		Order: tree.At([]string{"response"}, tree.Ordered("result", "msgQ", "resData", "extension", "trID").
			With("result", tree.Ordered("msg", "value", "extValue")).
			With("msgQ", tree.Ordered("qDate", "msg")).
			With("trID", tree.Ordered("clTRID", "svTRID"))),
		MultiNodes: tree.NewPathSet(
			"epp/response/result",
			"epp/response/result/value",
			"epp/response/result/extValue",
			"epp/response/resData/domain:infData/status",
			"epp/response/resData/domain:infData/contact",
			"epp/response/resData/domain:infData/ns/hostObj",
			"epp/response/resData/domain:infData/ns/hostAttr",
			"epp/response/resData/domain:infData/ns/hostAttr/hostAddr",
			"epp/response/resData/domain:infData/host",
			"epp/response/resData/domain:chkData/cd",
			"epp/response/resData/host:infData/status",
			"epp/response/resData/host:infData/addr",
			"epp/response/resData/host:chkData/cd",
			"epp/response/resData/contact:infData/status",
			"epp/response/resData/contact:infData/postalInfo",
			"epp/response/resData/contact:infData/postalInfo/addr/street",
			"epp/response/resData/contact:chkData/cd",
			"epp/response/extension/launch:chkData/cd",
			"epp/response/extension/rgp:infData/rgpStatus",
			"epp/response/extension/secDNS:infData/dsData",
			"epp/response/extension/secDNS:infData/keyData",
		),
	})

	GreetingKind = register(&Kind{
		Name: "greeting",
		Path: []string{"epp", "greeting"},
		Order: tree.At([]string{"greeting"}, tree.Ordered("svID", "svDate", "svcMenu", "dcp").
			With("svcMenu", tree.Ordered("version", "lang", "objURI", "svcExtension"))),
		MultiNodes: tree.NewPathSet(
			"epp/greeting/svcMenu/version",
			"epp/greeting/svcMenu/lang",
			"epp/greeting/svcMenu/objURI",
			"epp/greeting/svcMenu/svcExtension/extURI",
		),
	})
)

func init() {
	InfoContact.Normalize = normalizeContactInfo
	InfoHost.Normalize = normalizeHostInfo
}
