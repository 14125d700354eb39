package epp

import (
	"errors"
	"fmt"

	"github.com/luma/epp/namespace"
	"github.com/luma/epp/tree"
)

var (
	ErrInvalidTransferOp = errors.New("invalid transfer op")
	ErrInvalidPollOp     = errors.New("invalid poll op")
	ErrNotCheckKind      = errors.New("kind is not a check command")
	ErrNotInfoKind       = errors.New("kind is not an info command")
	ErrNotTransferKind   = errors.New("kind is not a transfer command")
	ErrUnknownCommand    = errors.New("document matches no known command")
)

// Transfer operations.
const (
	TransferRequest = "request"
	TransferQuery   = "query"
	TransferApprove = "approve"
	TransferReject  = "reject"
	TransferCancel  = "cancel"
)

// Poll operations.
const (
	PollRequest     = "req"
	PollAcknowledge = "ack"
)

// LoginOptions configures NewLogin.
type LoginOptions struct {
	ClientID    string
	Password    string
	NewPassword string

	// ObjectURIs replaces the three standard object URIs.
	ObjectURIs []string

	// ExtraObjectURIs and ExtraExtensionURIs are appended to the service
	// list. Entries without a colon are short prefixes such as "host" and
	// are expanded through the namespace registry.
	ExtraObjectURIs    []string
	ExtraExtensionURIs []string

	ClTRID string
}

// NewLogin builds a login command with the default options (version 1.0,
// lang en) and service list. Duplicate URIs are dropped.
func NewLogin(opts LoginOptions) (*Document, error) {
	doc := New(Login)
	login := doc.Focus()

	login.Set("clID", opts.ClientID)
	login.Set("pw", opts.Password)
	if opts.NewPassword != "" {
		login.Set("newPW", opts.NewPassword)
	}

	login.Set("options", tree.Of("version", "1.0", "lang", "en"))

	objURIs := opts.ObjectURIs
	if len(objURIs) == 0 {
		for _, b := range namespace.StandardObjects {
			objURIs = append(objURIs, b.URI)
		}
	}

	seen := map[string]bool{}
	var objects []string
	for _, uri := range objURIs {
		if !seen[uri] {
			seen[uri] = true
			objects = append(objects, uri)
		}
	}

	for _, name := range opts.ExtraObjectURIs {
		uri, err := doc.ns.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("login object URI: %w", err)
		}
		if !seen[uri] {
			seen[uri] = true
			objects = append(objects, uri)
		}
	}

	var extensions []string
	for _, name := range opts.ExtraExtensionURIs {
		uri, err := doc.ns.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("login extension URI: %w", err)
		}
		if !seen[uri] {
			seen[uri] = true
			extensions = append(extensions, uri)
		}
	}

	svcs := tree.Of("objURI", objects)
	if len(extensions) > 0 {
		svcs.Set("svcExtension", tree.Of("extURI", extensions))
	}
	login.Set("svcs", svcs)

	if opts.ClTRID != "" {
		doc.SetClTRID(opts.ClTRID)
	}

	return doc, nil
}

// NewLogout builds a logout command.
func NewLogout(clTRID string) *Document {
	doc := New(Logout)
	if clTRID != "" {
		doc.SetClTRID(clTRID)
	}
	return doc
}

// NewHello builds a <hello/> document.
func NewHello() *Document {
	return New(Hello)
}

// NewCheck builds a check command for the given object names (ids for
// contacts).
func NewCheck(kind *Kind, names ...string) (*Document, error) {
	if len(kind.Path) < 3 || kind.Path[2] != "check" {
		return nil, fmt.Errorf("%s: %w", kind.Name, ErrNotCheckKind)
	}

	doc := New(kind)
	doc.Focus().Set(identifierKey(kind), names)
	return doc, nil
}

// NewInfo builds an info command for a single object.
func NewInfo(kind *Kind, name string) (*Document, error) {
	if len(kind.Path) < 3 || kind.Path[2] != "info" {
		return nil, fmt.Errorf("%s: %w", kind.Name, ErrNotInfoKind)
	}

	doc := New(kind)
	doc.Focus().Set(identifierKey(kind), name)
	return doc, nil
}

// NewTransfer builds a transfer command. op is set on the <transfer>
// element.
func NewTransfer(kind *Kind, op string) (*Document, error) {
	if len(kind.Path) < 3 || kind.Path[2] != "transfer" {
		return nil, fmt.Errorf("%s: %w", kind.Name, ErrNotTransferKind)
	}

	switch op {
	case TransferRequest, TransferQuery, TransferApprove, TransferReject, TransferCancel:
	default:
		return nil, fmt.Errorf("%q: %w", op, ErrInvalidTransferOp)
	}

	doc := New(kind)
	doc.root.EnsurePath("epp", "command", "transfer").Set("@op", op)
	return doc, nil
}

// NewPoll builds a poll command. msgID is only sent when not empty.
func NewPoll(op, msgID string) (*Document, error) {
	switch op {
	case PollRequest, PollAcknowledge:
	default:
		return nil, fmt.Errorf("%q: %w", op, ErrInvalidPollOp)
	}

	doc := New(Poll)
	poll := doc.Focus()
	poll.Set("@op", op)
	if msgID != "" {
		poll.Set("@msgID", msgID)
	}
	return doc, nil
}

func identifierKey(kind *Kind) string {
	prefix, _ := tree.SplitPrefix(kind.Anchor())
	if prefix == "contact" {
		return "id"
	}
	return "name"
}

// ParseCommand decodes a complete <epp> document, such as one written by
// hand, and picks the registered kind with the deepest path present in it.
// The as-written child order is kept.
func ParseCommand(data []byte, extra ...namespace.Binding) (*Document, error) {
	ns := namespace.NewStandard(extra...)

	root, err := tree.Decode(data, tree.DecodeOptions{
		Namespaces:    ns,
		DefaultPrefix: DefaultPrefix,
	})
	if err != nil {
		return nil, err
	}

	var found *Kind
	for _, name := range KindNames() {
		k := kinds[name]
		if k == ResponseKind || k == GreetingKind {
			continue
		}
		if _, ok := root.Lookup(k.Path...); !ok {
			continue
		}
		if found == nil || len(k.Path) > len(found.Path) {
			found = k
		}
	}

	if found == nil {
		return nil, ErrUnknownCommand
	}

	return &Document{kind: found, root: root, ns: ns.With(found.Namespaces...)}, nil
}
