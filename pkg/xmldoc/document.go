package xmldoc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/matzehuels/procmeta/pkg/errors"
)

// Option configures document parsing.
type Option func(*Document)

// WithVendorNamespace binds the vendor extension prefix to uri instead of the
// Camunda namespace.
func WithVendorNamespace(uri string) Option {
	return func(d *Document) {
		if uri != "" {
			d.vendorURI = uri
		}
	}
}

// Document is an immutable, parsed BPMN document.
// It is safe for concurrent use once returned by [Parse].
type Document struct {
	root      *xmlquery.Node
	filename  string
	ns        Namespaces
	vendorURI string
	hash      string
	idx       *index

	exprs sync.Map // namespace key + expression -> *xpath.Expr
}

// Parse reads a BPMN document from r. The filename is only used for error
// context and is reported by [Document.Filename].
func Parse(r io.Reader, filename string, opts ...Option) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "read %s", filename)
	}
	return ParseBytes(data, filename, opts...)
}

// ParseBytes parses an in-memory BPMN document.
func ParseBytes(data []byte, filename string, opts ...Option) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "parse %s", filename)
	}

	d := &Document{
		root:      root,
		filename:  filename,
		ns:        DefaultNamespaces(),
		vendorURI: NSCamunda,
		hash:      hashBytes(data),
	}
	for _, opt := range opts {
		opt(d)
	}

	if definitions(root) == nil {
		return nil, errors.New(errors.ErrCodeInvalidDocument, "%s: no bpmn:definitions root element", filename)
	}
	d.idx = buildIndex(root)
	return d, nil
}

// ParseFile opens and parses the BPMN document at path.
func ParseFile(path string, opts ...Option) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, filepath.Base(path), opts...)
}

// Filename returns the source identifier used in error messages.
func (d *Document) Filename() string { return d.filename }

// Hash returns the SHA-256 of the raw document bytes.
func (d *Document) Hash() string { return d.hash }

// VendorNamespace returns the URI bound to the vendor prefix.
func (d *Document) VendorNamespace() string { return d.vendorURI }

// Node returns the document node (the parent of bpmn:definitions).
func (d *Document) Node() *xmlquery.Node { return d.root }

// Root returns the document-wide query scope.
func (d *Document) Root() Scope { return d.Scope(d.root) }

// Scope returns a query scope rooted at n.
func (d *Document) Scope(n *xmlquery.Node) Scope {
	return Scope{doc: d, node: n, ns: d.ns}
}

func (d *Document) compile(ns Namespaces, expr string) (*xpath.Expr, error) {
	key := ns.key() + "\x00" + expr
	if e, ok := d.exprs.Load(key); ok {
		return e.(*xpath.Expr), nil
	}
	e, err := xpath.CompileWithNS(expr, ns)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "compile %q", expr)
	}
	d.exprs.Store(key, e)
	return e, nil
}

// definitions returns the bpmn:definitions element under the document node.
func definitions(root *xmlquery.Node) *xmlquery.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c, NSModel, "definitions") {
			return c
		}
	}
	return nil
}
