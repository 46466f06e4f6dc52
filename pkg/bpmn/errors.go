package bpmn

import (
	"fmt"

	"github.com/antchfx/xmlquery"

	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/xmldoc"
)

// ValidationError reports an internally inconsistent document. It carries the
// offending node and the source filename so callers can point users at the
// exact element.
type ValidationError struct {
	Err      *errors.Error
	NodeID   string
	Tag      string
	Filename string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v (node %s <%s>, file %s)", e.Err, e.NodeID, e.Tag, e.Filename)
}

// Unwrap exposes the coded error to errors.Is and [errors.GetCode].
func (e *ValidationError) Unwrap() error { return e.Err }

// Code returns the machine-readable error code.
func (e *ValidationError) Code() errors.Code { return e.Err.Code }

func invalid(doc *xmldoc.Document, n *xmlquery.Node, code errors.Code, format string, args ...any) *ValidationError {
	return &ValidationError{
		Err:      errors.New(code, format, args...),
		NodeID:   xmldoc.ID(n),
		Tag:      tagOf(n),
		Filename: doc.Filename(),
	}
}

func tagOf(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}
