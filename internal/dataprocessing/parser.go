package dataprocessing

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"

	apperrors "mktyield/internal/errors"
)

// Document is a parsed curve feed document
type Document struct {
	tree   *etree.Document
	Source string
}

// Root returns the document element
func (d *Document) Root() *etree.Element {
	return d.tree.Root()
}

// DocumentSource supplies the document for a run
type DocumentSource interface {
	Load(ctx context.Context) (*Document, error)
	Describe() string
}

// FileSource reads the document from a file on disk
type FileSource struct {
	Path string
}

// Load implements DocumentSource
func (s FileSource) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ParseFile(s.Path)
}

// Describe implements DocumentSource
func (s FileSource) Describe() string {
	return s.Path
}

// ReaderSource parses the document from an in-memory reader
type ReaderSource struct {
	Name   string
	Reader io.Reader
}

// Load implements DocumentSource
func (s ReaderSource) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ParseDocument(s.Reader, s.Name)
}

// Describe implements DocumentSource
func (s ReaderSource) Describe() string {
	return s.Name
}

// ParseFile reads and parses the document at path
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewDocumentError("failed to open document", err).
			WithContext("path", path)
	}
	defer f.Close()

	return ParseDocument(f, path)
}

// ParseDocument parses a document. A document without a root element is malformed;
// a root element with no curves is valid and yields no records.
func ParseDocument(r io.Reader, source string) (*Document, error) {
	tree := etree.NewDocument()
	if _, err := tree.ReadFrom(r); err != nil {
		return nil, apperrors.NewDocumentError("failed to parse document", err).
			WithContext("source", source)
	}

	if tree.Root() == nil {
		return nil, apperrors.NewDocumentError("document has no root element", nil).
			WithContext("source", source)
	}

	return &Document{tree: tree, Source: source}, nil
}

// HasAncestor reports whether any ancestor of e, at any depth, is named tag
func HasAncestor(e *etree.Element, tag string) bool {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if p.FullTag() == tag {
			return true
		}
	}
	return false
}

// findAll collects e and its descendants named tag in document order
func findAll(e *etree.Element, tag string, out []*etree.Element) []*etree.Element {
	if e.FullTag() == tag {
		out = append(out, e)
	}
	for _, c := range e.ChildElements() {
		out = findAll(c, tag, out)
	}
	return out
}

// descendants collects the descendants of e named tag in document order, excluding e itself
func descendants(e *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		out = findAll(c, tag, out)
	}
	return out
}

// textContent concatenates all character data beneath e
func textContent(e *etree.Element) string {
	var b strings.Builder
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
		case *etree.Element:
			b.WriteString(textContent(t))
		}
	}
	return b.String()
}

// attr returns the attribute value, or "" when absent
func attr(e *etree.Element, key string) string {
	return e.SelectAttrValue(key, "")
}
