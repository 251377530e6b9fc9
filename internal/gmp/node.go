// Package gmp implements a minimal client for the Greenbone Management
// Protocol. It covers the commands a scan lifecycle needs: authentication,
// object lookup and creation, task control, and report retrieval over a
// local Unix socket.
package gmp

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Node is a read-only view over a parsed GMP response element. Lookups on
// paths with no matches return zero values rather than errors; callers decide
// whether absence is a failure.
type Node struct {
	name     string
	attrs    map[string]string
	text     string
	children []*Node
}

// Parse reads a single XML element from r and returns its tree.
func Parse(r io.Reader) (*Node, error) {
	return decodeNext(xml.NewDecoder(r))
}

// ParseBytes parses a single XML element from raw bytes.
func ParseBytes(data []byte) (*Node, error) {
	return Parse(bytes.NewReader(data))
}

// decodeNext advances the decoder to the next start element and builds the
// full tree rooted there.
func decodeNext(dec *xml.Decoder) (*Node, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return buildNode(dec, start)
		}
	}
}

// buildNode consumes tokens up to the end element matching start.
func buildNode(dec *xml.Decoder, start xml.StartElement) (*Node, error) {
	node := &Node{
		name:  start.Name.Local,
		attrs: make(map[string]string, len(start.Attr)),
	}
	for _, attr := range start.Attr {
		node.attrs[attr.Name.Local] = attr.Value
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := buildNode(dec, t)
			if err != nil {
				return nil, err
			}
			node.children = append(node.children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			node.text = text.String()
			return node, nil
		}
	}
}

// Name returns the element name.
func (n *Node) Name() string {
	return n.name
}

// Attr returns the value of the named attribute, or "" when absent.
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.attrs[name]
}

// Find returns the first element matching a slash-separated child path
// (e.g. "task/status"), or nil when the path has no matches.
func (n *Node) Find(path string) *Node {
	matches := n.FindAll(path)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// FindAll returns every element matching a slash-separated child path, in
// document order.
func (n *Node) FindAll(path string) []*Node {
	if n == nil || path == "" {
		return nil
	}
	current := []*Node{n}
	for _, segment := range strings.Split(path, "/") {
		var next []*Node
		for _, candidate := range current {
			for _, child := range candidate.children {
				if child.name == segment {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// Descendants returns every element with the given name anywhere below n,
// in document order.
func (n *Node) Descendants(name string) []*Node {
	if n == nil {
		return nil
	}
	var found []*Node
	for _, child := range n.children {
		if child.name == name {
			found = append(found, child)
		}
		found = append(found, child.Descendants(name)...)
	}
	return found
}

// Text returns the concatenated character data of the node and all of its
// descendants, own text first, then children in document order.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.appendText(&b)
	return b.String()
}

func (n *Node) appendText(b *strings.Builder) {
	b.WriteString(n.text)
	for _, child := range n.children {
		child.appendText(b)
	}
}

// String renders the node back to XML. Used for debug logging of raw
// responses; not guaranteed to be byte-identical to the wire form.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(n.name)
	for name, value := range n.attrs {
		fmt.Fprintf(b, " %s=\"%s\"", name, escapeXML(value))
	}
	if n.text == "" && len(n.children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	b.WriteString(escapeXML(n.text))
	for _, child := range n.children {
		child.render(b)
	}
	b.WriteString("</")
	b.WriteString(n.name)
	b.WriteByte('>')
}

// escapeXML escapes a value for embedding in XML text or attribute content.
func escapeXML(s string) string {
	var b strings.Builder
	// EscapeText only fails on writer errors, which strings.Builder never returns.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
