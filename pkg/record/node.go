// Package record is the serialization substrate for everything Puppeteer
// captures or replays: an ordered tree of named nodes with string attributes.
//
// The text form is a small XML dialect. Attributes and children keep their
// order, duplicate attribute names are kept, and Write output parses back
// through Parse into an equal tree. Bytes XML cannot carry (control
// characters, invalid UTF-8) are written as \xNN and a backslash as \\.
package record

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Attribute is one name="value" pair.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RecordNode is a named node with ordered attributes and ordered children.
// A node owns its children exclusively.
type RecordNode struct {
	name       string
	attributes []Attribute
	children   []*RecordNode
}

// NewNode creates an empty node.
func NewNode(name string) *RecordNode {
	return &RecordNode{name: name}
}

func (n *RecordNode) Name() string { return n.name }

// Attributes returns the attributes in insertion order. The slice must not be modified.
func (n *RecordNode) Attributes() []Attribute { return n.attributes }

// Children returns the children in insertion order. The slice must not be modified.
func (n *RecordNode) Children() []*RecordNode { return n.children }

// AddAttribute appends an attribute. Existing attributes of the same name are kept.
func (n *RecordNode) AddAttribute(name, value string) {
	n.attributes = append(n.attributes, Attribute{Name: name, Value: value})
}

// Attribute returns the value of the first attribute called name, or "".
func (n *RecordNode) Attribute(name string) string {
	v, _ := n.LookupAttribute(name)
	return v
}

// LookupAttribute returns the value of the first attribute called name.
func (n *RecordNode) LookupAttribute(name string) (string, bool) {
	for _, a := range n.attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttribute replaces the value of the first attribute called name, or
// appends it when absent.
func (n *RecordNode) SetAttribute(name, value string) {
	for i := range n.attributes {
		if n.attributes[i].Name == name {
			n.attributes[i].Value = value
			return
		}
	}
	n.AddAttribute(name, value)
}

// RemoveAttribute drops every attribute called name and reports whether any existed.
func (n *RecordNode) RemoveAttribute(name string) bool {
	kept := n.attributes[:0]
	for _, a := range n.attributes {
		if a.Name != name {
			kept = append(kept, a)
		}
	}
	removed := len(kept) != len(n.attributes)
	n.attributes = kept
	return removed
}

// AddChild always creates and appends a new child.
func (n *RecordNode) AddChild(name string) *RecordNode {
	child := NewNode(name)
	n.children = append(n.children, child)
	return child
}

// AddChildUnique returns the first child called name, creating it if needed.
func (n *RecordNode) AddChildUnique(name string) *RecordNode {
	if child := n.Child(name); child != nil {
		return child
	}
	return n.AddChild(name)
}

// AppendChild adopts an existing node as the last child.
func (n *RecordNode) AppendChild(child *RecordNode) {
	n.children = append(n.children, child)
}

// Child returns the first child called name, or nil.
func (n *RecordNode) Child(name string) *RecordNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every child called name, in order.
func (n *RecordNode) ChildrenNamed(name string) []*RecordNode {
	var out []*RecordNode
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy.
func (n *RecordNode) Clone() *RecordNode {
	c := &RecordNode{name: n.name}
	if len(n.attributes) > 0 {
		c.attributes = append([]Attribute(nil), n.attributes...)
	}
	for _, child := range n.children {
		c.children = append(c.children, child.Clone())
	}
	return c
}

// Equal reports whether both trees have the same names, attributes and
// children, all in the same order.
func (n *RecordNode) Equal(o *RecordNode) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.name != o.name || len(n.attributes) != len(o.attributes) || len(n.children) != len(o.children) {
		return false
	}
	for i := range n.attributes {
		if n.attributes[i] != o.attributes[i] {
			return false
		}
	}
	for i := range n.children {
		if !n.children[i].Equal(o.children[i]) {
			return false
		}
	}
	return true
}

// Write renders the subtree starting at the given indent, two spaces per
// nesting level, self-closing childless nodes.
func (n *RecordNode) Write(w io.Writer, indent int) error {
	var b strings.Builder
	n.appendTo(&b, indent)
	_, err := io.WriteString(w, b.String())
	return err
}

// String renders the subtree with no leading indent.
func (n *RecordNode) String() string {
	var b strings.Builder
	n.appendTo(&b, 0)
	return b.String()
}

func (n *RecordNode) appendTo(b *strings.Builder, indent int) {
	pad := strings.Repeat(" ", indent)
	b.WriteString(pad)
	b.WriteByte('<')
	b.WriteString(n.name)
	for _, a := range n.attributes {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		// EscapeText only fails on writer errors; a Builder never returns one.
		_ = xml.EscapeText(b, []byte(escapeValue(a.Value)))
		b.WriteByte('"')
	}

	if len(n.children) == 0 {
		b.WriteString("/>\n")
		return
	}

	b.WriteString(">\n")
	for _, c := range n.children {
		c.appendTo(b, indent+2)
	}
	b.WriteString(pad)
	b.WriteString("</")
	b.WriteString(n.name)
	b.WriteString(">\n")
}

// ========================================
// Attribute value escaping
// ========================================

const hexDigits = "0123456789ABCDEF"

// escapeValue makes v safe for an XML attribute without loss.
func escapeValue(v string) string {
	if !needsEscape(v) {
		return v
	}
	var b strings.Builder
	b.Grow(len(v) + 8)
	for i := 0; i < len(v); {
		if v[i] == '\\' {
			b.WriteString(`\\`)
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(v[i:])
		if (r == utf8.RuneError && size == 1) || !isXMLChar(r) {
			for _, c := range []byte(v[i : i+size]) {
				b.WriteString(`\x`)
				b.WriteByte(hexDigits[c>>4])
				b.WriteByte(hexDigits[c&0x0F])
			}
		} else {
			b.WriteString(v[i : i+size])
		}
		i += size
	}
	return b.String()
}

func needsEscape(v string) bool {
	for i := 0; i < len(v); {
		r, size := utf8.DecodeRuneInString(v[i:])
		if r == '\\' || (r == utf8.RuneError && size == 1) || !isXMLChar(r) {
			return true
		}
		i += size
	}
	return false
}

// isXMLChar reports whether r is allowed in XML 1.0 character data.
func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= utf8.MaxRune)
}

// unescapeValue reverses escapeValue. A backslash not starting a known
// sequence is kept as is.
func unescapeValue(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' || i+1 >= len(v) {
			b.WriteByte(v[i])
			continue
		}
		switch {
		case v[i+1] == '\\':
			b.WriteByte('\\')
			i++
		case v[i+1] == 'x' && i+4 <= len(v):
			if c, err := strconv.ParseUint(v[i+2:i+4], 16, 8); err == nil {
				b.WriteByte(byte(c))
				i += 3
			} else {
				b.WriteByte('\\')
			}
		default:
			b.WriteByte('\\')
		}
	}
	return b.String()
}
