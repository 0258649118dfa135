package record

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoRoot is returned by Parse for a document without an element.
var ErrNoRoot = errors.New("document has no root element")

// Parse reads one XML document and returns its root element as a tree.
// Character data and comments are ignored.
func Parse(r io.Reader) (*RecordNode, error) {
	dec := xml.NewDecoder(r)

	var (
		root  *RecordNode
		stack []*RecordNode
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse record document: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := NewNode(qualifiedName(t.Name))
			for _, a := range t.Attr {
				node.AddAttribute(qualifiedName(a.Name), unescapeValue(a.Value))
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("parse record document: second root element <%s>", node.name)
				}
				root = node
			} else {
				stack[len(stack)-1].AppendChild(node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}

	if root == nil {
		return nil, ErrNoRoot
	}
	return root, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*RecordNode, error) {
	return Parse(strings.NewReader(s))
}

// ParseAll reads a stream of concatenated top-level elements, as produced by
// a recording session, and returns them in order.
func ParseAll(r io.Reader) ([]*RecordNode, error) {
	// Wrapping keeps the decoder's single-root rules while accepting a
	// sequence of sibling records.
	wrapped := io.MultiReader(strings.NewReader("<records>"), r, strings.NewReader("</records>"))
	root, err := Parse(wrapped)
	if err != nil {
		return nil, err
	}
	return root.children, nil
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// jsonNode is the storage form used by the tape store.
type jsonNode struct {
	Name       string        `json:"name"`
	Attributes []Attribute   `json:"attributes"`
	Children   []*RecordNode `json:"children,omitempty"`
}

// MarshalJSON encodes the node as {"name","attributes":[...],"children":[...]}.
func (n *RecordNode) MarshalJSON() ([]byte, error) {
	attrs := n.attributes
	if attrs == nil {
		attrs = []Attribute{}
	}
	return json.Marshal(jsonNode{Name: n.name, Attributes: attrs, Children: n.children})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (n *RecordNode) UnmarshalJSON(data []byte) error {
	var j jsonNode
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	if j.Name == "" {
		return errors.New("record node without name")
	}
	n.name = j.Name
	n.attributes = nil
	if len(j.Attributes) > 0 {
		n.attributes = j.Attributes
	}
	n.children = j.Children
	return nil
}
