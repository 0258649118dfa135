package record

import "Puppeteer/pkg/logging"

// Reserved node and attribute names of an event record.
const (
	EventNodeName  = "event"
	QuitNodeName   = "quit"
	ClassHintsName = "classhints"
	TargetName     = "target"
	PropertyName   = "property"
	ClassDataName  = "classdata"

	AttrType       = "type"
	AttrTimestamp  = "timestamp"
	AttrObjectPath = "objectPath"
)

// EventRecord is one observed or desired UI event: a node named "event" with
// a type attribute, an optional timestamp, and the optional unique children
// classhints and target.
type EventRecord struct {
	*RecordNode
}

// NewEventRecord creates an event record. The timestamp is omitted when empty.
func NewEventRecord(eventType, timestamp string) *EventRecord {
	rec := &EventRecord{RecordNode: NewNode(EventNodeName)}
	if timestamp != "" {
		rec.AddAttribute(AttrTimestamp, timestamp)
	}
	rec.AddAttribute(AttrType, eventType)
	return rec
}

// EventRecordFromNode adopts the attributes and children of a parsed script
// element. The element's own name (send-event, verify...) is not kept.
func EventRecordFromNode(node *RecordNode) *EventRecord {
	rec := &EventRecord{RecordNode: NewNode(EventNodeName)}
	rec.attributes = append(rec.attributes, node.attributes...)
	rec.children = append(rec.children, node.children...)
	return rec
}

// Type returns the type attribute.
func (r *EventRecord) Type() string { return r.Attribute(AttrType) }

// ObjectPath returns the objectPath attribute.
func (r *EventRecord) ObjectPath() string { return r.Attribute(AttrObjectPath) }

// AddClassHints returns the unique classhints child, naming it className on
// creation. A differing class name replaces the old one with a warning.
func (r *EventRecord) AddClassHints(className string) *RecordNode {
	hints := r.AddChildUnique(ClassHintsName)

	existing := hints.Attribute("name")
	switch {
	case existing == "":
		hints.SetAttribute("name", className)
	case existing != className:
		logging.LogWarn("record").
			Str("from", existing).
			Str("to", className).
			Msg("Duplicate classhints record; changing class name")
		hints.SetAttribute("name", className)
	}
	return hints
}

// ClassHints returns the classhints child, or nil.
func (r *EventRecord) ClassHints() *RecordNode { return r.Child(ClassHintsName) }

// AddTargetHints returns the unique target child.
func (r *EventRecord) AddTargetHints() *RecordNode { return r.AddChildUnique(TargetName) }

// TargetHints returns the target child, or nil.
func (r *EventRecord) TargetHints() *RecordNode { return r.Child(TargetName) }

// Matches reports whether every attribute of r is present on live with the
// same value. Extra live attributes are ignored; children are not compared.
func (r *EventRecord) Matches(live *EventRecord) bool {
	if live == nil {
		return false
	}
	for _, a := range r.attributes {
		v, ok := live.LookupAttribute(a.Name)
		if !ok || v != a.Value {
			return false
		}
	}
	return true
}

// AddProperty appends a property child with the given name and value, the
// form used by classhints and verify elements.
func AddProperty(n *RecordNode, name, value string) *RecordNode {
	p := n.AddChild(PropertyName)
	p.AddAttribute("name", name)
	p.AddAttribute("value", value)
	return p
}
