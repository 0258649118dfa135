package record

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func sampleTree() *RecordNode {
	rec := NewEventRecord("MouseButtonPress", "1.000250")
	rec.AddAttribute("objectPath", "mainWindow.*")
	rec.AddAttribute("button", "left")
	rec.AddAttribute("note", `a "quoted" <tag> & tab	and
newline`)
	rec.AddAttribute("text", "\x01")
	rec.AddAttribute("path", `C:\tmp\x41\`)
	rec.AddAttribute("button", "right")
	hints := rec.AddClassHints("QMenu")
	AddProperty(hints, "title", "&File")
	target := rec.AddTargetHints()
	action := target.AddChild("action")
	action.AddAttribute("text", "Quit")
	data := action.AddChildUnique("data")
	data.AddAttribute("type", "int")
	data.AddAttribute("value", "42")
	return rec.RecordNode
}

func TestWriteFormat(t *testing.T) {
	n := NewNode("event")
	n.AddAttribute("type", "FocusIn")
	n.AddAttribute("objectPath", "mainWindow.morningEdit")
	if got, want := n.String(), `<event type="FocusIn" objectPath="mainWindow.morningEdit"/>`+"\n"; got != want {
		t.Errorf("childless node:\n got %q\nwant %q", got, want)
	}

	parent := NewNode("script")
	parent.AddChild("wait-application-exit")
	var buf bytes.Buffer
	if err := parent.Write(&buf, 2); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "  <script>\n    <wait-application-exit/>\n  </script>\n"
	if buf.String() != want {
		t.Errorf("nested node:\n got %q\nwant %q", buf.String(), want)
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	orig := sampleTree()
	parsed, err := ParseString(orig.String())
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if !orig.Equal(parsed) {
		t.Errorf("round trip mismatch:\n%s\nvs\n%s", orig, parsed)
	}
	if got := parsed.Attribute("note"); !strings.Contains(got, "\t") || !strings.Contains(got, "\n") {
		t.Errorf("whitespace not preserved: %q", got)
	}
}

func TestAttributeEscaping(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		written string
	}{
		{"plain", "Yeah", `v="Yeah"`},
		{"ctrl+a", "\x01", `v="\x01"`},
		{"escape and bell", "\x1b\x07", `v="\x1B\x07"`},
		{"backslash", `a\b`, `v="a\\b"`},
		{"literal escape text", `\x41`, `v="\\x41"`},
		{"invalid utf-8", "ok\xff\xfe", `v="ok\xFF\xFE"`},
		{"noncharacter", "\uFFFE", `v="\xEF\xBF\xBE"`},
		{"markup", `<&">`, `v="&lt;&amp;&#34;&gt;"`},
		{"unicode", "Grüße ☀", `v="Grüße ☀"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNode("event")
			n.AddAttribute("v", tt.value)
			text := n.String()
			if !strings.Contains(text, tt.written) {
				t.Errorf("written %q, want it to contain %q", text, tt.written)
			}
			parsed, err := ParseString(text)
			if err != nil {
				t.Fatalf("ParseString(%q): %v", text, err)
			}
			if got := parsed.Attribute("v"); got != tt.value {
				t.Errorf("round trip = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestParseKeepsUnknownBackslashes(t *testing.T) {
	n, err := ParseString(`<event a="C:\dir" b="\xZZ" c="tail\" d="\x4"/>`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	want := map[string]string{"a": `C:\dir`, "b": `\xZZ`, "c": `tail\`, "d": `\x4`}
	for name, v := range want {
		if got := n.Attribute(name); got != v {
			t.Errorf("%s = %q, want %q", name, got, v)
		}
	}
}

func TestParseAll(t *testing.T) {
	var buf bytes.Buffer
	first := NewEventRecord("KeyPress", "0.000001")
	first.AddAttribute("key", "a")
	first.Write(&buf, 0)
	NewNode(QuitNodeName).Write(&buf, 0)

	nodes, err := ParseAll(&buf)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 records, got %d", len(nodes))
	}
	if !nodes[0].Equal(first.RecordNode) {
		t.Errorf("first record mismatch: %s", nodes[0])
	}
	if nodes[1].Name() != QuitNodeName {
		t.Errorf("second record = %s", nodes[1].Name())
	}
}

func TestParseErrors(t *testing.T) {
	for _, doc := range []string{"", "   ", "<a><b></a>", "<a/><b/>", "<a x=\"1>"} {
		if _, err := ParseString(doc); err == nil {
			t.Errorf("ParseString(%q) should fail", doc)
		}
	}
}

func TestAttributesAndChildren(t *testing.T) {
	n := NewNode("event")
	n.AddAttribute("k", "1")
	n.AddAttribute("k", "2")
	if got := n.Attribute("k"); got != "1" {
		t.Errorf("first match expected, got %q", got)
	}
	if _, ok := n.LookupAttribute("missing"); ok {
		t.Error("missing attribute reported present")
	}
	if n.Attribute("missing") != "" {
		t.Error("missing attribute should be empty")
	}
	if len(n.Attributes()) != 2 {
		t.Errorf("duplicates must be kept, got %d", len(n.Attributes()))
	}

	n.SetAttribute("k", "3")
	if n.Attribute("k") != "3" || len(n.Attributes()) != 2 {
		t.Errorf("SetAttribute should replace first match: %v", n.Attributes())
	}
	if !n.RemoveAttribute("k") || len(n.Attributes()) != 0 {
		t.Errorf("RemoveAttribute left %v", n.Attributes())
	}

	a := n.AddChild("x")
	b := n.AddChild("x")
	if a == b {
		t.Error("AddChild must always create")
	}
	if n.AddChildUnique("x") != a {
		t.Error("AddChildUnique must return the first existing child")
	}
	if n.Child("y") != nil {
		t.Error("Child of missing name should be nil")
	}
	if got := len(n.ChildrenNamed("x")); got != 2 {
		t.Errorf("ChildrenNamed = %d", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := sampleTree()
	c := orig.Clone()
	if !c.Equal(orig) {
		t.Fatal("clone differs")
	}
	c.Child(TargetName).Child("action").SetAttribute("text", "Other")
	if orig.Child(TargetName).Child("action").Attribute("text") != "Quit" {
		t.Error("clone shares children with the original")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	orig := sampleTree()
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back RecordNode
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !orig.Equal(&back) {
		t.Errorf("JSON round trip mismatch:\n%s\nvs\n%s", orig, &back)
	}

	if err := json.Unmarshal([]byte(`{"attributes":[]}`), &back); err == nil {
		t.Error("node without name should be rejected")
	}
}
