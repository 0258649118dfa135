package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Puppeteer/pkg/record"
)

func keyPress(path, key string) *record.RecordNode {
	rec := record.NewEventRecord("KeyPress", "1.000000")
	rec.AddAttribute("objectPath", path)
	rec.AddAttribute("key", key)
	rec.AddAttribute("text", key)
	return rec.RecordNode
}

const dropPasswords = `
var plugin = {
	name: "hide-passwords",
	types: ["KeyPress", "KeyRelease"],
	pathMatch: "passwordEdit$",
	onRecord: function (record, ctx) {
		ctx.state.dropped = (ctx.state.dropped || 0) + 1;
		return null;
	}
};
`

const annotate = `
var plugin = {
	onRecord: function (record, ctx) {
		record.attributes.push({name: "note", value: "seen " + (attr(record, "type") || "")});
		return record;
	}
};
`

func TestPluginMatches(t *testing.T) {
	m := NewManager(0)
	p, err := m.Load("drop.js", dropPasswords)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "hide-passwords" {
		t.Errorf("Name = %q", p.Name)
	}

	tests := []struct {
		name string
		node *record.RecordNode
		want bool
	}{
		{"type and path", keyPress("login.passwordEdit", "x"), true},
		{"other path", keyPress("login.userEdit", "x"), false},
		{"other type", record.NewEventRecord("MouseButtonPress", "").RecordNode, false},
		{"quit", record.NewNode(record.QuitNodeName), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Matches(tt.node); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcess(t *testing.T) {
	m := NewManager(0)
	if _, err := m.Load("drop.js", dropPasswords); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load("annotate.js", annotate); err != nil {
		t.Fatal(err)
	}

	if out := m.Process(keyPress("login.passwordEdit", "s")); out != nil {
		t.Errorf("password key should be dropped, got %s", out)
	}

	out := m.Process(keyPress("login.userEdit", "u"))
	if out == nil {
		t.Fatal("user key dropped")
	}
	if out.Attribute("note") != "seen KeyPress" {
		t.Errorf("annotation missing: %s", out)
	}
	if out.Attribute("key") != "u" || out.Name() != record.EventNodeName {
		t.Errorf("record damaged: %s", out)
	}

	// Unfiltered plugins see quit records too.
	if quit := m.Process(record.NewNode(record.QuitNodeName)); quit == nil || quit.Attribute("note") != "seen " {
		t.Errorf("quit = %v", quit)
	}

	if m.Plugins()[0].state["dropped"] == nil {
		t.Error("plugin state not kept between calls")
	}
}

func TestProcessKeepsRecordOnFailure(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"throws", `var plugin = { onRecord: function () { throw new Error("boom"); } };`},
		{"bad result", `var plugin = { onRecord: function () { return {attributes: []}; } };`},
		{"keeps", `var plugin = { onRecord: function () {} };`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(0)
			if _, err := m.Load(tt.name+".js", tt.code); err != nil {
				t.Fatalf("Load: %v", err)
			}
			in := keyPress("w.edit", "k")
			out := m.Process(in)
			if out == nil || !out.Equal(keyPress("w.edit", "k")) {
				t.Errorf("Process = %v, want the record unchanged", out)
			}
		})
	}
}

func TestPluginTimeout(t *testing.T) {
	m := NewManager(50 * time.Millisecond)
	p, err := m.Load("spin.js", `var plugin = { onRecord: function () { for (;;) {} } };`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.run(p, keyPress("w.edit", "k"))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	// The runtime stays usable after an interrupt.
	if out := m.Process(keyPress("w.edit", "k")); out == nil {
		t.Error("record lost after timeout")
	}
}

func TestLifecycleHooksTimeOut(t *testing.T) {
	m := NewManager(50 * time.Millisecond)

	tests := []struct {
		name string
		code string
	}{
		{"script body", `for (;;) {} var plugin = { onRecord: function () {} };`},
		{"onInit", `var plugin = { onInit: function () { for (;;) {} }, onRecord: function () {} };`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan error, 1)
			go func() {
				_, err := m.Load(tt.name+".js", tt.code)
				done <- err
			}()
			select {
			case err := <-done:
				if !errors.Is(err, ErrTimeout) {
					t.Errorf("err = %v, want ErrTimeout", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Load did not return")
			}
		})
	}
	if n := len(m.Plugins()); n != 0 {
		t.Errorf("%d plugin(s) loaded after timeouts", n)
	}

	// A failing onInit that returns is only logged.
	if _, err := m.Load("throws.js", `var plugin = { onInit: function () { throw new Error("x"); }, onRecord: function () {} };`); err != nil {
		t.Errorf("throwing onInit should not reject the plugin: %v", err)
	}

	if _, err := m.Load("stuck.js", `var plugin = { onRecord: function () {}, onDestroy: function () { for (;;) {} } };`); err != nil {
		t.Fatal(err)
	}
	closed := make(chan struct{})
	go func() {
		m.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	if n := len(m.Plugins()); n != 0 {
		t.Errorf("%d plugin(s) left after Close", n)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"syntax", `var plugin = {`, "plugin script failed"},
		{"no plugin", `var x = 1;`, "plugin object not found"},
		{"no onRecord", `var plugin = { name: "x" };`, "onRecord"},
		{"bad regexp", `var plugin = { pathMatch: "(", onRecord: function () {} };`, "pathMatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(0).Load("bad.js", tt.code)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadDirAndClose(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "b-annotate.js"), []byte(annotate), 0o644)
	os.WriteFile(filepath.Join(dir, "a-drop.js"), []byte(dropPasswords), 0o644)
	os.WriteFile(filepath.Join(dir, "c-broken.js"), []byte("var plugin = {"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)
	os.WriteFile(filepath.Join(dir, "d-destroy.js"), []byte(`
var plugin = {
	onRecord: function () {},
	onDestroy: function (ctx) { ctx.log("bye"); }
};`), 0o644)

	m := NewManager(0)
	err := m.LoadDir(dir)
	if err == nil || !strings.Contains(err.Error(), "c-broken.js") {
		t.Errorf("LoadDir err = %v, want the broken file named", err)
	}

	plugins := m.Plugins()
	if len(plugins) != 3 {
		t.Fatalf("loaded %d plugins, want 3", len(plugins))
	}
	if plugins[0].Name != "hide-passwords" || plugins[1].Name != "b-annotate" {
		t.Errorf("load order = %s, %s", plugins[0].Name, plugins[1].Name)
	}

	m.Close()
	if len(m.Plugins()) != 0 {
		t.Error("Close should unload every plugin")
	}
	if out := m.Process(keyPress("login.passwordEdit", "s")); out == nil {
		t.Error("closed manager must pass records through")
	}
}
