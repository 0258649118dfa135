// Package plugin runs JavaScript record plugins while recording. A plugin can
// rewrite or drop each record before it reaches the dump and the tape store.
//
// A plugin file assigns a global object:
//
//	var plugin = {
//	    name: "hide-passwords",
//	    types: ["KeyPress", "KeyRelease"],   // optional filter on the type attribute
//	    pathMatch: "passwordEdit$",           // optional regexp on objectPath
//	    onInit: function (ctx) {},            // optional
//	    onRecord: function (record, ctx) {},  // required
//	    onDestroy: function (ctx) {}          // optional
//	};
//
// onRecord receives the record in its JSON form ({name, attributes, children}).
// Returning undefined keeps the record, null drops it, and an object replaces it.
package plugin

import (
	"regexp"
	"sync"

	"github.com/dop251/goja"

	"Puppeteer/pkg/record"
)

// Filters restrict which records reach a plugin. Empty fields match everything.
type Filters struct {
	Types     []string `json:"types"`
	PathMatch string   `json:"pathMatch"`
}

// Plugin is one loaded script.
type Plugin struct {
	Name    string
	File    string
	Filters Filters

	mu        sync.Mutex
	vm        *goja.Runtime
	onRecord  goja.Callable
	onDestroy goja.Callable
	state     map[string]interface{}
	pathRegex *regexp.Regexp
}

// Matches reports whether the plugin's filters accept node. Records without a
// type attribute, such as quit, only reach plugins without filters.
func (p *Plugin) Matches(node *record.RecordNode) bool {
	if len(p.Filters.Types) > 0 {
		typ := node.Attribute(record.AttrType)
		found := false
		for _, t := range p.Filters.Types {
			if t == typ {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if p.pathRegex != nil && !p.pathRegex.MatchString(node.Attribute(record.AttrObjectPath)) {
		return false
	}
	return true
}
