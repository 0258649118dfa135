package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/tidwall/gjson"

	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/record"
)

// DefaultTimeout bounds a single plugin call: the script body, onInit,
// onRecord or onDestroy.
const DefaultTimeout = time.Second

// ErrTimeout is returned when a plugin call is interrupted.
var ErrTimeout = errors.New("plugin call timed out")

// Manager holds the loaded plugins in load order.
type Manager struct {
	mu      sync.RWMutex
	plugins []*Plugin
	timeout time.Duration
}

// NewManager creates an empty manager. A timeout <= 0 uses DefaultTimeout.
func NewManager(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{timeout: timeout}
}

// LoadDir loads every .js file of dir in name order. Files that fail to load
// are logged and skipped; the error lists them.
func (m *Manager) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.js"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	var errs []error
	for _, file := range files {
		code, err := os.ReadFile(file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := m.Load(file, string(code)); err != nil {
			logging.LogWarn("plugin").Str("file", file).Err(err).Msg("Failed to load plugin")
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(file), err))
		}
	}
	return errors.Join(errs...)
}

// Load compiles code and appends the plugin. file names the plugin when the
// script does not set plugin.name.
func (m *Manager) Load(file, code string) (*Plugin, error) {
	vm := goja.New()
	p := &Plugin{
		Name:  strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
		File:  file,
		vm:    vm,
		state: make(map[string]interface{}),
	}

	injectHelpers(vm)

	stop := m.deadline(vm)
	_, err := vm.RunString(code)
	stop()
	if err != nil {
		return nil, fmt.Errorf("plugin script failed: %w", m.timeoutError(err))
	}

	pluginObj := vm.Get("plugin")
	if pluginObj == nil || goja.IsUndefined(pluginObj) || goja.IsNull(pluginObj) {
		return nil, errors.New("plugin object not found")
	}
	obj := pluginObj.ToObject(vm)

	onRecord, ok := goja.AssertFunction(obj.Get("onRecord"))
	if !ok {
		return nil, errors.New("onRecord is not a function")
	}
	p.onRecord = onRecord
	p.onDestroy, _ = goja.AssertFunction(obj.Get("onDestroy"))

	if v := obj.Get("name"); v != nil && !goja.IsUndefined(v) && v.String() != "" {
		p.Name = v.String()
	}
	if v := obj.Get("types"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		if err := vm.ExportTo(v, &p.Filters.Types); err != nil {
			return nil, fmt.Errorf("invalid types filter: %w", err)
		}
	}
	if v := obj.Get("pathMatch"); v != nil && !goja.IsUndefined(v) && v.String() != "" {
		p.Filters.PathMatch = v.String()
		re, err := regexp.Compile(p.Filters.PathMatch)
		if err != nil {
			return nil, fmt.Errorf("invalid pathMatch regexp '%s': %w", p.Filters.PathMatch, err)
		}
		p.pathRegex = re
	}

	if onInit, ok := goja.AssertFunction(obj.Get("onInit")); ok {
		stop := m.deadline(vm)
		_, err := onInit(goja.Undefined(), p.context())
		stop()
		if err = m.timeoutError(err); errors.Is(err, ErrTimeout) {
			return nil, fmt.Errorf("onInit: %w", err)
		} else if err != nil {
			logging.LogWarn("plugin").Str("plugin", p.Name).Err(err).Msg("onInit failed")
		}
	}

	m.mu.Lock()
	m.plugins = append(m.plugins, p)
	m.mu.Unlock()

	logging.LogInfo("plugin").Str("plugin", p.Name).Strs("types", p.Filters.Types).Msg("Loaded plugin")
	return p, nil
}

// Plugins returns the loaded plugins in order.
func (m *Manager) Plugins() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Plugin(nil), m.plugins...)
}

// Process passes node through every matching plugin in load order. It
// returns nil when a plugin drops the record. A failing plugin is logged and
// leaves the record as it was.
func (m *Manager) Process(node *record.RecordNode) *record.RecordNode {
	m.mu.RLock()
	plugins := m.plugins
	m.mu.RUnlock()

	for _, p := range plugins {
		if !p.Matches(node) {
			continue
		}
		out, err := m.run(p, node)
		if err != nil {
			logging.LogWarn("plugin").Str("plugin", p.Name).Err(err).Msg("Plugin failed, record kept")
			continue
		}
		if out == nil {
			logging.LogDebug("plugin").Str("plugin", p.Name).Str("type", node.Attribute(record.AttrType)).Msg("Record dropped")
			return nil
		}
		node = out
	}
	return node
}

// Close calls onDestroy on every plugin and unloads them.
func (m *Manager) Close() {
	m.mu.Lock()
	plugins := m.plugins
	m.plugins = nil
	m.mu.Unlock()

	for _, p := range plugins {
		p.mu.Lock()
		if p.onDestroy != nil {
			stop := m.deadline(p.vm)
			_, err := p.onDestroy(goja.Undefined(), p.context())
			stop()
			if err != nil {
				logging.LogWarn("plugin").Str("plugin", p.Name).Err(m.timeoutError(err)).Msg("onDestroy failed")
			}
		}
		p.vm = nil
		p.onRecord = nil
		p.onDestroy = nil
		p.state = nil
		p.mu.Unlock()
	}
}

// run calls onRecord with a deadline. goja.Runtime is not safe for
// concurrent use, so each call holds the plugin lock.
func (m *Manager) run(p *Plugin, node *record.RecordNode) (out *record.RecordNode, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.vm == nil {
		return node, fmt.Errorf("plugin %s has been unloaded", p.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin panic: %v", r)
		}
	}()

	vm := p.vm
	defer m.deadline(vm)()

	arg, err := toJS(vm, node)
	if err != nil {
		return node, err
	}

	result, err := p.onRecord(goja.Undefined(), arg, p.context())
	if err != nil {
		return node, m.timeoutError(err)
	}

	switch {
	case result == nil || goja.IsUndefined(result):
		return node, nil
	case goja.IsNull(result):
		return nil, nil
	}
	return fromJS(result)
}

// deadline interrupts vm once the plugin timeout passes. Call the returned
// func when the script returns.
func (m *Manager) deadline(vm *goja.Runtime) (stop func()) {
	vm.ClearInterrupt()
	timer := time.AfterFunc(m.timeout, func() { vm.Interrupt("timeout") })
	return func() { timer.Stop() }
}

// timeoutError maps a goja interrupt to ErrTimeout.
func (m *Manager) timeoutError(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("%w (>%v)", ErrTimeout, m.timeout)
	}
	return err
}

func (p *Plugin) context() goja.Value {
	ctx := p.vm.NewObject()
	ctx.Set("plugin", p.Name)
	ctx.Set("state", p.state)
	ctx.Set("log", func(message string) {
		logging.LogInfo("plugin").Str("plugin", p.Name).Msg(message)
	})
	return ctx
}

func injectHelpers(vm *goja.Runtime) {
	// attr: first attribute value of a record, or undefined.
	vm.Set("attr", func(rec interface{}, name string) interface{} {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil
		}
		v := gjson.GetBytes(data, fmt.Sprintf(`attributes.#(name==%q).value`, name))
		if !v.Exists() {
			return goja.Undefined()
		}
		return v.String()
	})

	// jsonPath: gjson query over any value.
	vm.Set("jsonPath", func(obj interface{}, path string) interface{} {
		data, err := json.Marshal(obj)
		if err != nil {
			return nil
		}
		result := gjson.GetBytes(data, path)
		if !result.Exists() {
			return nil
		}
		return result.Value()
	})
}

// toJS builds a plain JS object through JSON.parse, so scripts can modify
// and grow it freely.
func toJS(vm *goja.Runtime, node *record.RecordNode) (goja.Value, error) {
	data, err := json.Marshal(node)
	if err != nil {
		return nil, err
	}
	parse, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
	if !ok {
		return nil, errors.New("JSON.parse unavailable")
	}
	return parse(goja.Undefined(), vm.ToValue(string(data)))
}

func fromJS(v goja.Value) (*record.RecordNode, error) {
	data, err := json.Marshal(v.Export())
	if err != nil {
		return nil, fmt.Errorf("encode plugin result: %w", err)
	}
	node := new(record.RecordNode)
	if err := json.Unmarshal(data, node); err != nil {
		return nil, fmt.Errorf("plugin returned an invalid record: %w", err)
	}
	return node, nil
}
