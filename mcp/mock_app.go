package mcp

import (
	"errors"
	"sync"

	"Puppeteer/pkg/record"
	"Puppeteer/pkg/tape"
)

// MockCall records a method call for verification
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockPuppeteerApp is a mock implementation of PuppeteerApp for testing
type MockPuppeteerApp struct {
	mu    sync.Mutex
	Calls []MockCall

	// Tapes
	ListTapesResult        []Tape
	ListTapesError         error
	GetTapeResult          *Tape
	GetTapeError           error
	GetTapeRecordsResult   []TapeRecord
	GetTapeRecordsError    error
	FindTapeEventsResult   []TapeRecord
	FindTapeEventsError    error
	ExportTapeScriptResult string
	ExportTapeScriptError  error
	DeleteTapeError        error

	// Scripts
	ValidateScriptResult *ScriptInfo
	ValidateScriptError  error
	RunDemoResult        *DemoRunResult
	RunDemoError         error

	// Plugins
	ListPluginsResult []PluginInfo

	// Utility
	AppVersion string
}

// NewMockPuppeteerApp creates a new MockPuppeteerApp with sensible defaults
func NewMockPuppeteerApp() *MockPuppeteerApp {
	return &MockPuppeteerApp{
		Calls:           make([]MockCall, 0),
		AppVersion:      "1.0.0-test",
		ListTapesResult: []Tape{},
	}
}

// recordCall records a method call
func (m *MockPuppeteerApp) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCalls returns all recorded calls
func (m *MockPuppeteerApp) GetCalls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.Calls...)
}

// WasMethodCalled checks if a method was called
func (m *MockPuppeteerApp) WasMethodCalled(method string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.Calls {
		if call.Method == method {
			return true
		}
	}
	return false
}

// GetLastCallByMethod returns the last call to a specific method
func (m *MockPuppeteerApp) GetLastCallByMethod(method string) *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == method {
			call := m.Calls[i]
			return &call
		}
	}
	return nil
}

// ==================== PuppeteerApp ====================

func (m *MockPuppeteerApp) GetAppVersion() string {
	m.recordCall("GetAppVersion")
	return m.AppVersion
}

func (m *MockPuppeteerApp) ListTapes(limit int) ([]Tape, error) {
	m.recordCall("ListTapes", limit)
	return m.ListTapesResult, m.ListTapesError
}

func (m *MockPuppeteerApp) GetTape(tapeID string) (*Tape, error) {
	m.recordCall("GetTape", tapeID)
	if m.GetTapeResult == nil && m.GetTapeError == nil {
		return nil, tape.ErrSessionNotFound
	}
	return m.GetTapeResult, m.GetTapeError
}

func (m *MockPuppeteerApp) GetTapeRecords(tapeID string) ([]TapeRecord, error) {
	m.recordCall("GetTapeRecords", tapeID)
	return m.GetTapeRecordsResult, m.GetTapeRecordsError
}

func (m *MockPuppeteerApp) FindTapeEvents(tapeID string, pattern *record.RecordNode) ([]TapeRecord, error) {
	m.recordCall("FindTapeEvents", tapeID, pattern)
	return m.FindTapeEventsResult, m.FindTapeEventsError
}

func (m *MockPuppeteerApp) ExportTapeScript(tapeID, outputPath string) (string, error) {
	m.recordCall("ExportTapeScript", tapeID, outputPath)
	return m.ExportTapeScriptResult, m.ExportTapeScriptError
}

func (m *MockPuppeteerApp) DeleteTape(tapeID string) error {
	m.recordCall("DeleteTape", tapeID)
	return m.DeleteTapeError
}

func (m *MockPuppeteerApp) ValidateScript(path string) (*ScriptInfo, error) {
	m.recordCall("ValidateScript", path)
	if m.ValidateScriptResult == nil && m.ValidateScriptError == nil {
		return nil, errors.New("no script configured")
	}
	return m.ValidateScriptResult, m.ValidateScriptError
}

func (m *MockPuppeteerApp) RunDemo(scriptPath string) (*DemoRunResult, error) {
	m.recordCall("RunDemo", scriptPath)
	return m.RunDemoResult, m.RunDemoError
}

func (m *MockPuppeteerApp) ListPlugins() []PluginInfo {
	m.recordCall("ListPlugins")
	return m.ListPluginsResult
}

// ==================== Fixtures ====================

// SampleTape returns a completed recording tape.
func SampleTape(id string) Tape {
	return Tape{
		ID:         id,
		Name:       "recording " + id,
		StartTime:  1700000000000,
		EndTime:    1700000005000,
		Status:     tape.StatusCompleted,
		EventCount: 3,
		Metadata:   map[string]string{"mode": "record"},
	}
}

// SampleRecords returns a press, a release and the quit record.
func SampleRecords(tapeID string) []TapeRecord {
	press := record.NewEventRecord("MouseButtonPress", "100")
	press.AddAttribute(record.AttrObjectPath, "mainWindow.*.yesButton")
	release := record.NewEventRecord("MouseButtonRelease", "180")
	release.AddAttribute(record.AttrObjectPath, "mainWindow.*.yesButton")
	quit := record.NewNode(record.QuitNodeName)

	nodes := []*record.RecordNode{press.RecordNode, release.RecordNode, quit}
	out := make([]TapeRecord, len(nodes))
	for i, n := range nodes {
		out[i] = TapeRecord{
			ID:         tapeID + "-" + n.Attribute(record.AttrType),
			SessionID:  tapeID,
			Seq:        i + 1,
			Type:       n.Attribute(record.AttrType),
			ObjectPath: n.Attribute(record.AttrObjectPath),
			Node:       n,
		}
	}
	return out
}
