// Package demo is the hello-world window Puppeteer is demonstrated and
// tested against, built on the headless memtk toolkit.
package demo

import (
	"fmt"

	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/memtk"
	"Puppeteer/pkg/toolkit"
)

// MorningItems are the combo box entries. The last one carries item data and
// switches to the free-text edit.
var MorningItems = []string{"beautiful", "terrible", "hung-over", "heavenly", "other"}

// HelloWorld is the demo main window.
type HelloWorld struct {
	App *memtk.App

	Window         *memtk.Widget
	MenuBar        *memtk.Menu
	FileMenu       *memtk.Menu
	Irrelevant     *memtk.MenuAction
	Quit           *memtk.MenuAction
	Frame          *memtk.Widget
	MorningLabel   *memtk.Label
	MorningCombo   *memtk.ComboBox
	MorningEdit    *memtk.LineEdit
	YesButton      *memtk.Button
	NoCoffeeButton *memtk.Button

	morningType     string
	irrelevantCount int
}

// NewHelloWorld builds the window; call Show to display it.
func NewHelloWorld(app *memtk.App) *HelloWorld {
	h := &HelloWorld{App: app, morningType: "beautiful"}

	h.Window = app.NewMainWindow("mainWindow")
	h.Window.SetGeometry(100, 100, 400, 240)
	h.Window.SetProperty("windowTitle", "Hello World")

	h.MenuBar = memtk.NewMenuBar(h.Window, "")
	h.FileMenu = h.MenuBar.AddMenu("&File")
	h.Irrelevant = h.FileMenu.AddAction("&Irrelevant", h.doSomethingIrrelevant)
	h.Quit = h.FileMenu.AddAction("&Quit", h.requestExit)

	h.Frame = memtk.NewFrame(h.Window, "")
	h.Frame.SetGeometry(0, 24, 400, 216)

	h.MorningLabel = memtk.NewLabel(h.Frame, "helloLabel", "")
	h.MorningLabel.SetGeometry(10, 10, 380, 20)

	h.MorningCombo = memtk.NewComboBox(h.Frame, "morningCombo")
	h.MorningCombo.SetGeometry(10, 40, 150, 24)
	for _, item := range MorningItems[:len(MorningItems)-1] {
		h.MorningCombo.AddItem(item, nil)
	}
	h.MorningCombo.AddItem(MorningItems[len(MorningItems)-1], &toolkit.Variant{Type: "int", Value: "42"})
	h.MorningCombo.OnCurrentIndexChanged = h.morningTypeChanged

	h.MorningEdit = memtk.NewLineEdit(h.Frame, "morningEdit")
	h.MorningEdit.SetGeometry(170, 40, 150, 24)
	h.MorningEdit.SetEnabled(false)
	h.MorningEdit.SetText("otherworldly")
	h.MorningEdit.OnEditingFinished = h.morningTypeEdited

	h.YesButton = memtk.NewButton(h.Frame, "yesButton", "&Yeah")
	h.YesButton.SetGeometry(10, 150, 80, 30)
	h.YesButton.OnClicked = h.requestExit

	h.NoCoffeeButton = memtk.NewButton(h.Frame, "noCoffeeButton", "&Go Away")
	h.NoCoffeeButton.SetGeometry(100, 150, 100, 30)
	h.NoCoffeeButton.OnClicked = h.requestExit

	h.updateMorningLabel()
	return h
}

// Show displays the window.
func (h *HelloWorld) Show() { h.Window.Show() }

// MorningType is the word currently shown in the greeting.
func (h *HelloWorld) MorningType() string { return h.morningType }

// IrrelevantCount counts File > Irrelevant activations.
func (h *HelloWorld) IrrelevantCount() int { return h.irrelevantCount }

func (h *HelloWorld) requestExit() { h.App.Exit(0) }

func (h *HelloWorld) doSomethingIrrelevant() {
	h.irrelevantCount++
	logging.LogInfo("demo").Msg("bweeee-kazong.")
}

func (h *HelloWorld) morningTypeChanged(index int) {
	if h.MorningCombo.ItemData(index) != nil {
		h.MorningEdit.SetEnabled(true)
		h.morningType = h.MorningEdit.Text()
	} else {
		h.MorningEdit.SetEnabled(false)
		h.morningType = h.MorningCombo.ItemText(index)
	}
	h.updateMorningLabel()
}

func (h *HelloWorld) morningTypeEdited() {
	if h.MorningEdit.IsEnabled() {
		h.morningType = h.MorningEdit.Text()
		h.updateMorningLabel()
	}
}

func (h *HelloWorld) updateMorningLabel() {
	h.MorningLabel.SetText(fmt.Sprintf("Hello world. What a %s morning.", h.morningType))
}
