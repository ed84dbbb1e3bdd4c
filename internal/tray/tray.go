// Package tray provides a system tray menu for a running islpose server.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray menu.
type Tray struct {
	onExpressions func(enabled bool)
	onOpen        func()
	onQuit        func()
	expressions   bool
	status        string
	mu            sync.RWMutex

	// Menu items stored for later updates
	menuExpressions *systray.MenuItem
	menuStatus      *systray.MenuItem
}

// New creates a new Tray. expressions is the initial state of the
// expression toggle.
func New(expressions bool) *Tray {
	return &Tray{
		expressions: expressions,
		status:      "Starting...",
	}
}

// OnExpressions sets the callback called when the expression toggle changes.
func (t *Tray) OnExpressions(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpressions = fn
}

// OnOpen sets the callback called when the open menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("islpose")
	systray.SetTooltip("Indian Sign Language pose server")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(t.status, "Server status")
	t.menuStatus.Disable()
	systray.AddSeparator()

	t.menuExpressions = systray.AddMenuItem(expressionsTitle(t.expressions), "Toggle facial expression synthesis")
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open in Browser...", "Open the web UI")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Stop the islpose server")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuExpressions.ClickedCh:
				t.handleExpressions()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func expressionsTitle(enabled bool) string {
	if enabled {
		return "● Expressions"
	}
	return "○ Expressions"
}

// handleExpressions flips the expression toggle.
func (t *Tray) handleExpressions() {
	t.mu.Lock()
	t.expressions = !t.expressions
	enabled := t.expressions
	t.menuExpressions.SetTitle(expressionsTitle(enabled))
	callback := t.onExpressions
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStatus updates the status line shown at the top of the menu.
func (t *Tray) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = status
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(status)
	}
}

// Expressions returns the current state of the expression toggle.
func (t *Tray) Expressions() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.expressions
}
