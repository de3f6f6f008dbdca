// Package tray shows the battery status as a system tray icon.
package tray

import (
	"sync"

	"github.com/TheCacophonyProject/go-utils/logging"
	"github.com/TheCacophonyProject/x728-battery/internal/display"
	"github.com/TheCacophonyProject/x728-battery/monitor"
	"github.com/getlantern/systray"
)

// Lifecycle is the part of the battery monitor the tray controls.
type Lifecycle interface {
	Stop()
	Done() <-chan struct{}
}

// trayAPI is the subset of systray used, swapped out in tests.
type trayAPI interface {
	SetIcon(icon []byte)
	SetTitle(title string)
	SetTooltip(tooltip string)
}

type systrayAPI struct{}

func (systrayAPI) SetIcon(icon []byte)       { systray.SetIcon(icon) }
func (systrayAPI) SetTitle(title string)     { systray.SetTitle(title) }
func (systrayAPI) SetTooltip(tooltip string) { systray.SetTooltip(tooltip) }

type Indicator struct {
	lifecycle Lifecycle
	log       *logging.Logger
	api       trayAPI

	mu       sync.Mutex
	ready    bool
	latest   *monitor.StatusSnapshot
	lastIcon monitor.StatusCategory
	hasIcon  bool
}

func New(lifecycle Lifecycle, log *logging.Logger) *Indicator {
	return &Indicator{
		lifecycle: lifecycle,
		log:       log,
		api:       systrayAPI{},
	}
}

// Run shows the tray icon and blocks until Exit is chosen or the monitor stops.
// It must be called from the main goroutine.
func (i *Indicator) Run() {
	systray.Run(i.onReady, i.onExit)
}

// Update shows a snapshot. Snapshots arriving before the tray is ready are
// held and shown once it is.
func (i *Indicator) Update(s monitor.StatusSnapshot) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.latest = &s
	if i.ready {
		i.apply(s)
	}
}

func (i *Indicator) onReady() {
	i.api.SetIcon(display.Icon(monitor.LowVoltageWarning))
	i.api.SetTooltip("x728 battery: waiting for a reading")
	exit := systray.AddMenuItem("Exit", "Stop the battery indicator")

	i.markReady()

	go func() {
		select {
		case <-exit.ClickedCh:
			i.log.Info("Exit requested from tray")
			i.lifecycle.Stop()
			<-i.lifecycle.Done()
		case <-i.lifecycle.Done():
		}
		systray.Quit()
	}()
}

func (i *Indicator) markReady() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ready = true
	if i.latest != nil {
		i.apply(*i.latest)
	}
}

func (i *Indicator) onExit() {
	i.log.Debug("Tray exiting")
}

// apply must be called with mu held.
func (i *Indicator) apply(s monitor.StatusSnapshot) {
	if !i.hasIcon || i.lastIcon != s.Category {
		i.api.SetIcon(display.Icon(s.Category))
		i.lastIcon = s.Category
		i.hasIcon = true
	}
	i.api.SetTitle(display.Title(s))
	i.api.SetTooltip(display.Tooltip(s))
}
