package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"telescreen-backend/internal/models"
)

// Sampler is the OS-facing surface the monitor reads each cycle.
type Sampler interface {
	LastKeyEvent() time.Time
	LastMouseEvent() time.Time
	// KeysSinceLastSample returns the keystroke count since the previous
	// call and resets the counter.
	KeysSinceLastSample() int
	RunningProcesses() ([]string, error)
}

// AlertSender delivers one alert to the server.
type AlertSender interface {
	SendAlert(ctx context.Context, alertType, actionAttempted, details string) error
}

type Thresholds struct {
	IdleAfter        time.Duration
	MouseIdleAfter   time.Duration
	MinKeysPerWindow int
	RestrictedApps   []string
	SampleEvery      time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		IdleAfter:        10 * time.Minute,
		MouseIdleAfter:   5 * time.Minute,
		MinKeysPerWindow: 5,
		RestrictedApps:   []string{"cmd.exe", "powershell.exe", "regedit.exe", "taskmgr.exe"},
		SampleEvery:      time.Minute,
	}
}

// Monitor samples local input and process state on a fixed cadence and
// raises debounced alerts. All send failures are logged and retried on the
// next cycle; nothing is ever surfaced to the local user.
type Monitor struct {
	sampler    Sampler
	debouncer  *Debouncer
	sender     AlertSender
	thresholds Thresholds
	stopChan   chan struct{}

	now func() time.Time
}

func NewMonitor(sampler Sampler, debouncer *Debouncer, sender AlertSender, thresholds Thresholds) *Monitor {
	return &Monitor{
		sampler:    sampler,
		debouncer:  debouncer,
		sender:     sender,
		thresholds: thresholds,
		stopChan:   make(chan struct{}),
		now:        time.Now,
	}
}

func (m *Monitor) Start() {
	go m.loop()
	log.Printf("Activity monitor started (sampling every %s)", m.thresholds.SampleEvery)
}

func (m *Monitor) Stop() {
	select {
	case <-m.stopChan:
		return
	default:
		close(m.stopChan)
	}
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.thresholds.SampleEvery)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.Sample(context.Background())
		}
	}
}

// Sample runs one detection cycle.
func (m *Monitor) Sample(ctx context.Context) {
	now := m.now()

	lastKey := m.sampler.LastKeyEvent()
	lastMouse := m.sampler.LastMouseEvent()
	lastInput := lastKey
	if lastMouse.After(lastInput) {
		lastInput = lastMouse
	}

	idle := now.Sub(lastInput)
	mouseIdle := now.Sub(lastMouse)
	keys := m.sampler.KeysSinceLastSample()

	globallyIdle := idle > m.thresholds.IdleAfter
	if globallyIdle {
		m.raise(ctx, models.AlertUserIdle, "none",
			fmt.Sprintf("No input for %s", idle.Round(time.Second)))
	} else if mouseIdle > m.thresholds.MouseIdleAfter {
		// Only meaningful when the user is otherwise active.
		m.raise(ctx, models.AlertMouseInactive, "none",
			fmt.Sprintf("No mouse movement for %s", mouseIdle.Round(time.Second)))
	}

	if keys > 0 && keys < m.thresholds.MinKeysPerWindow {
		m.raise(ctx, models.AlertLowTyping, "none",
			fmt.Sprintf("%d keystrokes in sampling window", keys))
	}

	procs, err := m.sampler.RunningProcesses()
	if err != nil {
		log.Printf("process scan failed: %v", err)
		return
	}
	running := make(map[string]bool, len(procs))
	for _, p := range procs {
		running[strings.ToLower(p)] = true
	}
	for _, name := range m.thresholds.RestrictedApps {
		if running[strings.ToLower(name)] {
			m.raiseKeyed(ctx, models.AlertRestrictedApp, name, "process running", "Detected process: "+name)
		}
	}
}

func (m *Monitor) raise(ctx context.Context, alertType, action, details string) {
	m.raiseKeyed(ctx, alertType, "", action, details)
}

func (m *Monitor) raiseKeyed(ctx context.Context, alertType, detailKey, action, details string) {
	if !m.debouncer.Allow(alertType, detailKey) {
		return
	}
	if err := m.sender.SendAlert(ctx, alertType, action, details); err != nil {
		log.Printf("alert send failed: type=%s: %v", alertType, err)
	}
}
