package agent

import (
	"context"
	"testing"
	"time"

	"telescreen-backend/internal/models"
)

type fakeSampler struct {
	lastKey   time.Time
	lastMouse time.Time
	keys      int
	procs     []string
}

func (f *fakeSampler) LastKeyEvent() time.Time   { return f.lastKey }
func (f *fakeSampler) LastMouseEvent() time.Time { return f.lastMouse }
func (f *fakeSampler) KeysSinceLastSample() int {
	n := f.keys
	f.keys = 0
	return n
}
func (f *fakeSampler) RunningProcesses() ([]string, error) { return f.procs, nil }

type fakeSender struct {
	alerts []string
}

func (f *fakeSender) SendAlert(_ context.Context, alertType, _, _ string) error {
	f.alerts = append(f.alerts, alertType)
	return nil
}

func (f *fakeSender) count(alertType string) int {
	n := 0
	for _, a := range f.alerts {
		if a == alertType {
			n++
		}
	}
	return n
}

func newTestMonitor(sampler *fakeSampler, sender *fakeSender, start time.Time) (*Monitor, *time.Time) {
	clock := start
	d := NewDebouncer(nil)
	d.now = func() time.Time { return clock }
	m := NewMonitor(sampler, d, sender, DefaultThresholds())
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestSample_UserIdle(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	sampler := &fakeSampler{lastKey: now.Add(-15 * time.Minute), lastMouse: now.Add(-15 * time.Minute)}
	sender := &fakeSender{}
	m, _ := newTestMonitor(sampler, sender, now)

	m.Sample(context.Background())

	if sender.count(models.AlertUserIdle) != 1 {
		t.Errorf("USER_IDLE alerts = %d, want 1", sender.count(models.AlertUserIdle))
	}
	if sender.count(models.AlertMouseInactive) != 0 {
		t.Error("mouse inactivity must not be reported while globally idle")
	}
}

func TestSample_MouseInactiveWhileTyping(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	sampler := &fakeSampler{
		lastKey:   now.Add(-10 * time.Second), // actively typing
		lastMouse: now.Add(-8 * time.Minute),
		keys:      200,
	}
	sender := &fakeSender{}
	m, _ := newTestMonitor(sampler, sender, now)

	m.Sample(context.Background())

	if sender.count(models.AlertMouseInactive) != 1 {
		t.Errorf("MOUSE_INACTIVE alerts = %d, want 1", sender.count(models.AlertMouseInactive))
	}
	if sender.count(models.AlertUserIdle) != 0 {
		t.Error("an actively typing user is not idle")
	}
}

func TestSample_LowTyping(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	sampler := &fakeSampler{lastKey: now.Add(-30 * time.Second), lastMouse: now.Add(-30 * time.Second), keys: 2}
	sender := &fakeSender{}
	m, _ := newTestMonitor(sampler, sender, now)

	m.Sample(context.Background())

	if sender.count(models.AlertLowTyping) != 1 {
		t.Errorf("LOW_TYPING_SPEED alerts = %d, want 1", sender.count(models.AlertLowTyping))
	}
}

func TestSample_ZeroKeysIsNotLowTyping(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	sampler := &fakeSampler{lastKey: now.Add(-30 * time.Second), lastMouse: now.Add(-30 * time.Second), keys: 0}
	sender := &fakeSender{}
	m, _ := newTestMonitor(sampler, sender, now)

	m.Sample(context.Background())

	if sender.count(models.AlertLowTyping) != 0 {
		t.Error("zero keystrokes is covered by idle detection, not low typing")
	}
}

func TestSample_RestrictedApp(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	sampler := &fakeSampler{
		lastKey:   now,
		lastMouse: now,
		procs:     []string{"chrome.exe", "CMD.EXE", "regedit.exe"},
	}
	sender := &fakeSender{}
	m, _ := newTestMonitor(sampler, sender, now)

	m.Sample(context.Background())

	// Case-insensitive match, one alert per distinct restricted process.
	if sender.count(models.AlertRestrictedApp) != 2 {
		t.Errorf("RESTRICTED_APP_DETECTED alerts = %d, want 2", sender.count(models.AlertRestrictedApp))
	}
}

func TestSample_DebounceAcrossCycles(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	sampler := &fakeSampler{lastKey: now, lastMouse: now, procs: []string{"cmd.exe"}}
	sender := &fakeSender{}
	m, clock := newTestMonitor(sampler, sender, now)

	m.Sample(context.Background())
	*clock = clock.Add(10 * time.Second)
	sampler.lastKey, sampler.lastMouse = *clock, *clock
	m.Sample(context.Background())

	if sender.count(models.AlertRestrictedApp) != 1 {
		t.Fatalf("alerts within the window = %d, want 1", sender.count(models.AlertRestrictedApp))
	}

	*clock = clock.Add(time.Minute)
	sampler.lastKey, sampler.lastMouse = *clock, *clock
	m.Sample(context.Background())

	if sender.count(models.AlertRestrictedApp) != 2 {
		t.Errorf("alerts after the window = %d, want 2", sender.count(models.AlertRestrictedApp))
	}
}
