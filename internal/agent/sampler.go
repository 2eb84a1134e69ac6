package agent

import (
	"os/exec"
	"strings"
	"sync"
	"time"
)

// InputTracker is the default Sampler. Key and mouse timestamps are fed in
// by the embedding client's input hooks via RecordKey/RecordMouse; the
// process snapshot shells out to ps.
type InputTracker struct {
	mu         sync.Mutex
	lastKey    time.Time
	lastMouse  time.Time
	keyCounter int
}

func NewInputTracker() *InputTracker {
	now := time.Now()
	return &InputTracker{lastKey: now, lastMouse: now}
}

func (t *InputTracker) RecordKey() {
	t.mu.Lock()
	t.lastKey = time.Now()
	t.keyCounter++
	t.mu.Unlock()
}

func (t *InputTracker) RecordMouse() {
	t.mu.Lock()
	t.lastMouse = time.Now()
	t.mu.Unlock()
}

func (t *InputTracker) LastKeyEvent() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastKey
}

func (t *InputTracker) LastMouseEvent() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastMouse
}

func (t *InputTracker) KeysSinceLastSample() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.keyCounter
	t.keyCounter = 0
	return n
}

func (t *InputTracker) RunningProcesses() ([]string, error) {
	out, err := exec.Command("ps", "-eo", "comm=").Output()
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(out), "\n")
	procs := make([]string, 0, len(lines))
	for _, line := range lines {
		name := strings.TrimSpace(line)
		if name != "" {
			procs = append(procs, name)
		}
	}
	return procs, nil
}
