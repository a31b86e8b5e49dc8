package telemetry

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// TestAPI implements API by logging to a test and remembering which ids were reported
// as broken or warned about.
type TestAPI struct {
	tb testing.TB

	mu       sync.Mutex
	broken   map[string]int
	warnings map[string]int
	lines    []string
}

func NewTestAPI(tb testing.TB) *TestAPI {
	return &TestAPI{
		tb:       tb,
		broken:   map[string]int{},
		warnings: map[string]int{},
	}
}

func (t *TestAPI) log(level, id string, params []any) {
	line := fmt.Sprintln(append([]any{level, id}, params...)...)
	t.mu.Lock()
	t.lines = append(t.lines, line)
	t.mu.Unlock()
	t.tb.Log(strings.TrimSpace(line))
}

func (t *TestAPI) ReportBroken(id string, params ...any) {
	t.mu.Lock()
	t.broken[id]++
	t.mu.Unlock()
	t.log("BROKEN", id, params)
}

func (t *TestAPI) ReportWarning(id string, params ...any) {
	t.mu.Lock()
	t.warnings[id]++
	t.mu.Unlock()
	t.log("WARN", id, params)
}

func (t *TestAPI) ReportDebug(message string, params ...any) {
	t.log("DEBUG", message, params)
}

func (t *TestAPI) ReportCount(id string, count int64) {
	t.tb.Log("COUNT", id, count)
}

// Broken returns how many times id was reported broken.
func (t *TestAPI) Broken(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.broken[id]
}

// Warnings returns how many times id was reported as a warning.
func (t *TestAPI) Warnings(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.warnings[id]
}

// Logged reports whether any report so far contains substr.
func (t *TestAPI) Logged(substr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, line := range t.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
