package state

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Region identifies a replaceable part of the dashboard page.
type Region string

const (
	RegionServices     Region = "services-grid"
	RegionSystemStatus Region = "system-status"
	RegionMetrics      Region = "metrics"
	RegionLogs         Region = "logs"
	RegionLastUpdated  Region = "last-updated"
	RegionLoadGen      Region = "loadgen-status"
)

// LoadGenStatus mirrors the last applied load generator answer.
type LoadGenStatus string

const (
	LoadGenUnknown LoadGenStatus = "unknown"
	LoadGenRunning LoadGenStatus = "running"
	LoadGenStopped LoadGenStatus = "stopped"
)

// LogEntry holds a single activity log entry.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Label     string    `json:"label"`
	Message   string    `json:"message"`
}

// RefreshInfo holds information about the last refresh cycle.
type RefreshInfo struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Running    bool      `json:"running"`
}

// SnapshotData holds a point-in-time copy of AppState for JSON serialization.
type SnapshotData struct {
	Regions     map[Region]string `json:"regions"`
	LoadGen     LoadGenStatus     `json:"loadGen"`
	LastRefresh RefreshInfo       `json:"lastRefresh"`
	Logs        []LogEntry        `json:"logs"`
}

type regionEntry struct {
	html    string
	version uint64
}

// AppState holds the state shared by every browser: the last rendered
// fragment of each shared region, the load generator status and the
// activity log.
type AppState struct {
	mu          sync.RWMutex
	regions     map[Region]regionEntry
	version     uint64
	loadGen     LoadGenStatus
	loadGenSeq  uint64 // last issued
	appliedSeq  uint64 // last applied
	lastRefresh RefreshInfo
	logs        []LogEntry
	maxLogs     int
	changeCh    chan struct{} // Sent on every region mutation
}

// New creates a new AppState with a max log buffer size.
func New(maxLogs int) *AppState {
	return &AppState{
		regions:  make(map[Region]regionEntry),
		loadGen:  LoadGenUnknown,
		logs:     []LogEntry{},
		maxLogs:  maxLogs,
		changeCh: make(chan struct{}, 1),
	}
}

// notifyChange does a non-blocking send on changeCh to signal a state mutation.
// Must be called while NOT holding mu (the receiver in the web layer will re-read state).
func (s *AppState) notifyChange() {
	select {
	case s.changeCh <- struct{}{}:
	default:
	}
}

// ChangeCh returns a channel that receives a value whenever a region changes.
func (s *AppState) ChangeCh() <-chan struct{} {
	return s.changeCh
}

// SetRegion replaces the rendered fragment of a region.
func (s *AppState) SetRegion(r Region, html string) {
	s.mu.Lock()
	s.version++
	s.regions[r] = regionEntry{html: html, version: s.version}
	s.mu.Unlock()
	s.notifyChange()
}

// Region returns the current fragment of a region.
func (s *AppState) Region(r Region) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.regions[r]
	return e.html, ok
}

// RegionsSince returns every region replaced after version since, together
// with the current version. RegionsSince(0) returns all regions.
func (s *AppState) RegionsSince(since uint64) (map[Region]string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Region]string)
	for r, e := range s.regions {
		if e.version > since {
			out[r] = e.html
		}
	}
	return out, s.version
}

// NextLoadGenSeq reserves the sequence number of a load generator call.
func (s *AppState) NextLoadGenSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadGenSeq++
	return s.loadGenSeq
}

// ApplyLoadGen records the outcome of the call issued with seq. Answers
// older than the last applied one are dropped; the return value reports
// whether the status was applied.
func (s *AppState) ApplyLoadGen(seq uint64, status LoadGenStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.appliedSeq {
		return false
	}
	s.appliedSeq = seq
	s.loadGen = status
	return true
}

// LoadGen returns the last applied load generator status.
func (s *AppState) LoadGen() LoadGenStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadGen
}

// SetRefreshStarted marks a refresh cycle as started.
func (s *AppState) SetRefreshStarted() {
	s.mu.Lock()
	s.lastRefresh = RefreshInfo{StartedAt: time.Now().UTC(), Running: true}
	s.mu.Unlock()
}

// SetRefreshFinished marks a refresh cycle as finished.
func (s *AppState) SetRefreshFinished() {
	s.mu.Lock()
	s.lastRefresh.Running = false
	s.lastRefresh.FinishedAt = time.Now().UTC()
	s.mu.Unlock()
}

// AddLog appends a log entry, trimming old entries if needed.
func (s *AppState) AddLog(level, label, message string) {
	s.mu.Lock()
	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Label:     label,
		Message:   message,
	}
	s.logs = append(s.logs, entry)
	if len(s.logs) > s.maxLogs {
		s.logs = s.logs[len(s.logs)-s.maxLogs:]
	}
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state for JSON serialization.
func (s *AppState) Snapshot() SnapshotData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regions := make(map[Region]string, len(s.regions))
	for r, e := range s.regions {
		regions[r] = e.html
	}
	logs := make([]LogEntry, len(s.logs))
	copy(logs, s.logs)
	return SnapshotData{
		Regions:     regions,
		LoadGen:     s.loadGen,
		LastRefresh: s.lastRefresh,
		Logs:        logs,
	}
}

// FormatLogMessage formats a message with key-value pairs as a JSON line,
// matching what the slog JSON handler writes to stdout.
func FormatLogMessage(level, msg string, attrs ...any) string {
	// Build a struct to ensure consistent field order
	type logEntry struct {
		Time  string `json:"time"`
		Level string `json:"level"`
		Msg   string `json:"msg"`
	}

	entry := logEntry{
		Time:  time.Now().UTC().Format(time.RFC3339Nano),
		Level: level,
		Msg:   msg,
	}

	baseJSON, _ := json.Marshal(entry)
	baseStr := string(baseJSON)
	// Remove closing brace
	baseStr = baseStr[:len(baseStr)-1]
	jsonParts := []string{baseStr}

	for i := 0; i+1 < len(attrs); i += 2 {
		key := fmt.Sprint(attrs[i])
		val := attrs[i+1]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		valJSON, _ := json.Marshal(val)
		keyJSON, _ := json.Marshal(key)
		jsonParts = append(jsonParts, fmt.Sprintf(`%s:%s`, keyJSON, valJSON))
	}

	return strings.Join(jsonParts, ",") + "}"
}
