// Package obslog implements the domain-level structured-log schema
// the orchestrator core emits: one JSON object per line, carrying
// phase/duration/retry/code fields and masking PII before it ever
// reaches a sink, narrowed from a general-purpose structured logger to
// the one schema this service requires.
package obslog

import (
	"encoding/json"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Phase is the closed set of log-event phases the orchestrator emits.
type Phase string

const (
	PhaseEnqueue Phase = "enqueue"
	PhaseStart   Phase = "start"
	PhaseEnd     Phase = "end"
	PhaseError   Phase = "error"
	PhaseStop    Phase = "stop"
)

// Level is the closed set of severities this logger writes.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config controls where and how the logger writes.
type Config struct {
	Enabled   bool
	Component string
	Output    string // "stdout" | "stderr" | "file"
	FilePath  string
	MaxSizeMB int
	MaxBackups int
	MaxAgeDays int
}

// Entry is one structured-log line.
type Entry struct {
	TS         string `json:"ts"`
	Level      Level  `json:"level"`
	Component  string `json:"component"`
	Message    string `json:"message"`
	JobID      string `json:"jobId,omitempty"`
	OwnerID    string `json:"ownerId,omitempty"`
	Phase      Phase  `json:"phase,omitempty"`
	DurationMs *int64 `json:"duration_ms,omitempty"`
	Retry      *int   `json:"retry,omitempty"`
	Code       string `json:"code,omitempty"`
	Extra      any    `json:"extra,omitempty"`
}

// Logger writes Entry lines as JSON, one per call, guarded by a mutex
// so concurrent goroutines never interleave partial lines.
type Logger struct {
	mu        sync.Mutex
	out       io.Writer
	enabled   bool
	component string
}

// New builds a Logger from cfg. When cfg.Enabled is false, all log
// calls are no-ops — matching OBS_ENABLED="false".
func New(cfg Config) *Logger {
	l := &Logger{enabled: cfg.Enabled, component: cfg.Component}
	if !cfg.Enabled {
		return l
	}
	switch cfg.Output {
	case "file":
		l.out = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    firstNonZero(cfg.MaxSizeMB, 100),
			MaxBackups: firstNonZero(cfg.MaxBackups, 3),
			MaxAge:     firstNonZero(cfg.MaxAgeDays, 28),
		}
	case "stderr":
		l.out = os.Stderr
	default:
		l.out = os.Stdout
	}
	return l
}

func firstNonZero(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Log writes one structured entry. jobId/ownerId are masked-free by
// design (they are opaque ids, not PII); Extra is passed through Mask
// when it is a string or a map with string values so that incidental
// PII in free-form fields is still redacted.
func (l *Logger) Log(level Level, message string, jobID, ownerID string, phase Phase, durationMs *int64, retry *int, code string, extra any) {
	if l == nil || !l.enabled {
		return
	}
	entry := Entry{
		TS:         time.Now().UTC().Format(time.RFC3339),
		Level:      level,
		Component:  l.component,
		Message:    message,
		JobID:      jobID,
		OwnerID:    ownerID,
		Phase:      phase,
		DurationMs: durationMs,
		Retry:      retry,
		Code:       code,
		Extra:      maskExtra(extra),
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(append(line, '\n'))
}

func (l *Logger) Info(message string, jobID, ownerID string, phase Phase) {
	l.Log(LevelInfo, message, jobID, ownerID, phase, nil, nil, "", nil)
}

func (l *Logger) Warn(message string, jobID, ownerID string, phase Phase, code string) {
	l.Log(LevelWarn, message, jobID, ownerID, phase, nil, nil, code, nil)
}

// LogEnqueue records a task being materialized and ready for dispatch.
func (l *Logger) LogEnqueue(jobID, ownerID string) {
	l.Log(LevelInfo, "task enqueued", jobID, ownerID, PhaseEnqueue, nil, nil, "", nil)
}

// LogStart records a task transitioning to running.
func (l *Logger) LogStart(jobID, ownerID string) {
	l.Log(LevelInfo, "task started", jobID, ownerID, PhaseStart, nil, nil, "", nil)
}

// LogEnd records a task finishing, successfully or not.
func (l *Logger) LogEnd(jobID, ownerID string, durationMs int64, retry int) {
	d := durationMs
	r := retry
	l.Log(LevelInfo, "task finished", jobID, ownerID, PhaseEnd, &d, &r, "", nil)
}

// LogError records a task failure, tagging it with its classified code.
func (l *Logger) LogError(jobID, ownerID, code, message string) {
	l.Log(LevelError, truncate(message, 300), jobID, ownerID, PhaseError, nil, nil, code, nil)
}

// LogStop records a job being locked into a terminal state.
func (l *Logger) LogStop(jobID, ownerID, status string, reason any) {
	l.Log(LevelInfo, "job stopped", jobID, ownerID, PhaseStop, nil, nil, status, reason)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)
	digitRe = regexp.MustCompile(`^\d+$`)
)

// Mask implements the two PII-masking rules: emails are reduced to
// their first two characters plus "***@domain"; digit strings of
// length ≥ 7 are reduced to their first three and last four digits.
func Mask(value string) string {
	if emailRe.MatchString(value) {
		parts := strings.SplitN(value, "@", 2)
		local, domain := parts[0], parts[1]
		prefix := local
		if len(prefix) > 2 {
			prefix = prefix[:2]
		}
		return prefix + "***@" + domain
	}
	if digitRe.MatchString(value) && len(value) >= 7 {
		return value[:3] + "****" + value[len(value)-4:]
	}
	return value
}

func maskExtra(extra any) any {
	switch v := extra.(type) {
	case string:
		return Mask(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if s, ok := val.(string); ok {
				out[k] = Mask(s)
			} else {
				out[k] = val
			}
		}
		return out
	default:
		return extra
	}
}
