package jobs

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBusy is returned when a job is started while another one is active. Only
// one job may run system-wide at a time.
var ErrBusy = errors.New("a job is already running")

const maxLogEntries = 1000

// Entry is one line in the job log ring buffer. IDs increase monotonically so
// pollers can ask for everything after the last entry they saw.
type Entry struct {
	ID        int    `json:"id"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Level     string `json:"level"`
}

// Status is a point-in-time snapshot of the active job.
type Status struct {
	JobID        string `json:"job_id,omitempty"`
	IsProcessing bool   `json:"is_processing"`
	CurrentTask  string `json:"current_task"`
	Progress     int    `json:"progress"`
	Total        int    `json:"total"`
}

// State tracks the single job the service allows at a time. It owns the stop
// flag, the progress counter, the result rows and the bounded log buffer that
// the scrape core and the batch processors report into; it implements the
// core's progress/log sink and stop check.
type State struct {
	logger *slog.Logger

	mu            sync.Mutex
	jobID         string
	processing    bool
	stopRequested bool
	currentTask   string
	progress      int
	total         int
	results       []map[string]string

	logs      []Entry
	nextLogID int
}

func NewState(logger *slog.Logger) *State {
	return &State{logger: logger.With("component", "job_state")}
}

// Start claims the single job slot. It fails with ErrBusy while another job is
// active.
func (s *State) Start(task string, total int) error {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return ErrBusy
	}
	s.jobID = uuid.New().String()
	s.processing = true
	s.stopRequested = false
	s.currentTask = task
	s.progress = 0
	s.total = total
	s.results = nil
	s.mu.Unlock()

	s.AddLog("Starting "+task+"...", "info")
	return nil
}

// Stop requests a cooperative stop. The running job observes it between units
// of work; partial results are kept.
func (s *State) Stop() {
	s.mu.Lock()
	task := s.currentTask
	s.stopRequested = true
	s.mu.Unlock()

	s.AddLog("Stop requested for "+task, "warning")
}

// Complete releases the job slot after a successful run.
func (s *State) Complete() {
	s.mu.Lock()
	task := s.currentTask
	s.processing = false
	s.mu.Unlock()

	s.AddLog("Completed "+task, "success")
}

// Fail releases the job slot after an aborted run.
func (s *State) Fail(message string) {
	s.mu.Lock()
	s.processing = false
	s.mu.Unlock()

	s.AddLog(message, "error")
}

func (s *State) SetResults(rows []map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = rows
}

func (s *State) Results() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

func (s *State) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		JobID:        s.jobID,
		IsProcessing: s.processing,
		CurrentTask:  s.currentTask,
		Progress:     s.progress,
		Total:        s.total,
	}
}

// AddLog appends to the bounded buffer and mirrors the entry to the
// structured logger.
func (s *State) AddLog(message, level string) {
	s.mu.Lock()
	entry := Entry{
		ID:        s.nextLogID,
		Timestamp: time.Now().Format("15:04:05"),
		Message:   message,
		Level:     level,
	}
	s.nextLogID++
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[len(s.logs)-maxLogEntries:]
	}
	s.mu.Unlock()

	switch level {
	case "error":
		s.logger.Error(message)
	case "warning":
		s.logger.Warn(message)
	default:
		s.logger.Info(message)
	}
}

// LogsAfter returns up to limit entries with IDs greater than afterID.
// limit <= 0 means no limit.
func (s *State) LogsAfter(afterID, limit int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	for _, e := range s.logs {
		if e.ID > afterID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Progress implements the scraper sink: it records the percentage and logs
// the accompanying message.
func (s *State) Progress(percent int, message string) {
	s.mu.Lock()
	s.progress = percent
	s.mu.Unlock()

	if message != "" {
		s.AddLog(message, "info")
	}
}

// Log implements the scraper sink.
func (s *State) Log(level, message string) {
	s.AddLog(message, level)
}

// Stopped implements the scraper sink's cooperative stop check.
func (s *State) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}
