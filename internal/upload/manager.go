package upload

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anugulalokeshreddy-code/deepfake/internal/logging"
	"github.com/anugulalokeshreddy-code/deepfake/internal/models"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

// State is the position of an upload task in its workflow.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateRejected     State = "rejected"
	StateTransferring State = "transferring"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateSucceeded || s == StateFailed
}

// ErrInProgress is returned by Begin while another upload is in flight.
var ErrInProgress = errors.New("an upload is already in progress")

// Task is one invocation of the upload workflow.
type Task struct {
	ID          string                  `json:"id"`
	FileName    string                  `json:"fileName"`
	MediaType   string                  `json:"mediaType"`
	Size        int64                   `json:"size"`
	State       State                   `json:"state"`
	Error       string                  `json:"error,omitempty"`
	Result      *models.DetectionResult `json:"result,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	CompletedAt *time.Time              `json:"completedAt,omitempty"`

	cancel context.CancelFunc
}

// Manager validates uploads and serializes them: at most one task is in
// the transferring state at a time.
type Manager struct {
	mu        sync.RWMutex
	tasks     map[string]*Task
	active    *Task
	validator *Validator
	logger    *log.Logger
}

// NewManager creates a new upload task manager.
func NewManager(validator *Validator, logger *log.Logger) *Manager {
	if validator == nil {
		validator = NewValidator(nil, 0)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		tasks:     make(map[string]*Task),
		validator: validator,
		logger:    logger,
	}
}

// Validator returns the manager's validator.
func (m *Manager) Validator() *Validator {
	return m.validator
}

// Begin runs local validation and, on acceptance, claims the in-flight slot.
// The returned context governs the transfer and is canceled by Cancel or
// Finish. A rejected file yields a task in StateRejected and the validation
// error; no context is returned.
func (m *Manager) Begin(parent context.Context, file *models.CandidateFile) (Task, context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return Task{}, nil, ErrInProgress
	}

	task := &Task{
		ID:        uuid.New().String(),
		State:     StateValidating,
		CreatedAt: time.Now(),
	}
	if file != nil {
		task.FileName = file.Name
		task.MediaType = file.MediaType
		task.Size = file.Size
	}
	m.tasks[task.ID] = task

	if err := m.validator.Validate(file); err != nil {
		m.complete(task, StateRejected, err.Error())
		m.logger.Infof("[Upload %s] Rejected %q: %v", task.ID[:8], task.FileName, err)
		return *task, nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	task.cancel = cancel
	task.State = StateTransferring
	m.active = task

	m.logger.Infof("[Upload %s] Transferring %q (%d bytes, %s)", task.ID[:8], task.FileName, task.Size, task.MediaType)
	return *task, ctx, nil
}

// Finish records the transfer outcome and releases the in-flight slot.
func (m *Manager) Finish(id string, result *models.DetectionResult, err error) (Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok || task.State != StateTransferring {
		return Task{}, false
	}

	if err != nil {
		m.complete(task, StateFailed, err.Error())
		m.logger.Warnf("[Upload %s] Failed: %v", task.ID[:8], err)
	} else {
		task.Result = result
		m.complete(task, StateSucceeded, "")
		m.logger.Infof("[Upload %s] Complete: %s (%.4f)", task.ID[:8], result.Prediction, result.Confidence)
	}

	if task.cancel != nil {
		task.cancel()
		task.cancel = nil
	}
	if m.active == task {
		m.active = nil
	}
	return *task, true
}

// Cancel aborts the in-flight upload, if any.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.active.cancel == nil {
		return false
	}
	m.logger.Infof("[Upload %s] Cancel requested", m.active.ID[:8])
	m.active.cancel()
	return true
}

// InProgress reports whether an upload is in flight.
func (m *Manager) InProgress() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active != nil
}

// Get retrieves a snapshot of a task by ID.
func (m *Manager) Get(id string) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// complete moves task to a terminal state. Caller holds m.mu.
func (m *Manager) complete(task *Task, state State, errMsg string) {
	task.State = state
	task.Error = errMsg
	now := time.Now()
	task.CompletedAt = &now
}

// CleanupOldTasks removes finished tasks older than maxAge.
func (m *Manager) CleanupOldTasks(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for id, task := range m.tasks {
		if task.State.Terminal() && task.CompletedAt != nil && task.CompletedAt.Before(cutoff) {
			delete(m.tasks, id)
			removed++
		}
	}
	return removed
}
