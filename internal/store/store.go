package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"day-planner/backend/internal/localstore"
	"day-planner/backend/internal/models"
)

// Service is the task-store surface the HTTP layer depends on.
type Service interface {
	Tasks() []models.Task
	Get(id string) (models.Task, bool)
	Create(input CreateInput) models.Task
	Update(task models.Task)
	Delete(id string)
	ToggleComplete(id string)
	Session() *models.Session
	SignIn(ctx context.Context, session models.Session)
	SignOut()
}

// CloudLoader fetches the remote collection on sign-in.
type CloudLoader interface {
	Load(ctx context.Context, email string) ([]models.Task, error)
}

// Dispatcher hands remote snapshot writes off the mutation path.
type Dispatcher interface {
	Dispatch(email string, tasks []models.Task) string
}

type CreateInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartDate   string          `json:"startDate"`
	Deadline    string          `json:"deadline,omitempty"`
	Priority    models.Priority `json:"priority"`
	Category    models.Category `json:"category"`
}

// TaskStore owns the in-memory task collection. Every mutation is
// mirrored synchronously to the local snapshot store (failures logged,
// never raised) and, while a session is active, dispatched to the
// remote blob store without being awaited.
type TaskStore struct {
	mu         sync.RWMutex
	tasks      []models.Task
	session    *models.Session
	local      *localstore.Store
	loader     CloudLoader
	dispatcher Dispatcher
}

func NewTaskStore(local *localstore.Store, loader CloudLoader, dispatcher Dispatcher) *TaskStore {
	s := &TaskStore{
		tasks:      []models.Task{},
		local:      local,
		loader:     loader,
		dispatcher: dispatcher,
	}
	s.restore()
	return s
}

// restore seeds the collection and session from the local snapshot
// store. Absent or unparsable snapshots mean starting empty.
func (s *TaskStore) restore() {
	if value, err := s.local.Get(localstore.TasksKey); err == nil {
		var tasks []models.Task
		if err := json.Unmarshal([]byte(value), &tasks); err != nil {
			log.Printf("Ignoring unparsable local task snapshot: %v", err)
		} else {
			s.tasks = tasks
		}
	} else if !errors.Is(err, localstore.ErrNotFound) {
		log.Printf("Failed to read local task snapshot: %v", err)
	}

	if value, err := s.local.Get(localstore.SessionKey); err == nil {
		var session models.Session
		if err := json.Unmarshal([]byte(value), &session); err != nil {
			log.Printf("Ignoring unparsable local session snapshot: %v", err)
		} else if session.Email != "" {
			s.session = &session
		}
	}
}

// SeedIfEmpty installs a starter collection when nothing was restored.
func (s *TaskStore) SeedIfEmpty(tasks []models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tasks) > 0 {
		return
	}
	s.tasks = append([]models.Task{}, tasks...)
	s.persistLocked()
}

// Tasks returns a copy of the collection in display order,
// newest-created first.
func (s *TaskStore) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Task{}, s.tasks...)
}

func (s *TaskStore) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, task := range s.tasks {
		if task.ID == id {
			return task, true
		}
	}
	return models.Task{}, false
}

// Create assigns a fresh id, forces completed=false and prepends the
// task. Empty-title rejection is the calling edge's job, not ours.
func (s *TaskStore) Create(input CreateInput) models.Task {
	task := models.Task{
		ID:          uuid.Must(uuid.NewV4()).String(),
		Title:       input.Title,
		Description: input.Description,
		StartDate:   input.StartDate,
		Deadline:    input.Deadline,
		Completed:   false,
		Priority:    input.Priority,
		Category:    input.Category,
	}
	if task.StartDate == "" {
		task.StartDate = time.Now().Format("2006-01-02")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = append([]models.Task{task}, s.tasks...)
	s.persistLocked()
	return task
}

// Update replaces the entry with a matching id; unknown ids are a
// no-op.
func (s *TaskStore) Update(task models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = task
			s.persistLocked()
			return
		}
	}
}

func (s *TaskStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			s.persistLocked()
			return
		}
	}
}

func (s *TaskStore) ToggleComplete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].Completed = !s.tasks[i].Completed
			s.persistLocked()
			return
		}
	}
}

func (s *TaskStore) Session() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return nil
	}
	session := *s.session
	return &session
}

// SignIn installs the session and pulls the remote collection. A
// successful load, empty included, replaces the local collection
// outright; a failed load leaves local state untouched.
func (s *TaskStore) SignIn(ctx context.Context, session models.Session) {
	s.mu.Lock()
	s.session = &session
	if data, err := json.Marshal(session); err == nil {
		if err := s.local.Put(localstore.SessionKey, string(data)); err != nil {
			log.Printf("Failed to persist session locally: %v", err)
		}
	}
	s.mu.Unlock()

	remote, err := s.loader.Load(ctx, session.Email)
	if err != nil {
		log.Printf("Remote load for %s failed, keeping local tasks: %v", session.Email, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = remote
	s.persistLocalLocked()
}

// SignOut destroys the session. The local task collection survives.
func (s *TaskStore) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	if err := s.local.Delete(localstore.SessionKey); err != nil {
		log.Printf("Failed to clear local session snapshot: %v", err)
	}
}

// persistLocked mirrors the collection to local storage and, with a
// session active, queues a remote overwrite. Callers hold the lock.
func (s *TaskStore) persistLocked() {
	s.persistLocalLocked()

	if s.session != nil && s.dispatcher != nil {
		snapshot := append([]models.Task{}, s.tasks...)
		s.dispatcher.Dispatch(s.session.Email, snapshot)
	}
}

func (s *TaskStore) persistLocalLocked() {
	data, err := json.Marshal(s.tasks)
	if err != nil {
		log.Printf("Failed to marshal task snapshot: %v", err)
		return
	}
	if err := s.local.Put(localstore.TasksKey, string(data)); err != nil {
		log.Printf("Failed to persist tasks locally: %v", err)
	}
}
