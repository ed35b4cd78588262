package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"day-planner/backend/internal/localstore"
	"day-planner/backend/internal/models"
	"day-planner/backend/internal/store"
)

type fakeLoader struct {
	tasks []models.Task
	err   error
}

func (l *fakeLoader) Load(ctx context.Context, email string) ([]models.Task, error) {
	return l.tasks, l.err
}

type fakeDispatcher struct {
	mu        sync.Mutex
	snapshots [][]models.Task
	emails    []string
}

func (d *fakeDispatcher) Dispatch(email string, tasks []models.Task) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emails = append(d.emails, email)
	d.snapshots = append(d.snapshots, tasks)
	return "job"
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.snapshots)
}

func (d *fakeDispatcher) last() []models.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.snapshots) == 0 {
		return nil
	}
	return d.snapshots[len(d.snapshots)-1]
}

func newTestStore(t *testing.T) (*store.TaskStore, *localstore.Store, *fakeLoader, *fakeDispatcher) {
	t.Helper()
	local, err := localstore.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })

	loader := &fakeLoader{}
	dispatcher := &fakeDispatcher{}
	return store.NewTaskStore(local, loader, dispatcher), local, loader, dispatcher
}

func TestCreate(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	first := s.Create(store.CreateInput{Title: "Learn Go", StartDate: "2024-01-01", Priority: models.PriorityHigh, Category: models.CategoryLearning})
	second := s.Create(store.CreateInput{Title: "Go for a run", StartDate: "2024-01-02", Priority: models.PriorityLow, Category: models.CategoryPersonal})

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.Completed)

	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID, "newest task should be first")
	assert.Equal(t, first.ID, tasks[1].ID)
}

func TestCreate_DefaultsStartDate(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	task := s.Create(store.CreateInput{Title: "No date", Priority: models.PriorityMedium, Category: models.CategoryWork})
	assert.NotEmpty(t, task.StartDate)
}

func TestUpdate(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	task := s.Create(store.CreateInput{Title: "Draft", StartDate: "2024-01-01", Priority: models.PriorityMedium, Category: models.CategoryWork})
	task.Title = "Final"
	s.Update(task)

	got, ok := s.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, "Final", got.Title)
}

func TestUpdate_UnknownIDIsNoOp(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	s.Create(store.CreateInput{Title: "Keep me", StartDate: "2024-01-01", Priority: models.PriorityMedium, Category: models.CategoryWork})
	before := s.Tasks()

	s.Update(models.Task{ID: "missing", Title: "Ghost"})

	assert.Equal(t, before, s.Tasks())
}

func TestDelete(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	task := s.Create(store.CreateInput{Title: "Remove me", StartDate: "2024-01-01", Priority: models.PriorityMedium, Category: models.CategoryWork})
	s.Delete(task.ID)

	assert.Empty(t, s.Tasks())

	// Unknown id is a no-op.
	s.Delete("missing")
	assert.Empty(t, s.Tasks())
}

func TestToggleComplete(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	task := s.Create(store.CreateInput{Title: "Toggle me", StartDate: "2024-01-01", Priority: models.PriorityMedium, Category: models.CategoryWork})

	s.ToggleComplete(task.ID)
	got, _ := s.Get(task.ID)
	assert.True(t, got.Completed)

	s.ToggleComplete(task.ID)
	got, _ = s.Get(task.ID)
	assert.False(t, got.Completed)
}

func TestReplayDeterminism(t *testing.T) {
	run := func() []models.Task {
		local, err := localstore.Open("sqlite", ":memory:")
		require.NoError(t, err)
		defer local.Close()
		s := store.NewTaskStore(local, &fakeLoader{}, &fakeDispatcher{})

		a := s.Create(store.CreateInput{Title: "A", StartDate: "2024-01-01", Priority: models.PriorityLow, Category: models.CategoryWork})
		b := s.Create(store.CreateInput{Title: "B", StartDate: "2024-01-02", Priority: models.PriorityLow, Category: models.CategoryWork})
		s.ToggleComplete(a.ID)
		b.Title = "B2"
		s.Update(b)
		s.Delete(a.ID)

		return s.Tasks()
	}

	first := run()
	second := run()

	require.Len(t, first, 1)
	assert.Equal(t, "B2", first[0].Title)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Title, second[0].Title)
	assert.Equal(t, first[0].Completed, second[0].Completed)
}

func TestMutationsPersistLocally(t *testing.T) {
	s, local, _, _ := newTestStore(t)

	task := s.Create(store.CreateInput{Title: "Persist me", StartDate: "2024-01-01", Priority: models.PriorityMedium, Category: models.CategoryWork})

	value, err := local.Get(localstore.TasksKey)
	require.NoError(t, err)

	var snapshot []models.Task
	require.NoError(t, json.Unmarshal([]byte(value), &snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal(t, task.ID, snapshot[0].ID)
}

func TestRestoreFromLocalSnapshot(t *testing.T) {
	local, err := localstore.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer local.Close()

	seed := []models.Task{{ID: "saved", Title: "Saved task", StartDate: "2024-01-01"}}
	data, _ := json.Marshal(seed)
	require.NoError(t, local.Put(localstore.TasksKey, string(data)))

	s := store.NewTaskStore(local, &fakeLoader{}, &fakeDispatcher{})

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "saved", tasks[0].ID)
}

func TestRestoreUnparsableSnapshotStartsEmpty(t *testing.T) {
	local, err := localstore.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer local.Close()

	require.NoError(t, local.Put(localstore.TasksKey, "not json"))

	s := store.NewTaskStore(local, &fakeLoader{}, &fakeDispatcher{})
	assert.Empty(t, s.Tasks())
}

func TestSignIn_RemoteReplacesLocal(t *testing.T) {
	s, local, loader, _ := newTestStore(t)

	s.Create(store.CreateInput{Title: "A", StartDate: "2024-01-01", Priority: models.PriorityLow, Category: models.CategoryWork})
	s.Create(store.CreateInput{Title: "B", StartDate: "2024-01-02", Priority: models.PriorityLow, Category: models.CategoryWork})

	loader.tasks = []models.Task{{ID: "c", Title: "C", StartDate: "2024-02-01"}}

	s.SignIn(context.Background(), models.Session{Name: "Ada", Email: "ada@example.com"})

	tasks := s.Tasks()
	require.Len(t, tasks, 1, "remote collection must replace local outright, not merge")
	assert.Equal(t, "c", tasks[0].ID)

	// Local snapshot replaced too.
	value, err := local.Get(localstore.TasksKey)
	require.NoError(t, err)
	var snapshot []models.Task
	require.NoError(t, json.Unmarshal([]byte(value), &snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal(t, "c", snapshot[0].ID)
}

func TestSignIn_EmptyRemoteReplaces(t *testing.T) {
	s, _, loader, _ := newTestStore(t)

	s.Create(store.CreateInput{Title: "A", StartDate: "2024-01-01", Priority: models.PriorityLow, Category: models.CategoryWork})
	loader.tasks = []models.Task{}

	s.SignIn(context.Background(), models.Session{Email: "ada@example.com"})

	assert.Empty(t, s.Tasks())
}

func TestSignIn_LoadFailureKeepsLocal(t *testing.T) {
	s, _, loader, _ := newTestStore(t)

	s.Create(store.CreateInput{Title: "A", StartDate: "2024-01-01", Priority: models.PriorityLow, Category: models.CategoryWork})
	s.Create(store.CreateInput{Title: "B", StartDate: "2024-01-02", Priority: models.PriorityLow, Category: models.CategoryWork})

	loader.err = errors.New("network down")

	s.SignIn(context.Background(), models.Session{Email: "ada@example.com"})

	assert.Len(t, s.Tasks(), 2, "failed remote load must not overwrite local tasks")
	require.NotNil(t, s.Session())
}

func TestSignOut_KeepsTasks(t *testing.T) {
	s, local, _, _ := newTestStore(t)

	s.SignIn(context.Background(), models.Session{Email: "ada@example.com"})
	s.Create(store.CreateInput{Title: "Mine", StartDate: "2024-01-01", Priority: models.PriorityLow, Category: models.CategoryWork})

	s.SignOut()

	assert.Nil(t, s.Session())
	assert.Len(t, s.Tasks(), 1)

	_, err := local.Get(localstore.SessionKey)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestRemoteDispatchOnlyWithSession(t *testing.T) {
	s, _, loader, dispatcher := newTestStore(t)

	s.Create(store.CreateInput{Title: "Anonymous", StartDate: "2024-01-01", Priority: models.PriorityLow, Category: models.CategoryWork})
	assert.Equal(t, 0, dispatcher.count(), "no remote write without a session")

	// Remote load fails so the local collection is retained.
	loader.err = errors.New("no remote data")
	s.SignIn(context.Background(), models.Session{Email: "ada@example.com"})
	s.Create(store.CreateInput{Title: "Synced", StartDate: "2024-01-02", Priority: models.PriorityLow, Category: models.CategoryWork})

	assert.Equal(t, 1, dispatcher.count())
	require.Len(t, dispatcher.last(), 2)
	assert.Equal(t, "Synced", dispatcher.last()[0].Title)
}

func TestSessionRestoredFromLocal(t *testing.T) {
	local, err := localstore.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer local.Close()

	data, _ := json.Marshal(models.Session{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, local.Put(localstore.SessionKey, string(data)))

	s := store.NewTaskStore(local, &fakeLoader{}, &fakeDispatcher{})

	session := s.Session()
	require.NotNil(t, session)
	assert.Equal(t, "ada@example.com", session.Email)
}

func TestSeedIfEmpty(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	seed := []models.Task{{ID: "demo", Title: "Demo", StartDate: "2024-01-01"}}
	s.SeedIfEmpty(seed)
	assert.Len(t, s.Tasks(), 1)

	// Does not clobber an existing collection.
	s.SeedIfEmpty([]models.Task{{ID: "demo2"}})
	assert.Len(t, s.Tasks(), 1)
}
