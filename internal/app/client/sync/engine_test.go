package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"blogkeeper/internal/app/client/entity"
	"blogkeeper/internal/app/client/storage"
	"blogkeeper/internal/domain/blog"
)

var (
	errDown   = errors.New("connection refused")
	fixedTime = time.UnixMilli(1_700_000_000_000)
)

// fakeRemote имитирует сервер: назначает id по порядку и записывает вызовы.
type fakeRemote struct {
	mu      gosync.Mutex
	nextID  int64
	calls   []string
	bodies  []map[string]any
	failOn  func(method string, kind blog.Kind) error
	lists   map[blog.Kind]string
	entered chan struct{}
	release chan struct{}
	// created вызывается после успешного POST
	created func()
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{nextID: 100, lists: make(map[blog.Kind]string)}
}

func (f *fakeRemote) record(method string, kind blog.Kind, path string, body any) error {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, method+" "+path)
	if body != nil {
		raw, _ := json.Marshal(body)
		var m map[string]any
		_ = json.Unmarshal(raw, &m)
		f.bodies = append(f.bodies, m)
	}

	if f.failOn != nil {
		return f.failOn(method, kind)
	}
	return nil
}

func (f *fakeRemote) Create(ctx context.Context, kind blog.Kind, body, out any) error {
	if err := f.record("POST", kind, "/"+kind.Collection(), body); err != nil {
		return err
	}

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	raw, _ := json.Marshal(body)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	m["id"] = id
	raw, _ = json.Marshal(m)
	if err := json.Unmarshal(raw, out); err != nil {
		return err
	}
	if f.created != nil {
		f.created()
	}
	return nil
}

func (f *fakeRemote) Update(ctx context.Context, kind blog.Kind, id int64, body, out any) error {
	return f.record("PUT", kind, fmt.Sprintf("/%s/%d", kind.Collection(), id), body)
}

func (f *fakeRemote) Delete(ctx context.Context, kind blog.Kind, id int64) error {
	return f.record("DELETE", kind, fmt.Sprintf("/%s/%d", kind.Collection(), id), nil)
}

func (f *fakeRemote) List(ctx context.Context, kind blog.Kind, out any) error {
	if err := f.record("GET", kind, "/"+kind.Collection(), nil); err != nil {
		return err
	}

	f.mu.Lock()
	body, ok := f.lists[kind]
	f.mu.Unlock()
	if !ok {
		body = "[]"
	}
	return json.Unmarshal([]byte(body), out)
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// spyQueue считает чтения очереди.
type spyQueue struct {
	*storage.Queue
	mu        gosync.Mutex
	snapshots int
}

func (q *spyQueue) Snapshot(ctx context.Context) ([]blog.Operation, error) {
	q.mu.Lock()
	q.snapshots++
	q.mu.Unlock()
	return q.Queue.Snapshot(ctx)
}

func (q *spyQueue) Snapshots() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshots
}

// spyImporter считает вызовы массовой записи.
type spyImporter struct {
	*storage.Store
	imports int
}

func (s *spyImporter) Import(ctx context.Context, batches ...storage.Batch) error {
	s.imports++
	return s.Store.Import(ctx, batches...)
}

type offline struct{}

func (offline) Online() bool { return false }

type fixture struct {
	store    *storage.Store
	importer *spyImporter
	queue    *spyQueue
	remote   *fakeRemote
	engine   *Engine
	posts    *entity.PostService
	comments *entity.CommentService
	users    *entity.UserService

	postTable    *storage.Table[blog.Post]
	commentTable *storage.Table[blog.Comment]
	userTable    *storage.Table[blog.User]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.OpenMemory(log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:        store,
		importer:     &spyImporter{Store: store},
		queue:        &spyQueue{Queue: store.Queue()},
		remote:       newFakeRemote(),
		postTable:    storage.NewTable[blog.Post](store),
		commentTable: storage.NewTable[blog.Comment](store),
		userTable:    storage.NewTable[blog.User](store),
	}

	// Локальные изменения делаются без связи, чтобы все они попали в очередь.
	var (
		clockMu gosync.Mutex
		tick    = fixedTime
	)
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		tick = tick.Add(time.Millisecond)
		return tick
	}
	f.posts = entity.New[blog.Post](f.postTable, store.Queue(), f.remote, offline{}, log, entity.WithClock(clock))
	f.comments = entity.NewCommentService(f.commentTable, store.Queue(), f.remote, offline{}, log, entity.WithClock(clock))
	f.users = entity.New[blog.User](f.userTable, store.Queue(), f.remote, offline{}, log, entity.WithClock(clock))

	f.engine = New(f.importer, f.queue, f.remote, log, []Handler{
		Handle(f.userTable, f.users.Refresh),
		Handle(f.postTable, f.posts.Refresh),
		Handle(f.commentTable, f.comments.Refresh),
	}, WithClock(clock))

	return f
}

func (f *fixture) ops(t *testing.T) []blog.Operation {
	t.Helper()

	ops, err := f.store.Queue().Snapshot(context.Background())
	require.NoError(t, err)
	return ops
}

func TestEngine_ReplayCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	draft, err := f.posts.Create(ctx, blog.Post{UserID: 1, Title: "A", Body: "B"})
	require.NoError(t, err)
	require.True(t, blog.IsPlaceholder(draft.ID))

	res, err := f.engine.SyncPendingOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Total: 1, Replayed: 1, Duration: res.Duration}, res)

	_, err = f.posts.Get(ctx, draft.ID)
	assert.ErrorIs(t, err, blog.ErrNotFound)

	posts, err := f.posts.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(101), posts[0].ID)
	assert.Equal(t, blog.StatusSynced, posts[0].SyncStatus)
	assert.Equal(t, "A", posts[0].Title)

	assert.Empty(t, f.ops(t))
	assert.Equal(t, []string{"POST /posts"}, f.remote.Calls())
	assert.NotContains(t, f.remote.bodies[0], "id")
}

func TestEngine_RetryCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.failOn = func(string, blog.Kind) error { return errDown }

	require.NoError(t, f.userTable.Put(ctx, blog.User{ID: 5, Name: "Ann", SyncStatus: blog.StatusSynced}))
	name := "Bob"
	_, err := f.users.Update(ctx, 5, blog.UserPatch{Name: &name})
	require.NoError(t, err)

	for attempt := 1; attempt < DefaultMaxRetries; attempt++ {
		res, err := f.engine.SyncPendingOperations(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Failed)

		ops := f.ops(t)
		require.Len(t, ops, 1)
		assert.Equal(t, attempt, ops[0].RetryCount)
		assert.Contains(t, ops[0].LastError, errDown.Error())
	}

	res, err := f.engine.SyncPendingOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Abandoned)
	assert.Empty(t, f.ops(t))

	user, err := f.users.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, blog.StatusFailed, user.SyncStatus)
	assert.Equal(t, "Bob", user.Name)

	stats := f.engine.Stats()
	assert.Equal(t, DefaultMaxRetries, stats.Passes)
	assert.Equal(t, 1, stats.Abandoned)
}

func TestEngine_MaxRetriesOption(t *testing.T) {
	e := New(nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, WithMaxRetries(5))
	assert.Equal(t, 5, e.maxRetries)

	e = New(nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, WithMaxRetries(0))
	assert.Equal(t, DefaultMaxRetries, e.maxRetries)
}

func TestEngine_SinglePass(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.posts.Create(ctx, blog.Post{UserID: 1, Title: "A"})
	require.NoError(t, err)

	f.remote.entered = make(chan struct{})
	f.remote.release = make(chan struct{})

	var statuses []Status
	var statusMu gosync.Mutex
	f.engine.Subscribe(func(s Status) {
		statusMu.Lock()
		statuses = append(statuses, s)
		statusMu.Unlock()
	})

	done := make(chan Result)
	go func() {
		res, err := f.engine.SyncPendingOperations(ctx)
		assert.NoError(t, err)
		done <- res
	}()

	<-f.remote.entered
	assert.True(t, f.engine.Running())

	res, err := f.engine.SyncPendingOperations(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, f.queue.Snapshots(), "skipped pass must not read the queue")

	close(f.remote.release)
	first := <-done
	assert.Equal(t, 1, first.Replayed)
	assert.False(t, f.engine.Running())

	statusMu.Lock()
	assert.Equal(t, []Status{StatusRunning, StatusIdle}, statuses)
	statusMu.Unlock()
}

func TestEngine_PlaceholderChain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.users.Create(ctx, blog.User{Name: "Ann", Username: "ann"})
	require.NoError(t, err)
	post, err := f.posts.Create(ctx, blog.Post{UserID: user.ID, Title: "A"})
	require.NoError(t, err)
	comment, err := f.comments.Create(ctx, blog.Comment{PostID: post.ID, Body: "nice"})
	require.NoError(t, err)
	body := "updated"
	_, err = f.posts.Update(ctx, post.ID, blog.PostPatch{Body: &body})
	require.NoError(t, err)

	res, err := f.engine.SyncPendingOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Replayed)
	assert.Empty(t, f.ops(t))

	assert.Equal(t, []string{"POST /users", "POST /posts", "POST /comments", "PUT /posts/102"}, f.remote.Calls())
	assert.EqualValues(t, 101, f.remote.bodies[1]["userId"])
	assert.EqualValues(t, 102, f.remote.bodies[2]["postId"])
	assert.Equal(t, "updated", f.remote.bodies[3]["body"])

	comments, err := f.comments.ListByPost(ctx, 102)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, int64(103), comments[0].ID)
	assert.NotEqual(t, comment.ID, comments[0].ID)

	stored, err := f.posts.Get(ctx, 102)
	require.NoError(t, err)
	assert.Equal(t, int64(101), stored.UserID)
	assert.Equal(t, "updated", stored.Body)
	assert.Equal(t, blog.StatusSynced, stored.SyncStatus)

	for _, kind := range blog.Kinds {
		var n int
		require.NoError(t, f.store.DB().QueryRow(
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id < 0", kind.Collection())).Scan(&n))
		assert.Zero(t, n, "placeholder left in %s", kind.Collection())
	}
}

func TestEngine_DefersBehindFailedCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.failOn = func(method string, kind blog.Kind) error {
		if kind == blog.KindPost {
			return errDown
		}
		return nil
	}

	post, err := f.posts.Create(ctx, blog.Post{UserID: 1, Title: "A"})
	require.NoError(t, err)
	_, err = f.comments.Create(ctx, blog.Comment{PostID: post.ID, Body: "nice"})
	require.NoError(t, err)
	_, err = f.users.Create(ctx, blog.User{Name: "Ann"})
	require.NoError(t, err)

	res, err := f.engine.SyncPendingOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Deferred)
	assert.Equal(t, 1, res.Replayed, "failure must not abort later entries")

	ops := f.ops(t)
	require.Len(t, ops, 2)
	assert.Equal(t, blog.KindPost, ops[0].Entity)
	assert.Equal(t, 1, ops[0].RetryCount)
	assert.Equal(t, blog.KindComment, ops[1].Entity)
	assert.Zero(t, ops[1].RetryCount, "deferred entry must not consume a retry")

	assert.NotContains(t, f.remote.Calls(), "POST /comments")
}

func TestEngine_OrphanPlaceholderFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.comments.Create(ctx, blog.Comment{PostID: -42, Body: "orphan"})
	require.NoError(t, err)

	res, err := f.engine.SyncPendingOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	ops := f.ops(t)
	require.Len(t, ops, 1)
	assert.Equal(t, 1, ops[0].RetryCount)
	assert.Contains(t, ops[0].LastError, blog.ErrPlaceholder.Error())
	assert.Empty(t, f.remote.Calls())
}

func TestEngine_DeleteAfterOfflineCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	post, err := f.posts.Create(ctx, blog.Post{UserID: 1, Title: "draft"})
	require.NoError(t, err)
	ok, err := f.posts.Delete(ctx, post.ID)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := f.engine.SyncPendingOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Replayed)

	assert.Equal(t, []string{"POST /posts", "DELETE /posts/101"}, f.remote.Calls())

	posts, err := f.posts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts, "confirmed create must not resurrect a deleted record")
	assert.Empty(t, f.ops(t))
}

func TestEngine_UpdateKeepsNewerLocal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.postTable.Put(ctx, blog.Post{ID: 9, UserID: 1, Title: "v0", SyncStatus: blog.StatusSynced}))
	v1, v2 := "v1", "v2"
	_, err := f.posts.Update(ctx, 9, blog.PostPatch{Title: &v1})
	require.NoError(t, err)
	_, err = f.posts.Update(ctx, 9, blog.PostPatch{Title: &v2})
	require.NoError(t, err)

	// Первая операция проходит, вторая падает: локальная v2 не должна быть затерта v1.
	calls := 0
	f.remote.failOn = func(method string, kind blog.Kind) error {
		calls++
		if calls > 1 {
			return errDown
		}
		return nil
	}

	res, err := f.engine.SyncPendingOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)
	assert.Equal(t, 1, res.Failed)

	post, err := f.posts.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "v2", post.Title)
	assert.Equal(t, blog.StatusPending, post.SyncStatus)
}

func TestEngine_UnknownEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	q := f.store.Queue()
	require.NoError(t, q.Enqueue(ctx, blog.Operation{ID: "bad-kind", Type: blog.OpCreate, Entity: "tag", Data: []byte(`{}`), Timestamp: 1}))
	require.NoError(t, q.Enqueue(ctx, blog.Operation{ID: "bad-op", Type: "merge", Entity: blog.KindUser, Key: 3, Data: []byte(`{"id":3}`), Timestamp: 2}))

	for i := 0; i < DefaultMaxRetries; i++ {
		_, err := f.engine.SyncPendingOperations(ctx)
		require.NoError(t, err)
	}

	assert.Empty(t, f.ops(t))
	assert.Empty(t, f.remote.Calls())
}

func TestEngine_SyncNotifiesObservers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.users.Create(ctx, blog.User{Name: "Ann"})
	require.NoError(t, err)

	var seen [][]blog.User
	f.users.Subscribe(func(users []blog.User) { seen = append(seen, users) })

	_, err = f.engine.SyncPendingOperations(ctx)
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	last := seen[len(seen)-1]
	require.Len(t, last, 1)
	assert.Equal(t, blog.StatusSynced, last[0].SyncStatus)
}

func TestEngine_InitialSync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.remote.lists[blog.KindPost] = `[{"id":1,"userId":1,"title":"t","body":"b"},{"id":2,"userId":1,"title":"u","body":"c"}]`
	f.remote.lists[blog.KindComment] = `[{"id":1,"postId":1,"name":"n","email":"e@x.io","body":"b"}]`
	f.remote.lists[blog.KindUser] = `[{"id":1,"name":"Ann","email":"a@x.io","username":"ann"}]`

	local := blog.Post{ID: 2, UserID: 1, Title: "local", SyncStatus: blog.StatusPending, UpdatedAt: 5}
	require.NoError(t, f.postTable.Put(ctx, local))

	require.NoError(t, f.engine.InitialSync(ctx))
	assert.Equal(t, 1, f.importer.imports)

	posts, err := f.posts.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, blog.StatusSynced, posts[0].SyncStatus)
	assert.Greater(t, posts[0].UpdatedAt, fixedTime.UnixMilli())
	assert.Equal(t, local, posts[1])

	comments, err := f.comments.List(ctx)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	users, err := f.users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ann", users[0].Name)

	assert.Equal(t, 1, f.engine.Stats().InitialSyncs)
}

func TestEngine_InitialSyncSkipsQueuedDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.postTable.Put(ctx, blog.Post{ID: 1, UserID: 1, Title: "t", SyncStatus: blog.StatusSynced}))
	ok, err := f.posts.Delete(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)

	f.remote.lists[blog.KindPost] = `[{"id":1,"userId":1,"title":"t","body":"b"},{"id":2,"userId":1,"title":"u","body":"c"}]`
	require.NoError(t, f.engine.InitialSync(ctx))

	_, err = f.posts.Get(ctx, 1)
	assert.ErrorIs(t, err, blog.ErrNotFound, "record with a queued delete must not come back")

	res, err := f.engine.SyncPendingOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)
	assert.Contains(t, f.remote.Calls(), "DELETE /posts/1")

	posts, err := f.posts.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(2), posts[0].ID)
	assert.Empty(t, f.ops(t))
}

func TestEngine_LocalFailureAfterConfirmedCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.posts.Create(ctx, blog.Post{UserID: 1, Title: "A"})
	require.NoError(t, err)

	f.remote.created = func() {
		_, err := f.store.DB().Exec(`DROP TABLE posts`)
		require.NoError(t, err)
	}

	_, err = f.engine.SyncPendingOperations(ctx)
	require.Error(t, err)
	assert.Empty(t, f.ops(t), "confirmed create must leave the queue")

	_, err = f.engine.SyncPendingOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"POST /posts"}, f.remote.Calls(), "create must not be sent twice")
}

func TestEngine_DeleteIgnoresDanglingRefs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.commentTable.Put(ctx, blog.Comment{ID: 7, PostID: -3, Body: "b", SyncStatus: blog.StatusSynced}))
	ok, err := f.comments.Delete(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := f.engine.SyncPendingOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)
	assert.Zero(t, res.Failed)
	assert.Equal(t, []string{"DELETE /comments/7"}, f.remote.Calls())
	assert.Empty(t, f.ops(t))
}

func TestEngine_InitialSyncFailure(t *testing.T) {
	tests := []struct {
		name   string
		failOn func(string, blog.Kind) error
		lists  map[blog.Kind]string
	}{
		{
			name: "comments fail",
			failOn: func(_ string, kind blog.Kind) error {
				if kind == blog.KindComment {
					return errDown
				}
				return nil
			},
		},
		{
			name:  "absent result",
			lists: map[blog.Kind]string{blog.KindUser: `null`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.remote.failOn = tt.failOn
			f.remote.lists[blog.KindPost] = `[{"id":1,"userId":1,"title":"t","body":"b"}]`
			for k, v := range tt.lists {
				f.remote.lists[k] = v
			}

			before := blog.Post{ID: 7, Title: "kept", SyncStatus: blog.StatusSynced}
			require.NoError(t, f.postTable.Put(ctx, before))

			err := f.engine.InitialSync(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, blog.ErrInitialSync)
			assert.Zero(t, f.importer.imports, "bulk write must not be invoked")

			posts, err := f.posts.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []blog.Post{before}, posts)
		})
	}
}
