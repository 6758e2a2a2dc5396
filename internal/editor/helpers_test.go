package editor_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"digitalroom/internal/blob"
	"digitalroom/internal/editor"
	"digitalroom/internal/infra/persistence/memory"
	"digitalroom/internal/notice"
	"digitalroom/pkg/domain"
)

var errRemote = errors.New("remote unavailable")

func bookSchema() editor.Schema {
	return editor.Schema{
		Entity:     "books",
		Label:      "Book",
		Table:      "books",
		TitleField: "title",
		Bucket:     "images",
		Fields: []editor.Field{
			{Name: "title", Kind: editor.KindString, Required: true},
			{Name: "author", Kind: editor.KindString},
			{Name: "rating", Kind: editor.KindFloat},
			{Name: "status", Kind: editor.KindEnum, Options: []string{"reading", "finished", "wishlist"}, Default: "wishlist"},
			{Name: "tags", Kind: editor.KindTags},
			{Name: "quotes", Kind: editor.KindList, SubFields: []editor.Field{{Name: "text", Kind: editor.KindText}, {Name: "chapter", Kind: editor.KindString}}},
			{Name: "cover", Kind: editor.KindImage},
			{Name: "images", Kind: editor.KindImages},
			{Name: domain.FieldSortOrder, Kind: editor.KindInt},
		},
	}
}

// flakyStore wraps a RowStore and fails selected operations while armed.
type flakyStore struct {
	domain.RowStore
	mu         sync.Mutex
	failSelect error
	failInsert error
	failUpdate error
	failDelete error
	inserts    int
	updates    int
	deletes    int
}

func (f *flakyStore) Select(ctx context.Context, table string, q domain.Query) ([]domain.Record, error) {
	f.mu.Lock()
	err := f.failSelect
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.RowStore.Select(ctx, table, q)
}

func (f *flakyStore) Insert(ctx context.Context, table string, values map[string]any) (domain.Record, error) {
	f.mu.Lock()
	f.inserts++
	err := f.failInsert
	f.mu.Unlock()
	if err != nil {
		return domain.Record{}, err
	}
	return f.RowStore.Insert(ctx, table, values)
}

func (f *flakyStore) Update(ctx context.Context, table string, id domain.ID, patch map[string]any) (domain.Record, error) {
	f.mu.Lock()
	f.updates++
	err := f.failUpdate
	f.mu.Unlock()
	if err != nil {
		return domain.Record{}, err
	}
	return f.RowStore.Update(ctx, table, id, patch)
}

func (f *flakyStore) Delete(ctx context.Context, table string, id domain.ID) error {
	f.mu.Lock()
	f.deletes++
	err := f.failDelete
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.RowStore.Delete(ctx, table, id)
}

func (f *flakyStore) set(fn func(*flakyStore)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

// gate blocks the first call of a hooked operation until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	first   sync.Once
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

// wait blocks only the first caller.
func (g *gate) wait() {
	blocked := false
	g.first.Do(func() { blocked = true })
	if !blocked {
		return
	}
	close(g.entered)
	<-g.release
}

func (g *gate) open() { g.once.Do(func() { close(g.release) }) }

func (g *gate) awaitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(5 * time.Second):
		t.Fatalf("gated call never started")
	}
}

// gatedStore holds the first Select or Insert until its gate opens. A held
// Select returns the rows captured when the call started.
type gatedStore struct {
	domain.RowStore
	selectGate *gate
	insertGate *gate
}

func (g *gatedStore) Select(ctx context.Context, table string, q domain.Query) ([]domain.Record, error) {
	recs, err := g.RowStore.Select(ctx, table, q)
	if g.selectGate != nil {
		g.selectGate.wait()
	}
	return recs, err
}

func (g *gatedStore) Insert(ctx context.Context, table string, values map[string]any) (domain.Record, error) {
	if g.insertGate != nil {
		g.insertGate.wait()
	}
	return g.RowStore.Insert(ctx, table, values)
}

type failingBlobs struct{ blob.Store }

func (failingBlobs) Upload(context.Context, string, string, io.Reader, blob.UploadOptions) (blob.Object, error) {
	return blob.Object{}, errRemote
}

// gatedBlobs holds the first Upload until its gate opens.
type gatedBlobs struct {
	blob.Store
	gate *gate
}

func (g gatedBlobs) Upload(ctx context.Context, bucket, p string, r io.Reader, opts blob.UploadOptions) (blob.Object, error) {
	g.gate.wait()
	return g.Store.Upload(ctx, bucket, p, r, opts)
}

type fixture struct {
	mem      *memory.Store
	store    *flakyStore
	notices  *notice.Recorder
	editor   *editor.Editor
	blobs    blob.Store
	clockNow time.Time
}

func newFixture(t *testing.T, opts ...editor.Option) *fixture {
	t.Helper()
	f := &fixture{
		mem:      memory.NewStore(),
		notices:  notice.NewRecorder(0),
		blobs:    blob.NewMemory("https://media.example.com"),
		clockNow: time.UnixMilli(1767225600000),
	}
	f.store = &flakyStore{RowStore: f.mem}
	base := []editor.Option{
		editor.WithNotifier(f.notices),
		editor.WithBlobStore(f.blobs),
		editor.WithClock(func() time.Time { return f.clockNow }),
	}
	ed, err := editor.New(bookSchema(), f.store, append(base, opts...)...)
	require.NoError(t, err)
	f.editor = ed
	return f
}

func (f *fixture) seed(t *testing.T, values ...map[string]any) []domain.Record {
	t.Helper()
	out := make([]domain.Record, 0, len(values))
	for _, v := range values {
		r, err := f.mem.Insert(context.Background(), "books", v)
		require.NoError(t, err)
		out = append(out, r)
	}
	require.NoError(t, f.editor.Load(context.Background()))
	return out
}

func (f *fixture) create(t *testing.T, fields map[string]any) domain.Record {
	t.Helper()
	require.NoError(t, f.editor.BeginCreate())
	for k, v := range fields {
		require.NoError(t, f.editor.UpdateDraftField(k, v))
	}
	rec, err := f.editor.Save(context.Background())
	require.NoError(t, err)
	return rec
}
