package assetfs

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jackfish212/assetfs/capability"
	"github.com/jackfish212/assetfs/handlecache"
	"github.com/jackfish212/assetfs/handles"
	"github.com/jackfish212/assetfs/internal/testutil"
)

type fixture struct {
	m     *Manager
	fs    *testutil.RevocableFs
	mem   afero.Fs
	cache *handlecache.Cache
	zip   []byte
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/work/site/index.html", []byte("<h1>site</h1>"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/work/site/img/logo.png", []byte("png"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/work/site/css/app.css", []byte("body{}"), 0o644))

	zipData := testutil.BuildZip(t, map[string]string{
		"index.html":    "<h1>zip</h1>",
		"img/":          "",
		"img/photo.jpg": "jpg",
		"readme.txt":    "hi",
	})
	require.NoError(t, afero.WriteFile(mem, "/work/bundle.zip", zipData, 0o644))

	fs := testutil.NewRevocableFs(mem)
	cache := handlecache.New(handlecache.NewMemoryStore(), handlecache.WithResolver(handlecache.FsResolver(fs)))

	all := append([]Option{
		WithHandleCache(cache),
		WithCapabilities(capability.Static(capability.Capabilities{Directory: true, Archive: true})),
	}, opts...)
	m := New(all...)
	t.Cleanup(func() { m.Close() })

	return &fixture{m: m, fs: fs, mem: mem, cache: cache, zip: zipData}
}

func (f *fixture) dir() *handles.Directory { return handles.NewDirectory(f.fs, "/work/site") }
func (f *fixture) archive() *handles.File  { return handles.NewFile(f.fs, "/work/bundle.zip") }

// countingObserver records what the manager reports.
type countingObserver struct {
	mu       sync.Mutex
	ops      map[string]int
	failures int
	rebuilds int
}

func (o *countingObserver) OperationDone(op string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ops == nil {
		o.ops = make(map[string]int)
	}
	o.ops[op]++
	if err != nil {
		o.failures++
	}
}

func (o *countingObserver) AssetsRebuilt(count, liveBlobs int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rebuilds++
}

func TestVirtualMountAssetMap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.m.MountVirtual(ctx))
	require.NoError(t, f.m.WriteFile(ctx, "a.png", []byte("a")))
	require.NoError(t, f.m.WriteFile(ctx, "/dir/b.html", []byte("<b>")))

	amap := f.m.Assets()
	require.Equal(t, 2, amap.Len())
	a, ok := amap.Get("a.png")
	require.True(t, ok)
	assert.Equal(t, "image/png", a.MimeType)
	b, ok := amap.Get("dir/b.html")
	require.True(t, ok)
	assert.Equal(t, "text/html", b.MimeType)

	st := f.m.State()
	assert.Equal(t, FilesystemVirtual, st.FilesystemType)
	assert.Equal(t, 2, st.Count)
	assert.Len(t, st.Map, 2)
	assert.True(t, st.HasCapability)
}

func TestArchiveMountAndUnmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.m.MountArchive(ctx, ArchiveSource{Handle: f.archive()}))
	st := f.m.State()
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, "bundle.zip", st.ArchiveFilename)
	assert.Equal(t, FilesystemLocal, st.FilesystemType)

	rec, err := f.cache.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec.Archive)

	require.NoError(t, f.m.Unmount(ctx))
	assert.Equal(t, 0, f.m.State().Count)
	_, mounted := f.m.Mounted()
	assert.False(t, mounted)

	rec, err = f.cache.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec.Archive)
	assert.Equal(t, 0, f.m.Registry().Len())
}

func TestMountVirtualClearsCacheAndRemountIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.m.MountDirectory(ctx, f.dir()))
	assert.Equal(t, "site", f.m.State().DirectoryName)
	require.NoError(t, f.m.MountVirtual(ctx))

	rec, err := f.cache.Load(ctx)
	require.NoError(t, err)
	assert.True(t, rec.Empty())

	before := f.m.Generation()
	require.NoError(t, f.m.RemountArchive(ctx))
	assert.Equal(t, before, f.m.Generation(), "a no-op remount must not notify")
	info, ok := f.m.Mounted()
	require.True(t, ok)
	assert.Equal(t, MountVirtual, info.Kind)
}

func TestRestoreWithRevokedDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.MountDirectory(ctx, f.dir()))

	f.fs.Revoke()
	next := New(
		WithHandleCache(f.cache),
		WithCapabilities(capability.Static(capability.Capabilities{Directory: true, Archive: true})),
		WithFilesystemType(FilesystemLocal),
	)
	defer next.Close()

	require.NoError(t, next.Restore(ctx))
	_, mounted := next.Mounted()
	assert.False(t, mounted)
	assert.Equal(t, 0, next.State().Count)

	rec, err := f.cache.Load(ctx)
	require.NoError(t, err)
	assert.True(t, rec.Empty())
}

func TestRestorePrefersDirectory(t *testing.T) {
	f := newFixture(t, WithFilesystemType(FilesystemLocal))
	ctx := context.Background()
	require.NoError(t, f.cache.Save(ctx, handlecache.Record{Directory: f.dir(), Archive: f.archive()}))

	require.NoError(t, f.m.Restore(ctx))
	info, ok := f.m.Mounted()
	require.True(t, ok)
	assert.Equal(t, MountDirectory, info.Kind)
	assert.Equal(t, 3, f.m.State().Count)
}

func TestRestoreFallsBackToArchive(t *testing.T) {
	f := newFixture(t, WithFilesystemType(FilesystemLocal))
	ctx := context.Background()
	require.NoError(t, f.cache.Save(ctx, handlecache.Record{Directory: f.dir(), Archive: f.archive()}))
	require.NoError(t, f.mem.RemoveAll("/work/site"))

	require.NoError(t, f.m.Restore(ctx))
	info, ok := f.m.Mounted()
	require.True(t, ok)
	assert.Equal(t, MountArchive, info.Kind)
	assert.Equal(t, "bundle.zip", f.m.State().ArchiveFilename)
}

func TestRestoreVirtual(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Restore(context.Background()))
	info, ok := f.m.Mounted()
	require.True(t, ok)
	assert.Equal(t, MountVirtual, info.Kind)
}

func TestRejectedDropChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.MountVirtual(ctx))
	before := f.m.Generation()

	err := f.m.MountDropped(ctx, []DroppedItem{
		{Name: "one.zip", Data: f.zip},
		{Name: "two.zip", Data: f.zip},
	}, DropOptions{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, before, f.m.Generation())
	info, _ := f.m.Mounted()
	assert.Equal(t, MountVirtual, info.Kind)
}

func TestMountDroppedArchiveClearsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.MountDirectory(ctx, f.dir()))

	require.NoError(t, f.m.MountDropped(ctx, []DroppedItem{{Name: "Upload.ZIP", Data: f.zip}}, DropOptions{}))
	assert.Equal(t, "Upload.ZIP", f.m.State().ArchiveFilename)
	info, _ := f.m.Mounted()
	assert.Nil(t, info.Handle)

	rec, err := f.cache.Load(ctx)
	require.NoError(t, err)
	assert.True(t, rec.Empty())
}

func TestUnmountIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.MountArchive(ctx, ArchiveSource{Name: "b.zip", Data: f.zip}))

	require.NoError(t, f.m.Unmount(ctx))
	first := f.m.State()
	require.NoError(t, f.m.Unmount(ctx))
	assert.Equal(t, first, f.m.State())
}

func TestExactlyOneNotificationPerOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.m.Subscribe()
	defer sub.Close()

	ops := []struct {
		name string
		fn   func() error
	}{
		{"mount virtual", func() error { return f.m.MountVirtual(ctx) }},
		{"write", func() error { return f.m.WriteFile(ctx, "x.gif", []byte("g")) }},
		{"mkdir", func() error { return f.m.Mkdir(ctx, "assets") }},
		{"rename", func() error { return f.m.Rename(ctx, "x.gif", "assets/x.gif") }},
		{"unlink", func() error { return f.m.Unlink(ctx, "assets") }},
		{"mount directory", func() error { return f.m.MountDirectory(ctx, f.dir()) }},
		{"rebuild", func() error { return f.m.Rebuild(ctx) }},
		{"mount archive", func() error { return f.m.MountArchive(ctx, ArchiveSource{Handle: f.archive()}) }},
		{"remount archive", func() error { return f.m.RemountArchive(ctx) }},
		{"unmount", func() error { return f.m.Unmount(ctx) }},
	}
	for _, op := range ops {
		before := f.m.Generation()
		require.NoError(t, op.fn(), op.name)
		assert.Equal(t, before+1, f.m.Generation(), op.name)

		select {
		case <-sub.C():
		default:
			t.Fatalf("%s: no notification pending", op.name)
		}
	}
}

func TestNotificationAfterStateSettled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.m.Subscribe()
	defer sub.Close()

	done := make(chan AssetState, 1)
	go func() {
		<-sub.C()
		done <- f.m.State()
	}()

	require.NoError(t, f.m.MountArchive(ctx, ArchiveSource{Handle: f.archive()}))
	select {
	case st := <-done:
		assert.Equal(t, 3, st.Count)
		assert.Equal(t, "bundle.zip", st.ArchiveFilename)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification")
	}
}

func TestFailedMountLeavesStateIntact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.MountVirtual(ctx))
	require.NoError(t, f.m.WriteFile(ctx, "keep.png", []byte("k")))
	before := f.m.State()
	gen := f.m.Generation()

	err := f.m.MountArchive(ctx, ArchiveSource{Name: "notes.zip", Data: []byte("not a zip")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = f.m.MountDirectory(ctx, handles.NewDirectory(f.fs, "/work/missing"))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = f.m.MountArchive(ctx, ArchiveSource{Handle: handles.NewFile(f.fs, "/work/missing.zip")})
	assert.ErrorIs(t, err, ErrMountFailure)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, before, f.m.State())
	assert.Equal(t, gen, f.m.Generation())
	data, err := f.m.ReadFile(ctx, "keep.png")
	require.NoError(t, err)
	assert.Equal(t, "k", string(data))
}

func TestFailedMountFromUnmounted(t *testing.T) {
	f := newFixture(t)
	err := f.m.MountArchive(context.Background(), ArchiveSource{Name: "x.zip", Data: nil})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, mounted := f.m.Mounted()
	assert.False(t, mounted)
}

func TestCapabilityGate(t *testing.T) {
	m := New(WithCapabilities(capability.Static(capability.Capabilities{})))
	defer m.Close()
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, m.MountDirectory(ctx, f.dir()), ErrNotSupported)
	assert.ErrorIs(t, m.MountArchive(ctx, ArchiveSource{Name: "a.zip", Data: f.zip}), ErrNotSupported)
	assert.False(t, m.HasCapability())
	assert.False(t, m.State().HasCapability)
}

func TestWritesRequireWritableMount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.m.WriteFile(ctx, "a.txt", nil), ErrNotMounted)

	require.NoError(t, f.m.MountArchive(ctx, ArchiveSource{Handle: f.archive()}))
	assert.ErrorIs(t, f.m.WriteFile(ctx, "a.txt", nil), ErrNotWritable)
	assert.ErrorIs(t, f.m.Unlink(ctx, "index.html"), ErrNotWritable)
}

func TestDirectoryWritesReachHost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.MountDirectory(ctx, f.dir()))

	require.NoError(t, f.m.WriteFile(ctx, "new/page.htm", []byte("p")))
	data, err := afero.ReadFile(f.mem, "/work/site/new/page.htm")
	require.NoError(t, err)
	assert.Equal(t, "p", string(data))
	assert.Equal(t, 4, f.m.State().Count)
}

func TestRebuildPicksUpExternalChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.MountDirectory(ctx, f.dir()))
	require.NoError(t, afero.WriteFile(f.mem, "/work/site/extra.gif", []byte("gif"), 0o644))

	require.NoError(t, f.m.Rebuild(ctx))
	e, ok := f.m.Assets().Get("extra.gif")
	require.True(t, ok)
	assert.Equal(t, "image/gif", e.MimeType)
}

func TestConcurrentMountsStayConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				assert.NoError(t, f.m.MountVirtual(ctx))
			case 1:
				assert.NoError(t, f.m.MountArchive(ctx, ArchiveSource{Name: "b.zip", Data: f.zip}))
			case 2:
				assert.NoError(t, f.m.MountDirectory(ctx, f.dir()))
			case 3:
				assert.NoError(t, f.m.Unmount(ctx))
			}
			st := f.m.State()
			assert.Equal(t, len(st.Map), st.Count)
		}(i)
	}
	wg.Wait()

	want := map[MountKind]int{MountVirtual: 0, MountArchive: 3, MountDirectory: 3}
	st := f.m.State()
	info, ok := f.m.Mounted()
	if ok {
		assert.Equal(t, want[info.Kind], st.Count)
	} else {
		assert.Equal(t, 0, st.Count)
	}
	assert.Equal(t, st.Count, f.m.Registry().Len(), "only the current generation may hold blob URLs")
	assert.Equal(t, uint64(40), f.m.Generation())
}

func TestWaitingCallerGivesUp(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.sem.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := f.m.MountVirtual(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	f.m.sem.Release(1)

	_, mounted := f.m.Mounted()
	assert.False(t, mounted)
	assert.Equal(t, uint64(0), f.m.Generation())
}

func TestPersistentVirtualStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "virtual.db")
	ctx := context.Background()

	m := New(WithPersistence(dbPath))
	require.NoError(t, m.MountVirtual(ctx))
	require.NoError(t, m.WriteFile(ctx, "saved.html", []byte("<p>")))
	require.NoError(t, m.Close())

	m = New(WithPersistence(dbPath))
	defer m.Close()
	require.NoError(t, m.Restore(ctx))
	e, ok := m.Assets().Get("saved.html")
	require.True(t, ok)
	assert.Equal(t, "text/html", e.MimeType)
}

func TestSetFilesystemTypeLocalWithoutCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.MountVirtual(ctx))

	require.NoError(t, f.m.SetFilesystemType(ctx, FilesystemLocal))
	assert.Equal(t, FilesystemLocal, f.m.FilesystemType())
	_, mounted := f.m.Mounted()
	assert.False(t, mounted)

	assert.ErrorIs(t, f.m.SetFilesystemType(ctx, "cloud"), ErrInvalidInput)
}

func TestRemountArchiveRevoked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.MountArchive(ctx, ArchiveSource{Handle: f.archive()}))

	f.fs.Revoke()
	assert.ErrorIs(t, f.m.RemountArchive(ctx), ErrPermissionDenied)
	info, ok := f.m.Mounted()
	require.True(t, ok)
	assert.Equal(t, MountArchive, info.Kind)
}

func TestApplySelections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reqs := []struct {
		req  SelectionRequest
		want MountKind
	}{
		{SelectionRequest{Kind: KindFilesystemType, FilesystemType: "virtual"}, MountVirtual},
		{SelectionRequest{Kind: KindMountDirectory, Path: "/work/site"}, MountDirectory},
		{SelectionRequest{Kind: KindMountArchive, Path: "/work/bundle.zip"}, MountArchive},
		{SelectionRequest{Kind: KindRemountArchive}, MountArchive},
	}
	for _, r := range reqs {
		sel, err := r.req.Selection(f.fs)
		require.NoError(t, err, r.req.Kind)
		require.NoError(t, f.m.Apply(ctx, sel), r.req.Kind)
		info, ok := f.m.Mounted()
		require.True(t, ok)
		assert.Equal(t, r.want, info.Kind, r.req.Kind)
	}

	sel, err := SelectionRequest{Kind: KindUnmount}.Selection(f.fs)
	require.NoError(t, err)
	require.NoError(t, f.m.Apply(ctx, sel))
	_, ok := f.m.Mounted()
	assert.False(t, ok)

	_, err = SelectionRequest{Kind: "format-disk"}.Selection(f.fs)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = SelectionRequest{Kind: KindMountDirectory}.Selection(f.fs)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, f.m.Apply(ctx, nil), ErrInvalidInput)
}

func TestObserverSeesOperations(t *testing.T) {
	obs := &countingObserver{}
	f := newFixture(t, WithObserver(obs))
	ctx := context.Background()

	require.NoError(t, f.m.MountVirtual(ctx))
	assert.Error(t, f.m.MountArchive(ctx, ArchiveSource{Name: "bad.zip", Data: []byte("x")}))
	require.NoError(t, f.m.Unmount(ctx))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 1, obs.ops[OpMountVirtual])
	assert.Equal(t, 1, obs.ops[OpMountArchive])
	assert.Equal(t, 1, obs.ops[OpUnmount])
	assert.Equal(t, 1, obs.failures)
	assert.Equal(t, 2, obs.rebuilds)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.m.Subscribe()
	require.NoError(t, f.m.MountArchive(ctx, ArchiveSource{Handle: f.archive()}))

	require.NoError(t, f.m.Close())
	assert.Equal(t, 0, f.m.Registry().Len())

	// The pending signal is still delivered, then the channel is closed.
	_, ok := <-sub.C()
	assert.True(t, ok)
	_, ok = <-sub.C()
	assert.False(t, ok)

	assert.ErrorIs(t, f.m.MountVirtual(ctx), ErrClosed)
	assert.NoError(t, f.m.Close())
	assert.NoError(t, sub.Close())
}

func TestMountKeepsPreviousStateUntilMapIsBuilt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.MountVirtual(ctx))
	require.NoError(t, f.m.WriteFile(ctx, "v.html", []byte("v")))
	before := f.m.State()
	gen := f.m.Generation()
	old, ok := f.m.Assets().Get("v.html")
	require.True(t, ok)

	gated := testutil.NewGatedFs(f.mem, "logo.png")
	t.Cleanup(gated.Lift)
	done := make(chan error, 1)
	go func() { done <- f.m.MountDirectory(ctx, handles.NewDirectory(gated, "/work/site")) }()

	select {
	case <-gated.Entered():
	case <-time.After(5 * time.Second):
		t.Fatal("directory walk never reached logo.png")
	}

	assert.Equal(t, before, f.m.State())
	assert.Equal(t, gen, f.m.Generation())
	info, ok := f.m.Mounted()
	require.True(t, ok)
	assert.Equal(t, MountVirtual, info.Kind)
	data, err := f.m.ReadFile(ctx, "v.html")
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))
	_, live := f.m.Registry().Resolve(old.URL)
	assert.True(t, live, "published url revoked before the new map was in place")

	gated.Lift()
	require.NoError(t, <-done)

	st := f.m.State()
	assert.Equal(t, FilesystemLocal, st.FilesystemType)
	assert.Equal(t, "site", st.DirectoryName)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, gen+1, f.m.Generation())
	_, live = f.m.Registry().Resolve(old.URL)
	assert.False(t, live)
	assert.Equal(t, 3, f.m.Registry().Len())
}

func TestSetFilesystemTypeChangesWithMount(t *testing.T) {
	mem := newFixture(t).mem
	gated := testutil.NewGatedFs(mem, "logo.png")
	cache := handlecache.New(handlecache.NewMemoryStore(), handlecache.WithResolver(handlecache.FsResolver(gated)))
	m := New(
		WithHandleCache(cache),
		WithCapabilities(capability.Static(capability.Capabilities{Directory: true, Archive: true})),
	)
	t.Cleanup(func() {
		gated.Lift()
		m.Close()
	})
	ctx := context.Background()

	require.NoError(t, m.MountVirtual(ctx))
	require.NoError(t, cache.Save(ctx, handlecache.Record{Directory: handles.NewDirectory(gated, "/work/site")}))

	done := make(chan error, 1)
	go func() { done <- m.SetFilesystemType(ctx, FilesystemLocal) }()

	select {
	case <-gated.Entered():
	case <-time.After(5 * time.Second):
		t.Fatal("restore never reached logo.png")
	}
	assert.Equal(t, FilesystemVirtual, m.FilesystemType())
	info, ok := m.Mounted()
	require.True(t, ok)
	assert.Equal(t, MountVirtual, info.Kind)

	gated.Lift()
	require.NoError(t, <-done)
	assert.Equal(t, FilesystemLocal, m.FilesystemType())
	info, ok = m.Mounted()
	require.True(t, ok)
	assert.Equal(t, MountDirectory, info.Kind)
	assert.Equal(t, 3, m.State().Count)
}

func TestReadsDuringMountChanges(t *testing.T) {
	f := newFixture(t, WithPersistence(filepath.Join(t.TempDir(), "virtual.db")))
	ctx := context.Background()
	require.NoError(t, f.m.MountVirtual(ctx))
	require.NoError(t, f.m.WriteFile(ctx, "index.html", []byte("<h1>virtual</h1>")))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := f.m.ReadFile(ctx, "index.html"); err != nil && !errors.Is(err, ErrNotMounted) {
					t.Errorf("ReadFile during mount change: %v", err)
					return
				}
				if _, err := f.m.List(ctx, ""); err != nil && !errors.Is(err, ErrNotMounted) {
					t.Errorf("List during mount change: %v", err)
					return
				}
			}
		}()
	}

	for i := 0; i < 30; i++ {
		require.NoError(t, f.m.MountArchive(ctx, ArchiveSource{Name: "b.zip", Data: f.zip}))
		require.NoError(t, f.m.MountVirtual(ctx))
		require.NoError(t, f.m.Unmount(ctx))
	}
	close(stop)
	wg.Wait()
}

func TestMountLogsBackend(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newFixture(t, WithLogger(zap.New(core)))
	ctx := context.Background()

	require.NoError(t, f.m.MountArchive(ctx, ArchiveSource{Name: "b.zip", Data: f.zip}))
	require.NoError(t, f.m.Rebuild(ctx))
	require.NoError(t, f.m.MountDirectory(ctx, f.dir()))

	mounted := logs.FilterMessage("assetfs: mounted").All()
	require.Len(t, mounted, 2, "rebuilding the same backend is not a new mount")
	assert.Equal(t, "zipfs", mounted[0].ContextMap()["backend"])
	assert.Contains(t, mounted[0].ContextMap()["source"], "b.zip")
	assert.Equal(t, int64(3), mounted[0].ContextMap()["assets"])
	assert.Equal(t, "dirfs", mounted[1].ContextMap()["backend"])
	assert.Equal(t, "site", mounted[1].ContextMap()["source"])
}
