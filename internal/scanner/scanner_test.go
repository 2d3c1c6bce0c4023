package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/randomparity/vpo/internal/catalog"
	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/pluginbus"
	"github.com/randomparity/vpo/internal/probe"
)

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// fakeProber avoids spawning ffprobe: tests only exercise scanner's
// discovery/incremental-skip/prune logic, not ffprobe parsing (covered by
// internal/probe's own tests).
type fakeProber struct {
	calls   int
	failErr error
}

func (f *fakeProber) Probe(ctx context.Context, path string) (probe.IntrospectionResult, error) {
	f.calls++
	if f.failErr != nil {
		return probe.IntrospectionResult{}, f.failErr
	}
	return probe.IntrospectionResult{ContainerFormat: "mkv", Tracks: []probe.TrackInfo{
		{Index: 0, Kind: domain.TrackKindVideo, Codec: "h264"},
	}}, nil
}

func newTestScanner(t *testing.T, fp *fakeProber) (*Scanner, *catalog.Store) {
	t.Helper()
	store := openTestStore(t)
	s := &Scanner{store: store, prune: PruneMarkMissing, prober: fp, walkSem: make(chan struct{}, 8)}
	return s, store
}

func TestIsVideoFile(t *testing.T) {
	cases := map[string]bool{
		"/media/movie.mkv": true, "/media/movie.MP4": true,
		"/media/notes.txt": false, "/media/movie": false,
	}
	for path, want := range cases {
		if got := IsVideoFile(path); got != want {
			t.Errorf("IsVideoFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestScanDiscoversAndCatalogsNewFiles(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "movie.mkv")
	write(t, dir, "notes.txt")

	fp := &fakeProber{}
	s, store := newTestScanner(t, fp)

	sum, err := s.Scan(context.Background(), []string{dir}, true, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if sum.TotalDiscovered != 1 || sum.Added != 1 || sum.Scanned != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	files, err := store.ListFiles()
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 1 || files[0].ContainerFormat != "mkv" {
		t.Fatalf("expected one catalogued mkv file, got %+v", files)
	}
}

func TestScanIncrementalSkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "movie.mkv")

	fp := &fakeProber{}
	s, _ := newTestScanner(t, fp)

	if _, err := s.Scan(context.Background(), []string{dir}, true, nil); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if fp.calls != 1 {
		t.Fatalf("expected 1 probe on first scan, got %d", fp.calls)
	}

	sum, err := s.Scan(context.Background(), []string{dir}, true, nil)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if fp.calls != 1 {
		t.Fatalf("expected incremental scan to skip the unchanged file, got %d probe calls", fp.calls)
	}
	if sum.Scanned != 0 {
		t.Fatalf("expected 0 scanned on incremental no-op pass, got %+v", sum)
	}

	// Touch the file forward in time and confirm the next scan re-probes it.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, err := s.Scan(context.Background(), []string{dir}, true, nil); err != nil {
		t.Fatalf("third scan: %v", err)
	}
	if fp.calls != 2 {
		t.Fatalf("expected modified file to be re-probed, got %d calls", fp.calls)
	}
}

func TestScanMarksRemovedFilesMissing(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "movie.mkv")

	fp := &fakeProber{}
	s, store := newTestScanner(t, fp)

	if _, err := s.Scan(context.Background(), []string{dir}, true, nil); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	sum, err := s.Scan(context.Background(), []string{dir}, true, nil)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if sum.Removed != 1 {
		t.Fatalf("expected 1 removed file, got %+v", sum)
	}

	f, err := store.GetFileByPath(path)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if f.ScanStatus != domain.ScanStatusMissing {
		t.Fatalf("expected missing status, got %s", f.ScanStatus)
	}
}

func TestScanRecordsProbeErrorsWithoutAbortingPass(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "movie.mkv")
	write(t, dir, "other.mp4")

	fp := &fakeProber{failErr: errProbeBoom}
	s, store := newTestScanner(t, fp)

	sum, err := s.Scan(context.Background(), []string{dir}, true, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if sum.Errors != 2 || sum.TotalDiscovered != 2 {
		t.Fatalf("expected both files to record probe errors, got %+v", sum)
	}

	files, err := store.ListFiles()
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	for _, f := range files {
		if f.ScanStatus != domain.ScanStatusError || f.ScanError == "" {
			t.Fatalf("expected error status recorded, got %+v", f)
		}
	}
}

func TestScanDeletePruneModeRemovesCatalogRow(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "movie.mkv")

	fp := &fakeProber{}
	s, store := newTestScanner(t, fp)
	s.prune = PruneDelete

	if _, err := s.Scan(context.Background(), []string{dir}, true, nil); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	sum, err := s.Scan(context.Background(), []string{dir}, true, nil)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if sum.Removed != 1 {
		t.Fatalf("expected 1 removed file, got %+v", sum)
	}

	f, err := store.GetFileByPath(path)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if f != nil {
		t.Fatalf("expected catalog row to be deleted, got %+v", f)
	}
}

func TestScanDispatchesFileScannedEvent(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "movie.mkv")

	fp := &fakeProber{}
	s, _ := newTestScanner(t, fp)

	bus := pluginbus.New()
	listener := &recordingPlugin{}
	if err := bus.Register(listener); err != nil {
		t.Fatalf("register: %v", err)
	}
	s.bus = bus

	if _, err := s.Scan(context.Background(), []string{dir}, true, nil); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if listener.calls != 1 {
		t.Fatalf("expected file.scanned dispatched exactly once, got %d", listener.calls)
	}
}

type recordingPlugin struct{ calls int }

func (r *recordingPlugin) Manifest() pluginbus.Manifest {
	return pluginbus.Manifest{Name: "recorder", Events: []pluginbus.Event{pluginbus.EventFileScanned}}
}

func (r *recordingPlugin) Handle(ctx context.Context, event pluginbus.Event, payload any) error {
	r.calls++
	return nil
}

var errProbeBoom = fmt.Errorf("probe: boom")

func write(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
