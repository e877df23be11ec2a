package reload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-geofence/pkg/models"
)

type fakeSource struct {
	mu      sync.Mutex
	records []models.ZoneRecord
	err     error
	calls   int
}

func (s *fakeSource) Load(ctx context.Context) ([]models.ZoneRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.records, s.err
}

func (s *fakeSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeTarget struct {
	mu      sync.Mutex
	loaded  [][]models.ZoneRecord
	buffers []float64
	err     error
}

func (f *fakeTarget) Reload(records []models.ZoneRecord, bufferMeters float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.loaded = append(f.loaded, records)
	f.buffers = append(f.buffers, bufferMeters)
	return nil
}

func (f *fakeTarget) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeTarget) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loaded)
}

func TestReloadNow(t *testing.T) {
	src := &fakeSource{records: []models.ZoneRecord{{ID: "1"}}}
	target := &fakeTarget{}
	w := New(src, target, 75)

	require.NoError(t, w.ReloadNow(context.Background()))
	require.Equal(t, 1, target.Len())
	assert.Equal(t, "1", target.loaded[0][0].ID)
	assert.Equal(t, []float64{75}, target.buffers)

	reloads, fails := w.Counts()
	assert.Equal(t, 1, reloads)
	assert.Equal(t, 0, fails)
}

func TestReloadNowFailures(t *testing.T) {
	t.Run("source error", func(t *testing.T) {
		src := &fakeSource{err: errors.New("disk gone")}
		target := &fakeTarget{}
		w := New(src, target, 50)

		assert.Error(t, w.ReloadNow(context.Background()))
		assert.Equal(t, 0, target.Len())
		_, fails := w.Counts()
		assert.Equal(t, 1, fails)
	})

	t.Run("target error", func(t *testing.T) {
		src := &fakeSource{records: []models.ZoneRecord{{ID: "1"}}}
		target := &fakeTarget{err: errors.New("no valid zones")}
		w := New(src, target, 50)

		assert.Error(t, w.ReloadNow(context.Background()))
		_, fails := w.Counts()
		assert.Equal(t, 1, fails)
	})
}

func TestRunTrigger(t *testing.T) {
	src := &fakeSource{records: []models.ZoneRecord{{ID: "1"}}}
	target := &fakeTarget{}
	w := New(src, target, 50)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.Trigger()
	assert.Eventually(t, func() bool { return target.Len() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestTriggerCoalesces(t *testing.T) {
	w := New(&fakeSource{}, &fakeTarget{}, 50)
	w.Trigger()
	w.Trigger()
	w.Trigger()
	assert.Len(t, w.trigger, 1)
}

func TestRunInterval(t *testing.T) {
	src := &fakeSource{records: []models.ZoneRecord{{ID: "1"}}}
	target := &fakeTarget{}
	w := New(src, target, 50, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	assert.Eventually(t, func() bool { return target.Len() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestRunSkipsUnchangedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.geojson")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	src := &fakeSource{records: []models.ZoneRecord{{ID: "1"}}}
	target := &fakeTarget{}
	w := New(src, target, 50, WithInterval(5*time.Millisecond), WithFile(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, src.Calls())

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	assert.Eventually(t, func() bool { return target.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRunRetriesFailedFileReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.geojson")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	src := &fakeSource{records: []models.ZoneRecord{{ID: "1"}}}
	target := &fakeTarget{err: errors.New("half-written file")}
	w := New(src, target, 50, WithInterval(5*time.Millisecond), WithFile(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	// the same modification time is retried while the reload keeps failing
	assert.Eventually(t, func() bool { return src.Calls() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, target.Len())

	target.setErr(nil)
	assert.Eventually(t, func() bool { return target.Len() == 1 }, time.Second, 5*time.Millisecond)

	calls := src.Calls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, src.Calls())
	assert.Equal(t, 1, target.Len())

	_, fails := w.Counts()
	assert.GreaterOrEqual(t, fails, 2)
}

func TestListen(t *testing.T) {
	src := &fakeSource{records: []models.ZoneRecord{{ID: "1"}}}
	w := New(src, &fakeTarget{}, 50)

	msgs := make(chan *redis.Message, 1)
	msgs <- &redis.Message{Channel: "geofence:reload", Payload: "zones updated"}
	close(msgs)

	Listen(context.Background(), msgs, w)
	assert.Len(t, w.trigger, 1)
}
