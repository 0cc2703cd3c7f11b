package service

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/docvault/internal/storage/filestore"
)

// testLogger — логгер для тестов (только ошибки).
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeTimer — таймер, который срабатывает только по команде теста.
type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeScheduler запоминает запланированные вызовы.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// pending возвращает неостановленные и несработавшие таймеры.
func (s *fakeScheduler) pending() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// all возвращает все таймеры в порядке создания.
func (s *fakeScheduler) all() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeTimer(nil), s.timers...)
}

// fire вызывает функцию таймера, даже если он остановлен
// (имитация запоздавшего срабатывания).
func (s *fakeScheduler) fire(t *fakeTimer) {
	s.mu.Lock()
	t.fired = true
	fn := t.fn
	s.mu.Unlock()
	fn()
}

// fireAll вызывает все активные таймеры.
func (s *fakeScheduler) fireAll() {
	for _, t := range s.pending() {
		s.fire(t)
	}
}

// fakeClock — ручные часы, каждый вызов сдвигает время на секунду.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{cur: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

// testEnv — окружение для тестов менеджера на реальной файловой системе.
type testEnv struct {
	root    string
	vault   string
	store   *filestore.FileStore
	sched   *fakeScheduler
	clock   *fakeClock
	manager *Manager
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	root := t.TempDir()
	vault := filepath.Join(root, "vault")
	store, err := filestore.New(vault, filepath.Join(root, "staging"), testLogger())
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}

	env := &testEnv{
		root:  root,
		vault: vault,
		store: store,
		sched: &fakeScheduler{},
		clock: newFakeClock(),
	}
	all := append([]Option{WithScheduler(env.sched), WithClock(env.clock.Now)}, opts...)
	env.manager = NewManager(store, testLogger(), all...)
	if err := env.manager.Reload(); err != nil {
		t.Fatalf("Ошибка Reload: %v", err)
	}
	return env
}

// source создаёт временный файл-источник вне хранилища.
func (e *testEnv) source(t *testing.T, name, content string) string {
	t.Helper()
	dir := filepath.Join(e.root, "sources")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("Ошибка создания директории источников: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatalf("Ошибка записи источника: %v", err)
	}
	return path
}

// vaultFile создаёт файл прямо в хранилище.
func (e *testEnv) vaultFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.vault, name)
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatalf("Ошибка записи файла хранилища: %v", err)
	}
	return path
}

// mustImport импортирует источник и падает при ошибке.
func (e *testEnv) mustImport(t *testing.T, name, suggested string) string {
	t.Helper()
	doc, err := e.manager.ImportDocument(Source{Path: e.source(t, name, "data:"+name), SuggestedName: suggested})
	if err != nil {
		t.Fatalf("Ошибка импорта %s: %v", name, err)
	}
	return doc.ID
}
