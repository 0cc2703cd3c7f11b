package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
)

type fakeMonitor struct {
	startErr error
	started  bool
}

func (m *fakeMonitor) Start(context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	return nil
}

func (m *fakeMonitor) Health() map[string]bool {
	return map[string]bool{"auth-jwks": m.started}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestStartDependencyHealth(t *testing.T) {
	mon := &fakeMonitor{}
	deps := startDependencyHealth(context.Background(), mon, discardLogger())
	if deps == nil {
		t.Fatal("ожидался источник состояния после успешного запуска")
	}
	if !deps.Health()["auth-jwks"] {
		t.Error("зависимость должна быть в состоянии ok")
	}
}

func TestStartDependencyHealth_StartFailure(t *testing.T) {
	mon := &fakeMonitor{startErr: errors.New("topologymetrics недоступен")}
	if deps := startDependencyHealth(context.Background(), mon, discardLogger()); deps != nil {
		t.Errorf("незапущенный монитор не должен участвовать в readiness, получено %v", deps)
	}
}
