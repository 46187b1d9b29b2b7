package notifier

import (
	"context"
	"errors"
	"testing"
)

type mockNotifier struct {
	name       string
	calls      int
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Notify(ctx context.Context, s Summary) error {
	m.calls++
	if m.shouldFail {
		return errors.New("notify failed")
	}
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	if err := r.Register(mock); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := r.Get("test")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name() != "test" {
		t.Errorf("expected name 'test', got '%s'", got.Name())
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 notifier, got %d", r.Len())
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := NewRegistry()

	r.Register(&mockNotifier{name: "test"})
	if err := r.Register(&mockNotifier{name: "test"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestRegistry_Get_NotFound(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Get("nonexistent"); err == nil {
		t.Error("expected error for nonexistent notifier")
	}
}

func TestRegistry_GetAll_SortedByName(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "webhook"})
	r.Register(&mockNotifier{name: "telegram"})

	all := r.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 notifiers, got %d", len(all))
	}
	if all[0].Name() != "telegram" || all[1].Name() != "webhook" {
		t.Errorf("unexpected order: %s, %s", all[0].Name(), all[1].Name())
	}
}

func TestRegistry_NotifyAll(t *testing.T) {
	r := NewRegistry()

	ok := &mockNotifier{name: "ok"}
	failing := &mockNotifier{name: "failing", shouldFail: true}
	r.Register(ok)
	r.Register(failing)

	errs := r.NotifyAll(context.Background(), Summary{RunID: "run-1"})

	if ok.calls != 1 || failing.calls != 1 {
		t.Errorf("expected one call each, got ok=%d failing=%d", ok.calls, failing.calls)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if _, exists := errs["failing"]; !exists {
		t.Error("expected error for 'failing' notifier")
	}
}
