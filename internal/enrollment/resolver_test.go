package enrollment

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

type mockStore struct {
	enrolled map[string]bool // key: studentID+"/"+courseID
	auto     map[string]bool
	levels   map[string]string
	codes    map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{
		enrolled: make(map[string]bool),
		auto:     make(map[string]bool),
		levels:   make(map[string]string),
		codes:    make(map[string]string),
	}
}

func (m *mockStore) IsEnrolled(_ context.Context, studentID, courseID string) (bool, error) {
	return m.enrolled[studentID+"/"+courseID], nil
}

func (m *mockStore) Enroll(_ context.Context, studentID, courseID string, auto bool) error {
	m.enrolled[studentID+"/"+courseID] = true
	m.auto[studentID+"/"+courseID] = auto
	return nil
}

func (m *mockStore) StudentLevel(_ context.Context, studentID string) (string, error) {
	return m.levels[studentID], nil
}

func (m *mockStore) CourseCode(_ context.Context, courseID string) (string, error) {
	return m.codes[courseID], nil
}

func TestResolveExplicitEnrollment(t *testing.T) {
	store := newMockStore()
	store.enrolled["s1/c1"] = true
	res := NewResolver(store, zap.NewNop())

	got, err := res.Resolve(context.Background(), "s1", "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !got.Enrolled || got.AutoEnrolled {
		t.Fatalf("got %+v, want explicit enrollment", got)
	}
}

func TestResolveAutoEnrollLevelMatch(t *testing.T) {
	store := newMockStore()
	store.levels["s1"] = "300"
	store.codes["c1"] = "CS301"
	res := NewResolver(store, zap.NewNop())

	got, err := res.Resolve(context.Background(), "s1", "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !got.Enrolled || !got.AutoEnrolled {
		t.Fatalf("got %+v, want auto enrollment", got)
	}
	if !store.auto["s1/c1"] {
		t.Fatal("enrollment row not flagged auto")
	}
}

func TestResolveLevelMismatch(t *testing.T) {
	store := newMockStore()
	store.levels["s1"] = "200"
	store.codes["c1"] = "CS301"
	res := NewResolver(store, zap.NewNop())

	got, err := res.Resolve(context.Background(), "s1", "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Enrolled {
		t.Fatalf("got %+v, want not enrolled", got)
	}
	if store.enrolled["s1/c1"] {
		t.Fatal("row created despite mismatch")
	}
}

func TestResolveCourseCodeWithoutDigit(t *testing.T) {
	store := newMockStore()
	store.levels["s1"] = "300"
	store.codes["c1"] = "SEMINAR"
	res := NewResolver(store, zap.NewNop())

	got, err := res.Resolve(context.Background(), "s1", "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Enrolled {
		t.Fatalf("digitless course code auto-matched: %+v", got)
	}
}

func TestResolveEmptyLevel(t *testing.T) {
	store := newMockStore()
	store.codes["c1"] = "CS301"
	res := NewResolver(store, zap.NewNop())

	got, err := res.Resolve(context.Background(), "s1", "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Enrolled {
		t.Fatalf("student without level auto-matched: %+v", got)
	}
}
