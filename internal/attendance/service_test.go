package attendance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"rollcall/internal/enrollment"
	"rollcall/internal/qrsign"
)

// ── in-memory store ──

type memStore struct {
	assigned      map[string]bool // courseID/lecturerID
	classSessions map[string]ClassSession
	qrSessions    map[string]QrSession
	records       map[string]Record   // userID/classSessionID
	enrolled      map[string][]string // courseID -> student ids
}

func newMemStore() *memStore {
	return &memStore{
		assigned:      make(map[string]bool),
		classSessions: make(map[string]ClassSession),
		qrSessions:    make(map[string]QrSession),
		records:       make(map[string]Record),
		enrolled:      make(map[string][]string),
	}
}

func (m *memStore) LecturerAssigned(_ context.Context, courseID, lecturerID string) (bool, error) {
	return m.assigned[courseID+"/"+lecturerID], nil
}

func (m *memStore) CreateClassSession(_ context.Context, cs ClassSession) error {
	m.classSessions[cs.ID] = cs
	return nil
}

func (m *memStore) CreateQrSession(_ context.Context, qs QrSession) error {
	m.qrSessions[qs.ID] = qs
	return nil
}

func (m *memStore) QrSessionOwned(_ context.Context, id, lecturerID string) (QrSession, error) {
	qs, ok := m.qrSessions[id]
	if !ok || qs.LecturerID != lecturerID {
		return QrSession{}, ErrNotFound
	}
	return qs, nil
}

func (m *memStore) QrSessionByClassSession(_ context.Context, classSessionID string) (QrSession, error) {
	for _, qs := range m.qrSessions {
		if qs.ClassSessionID == classSessionID {
			return qs, nil
		}
	}
	return QrSession{}, ErrNotFound
}

func (m *memStore) ExpireQrSession(_ context.Context, id string, at time.Time) error {
	qs, ok := m.qrSessions[id]
	if !ok {
		return ErrNotFound
	}
	qs.ExpiresAt = at
	m.qrSessions[id] = qs
	return nil
}

func (m *memStore) InsertRecordIfAbsent(_ context.Context, rec Record) (bool, error) {
	key := rec.UserID + "/" + rec.ClassSessionID
	if _, exists := m.records[key]; exists {
		return false, nil
	}
	m.records[key] = rec
	return true, nil
}

func (m *memStore) UpsertRecord(_ context.Context, rec Record) error {
	m.records[rec.UserID+"/"+rec.ClassSessionID] = rec
	return nil
}

func (m *memStore) SweepAbsentees(_ context.Context, courseID, classSessionID string, at time.Time) (int, error) {
	swept := 0
	for _, studentID := range m.enrolled[courseID] {
		key := studentID + "/" + classSessionID
		if _, exists := m.records[key]; exists {
			continue
		}
		m.records[key] = Record{
			UserID:         studentID,
			ClassSessionID: classSessionID,
			Status:         StatusAbsent,
			RecordedAt:     at,
		}
		swept++
	}
	return swept, nil
}

func (m *memStore) statusCounts(classSessionID string) map[string]int {
	counts := make(map[string]int)
	for _, rec := range m.records {
		if rec.ClassSessionID == classSessionID {
			counts[rec.Status]++
		}
	}
	return counts
}

// ── mock enroller ──

type memEnroller struct {
	results map[string]enrollment.Result // studentID/courseID
	err     error
}

func (m *memEnroller) Resolve(_ context.Context, studentID, courseID string) (enrollment.Result, error) {
	if m.err != nil {
		return enrollment.Result{}, m.err
	}
	return m.results[studentID+"/"+courseID], nil
}

// ── fixtures ──

func newTestService(store *memStore, enroller *memEnroller) *Service {
	return NewService(store, enroller, qrsign.New("test-secret"), 15*time.Minute, zap.NewNop())
}

func enrolledEveryone(store *memStore, courseID string, students ...string) *memEnroller {
	e := &memEnroller{results: make(map[string]enrollment.Result)}
	for _, s := range students {
		e.results[s+"/"+courseID] = enrollment.Result{Enrolled: true}
		store.enrolled[courseID] = append(store.enrolled[courseID], s)
	}
	return e
}

func TestOpenValidation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &memEnroller{})

	if _, err := svc.Open(context.Background(), "c1", "l1", 0, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero duration: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Open(context.Background(), "", "l1", 30, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing course: err = %v, want ErrValidation", err)
	}
}

func TestOpenNotAssigned(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &memEnroller{})

	if _, err := svc.Open(context.Background(), "c1", "l1", 30, ""); !errors.Is(err, ErrNotAssigned) {
		t.Fatalf("err = %v, want ErrNotAssigned", err)
	}
}

func TestOpenAndRedeem(t *testing.T) {
	store := newMemStore()
	store.assigned["c1/l1"] = true
	enroller := enrolledEveryone(store, "c1", "s1")
	svc := newTestService(store, enroller)

	qs, err := svc.Open(context.Background(), "c1", "l1", 30, "LT-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if parts := strings.Split(qs.Payload, ":"); len(parts) != 4 {
		t.Fatalf("payload has %d fields: %q", len(parts), qs.Payload)
	}

	res, err := svc.Redeem(context.Background(), qs.Payload, "s1")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if res.AlreadyRecorded {
		t.Fatal("first redemption reported as duplicate")
	}
	rec, ok := store.records["s1/"+qs.ClassSessionID]
	if !ok || rec.Status != StatusPresent {
		t.Fatalf("record = %+v, ok = %v, want PRESENT", rec, ok)
	}
}

func TestRedeemIdempotent(t *testing.T) {
	store := newMemStore()
	store.assigned["c1/l1"] = true
	enroller := enrolledEveryone(store, "c1", "s1")
	svc := newTestService(store, enroller)

	qs, err := svc.Open(context.Background(), "c1", "l1", 30, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := svc.Redeem(context.Background(), qs.Payload, "s1"); err != nil {
		t.Fatalf("first Redeem: %v", err)
	}
	res, err := svc.Redeem(context.Background(), qs.Payload, "s1")
	if err != nil {
		t.Fatalf("second Redeem: %v", err)
	}
	if !res.AlreadyRecorded {
		t.Fatal("second redemption not flagged as already recorded")
	}
	if counts := store.statusCounts(qs.ClassSessionID); counts[StatusPresent] != 1 {
		t.Fatalf("present rows = %d, want 1", counts[StatusPresent])
	}
}

func TestRedeemTamperedSignature(t *testing.T) {
	store := newMemStore()
	store.assigned["c1/l1"] = true
	enroller := enrolledEveryone(store, "c1", "s1")
	svc := newTestService(store, enroller)

	qs, err := svc.Open(context.Background(), "c1", "l1", 30, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	last := qs.Payload[len(qs.Payload)-1]
	alt := byte('0')
	if last == '0' {
		alt = '1'
	}
	tampered := qs.Payload[:len(qs.Payload)-1] + string(alt)

	if _, err := svc.Redeem(context.Background(), tampered, "s1"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestRedeemMalformedPayload(t *testing.T) {
	svc := newTestService(newMemStore(), &memEnroller{})

	for _, raw := range []string{"", "a:b", "a:b:c:d:e", "a:b:NaN:sig"} {
		if _, err := svc.Redeem(context.Background(), raw, "s1"); !errors.Is(err, ErrParse) {
			t.Errorf("Redeem(%q): err = %v, want ErrParse", raw, err)
		}
	}
}

func TestRedeemEmbeddedWindowExpired(t *testing.T) {
	store := newMemStore()
	store.assigned["c1/l1"] = true
	enroller := enrolledEveryone(store, "c1", "s1")
	svc := newTestService(store, enroller)

	// Session window is 60 minutes, so the row expiry is still in the future
	// when the embedded 15-minute window lapses.
	qs, err := svc.Open(context.Background(), "c1", "l1", 60, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	if _, err := svc.Redeem(context.Background(), qs.Payload, "s1"); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestRedeemRowExpired(t *testing.T) {
	store := newMemStore()
	store.assigned["c1/l1"] = true
	enroller := enrolledEveryone(store, "c1", "s1")
	svc := newTestService(store, enroller)

	// Five-minute session: ten minutes later the embedded window still holds
	// but the row's expires_at has passed.
	qs, err := svc.Open(context.Background(), "c1", "l1", 5, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	if _, err := svc.Redeem(context.Background(), qs.Payload, "s1"); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestRedeemNotEnrolled(t *testing.T) {
	store := newMemStore()
	store.assigned["c1/l1"] = true
	svc := newTestService(store, &memEnroller{results: map[string]enrollment.Result{}})

	qs, err := svc.Open(context.Background(), "c1", "l1", 30, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := svc.Redeem(context.Background(), qs.Payload, "s1"); !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("err = %v, want ErrNotEnrolled", err)
	}
	if len(store.records) != 0 {
		t.Fatalf("records created for unenrolled student: %v", store.records)
	}
}

func TestRedeemAutoEnrolls(t *testing.T) {
	store := newMemStore()
	store.assigned["c1/l1"] = true
	enroller := &memEnroller{results: map[string]enrollment.Result{
		"s1/c1": {Enrolled: true, AutoEnrolled: true},
	}}
	svc := newTestService(store, enroller)

	qs, err := svc.Open(context.Background(), "c1", "l1", 30, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	res, err := svc.Redeem(context.Background(), qs.Payload, "s1")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if !res.AutoEnrolled {
		t.Fatal("auto-enrollment not reported")
	}
}

func TestCloseSweepIdempotent(t *testing.T) {
	store := newMemStore()
	store.assigned["c1/l1"] = true
	enroller := enrolledEveryone(store, "c1", "s1", "s2", "s3")
	svc := newTestService(store, enroller)

	qs, err := svc.Open(context.Background(), "c1", "l1", 30, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := svc.Redeem(context.Background(), qs.Payload, "s1"); err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	first, err := svc.Close(context.Background(), qs.ID, "l1")
	if err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if first.Swept != 2 {
		t.Fatalf("first sweep = %d, want 2", first.Swept)
	}
	counts := store.statusCounts(qs.ClassSessionID)
	if counts[StatusPresent] != 1 || counts[StatusAbsent] != 2 {
		t.Fatalf("after first close: %v, want 1 PRESENT / 2 ABSENT", counts)
	}

	second, err := svc.Close(context.Background(), qs.ID, "l1")
	if err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if second.Swept != 0 {
		t.Fatalf("second sweep = %d, want 0", second.Swept)
	}
	counts = store.statusCounts(qs.ClassSessionID)
	if counts[StatusPresent] != 1 || counts[StatusAbsent] != 2 {
		t.Fatalf("after second close: %v, want unchanged 1 PRESENT / 2 ABSENT", counts)
	}
}

func TestCloseBlocksRedemption(t *testing.T) {
	store := newMemStore()
	store.assigned["c1/l1"] = true
	enroller := enrolledEveryone(store, "c1", "s1")
	svc := newTestService(store, enroller)

	qs, err := svc.Open(context.Background(), "c1", "l1", 30, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := svc.Close(context.Background(), qs.ID, "l1"); err != nil {
		t.Fatalf("Close: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(time.Second) }
	if _, err := svc.Redeem(context.Background(), qs.Payload, "s1"); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired after close", err)
	}
}

func TestCloseNotOwner(t *testing.T) {
	store := newMemStore()
	store.assigned["c1/l1"] = true
	svc := newTestService(store, &memEnroller{})

	qs, err := svc.Open(context.Background(), "c1", "l1", 30, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := svc.Close(context.Background(), qs.ID, "l2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for non-owner", err)
	}
}

func TestMarkManually(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &memEnroller{})

	if err := svc.MarkManually(context.Background(), "cs1", "s1", "SLEEPING", "l1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad status: err = %v, want ErrValidation", err)
	}

	if err := svc.MarkManually(context.Background(), "cs1", "s1", StatusAbsent, "l1"); err != nil {
		t.Fatalf("MarkManually: %v", err)
	}
	if err := svc.MarkManually(context.Background(), "cs1", "s1", StatusLate, "l1"); err != nil {
		t.Fatalf("MarkManually override: %v", err)
	}
	rec := store.records["s1/cs1"]
	if rec.Status != StatusLate {
		t.Fatalf("status = %q, want LATE (last write wins)", rec.Status)
	}
}
