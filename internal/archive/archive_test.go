package archive

import (
	"context"
	"testing"
)

type fakeStore struct {
	entries []Entry
}

func (f *fakeStore) Load(ctx context.Context) ([]Entry, error) {
	return append([]Entry(nil), f.entries...), nil
}

func (f *fakeStore) Save(ctx context.Context, entries []Entry) error {
	f.entries = append([]Entry(nil), entries...)
	return nil
}

func TestAppendTrimsToMaxLength(t *testing.T) {
	store := &fakeStore{}
	a := New(store, 2, 0)

	for i := 0; i < 5; i++ {
		if err := a.Append(context.Background(), Entry{SubmissionID: string(rune('a' + i))}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(store.entries) != 2 {
		t.Fatalf("expected archive trimmed to 2 entries, got %d", len(store.entries))
	}
	if store.entries[len(store.entries)-1].SubmissionID != "e" {
		t.Errorf("expected most recent entry retained, got %v", store.entries)
	}
}

func TestAppendUnboundedLengthWhenMaxLengthZero(t *testing.T) {
	store := &fakeStore{}
	a := New(store, 0, 0)

	for i := 0; i < 10; i++ {
		_ = a.Append(context.Background(), Entry{SubmissionID: "x"})
	}

	if len(store.entries) != 10 {
		t.Errorf("expected unbounded growth, got %d entries", len(store.entries))
	}
}

func TestAppendTrimsToByteBudget(t *testing.T) {
	store := &fakeStore{}
	// Each entry serializes to well over a few bytes; a tiny budget
	// forces aggressive trimming.
	a := New(store, 0, 80)

	for i := 0; i < 10; i++ {
		_ = a.Append(context.Background(), Entry{
			SubmissionID: "0123456789",
			BillingTime:  "2024-01-01T00:00:00Z",
		})
	}

	if len(store.entries) >= 10 {
		t.Errorf("expected byte budget to trim the archive, got %d entries", len(store.entries))
	}
	if len(store.entries) == 0 {
		t.Error("expected at least one entry to survive")
	}
}

func TestAppendByteCheckDisabledBelowThreshold(t *testing.T) {
	store := &fakeStore{}
	a := New(store, 0, 1) // <=1 disables the byte check

	for i := 0; i < 5; i++ {
		if err := a.Append(context.Background(), Entry{SubmissionID: "x"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(store.entries) != 5 {
		t.Errorf("expected byte check disabled (no trimming), got %d entries", len(store.entries))
	}
}

func TestAppendNeverTrimsTheSoleRemainingEntry(t *testing.T) {
	store := &fakeStore{}
	a := New(store, 0, 2) // impossibly small budget

	if err := a.Append(context.Background(), Entry{SubmissionID: "only"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.entries) != 1 {
		t.Fatalf("expected the sole entry to survive an impossible byte budget, got %d", len(store.entries))
	}
}
