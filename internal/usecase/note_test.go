package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/repository"
)

type memNotes struct {
	byID map[string]*domain.Note
}

func newMemNotes() *memNotes {
	return &memNotes{byID: make(map[string]*domain.Note)}
}

func (r *memNotes) Create(_ context.Context, note domain.Note) error {
	copied := note
	r.byID[note.ID] = &copied
	return nil
}

func (r *memNotes) GetByID(_ context.Context, id string) (*domain.Note, error) {
	if note, ok := r.byID[id]; ok {
		copied := *note
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memNotes) List(_ context.Context, filter port.NoteFilter) ([]domain.Note, error) {
	var all []domain.Note
	for _, note := range r.byID {
		if note.UserID == filter.UserID {
			all = append(all, *note)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if filter.Offset >= len(all) {
		return nil, nil
	}
	all = all[filter.Offset:]
	if filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, nil
}

func (r *memNotes) Count(_ context.Context, filter port.NoteFilter) (int, error) {
	count := 0
	for _, note := range r.byID {
		if note.UserID == filter.UserID {
			count++
		}
	}
	return count, nil
}

func (r *memNotes) Update(_ context.Context, note domain.Note) error {
	if _, ok := r.byID[note.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := note
	r.byID[note.ID] = &copied
	return nil
}

func (r *memNotes) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

var _ port.NoteRepository = (*memNotes)(nil)

func TestNoteCRUD(t *testing.T) {
	svc := NewNoteService(newMemNotes())

	created, err := svc.Create(context.Background(), "user-1", "Groceries", "milk, eggs")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated note id")
	}

	got, err := svc.Get(context.Background(), "user-1", created.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Title != "Groceries" || got.Content != "milk, eggs" {
		t.Fatalf("unexpected note: %+v", got)
	}

	updated, err := svc.Update(context.Background(), "user-1", created.ID, "Groceries v2", "milk")
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Title != "Groceries v2" || updated.Content != "milk" {
		t.Fatalf("unexpected updated note: %+v", updated)
	}

	if err := svc.Delete(context.Background(), "user-1", created.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := svc.Get(context.Background(), "user-1", created.ID); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound after delete, got %v", err)
	}
}

func TestNoteOwnershipHidden(t *testing.T) {
	svc := NewNoteService(newMemNotes())

	created, err := svc.Create(context.Background(), "user-1", "Private", "secret")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// Another user's probe behaves exactly like a missing note.
	if _, err := svc.Get(context.Background(), "user-2", created.ID); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound for foreign note, got %v", err)
	}
	if _, err := svc.Update(context.Background(), "user-2", created.ID, "Hijack", ""); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound on foreign update, got %v", err)
	}
	if err := svc.Delete(context.Background(), "user-2", created.ID); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound on foreign delete, got %v", err)
	}

	if _, err := svc.Get(context.Background(), "user-1", created.ID); err != nil {
		t.Fatalf("owner Get returned error: %v", err)
	}
}

func TestNoteTitleRequired(t *testing.T) {
	svc := NewNoteService(newMemNotes())

	if _, err := svc.Create(context.Background(), "user-1", "   ", "body"); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired on create, got %v", err)
	}

	created, err := svc.Create(context.Background(), "user-1", "Valid", "body")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := svc.Update(context.Background(), "user-1", created.ID, "", "body"); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired on update, got %v", err)
	}
}

func TestNoteListPaging(t *testing.T) {
	repo := newMemNotes()
	svc := NewNoteService(repo)

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	clock := base
	svc.WithClock(func() time.Time { return clock })

	for i := 0; i < 5; i++ {
		clock = base.Add(time.Duration(i) * time.Minute)
		if _, err := svc.Create(context.Background(), "user-1", "note", ""); err != nil {
			t.Fatalf("Create %d returned error: %v", i, err)
		}
	}
	if _, err := svc.Create(context.Background(), "user-2", "other", ""); err != nil {
		t.Fatalf("Create for other user returned error: %v", err)
	}

	page, err := svc.List(context.Background(), "user-1", 2, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if page.Total != 5 {
		t.Fatalf("expected total 5, got %d", page.Total)
	}
	if len(page.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(page.Notes))
	}
	// Newest first.
	if !page.Notes[0].CreatedAt.After(page.Notes[1].CreatedAt) {
		t.Fatal("expected newest-first ordering")
	}

	last, err := svc.List(context.Background(), "user-1", 2, 4)
	if err != nil {
		t.Fatalf("List last page returned error: %v", err)
	}
	if len(last.Notes) != 1 {
		t.Fatalf("expected 1 note on last page, got %d", len(last.Notes))
	}
}

func TestNoteListClampsPaging(t *testing.T) {
	svc := NewNoteService(newMemNotes())

	page, err := svc.List(context.Background(), "user-1", -5, -10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if page.Limit != defaultNotePageSize {
		t.Fatalf("expected default limit %d, got %d", defaultNotePageSize, page.Limit)
	}
	if page.Offset != 0 {
		t.Fatalf("expected offset clamped to 0, got %d", page.Offset)
	}

	page, err = svc.List(context.Background(), "user-1", 10_000, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if page.Limit != maxNotePageSize {
		t.Fatalf("expected limit capped at %d, got %d", maxNotePageSize, page.Limit)
	}
}
