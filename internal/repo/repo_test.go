package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"activities/internal/db"
	"activities/internal/events"
	"activities/internal/migrate"
	"activities/internal/repo"
)

func newRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}
}

func TestSessionLifecycle(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	if _, err := r.GetSession(ctx, "s1", now); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := r.SaveSession(ctx, "s1", "jsmith", []byte(`{"user":{}}`), now, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := r.SaveSession(ctx, "s1", "jsmith", []byte(`{"user":{"username":"jsmith"}}`), now.Add(30*time.Minute), time.Hour); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err := r.GetSession(ctx, "s1", now.Add(80*time.Minute))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Body) != `{"user":{"username":"jsmith"}}` {
		t.Fatalf("body %s", got.Body)
	}
	if _, err := r.GetSession(ctx, "s1", now.Add(91*time.Minute)); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expired session should be not found, got %v", err)
	}

	if err := r.SaveSession(ctx, "s2", "other", []byte(`{}`), now.Add(2*time.Hour), time.Hour); err != nil {
		t.Fatalf("save s2: %v", err)
	}
	list, err := r.ListSessions(ctx, 10)
	if err != nil || len(list) != 2 || list[0].ID != "s2" {
		t.Fatalf("list: %v %+v", err, list)
	}
	n, err := r.PurgeExpiredSessions(ctx, now.Add(2*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
	if err := r.DeleteSession(ctx, "s2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.DeleteSession(ctx, "s2"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestEventsAppendAndList(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	w := events.Writer{DB: r.DB, Now: func() time.Time { return time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC) }}
	for i, typ := range []string{events.AllocationCreated, events.AppointmentCancelled, events.AllocationCreated} {
		err := w.Append(ctx, nil, events.Entry{
			Type:       typ,
			PrisonCode: "MDI",
			EntityKind: "allocation",
			EntityID:   string(rune('a' + i)),
			ActorID:    "jsmith",
			Payload:    events.EventPayload{"n": i},
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	latest, err := r.LatestEvents(ctx, 10, 0, events.AllocationCreated, "")
	if err != nil || len(latest) != 2 || latest[0].EntityID != "c" {
		t.Fatalf("latest: %v %+v", err, latest)
	}
	if latest[0].TS != "2024-01-02T09:00:00Z" || latest[0].RequestID != "" {
		t.Fatalf("unexpected event %+v", latest[0])
	}
	after, err := r.EventsAfter(ctx, 10, latest[1].ID)
	if err != nil || len(after) != 2 || after[0].Type != events.AppointmentCancelled {
		t.Fatalf("after: %v %+v", err, after)
	}
	id, err := r.LatestEventID(ctx)
	if err != nil || id != latest[0].ID {
		t.Fatalf("latest id %d err=%v", id, err)
	}
	v, err := migrate.Version(ctx, r.DB)
	if err != nil || v != 1 {
		t.Fatalf("schema version %d err=%v", v, err)
	}
}
