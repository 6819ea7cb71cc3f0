package store

import (
	"errors"
	"strconv"
	"testing"

	"github.com/lherron/recmerge/internal/events"
	"github.com/lherron/recmerge/internal/record"
	"github.com/lherron/recmerge/internal/testutil"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, _ := testutil.TempDB(t)
	return New(database)
}

func mustPut(t *testing.T, s *Store, rec record.Record) *PutResult {
	t.Helper()
	res, err := s.Records.Put(rec)
	if err != nil {
		t.Fatalf("Put(%s) failed: %v", rec.URI(), err)
	}
	return res
}

func person(id int, title string) record.Record {
	return record.Record{
		"uri":            "/agents/people/" + strconv.Itoa(id),
		"jsonmodel_type": "agent_person",
		"id":             id,
		"title":          title,
	}
}

func TestRecordStore_PutAndGet(t *testing.T) {
	s := setupTestStore(t)

	res := mustPut(t, s, person(1, "Smith"))
	if !res.Created {
		t.Error("expected first put to create")
	}
	if res.LockVersion != 0 {
		t.Errorf("expected lock_version 0, got %d", res.LockVersion)
	}

	rec, err := s.Records.Get("/agents/people/1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.String("title") != "Smith" {
		t.Errorf("expected title Smith, got %q", rec.String("title"))
	}

	res = mustPut(t, s, person(1, "Smith, John"))
	if res.Created {
		t.Error("expected second put to update")
	}
	if res.LockVersion != 1 {
		t.Errorf("expected lock_version 1, got %d", res.LockVersion)
	}

	history, err := s.Events().Recent("/agents/people/1", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 events, got %d", len(history))
	}
	if history[0].EventType != events.TypeRecordUpdated || history[1].EventType != events.TypeRecordCreated {
		t.Errorf("unexpected event order: %s, %s", history[0].EventType, history[1].EventType)
	}
	if history[0].UUID == "" {
		t.Error("expected event uuid to be set")
	}
}

func TestRecordStore_PutRejectsUnknownURI(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.Records.Put(record.Record{"uri": "/widgets/1"}); err == nil {
		t.Fatal("expected error for unrecognized uri")
	}
}

func TestRecordStore_GetNotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.Records.Get("/subjects/99")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordStore_Delete(t *testing.T) {
	s := setupTestStore(t)
	mustPut(t, s, person(1, "Smith"))

	if err := s.Records.Delete("/agents/people/1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Records.Get("/agents/people/1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record to be gone, got %v", err)
	}
	if err := s.Records.Delete("/agents/people/1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRecordStore_Links(t *testing.T) {
	s := setupTestStore(t)
	mustPut(t, s, person(2, "Jones"))
	mustPut(t, s, record.Record{
		"uri":            "/repositories/2/resources/5",
		"linked_agents":  []any{map[string]any{"ref": "/agents/people/2", "role": "creator"}},
		"jsonmodel_type": "resource",
	})

	links, err := s.Records.Links("/agents/people/2")
	if err != nil {
		t.Fatalf("Links failed: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	if links[0].SourceURI != "/repositories/2/resources/5" || links[0].Path != "linked_agents.0" {
		t.Errorf("unexpected link %+v", links[0])
	}

	// Replacing the record drops stale links.
	mustPut(t, s, record.Record{"uri": "/repositories/2/resources/5", "jsonmodel_type": "resource"})
	links, err = s.Records.Links("/agents/people/2")
	if err != nil {
		t.Fatalf("Links failed: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("expected links to be cleared, got %v", links)
	}
}

func TestRecordStore_Assimilate(t *testing.T) {
	s := setupTestStore(t)
	mustPut(t, s, person(1, "Smith"))
	mustPut(t, s, person(2, "Smyth"))
	mustPut(t, s, person(3, "Smithe"))
	mustPut(t, s, record.Record{
		"uri": "/repositories/2/resources/5",
		"linked_agents": []any{
			map[string]any{"ref": "/agents/people/2"},
			map[string]any{"ref": "/agents/people/3"},
			map[string]any{"ref": "/agents/people/9"},
		},
	})

	res, err := s.Records.Assimilate("/agents/people/1", []string{"/agents/people/2", "/agents/people/3"})
	if err != nil {
		t.Fatalf("Assimilate failed: %v", err)
	}
	if res.Updated {
		t.Error("expected target to be left as stored")
	}
	if len(res.Repointed) != 1 || res.Repointed[0] != "/repositories/2/resources/5" {
		t.Errorf("unexpected repointed records %v", res.Repointed)
	}

	for _, victim := range []string{"/agents/people/2", "/agents/people/3"} {
		if _, err := s.Records.Get(victim); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected %s to be deleted, got %v", victim, err)
		}
		history, err := s.Events().Recent(victim, 1)
		if err != nil {
			t.Fatalf("Recent failed: %v", err)
		}
		if len(history) != 1 || history[0].EventType != events.TypeRecordAssimilated {
			t.Errorf("expected assimilated event for %s, got %v", victim, history)
		}
	}

	resource, err := s.Records.Get("/repositories/2/resources/5")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	agents := resource.List("linked_agents")
	for i, want := range []string{"/agents/people/1", "/agents/people/1", "/agents/people/9"} {
		got := agents[i].(map[string]any)["ref"]
		if got != want {
			t.Errorf("linked_agents.%d: expected %s, got %v", i, want, got)
		}
	}

	links, err := s.Records.Links("/agents/people/1")
	if err != nil {
		t.Fatalf("Links failed: %v", err)
	}
	if len(links) != 2 {
		t.Errorf("expected 2 links to the target, got %v", links)
	}
}

func TestRecordStore_AssimilateAndUpdate(t *testing.T) {
	s := setupTestStore(t)
	mustPut(t, s, person(1, "Smith"))
	mustPut(t, s, person(2, "Smyth"))

	updated := person(1, "Smith, John")
	updated["related_agents"] = []any{map[string]any{"ref": "/agents/people/2"}}

	res, err := s.Records.AssimilateAndUpdate("/agents/people/1", []string{"/agents/people/2"}, updated)
	if err != nil {
		t.Fatalf("AssimilateAndUpdate failed: %v", err)
	}
	if !res.Updated {
		t.Error("expected target to be updated")
	}

	target, err := s.Records.Get("/agents/people/1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if target.String("title") != "Smith, John" {
		t.Errorf("expected updated title, got %q", target.String("title"))
	}
	ref := target.List("related_agents")[0].(map[string]any)["ref"]
	if ref != "/agents/people/1" {
		t.Errorf("expected reference to the victim to be repointed, got %v", ref)
	}
}

func TestRecordStore_AssimilateRollsBack(t *testing.T) {
	s := setupTestStore(t)
	mustPut(t, s, person(1, "Smith"))
	mustPut(t, s, person(2, "Smyth"))

	_, err := s.Records.AssimilateAndUpdate("/agents/people/1", []string{"/agents/people/2", "/agents/people/7"}, person(1, "Changed"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing victim, got %v", err)
	}

	target, err := s.Records.Get("/agents/people/1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if target.String("title") != "Smith" {
		t.Errorf("expected target untouched, got title %q", target.String("title"))
	}
	if _, err := s.Records.Get("/agents/people/2"); err != nil {
		t.Errorf("expected victim to survive a failed assimilate, got %v", err)
	}
}

func TestRecordStore_AssimilateIntoItself(t *testing.T) {
	s := setupTestStore(t)
	mustPut(t, s, person(1, "Smith"))
	if _, err := s.Records.Assimilate("/agents/people/1", []string{"/agents/people/1"}); err == nil {
		t.Fatal("expected error when assimilating a record into itself")
	}
}
