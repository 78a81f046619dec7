package contentstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/eringen/spacetraveling/prismic"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "content.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTestStore(t *testing.T, s *Store) {
	t.Helper()
	f, err := ReadFixture("testdata/posts.yaml")
	if err != nil {
		t.Fatalf("ReadFixture failed: %v", err)
	}
	n, err := s.Seed(context.Background(), f)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("Seed wrote %d documents, want 4", n)
	}
}

func TestSaveAndSearchByUID(t *testing.T) {
	s := setupTestStore(t)
	published := time.Date(2021, 3, 25, 19, 27, 35, 0, time.UTC)
	doc := prismic.Document{
		UID:                  "hooks",
		Type:                 "post",
		FirstPublicationDate: prismic.NewTimestamp(published),
		Data:                 json.RawMessage(`{"title":"Hooks"}`),
	}
	if err := s.SaveDocument(context.Background(), doc); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	docs, total, err := s.Search(context.Background(), Query{Type: "post", UID: "hooks", Page: 1, PageSize: 1})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 1 || len(docs) != 1 {
		t.Fatalf("got %d docs (total %d), want 1", len(docs), total)
	}
	got := docs[0]
	if got.ID == "" {
		t.Errorf("expected generated ID")
	}
	if !got.FirstPublicationDate.Valid || !got.FirstPublicationDate.Time.Equal(published) {
		t.Errorf("FirstPublicationDate = %v, want %v", got.FirstPublicationDate, published)
	}
	if got.LastPublicationDate.Valid {
		t.Errorf("expected null last publication date")
	}
	if string(got.Data) != `{"title":"Hooks"}` {
		t.Errorf("Data = %s", got.Data)
	}
}

func TestSaveRejectsInvalidDocuments(t *testing.T) {
	s := setupTestStore(t)
	if err := s.SaveDocument(context.Background(), prismic.Document{UID: "x"}); err == nil {
		t.Errorf("expected error for missing type")
	}
	if err := s.SaveDocument(context.Background(), prismic.Document{Type: "post", Data: json.RawMessage(`{`)}); err == nil {
		t.Errorf("expected error for invalid data")
	}
}

func TestSearchOrdersNewestFirstWithUndatedLast(t *testing.T) {
	s := setupTestStore(t)
	seedTestStore(t, s)

	docs, total, err := s.Search(context.Background(), Query{Type: "post", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	want := []string{"criando-um-app-cra-do-zero", "como-utilizar-hooks", "rascunho"}
	for i, uid := range want {
		if docs[i].UID != uid {
			t.Errorf("docs[%d].UID = %q, want %q", i, docs[i].UID, uid)
		}
	}
}

func TestSearchPaging(t *testing.T) {
	s := setupTestStore(t)
	seedTestStore(t, s)

	docs, total, err := s.Search(context.Background(), Query{Type: "post", Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 3 || len(docs) != 1 || docs[0].UID != "rascunho" {
		t.Errorf("page 2 = %d docs (total %d), want the undated draft", len(docs), total)
	}
}

func TestRefChangesOnWrite(t *testing.T) {
	s := setupTestStore(t)
	before := s.Ref()
	if err := s.SaveDocument(context.Background(), prismic.Document{Type: "post", UID: "a"}); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	if s.Ref() == before {
		t.Errorf("expected ref to change after a write")
	}
}

func TestDeleteDocument(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	if err := s.SaveDocument(ctx, prismic.Document{ID: "d1", Type: "post", UID: "a"}); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	if err := s.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	_, total, err := s.Search(ctx, Query{ID: "d1", Page: 1, PageSize: 1})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 0 {
		t.Errorf("expected document to be gone")
	}
}
