package meta

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	for i, code := range []string{"AAAAAA", "BBBBBB", "CCCCCC"} {
		err := s.Upsert(ctx, Room{Code: code, CreatedBy: "alice", MaxPlayers: 2, VsBot: i == 1, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("upsert %s: %v", code, err)
		}
	}

	r, ok, err := s.Get(ctx, "BBBBBB")
	if err != nil || !ok {
		t.Fatalf("get BBBBBB: ok=%v err=%v", ok, err)
	}
	if !r.VsBot || r.CreatedBy != "alice" || r.MaxPlayers != 2 {
		t.Fatalf("unexpected record %+v", r)
	}

	list, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Code != "CCCCCC" || list[1].Code != "BBBBBB" {
		t.Fatalf("list order/limit wrong: %+v", list)
	}

	if err := s.Delete(ctx, "BBBBBB"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "BBBBBB"); ok {
		t.Fatalf("expected BBBBBB to be gone")
	}
	// 删除不存在的记录不是错误
	if err := s.Delete(ctx, "ZZZZZZ"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 remaining rooms, got %d", len(all))
	}
}

func TestMemStore(t *testing.T) {
	exerciseStore(t, NewMemStore())
}

func TestSQLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.db")
	s, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rooms.db")
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Upsert(ctx, Room{Code: "QWERTY", CreatedBy: "bob", MaxPlayers: 2}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	_ = s.Close()

	s2, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	r, ok, err := s2.Get(ctx, "QWERTY")
	if err != nil || !ok || r.CreatedBy != "bob" {
		t.Fatalf("expected record after reopen, got %+v ok=%v err=%v", r, ok, err)
	}
}
