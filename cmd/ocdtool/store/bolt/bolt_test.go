package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Comcast/ocdrules/cmd/ocdtool/store"
)

func TestImpl(t *testing.T) {
	// Just confirm that this code compiles.
	var _ store.Storage = &Storage{}
	var _ store.Storage = store.NewMemStorage()
}

func TestBasics(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "catalogs.db")

	s, err := NewStorage(filename)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := s.Close(ctx); err != nil {
			t.Fatal(err)
		}
	}()

	doc, err := store.ReadDocument("../../../../catalogs/schrank.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "moebel" || doc.Version != "2026.1" {
		t.Fatal(doc.Name, doc.Version)
	}
	if err := s.Put(ctx, doc); err != nil {
		t.Fatal(err)
	}

	docs, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Name != "moebel" || docs[0].Source != nil {
		t.Fatal(docs)
	}

	c, err := store.Load(ctx, s, "moebel")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Article("0816"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, "moebel"); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, "moebel"); !errors.Is(err, store.ErrNotFound) {
		t.Fatal(err)
	}
}

func TestMem(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStorage()

	doc, err := store.ReadDocument("../../../../catalogs/schrank.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "moebel")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Source) == 0 {
		t.Fatal("lost source")
	}
	docs, _ := s.List(ctx)
	if len(docs) != 1 || docs[0].Source != nil {
		t.Fatal(docs)
	}
}

// BenchmarkBolt is just for fun.  Bolt is slow.
func BenchmarkBolt(b *testing.B) {
	filename := filepath.Join(b.TempDir(), "catalogs.db")

	s, err := NewStorage(filename)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Open(ctx); err != nil {
		b.Fatal(err)
	}
	defer s.Close(ctx)

	doc, err := store.ReadDocument("../../../../catalogs/schrank.yaml")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Put(ctx, doc); err != nil {
			b.Fatal(err)
		}
		if _, err := s.Get(ctx, doc.Name); err != nil {
			b.Fatal(err)
		}
	}
}
