package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"cytocore/internal/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()

	info, err := store.Put(ctx, "k", strings.NewReader("payload"), core.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 || info.ETag == "" {
		t.Fatalf("unexpected info: %+v", info)
	}

	_, rc, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	payload, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(payload) != "payload" {
		t.Fatalf("payload mismatch: %q", payload)
	}
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := New()
	if _, err := store.Put(ctx, "k", strings.NewReader("old"), core.PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	info, err := store.Put(ctx, "k", strings.NewReader("newer"), core.PutOptions{})
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if info.Size != 5 {
		t.Fatalf("expected replaced size, got %+v", info)
	}
}

func TestHeadAndDelete(t *testing.T) {
	ctx := context.Background()
	store := New()
	if _, err := store.Head(ctx, "k"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Head(ctx, "k"); err != nil {
		t.Fatalf("head: %v", err)
	}
	ok, err := store.Delete(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := store.Head(ctx, "k"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListByPrefix(t *testing.T) {
	ctx := context.Background()
	store := New()
	for _, key := range []string{"a/1", "a/2", "b/1"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "a/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "a/1" || infos[1].Key != "a/2" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestPresignUnsupported(t *testing.T) {
	if _, err := New().PresignURL(context.Background(), "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
