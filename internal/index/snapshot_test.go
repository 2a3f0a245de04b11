package index

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store", "corpus.db")

	idx := NewMemory(newTable())
	cs, ms := chunks("north", "east", "northeast", "east again")
	if err := idx.Ingest(ctx, cs, ms); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if err := SaveSnapshot(ctx, path, idx); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := LoadSnapshot(ctx, path, newTable())
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.Len() != idx.Len() {
		t.Fatalf("Expected %d entries, got %d", idx.Len(), loaded.Len())
	}

	orig, got := idx.Entries(), loaded.Entries()
	for i := range orig {
		if got[i].Chunk != orig[i].Chunk {
			t.Errorf("Entry %d chunk differs: %+v vs %+v", i, got[i].Chunk, orig[i].Chunk)
		}
		if got[i].Metadata != orig[i].Metadata {
			t.Errorf("Entry %d metadata differs: %+v vs %+v", i, got[i].Metadata, orig[i].Metadata)
		}
		for j := range orig[i].Vector {
			if got[i].Vector[j] != orig[i].Vector[j] {
				t.Errorf("Entry %d vector differs at %d", i, j)
			}
		}
	}

	// Tie order survives the round trip
	matches, _ := loaded.Query(ctx, "q-east", 2)
	if matches[0].Entry.Chunk.Text != "east" || matches[1].Entry.Chunk.Text != "east again" {
		t.Errorf("Expected insertion-order ties after reload, got %v, %v", matches[0].Entry.Chunk.Text, matches[1].Entry.Chunk.Text)
	}
}

func TestSnapshot_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "corpus.db")

	idx := NewMemory(newTable())
	cs, ms := chunks("north", "east")
	_ = idx.Ingest(ctx, cs, ms)
	_ = SaveSnapshot(ctx, path, idx)

	small := NewMemory(newTable())
	cs, ms = chunks("northeast")
	_ = small.Ingest(ctx, cs, ms)
	if err := SaveSnapshot(ctx, path, small); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := LoadSnapshot(ctx, path, newTable())
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if loaded.Len() != 1 {
		t.Errorf("Expected snapshot to be replaced, got %d entries", loaded.Len())
	}
}

func TestSnapshot_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "corpus.db")

	idx := NewMemory(newTable())
	cs, ms := chunks("east")
	_ = idx.Ingest(ctx, cs, ms)
	_ = SaveSnapshot(ctx, path, idx)

	wide := newTable()
	wide.dim = 3
	if _, err := LoadSnapshot(ctx, path, wide); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSnapshot_Missing(t *testing.T) {
	_, err := LoadSnapshot(context.Background(), filepath.Join(t.TempDir(), "nope.db"), newTable())
	if err == nil {
		t.Fatal("Expected error for missing snapshot")
	}
	if !strings.Contains(err.Error(), "nope.db") {
		t.Errorf("Expected path in error, got %v", err)
	}
}

func TestFloatBlobs(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out := bytesToFloat32Slice(float32SliceToBytes(in))
	if len(out) != len(in) {
		t.Fatalf("Expected %d values, got %d", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("Value %d: expected %v, got %v", i, in[i], out[i])
		}
	}
}
