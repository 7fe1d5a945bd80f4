package retriever

import (
	"errors"
	"testing"

	"minirag/internal/domain"
)

func TestBuildSnapshot(t *testing.T) {
	docs := []domain.Document{
		{ID: 1, Title: "a", Text: "x", Embedding: []float32{1, 2}, Dim: 2},
		{ID: 2, Title: "b", Text: "y", Embedding: []float32{3, 4}, Dim: 2},
	}

	s, err := BuildSnapshot(docs)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 || s.Dim != 2 {
		t.Fatalf("unexpected shape: len=%d dim=%d", s.Len(), s.Dim)
	}
	if row := s.Row(1); row[0] != 3 || row[1] != 4 {
		t.Errorf("unexpected row 1: %v", row)
	}
	if s.Titles[1] != "b" || s.IDs[1] != 2 {
		t.Errorf("parallel arrays out of sync: %+v", s)
	}

	scores := s.Scores([]float32{1, 1})
	if scores[0] != 3 || scores[1] != 7 {
		t.Errorf("unexpected scores %v", scores)
	}
}

func TestBuildSnapshot_Empty(t *testing.T) {
	s, err := BuildSnapshot(nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty snapshot, got %d rows", s.Len())
	}
}

func TestBuildSnapshot_DimensionMismatch(t *testing.T) {
	docs := []domain.Document{
		{ID: 1, Embedding: []float32{1, 2}, Dim: 2},
		{ID: 7, Embedding: []float32{1, 2, 3}, Dim: 3},
	}

	_, err := BuildSnapshot(docs)
	var dm *domain.DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dm.DocID != 7 || dm.Expected != 2 || dm.Got != 3 {
		t.Errorf("unexpected detail %+v", dm)
	}
}
