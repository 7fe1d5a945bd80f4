package retriever

import (
	"minirag/internal/domain"
)

// Snapshot is an immutable view of the document table with every embedding
// stacked into one row-major matrix. Row i of Matrix belongs to IDs[i],
// Titles[i] and Texts[i].
type Snapshot struct {
	IDs    []int64
	Titles []string
	Texts  []string
	Matrix []float32
	Dim    int
}

// BuildSnapshot stacks docs in the order given. All embeddings must share
// one dimension; the first document sets it.
func BuildSnapshot(docs []domain.Document) (*Snapshot, error) {
	if len(docs) == 0 {
		return &Snapshot{}, nil
	}

	dim := len(docs[0].Embedding)
	s := &Snapshot{
		IDs:    make([]int64, len(docs)),
		Titles: make([]string, len(docs)),
		Texts:  make([]string, len(docs)),
		Matrix: make([]float32, 0, len(docs)*dim),
		Dim:    dim,
	}
	for i, d := range docs {
		if len(d.Embedding) != dim {
			return nil, &domain.DimensionMismatchError{DocID: d.ID, Expected: dim, Got: len(d.Embedding)}
		}
		s.IDs[i] = d.ID
		s.Titles[i] = d.Title
		s.Texts[i] = d.Text
		s.Matrix = append(s.Matrix, d.Embedding...)
	}
	return s, nil
}

// Len returns the number of indexed documents.
func (s *Snapshot) Len() int {
	return len(s.IDs)
}

// Row returns the embedding of row i. The slice aliases the matrix and must
// not be modified.
func (s *Snapshot) Row(i int) []float32 {
	return s.Matrix[i*s.Dim : (i+1)*s.Dim]
}

// Scores returns the dot product of q with every row.
func (s *Snapshot) Scores(q []float32) []float64 {
	scores := make([]float64, s.Len())
	for i := range scores {
		row := s.Row(i)
		var sum float64
		for j, v := range row {
			sum += float64(v) * float64(q[j])
		}
		scores[i] = sum
	}
	return scores
}
