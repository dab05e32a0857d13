package semantic

import (
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

const (
	TablePaperChunks     = "paper_chunks"
	TableChunkEmbeddings = "chunk_embeddings"
)

// PaperChunk is one span of a stored paper's markdown.
type PaperChunk struct {
	ID        int64
	PaperID   string `gorm:"index"`
	Seq       int
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName implements the gorm naming override.
func (PaperChunk) TableName() string { return TablePaperChunks }

// ChunkEmbedding stores the vector representation of one chunk. The
// column type matches text-embedding-3-small; sqlite stores the same
// value through its text affinity.
type ChunkEmbedding struct {
	ChunkID   int64           `gorm:"primaryKey"`
	Vector    pgvector.Vector `gorm:"type:vector(1536)"`
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName implements the gorm naming override.
func (ChunkEmbedding) TableName() string { return TableChunkEmbeddings }

// Match is one scored chunk answered by Search.
type Match struct {
	PaperID string  `json:"paper_id"`
	Seq     int     `json:"seq"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}
