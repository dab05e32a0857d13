// Package semantic indexes stored papers into a vector store and
// answers nearest-chunk queries.
package semantic

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/Laisky/arxiv-mcp/library/log"
)

// MarkdownSource yields the stored markdown for a paper.
type MarkdownSource interface {
	ReadMarkdown(paperID string) (string, error)
}

// Store coordinates chunking, embedding, and retrieval over the
// vector tables.
type Store struct {
	db       *gorm.DB
	embedder Embedder
	chunker  Chunker
	source   MarkdownSource
	settings Settings
	logger   logSDK.Logger
	clock    func() time.Time
}

// NewStore wires the dependencies and runs the schema migrations.
func NewStore(db *gorm.DB, embedder Embedder, source MarkdownSource,
	settings Settings, logger logSDK.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("gorm db is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if source == nil {
		return nil, errors.New("markdown source is required")
	}
	if logger == nil {
		logger = log.Logger.Named("semantic")
	}

	s := &Store{
		db:       db,
		embedder: embedder,
		chunker:  ParagraphChunker{},
		source:   source,
		settings: settings,
		logger:   logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		return nil, errors.WithStack(err)
	}

	return s, nil
}

func runMigrations(ctx context.Context, db *gorm.DB, logger logSDK.Logger) error {
	if err := ensureVectorExtension(ctx, db, logger); err != nil {
		return errors.Wrap(err, "ensure pgvector extension")
	}

	if err := db.WithContext(ctx).AutoMigrate(&PaperChunk{}, &ChunkEmbedding{}); err != nil {
		return errors.Wrap(err, "auto migrate semantic tables")
	}

	return nil
}

func ensureVectorExtension(ctx context.Context, db *gorm.DB, logger logSDK.Logger) error {
	if db == nil {
		return errors.New("gorm db is nil")
	}
	if !isPostgresDialect(db) {
		return nil
	}

	if err := db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		if shouldFallbackToPgvector(err) {
			if logger != nil {
				logger.Debug("pgvector extension unavailable under name 'vector', retrying with legacy name")
			}
			if execErr := db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS pgvector").Error; execErr != nil {
				return errors.Wrap(execErr, "create pgvector extension")
			}
			return nil
		}
		return errors.Wrap(err, "create vector extension")
	}

	return nil
}

func isPostgresDialect(db *gorm.DB) bool {
	if db == nil || db.Dialector == nil {
		return false
	}
	return strings.EqualFold(db.Dialector.Name(), "postgres")
}

func shouldFallbackToPgvector(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "58P01", "42704":
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "extension \"vector\"") &&
		strings.Contains(msg, "not") && strings.Contains(msg, "available")
}

func (s *Store) loggerFromContext(ctx context.Context) logSDK.Logger {
	if ctx != nil {
		if ctxLogger := gmw.GetLogger(ctx); ctxLogger != nil {
			return ctxLogger
		}
	}
	if s.logger != nil {
		return s.logger
	}
	return log.Logger.Named("semantic")
}

// IndexPaper chunks and embeds one stored paper's markdown, replacing
// any rows from a previous indexing run.
func (s *Store) IndexPaper(ctx context.Context, paperID string) (int, error) {
	document, err := s.source.ReadMarkdown(paperID)
	if err != nil {
		return 0, errors.Wrapf(err, "load markdown for %s", paperID)
	}

	plain := strings.Join(markdownPlainBlocks(document), "\n\n")
	fragments := s.chunker.Split(plain, s.settings.MaxChunkChars)
	if len(fragments) == 0 {
		return 0, errors.Errorf("no chunks generated for %s", paperID)
	}

	texts := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		texts = append(texts, fragment.Text)
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, errors.Wrap(err, "embed chunks")
	}
	if len(vectors) != len(fragments) {
		return 0, errors.New("embedding count mismatch")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteChunksTx(tx, paperID); err != nil {
			return errors.WithStack(err)
		}

		now := s.clock()
		for i, fragment := range fragments {
			chunk := PaperChunk{
				PaperID:   paperID,
				Seq:       fragment.Seq,
				Text:      fragment.Text,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Create(&chunk).Error; err != nil {
				return errors.Wrap(err, "insert chunk")
			}

			embedding := ChunkEmbedding{
				ChunkID:   chunk.ID,
				Vector:    vectors[i],
				Model:     s.settings.EmbeddingModel,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Create(&embedding).Error; err != nil {
				return errors.Wrap(err, "insert embedding")
			}
		}

		return nil
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}

	s.loggerFromContext(ctx).Info("paper indexed",
		zap.String("paper_id", paperID), zap.Int("chunks", len(fragments)))
	return len(fragments), nil
}

func deleteChunksTx(tx *gorm.DB, paperID string) error {
	if err := tx.Where("paper_id = ?", paperID).Delete(&PaperChunk{}).Error; err != nil {
		return errors.Wrap(err, "delete chunks")
	}
	if err := tx.Where("chunk_id NOT IN (SELECT id FROM " + TablePaperChunks + ")").
		Delete(&ChunkEmbedding{}).Error; err != nil {
		return errors.Wrap(err, "cleanup embeddings")
	}
	return nil
}

// ChunkCount reports how many chunks are indexed.
func (s *Store) ChunkCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&PaperChunk{}).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "count chunks")
	}
	return n, nil
}

// Search embeds the query and returns the topK nearest chunks, scored
// by cosine similarity. On postgres the candidate set is pre-ordered
// by the pgvector `<=>` operator; other dialects score every row in
// process, which keeps dev setups on sqlite working.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query cannot be empty")
	}
	if topK <= 0 {
		topK = s.settings.TopKDefault
	}
	if topK > s.settings.TopKLimit {
		topK = s.settings.TopKLimit
	}

	queryVecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, errors.Wrap(err, "embed query")
	}
	if len(queryVecs) == 0 {
		return nil, errors.New("embedding provider returned no query vector")
	}
	queryVec := queryVecs[0]

	candidates, err := s.fetchCandidates(ctx, queryVec, max(16, topK*4))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		matches = append(matches, Match{
			PaperID: candidate.PaperID,
			Seq:     candidate.Seq,
			Text:    candidate.Text,
			Score:   cosineSimilarity(queryVec, candidate.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}

	return matches, nil
}

type candidateChunk struct {
	ChunkID   int64           `gorm:"column:id"`
	PaperID   string          `gorm:"column:paper_id"`
	Seq       int             `gorm:"column:seq"`
	Text      string          `gorm:"column:text"`
	Embedding pgvector.Vector `gorm:"column:embedding"`
}

func (s *Store) fetchCandidates(ctx context.Context, queryVec pgvector.Vector, limit int) ([]candidateChunk, error) {
	logger := s.loggerFromContext(ctx)
	rows := make([]candidateChunk, 0, limit)

	if isPostgresDialect(s.db) {
		err := s.db.WithContext(ctx).
			Raw(`
SELECT c.id, c.paper_id, c.seq, c.text, e.vector AS embedding
FROM `+TablePaperChunks+` c
JOIN `+TableChunkEmbeddings+` e ON e.chunk_id = c.id
ORDER BY e.vector <=> ? ASC
LIMIT ?`, queryVec, limit).
			Scan(&rows).Error
		if err != nil {
			return nil, errors.Wrap(err, "query nearest chunks")
		}

		logger.Debug("semantic candidates fetched", zap.Int("count", len(rows)))
		return rows, nil
	}

	// No vector operator without pgvector; scan everything and let the
	// caller score in process.
	err := s.db.WithContext(ctx).
		Raw(`
SELECT c.id, c.paper_id, c.seq, c.text, e.vector AS embedding
FROM ` + TablePaperChunks + ` c
JOIN ` + TableChunkEmbeddings + ` e ON e.chunk_id = c.id`).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query all chunks")
	}

	logger.Debug("semantic candidates scanned without pgvector", zap.Int("count", len(rows)))
	return rows, nil
}

func cosineSimilarity(a, b pgvector.Vector) float64 {
	av := a.Slice()
	bv := b.Slice()
	if len(av) == 0 || len(bv) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < len(av) && i < len(bv); i++ {
		va := float64(av[i])
		vb := float64(bv[i])
		dot += va * vb
		normA += va * va
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
