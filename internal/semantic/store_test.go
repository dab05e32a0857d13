package semantic

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Laisky/arxiv-mcp/library/log"
)

// keywordEmbedder maps texts onto axis-aligned vectors so ranking is
// deterministic without a live embedding provider.
type keywordEmbedder struct {
	calls int
}

func (e *keywordEmbedder) EmbedTexts(_ context.Context, inputs []string) ([]pgvector.Vector, error) {
	e.calls++
	result := make([]pgvector.Vector, 0, len(inputs))
	for _, input := range inputs {
		lowered := strings.ToLower(input)
		switch {
		case strings.Contains(lowered, "attention"):
			result = append(result, pgvector.NewVector([]float32{1, 0, 0}))
		case strings.Contains(lowered, "convolution"):
			result = append(result, pgvector.NewVector([]float32{0, 1, 0}))
		default:
			result = append(result, pgvector.NewVector([]float32{0, 0, 1}))
		}
	}
	return result, nil
}

type mapSource map[string]string

func (m mapSource) ReadMarkdown(paperID string) (string, error) {
	markdown, ok := m[paperID]
	if !ok {
		return "", fmt.Errorf("no markdown for %s", paperID)
	}
	return markdown, nil
}

func testSettings() Settings {
	settings := LoadSettingsFromConfig()
	settings.Enabled = true
	settings.TopKDefault = 2
	settings.TopKLimit = 10
	settings.MaxChunkChars = 200
	return settings
}

func setupSqliteStore(t *testing.T, embedder Embedder, source MarkdownSource) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "semantic.db")), &gorm.Config{})
	require.NoError(t, err)

	store, err := NewStore(db, embedder, source, testSettings(), log.Logger.Named("semantic_test"))
	require.NoError(t, err)
	return store
}

func TestEnsureVectorExtensionPostgresSuccess(t *testing.T) {
	t.Parallel()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}))
	require.NoError(t, err)

	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS vector`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = ensureVectorExtension(context.Background(), gdb, log.Logger.Named("test"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureVectorExtensionFallback(t *testing.T) {
	t.Parallel()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}))
	require.NoError(t, err)

	pgErr := &pgconn.PgError{Code: "58P01", Message: "extension \"vector\" is not available"}

	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS vector`).
		WillReturnError(pgErr)
	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS pgvector`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = ensureVectorExtension(context.Background(), gdb, log.Logger.Named("test"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureVectorExtensionSkipNonPostgres(t *testing.T) {
	t.Parallel()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	err = ensureVectorExtension(context.Background(), gdb, log.Logger.Named("test"))
	require.NoError(t, err)
}

func TestFetchCandidatesUsesVectorOperator(t *testing.T) {
	t.Parallel()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}))
	require.NoError(t, err)

	store := &Store{
		db:     gdb,
		logger: log.Logger.Named("test"),
	}

	queryVec := pgvector.NewVector([]float32{0.1, 0.2})

	pattern := regexp.MustCompile(`SELECT c\.id, c\.paper_id, c\.seq, c\.text, e\.vector AS embedding[\s\S]+ORDER BY e\.vector <=> \$[0-9]+ ASC[\s\S]+LIMIT \$[0-9]+`)
	rows := sqlmock.NewRows([]string{"id", "paper_id", "seq", "text", "embedding"}).
		AddRow(int64(1), "2401.12345", 0, "chunk text", queryVec)

	mock.ExpectQuery(pattern.String()).
		WithArgs(sqlmock.AnyArg(), 5).
		WillReturnRows(rows)

	candidates, err := store.fetchCandidates(context.Background(), queryVec, 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "2401.12345", candidates[0].PaperID)
	require.Equal(t, "chunk text", candidates[0].Text)
	require.Equal(t, queryVec, candidates[0].Embedding)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexPaperAndSearch(t *testing.T) {
	t.Parallel()

	source := mapSource{
		"2401.11111": "Attention layers relate every token to every other token in the sequence.\n\nConvolution kernels slide across local windows of the input.",
	}
	embedder := &keywordEmbedder{}
	store := setupSqliteStore(t, embedder, source)

	chunks, err := store.IndexPaper(context.Background(), "2401.11111")
	require.NoError(t, err)
	require.Equal(t, 2, chunks)

	count, err := store.ChunkCount(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	matches, err := store.Search(context.Background(), "how does attention work", 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "2401.11111", matches[0].PaperID)
	require.Equal(t, 0, matches[0].Seq)
	require.Contains(t, matches[0].Text, "Attention layers")
	require.InDelta(t, 1.0, matches[0].Score, 1e-6)
	require.Greater(t, matches[0].Score, matches[1].Score)
}

func TestIndexPaperReplacesPreviousRows(t *testing.T) {
	t.Parallel()

	source := mapSource{
		"2401.22222": "Attention is all you need.\n\nConvolutions came before.",
	}
	store := setupSqliteStore(t, &keywordEmbedder{}, source)

	_, err := store.IndexPaper(context.Background(), "2401.22222")
	require.NoError(t, err)
	_, err = store.IndexPaper(context.Background(), "2401.22222")
	require.NoError(t, err)

	count, err := store.ChunkCount(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestIndexPaperMissingMarkdown(t *testing.T) {
	t.Parallel()

	store := setupSqliteStore(t, &keywordEmbedder{}, mapSource{})

	_, err := store.IndexPaper(context.Background(), "2401.33333")
	require.Error(t, err)
	require.Contains(t, err.Error(), "load markdown")
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	store := setupSqliteStore(t, &keywordEmbedder{}, mapSource{})

	_, err := store.Search(context.Background(), "   ", 3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "query cannot be empty")
}

func TestSearchClampsTopK(t *testing.T) {
	t.Parallel()

	source := mapSource{
		"2401.44444": "Attention here.\n\nConvolution there.\n\nSomething else entirely.",
	}
	store := setupSqliteStore(t, &keywordEmbedder{}, source)

	_, err := store.IndexPaper(context.Background(), "2401.44444")
	require.NoError(t, err)

	matches, err := store.Search(context.Background(), "attention", 1000)
	require.NoError(t, err)
	require.LessOrEqual(t, len(matches), store.settings.TopKLimit)

	matches, err = store.Search(context.Background(), "attention", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, 0, matches[0].Seq)
}
