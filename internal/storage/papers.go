package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	errors "github.com/Laisky/errors/v2"
)

// PaperRecord is one row of the paper index.
type PaperRecord struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Authors      []string  `json:"authors"`
	Abstract     string    `json:"abstract"`
	Categories   []string  `json:"categories"`
	Published    time.Time `json:"published"`
	DownloadedAt time.Time `json:"downloaded_at"`
	PDFPath      string    `json:"pdf_path,omitempty"`
	MarkdownPath string    `json:"md_path,omitempty"`
}

// Papers is the sqlite-backed index of downloaded papers.
type Papers struct {
	db *sql.DB
}

// NewPapers creates the index store and its table.
func NewPapers(db *sql.DB) (*Papers, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	p := &Papers{db: db}
	if err := p.setup(); err != nil {
		return nil, errors.Wrap(err, "setup papers store")
	}

	return p, nil
}

func (p *Papers) setup() error {
	stmt := `
CREATE TABLE IF NOT EXISTS papers (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  authors TEXT NOT NULL,
  abstract TEXT NOT NULL,
  categories TEXT NOT NULL,
  published TIMESTAMP NOT NULL,
  downloaded_at TIMESTAMP NOT NULL,
  pdf_path TEXT NOT NULL DEFAULT '',
  md_path TEXT NOT NULL DEFAULT ''
)`

	if _, err := p.db.Exec(stmt); err != nil {
		return errors.Wrap(err, "create papers table")
	}

	return nil
}

// Upsert stores or refreshes one paper's index row.
func (p *Papers) Upsert(ctx context.Context, rec *PaperRecord) error {
	if rec == nil {
		return errors.New("record cannot be nil")
	}
	if err := ValidateID(rec.ID); err != nil {
		return errors.WithStack(err)
	}

	authors, err := marshalStrings(rec.Authors)
	if err != nil {
		return errors.Wrap(err, "marshal authors")
	}
	categories, err := marshalStrings(rec.Categories)
	if err != nil {
		return errors.Wrap(err, "marshal categories")
	}

	downloadedAt := rec.DownloadedAt
	if downloadedAt.IsZero() {
		downloadedAt = time.Now().UTC()
	}

	stmt := `
INSERT INTO papers (id, title, authors, abstract, categories, published, downloaded_at, pdf_path, md_path)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id)
DO UPDATE SET
  title = EXCLUDED.title,
  authors = EXCLUDED.authors,
  abstract = EXCLUDED.abstract,
  categories = EXCLUDED.categories,
  published = EXCLUDED.published,
  downloaded_at = EXCLUDED.downloaded_at,
  pdf_path = EXCLUDED.pdf_path,
  md_path = EXCLUDED.md_path`

	if _, err := p.db.ExecContext(ctx, stmt,
		rec.ID, rec.Title, authors, rec.Abstract, categories,
		rec.Published.UTC(), downloadedAt, rec.PDFPath, rec.MarkdownPath,
	); err != nil {
		return errors.Wrapf(err, "upsert paper %s", rec.ID)
	}

	return nil
}

// Get loads one paper's index row.
func (p *Papers) Get(ctx context.Context, paperID string) (*PaperRecord, error) {
	if err := ValidateID(paperID); err != nil {
		return nil, errors.WithStack(err)
	}

	stmt := `
SELECT id, title, authors, abstract, categories, published, downloaded_at, pdf_path, md_path
FROM papers WHERE id = ? LIMIT 1`

	rec, err := scanPaper(p.db.QueryRowContext(ctx, stmt, paperID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.WithStack(NewError(ErrCodeNotFound,
				"paper "+paperID+" not in index", false))
		}
		return nil, errors.Wrapf(err, "get paper %s", paperID)
	}

	return rec, nil
}

// List returns all indexed papers, most recently downloaded first.
func (p *Papers) List(ctx context.Context) ([]PaperRecord, error) {
	stmt := `
SELECT id, title, authors, abstract, categories, published, downloaded_at, pdf_path, md_path
FROM papers ORDER BY downloaded_at DESC, id`

	rows, err := p.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, errors.Wrap(err, "list papers")
	}
	defer rows.Close()

	var recs []PaperRecord
	for rows.Next() {
		rec, err := scanPaper(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan paper row")
		}

		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate papers")
	}

	return recs, nil
}

// Count returns the number of indexed papers.
func (p *Papers) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM papers`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count papers")
	}

	return n, nil
}

// Delete removes a paper from the index.
func (p *Papers) Delete(ctx context.Context, paperID string) error {
	if err := ValidateID(paperID); err != nil {
		return errors.WithStack(err)
	}

	if _, err := p.db.ExecContext(ctx,
		`DELETE FROM papers WHERE id = ?`, paperID); err != nil {
		return errors.Wrapf(err, "delete paper %s", paperID)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (*PaperRecord, error) {
	var (
		rec                 PaperRecord
		authors, categories string
	)
	if err := row.Scan(
		&rec.ID, &rec.Title, &authors, &rec.Abstract, &categories,
		&rec.Published, &rec.DownloadedAt, &rec.PDFPath, &rec.MarkdownPath,
	); err != nil {
		return nil, err
	}

	var err error
	if rec.Authors, err = unmarshalStrings(authors); err != nil {
		return nil, errors.Wrap(err, "unmarshal authors")
	}
	if rec.Categories, err = unmarshalStrings(categories); err != nil {
		return nil, errors.Wrap(err, "unmarshal categories")
	}

	return &rec, nil
}

func marshalStrings(vs []string) (string, error) {
	if vs == nil {
		vs = []string{}
	}

	cnt, err := json.Marshal(vs)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return string(cnt), nil
}

func unmarshalStrings(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}

	var vs []string
	if err := json.Unmarshal([]byte(raw), &vs); err != nil {
		return nil, errors.WithStack(err)
	}

	return vs, nil
}
