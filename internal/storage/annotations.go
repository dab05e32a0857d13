package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
)

// Note is one annotation attached to a stored paper.
type Note struct {
	ID         int64     `json:"id"`
	PaperID    string    `json:"paper_id"`
	Note       string    `json:"note"`
	Tags       []string  `json:"tags,omitempty"`
	SectionRef string    `json:"section_ref,omitempty"`
	CreatedAt  time.Time `json:"timestamp"`
}

// NoteFilter narrows a note search. Zero-value fields match everything.
type NoteFilter struct {
	// PaperID restricts to one paper when set.
	PaperID string
	// Tags keeps notes carrying at least one of the given tags.
	Tags []string
	// Text keeps notes whose body contains the substring,
	// case-insensitively.
	Text string
}

// Annotations is the sqlite-backed notes store.
type Annotations struct {
	db *sql.DB
}

// NewAnnotations creates the notes store and its table.
func NewAnnotations(db *sql.DB) (*Annotations, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	a := &Annotations{db: db}
	if err := a.setup(); err != nil {
		return nil, errors.Wrap(err, "setup annotations store")
	}

	return a, nil
}

func (a *Annotations) setup() error {
	stmt := `
CREATE TABLE IF NOT EXISTS notes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  paper_id TEXT NOT NULL,
  note TEXT NOT NULL,
  tags TEXT NOT NULL DEFAULT '[]',
  section_ref TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL
)`

	if _, err := a.db.Exec(stmt); err != nil {
		return errors.Wrap(err, "create notes table")
	}

	if _, err := a.db.Exec(
		`CREATE INDEX IF NOT EXISTS idx_notes_paper_id ON notes (paper_id)`,
	); err != nil {
		return errors.Wrap(err, "create notes index")
	}

	return nil
}

// AddNote appends a note to a paper and returns the stored entry.
func (a *Annotations) AddNote(ctx context.Context,
	paperID, note string, tags []string, sectionRef string) (*Note, error) {
	if err := ValidateID(paperID); err != nil {
		return nil, errors.WithStack(err)
	}
	if strings.TrimSpace(note) == "" {
		return nil, errors.New("note cannot be empty")
	}

	encoded, err := marshalStrings(tags)
	if err != nil {
		return nil, errors.Wrap(err, "marshal tags")
	}

	createdAt := time.Now().UTC()
	res, err := a.db.ExecContext(ctx, `
INSERT INTO notes (paper_id, note, tags, section_ref, created_at)
VALUES (?, ?, ?, ?, ?)`,
		paperID, note, encoded, sectionRef, createdAt)
	if err != nil {
		return nil, errors.Wrapf(err, "insert note for %s", paperID)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "note id")
	}

	return &Note{
		ID:         id,
		PaperID:    paperID,
		Note:       note,
		Tags:       tags,
		SectionRef: sectionRef,
		CreatedAt:  createdAt,
	}, nil
}

// SearchNotes returns notes matching the filter, oldest first. Paper
// and substring filters run in SQL; the tag overlap check runs on the
// decoded rows since tags are stored as a JSON array.
func (a *Annotations) SearchNotes(ctx context.Context, filter NoteFilter) ([]Note, error) {
	stmt := `
SELECT id, paper_id, note, tags, section_ref, created_at
FROM notes`
	var (
		conds []string
		args  []any
	)

	if filter.PaperID != "" {
		if err := ValidateID(filter.PaperID); err != nil {
			return nil, errors.WithStack(err)
		}

		conds = append(conds, "paper_id = ?")
		args = append(args, filter.PaperID)
	}
	if filter.Text != "" {
		conds = append(conds, "instr(lower(note), lower(?)) > 0")
		args = append(args, filter.Text)
	}
	if len(conds) != 0 {
		stmt += "\nWHERE " + strings.Join(conds, " AND ")
	}
	stmt += "\nORDER BY created_at, id"

	rows, err := a.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "search notes")
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var (
			n    Note
			tags string
		)
		if err := rows.Scan(&n.ID, &n.PaperID, &n.Note,
			&tags, &n.SectionRef, &n.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan note row")
		}

		if n.Tags, err = unmarshalStrings(tags); err != nil {
			return nil, errors.Wrap(err, "unmarshal tags")
		}

		if !anyTagMatches(n.Tags, filter.Tags) {
			continue
		}

		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate notes")
	}

	return notes, nil
}

// CountNotes returns the number of stored notes.
func (a *Annotations) CountNotes(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM notes`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count notes")
	}

	return n, nil
}

// anyTagMatches reports whether the note carries at least one of the
// wanted tags. An empty wanted list matches every note.
func anyTagMatches(noteTags, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}

	for _, want := range wanted {
		for _, have := range noteTags {
			if have == want {
				return true
			}
		}
	}

	return false
}
