// Package storage keeps downloaded papers on the local disk and in a
// sqlite index. PDFs and converted markdown live in separate
// subdirectories under one configurable root.
package storage

import (
	"io"
	"os"
	"path/filepath"
	"regexp"

	errors "github.com/Laisky/errors/v2"
)

const (
	dirPDF      = "pdfs"
	dirMarkdown = "markdown"
)

// regexpPaperID matches the arXiv id shapes we store, e.g. 2401.12345
// or 2401.12345v2. Path separators never match, so an id cannot name
// anything outside the storage root.
var regexpPaperID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// ValidateID rejects ids that do not look like an arXiv identifier.
func ValidateID(paperID string) error {
	if !regexpPaperID.MatchString(paperID) {
		return errors.WithStack(NewError(ErrCodeInvalidID,
			"invalid paper id "+paperID, false))
	}

	return nil
}

// Files lays out downloaded artifacts under a single root directory.
type Files struct {
	root string
}

// NewFiles creates the storage root and its pdf/markdown subdirectories.
func NewFiles(root string) (*Files, error) {
	if root == "" {
		return nil, errors.New("storage root cannot be empty")
	}

	for _, dir := range []string{
		root,
		filepath.Join(root, dirPDF),
		filepath.Join(root, dirMarkdown),
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.Wrapf(err, "create storage dir %s", dir)
		}
	}

	return &Files{root: root}, nil
}

// Root returns the storage root directory.
func (f *Files) Root() string {
	return f.root
}

// PDFPath returns the on-disk location for a paper's pdf.
func (f *Files) PDFPath(paperID string) (string, error) {
	if err := ValidateID(paperID); err != nil {
		return "", errors.WithStack(err)
	}

	return filepath.Join(f.root, dirPDF, paperID+".pdf"), nil
}

// MarkdownPath returns the on-disk location for a paper's markdown.
func (f *Files) MarkdownPath(paperID string) (string, error) {
	if err := ValidateID(paperID); err != nil {
		return "", errors.WithStack(err)
	}

	return filepath.Join(f.root, dirMarkdown, paperID+".md"), nil
}

// HasPDF reports whether the paper's pdf exists on disk.
func (f *Files) HasPDF(paperID string) bool {
	path, err := f.PDFPath(paperID)
	if err != nil {
		return false
	}

	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// HasMarkdown reports whether the converted markdown exists on disk.
func (f *Files) HasMarkdown(paperID string) bool {
	path, err := f.MarkdownPath(paperID)
	if err != nil {
		return false
	}

	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WritePDF streams r into the paper's pdf slot. The write goes through
// a temp file so a failed download never leaves a truncated pdf behind.
func (f *Files) WritePDF(paperID string, r io.Reader) (path string, size int64, err error) {
	if path, err = f.PDFPath(paperID); err != nil {
		return "", 0, errors.WithStack(err)
	}

	tmp := path + ".part"
	fp, err := os.Create(tmp)
	if err != nil {
		return "", 0, errors.Wrapf(err, "create %s", tmp)
	}

	size, err = io.Copy(fp, r)
	if closeErr := fp.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", 0, errors.Wrapf(err, "write pdf for %s", paperID)
	}

	if err = os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", 0, errors.Wrapf(err, "finalize pdf for %s", paperID)
	}

	return path, size, nil
}

// WriteMarkdown stores the converted markdown for a paper.
func (f *Files) WriteMarkdown(paperID, content string) (string, error) {
	path, err := f.MarkdownPath(paperID)
	if err != nil {
		return "", errors.WithStack(err)
	}

	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		return "", errors.Wrapf(err, "write markdown for %s", paperID)
	}

	return path, nil
}

// ReadMarkdown loads the converted markdown for a paper. Returns a
// NOT_CONVERTED storage error when only the pdf exists, and NOT_FOUND
// when nothing is stored at all.
func (f *Files) ReadMarkdown(paperID string) (string, error) {
	path, err := f.MarkdownPath(paperID)
	if err != nil {
		return "", errors.WithStack(err)
	}

	cnt, err := os.ReadFile(path)
	if err == nil {
		return string(cnt), nil
	}
	if !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "read markdown for %s", paperID)
	}

	if f.HasPDF(paperID) {
		return "", errors.WithStack(NewError(ErrCodeNotConverted,
			"paper "+paperID+" downloaded but not converted yet", true))
	}

	return "", errors.WithStack(NewError(ErrCodeNotFound,
		"paper "+paperID+" not found in local storage", false))
}

// RemovePDF deletes the stored pdf, ignoring a missing file.
func (f *Files) RemovePDF(paperID string) error {
	path, err := f.PDFPath(paperID)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove pdf for %s", paperID)
	}

	return nil
}

// Usage is the file count and byte total for one artifact directory.
type Usage struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// DiskUsage sums stored pdf and markdown artifacts.
func (f *Files) DiskUsage() (pdf, markdown Usage, err error) {
	if pdf, err = dirUsage(filepath.Join(f.root, dirPDF)); err != nil {
		return pdf, markdown, errors.Wrap(err, "pdf usage")
	}
	if markdown, err = dirUsage(filepath.Join(f.root, dirMarkdown)); err != nil {
		return pdf, markdown, errors.Wrap(err, "markdown usage")
	}

	return pdf, markdown, nil
}

func dirUsage(dir string) (u Usage, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return u, errors.Wrapf(err, "read dir %s", dir)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		u.Files++
		u.Bytes += info.Size()
	}

	return u, nil
}
