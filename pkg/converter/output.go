package converter

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"roi2bb/internal/models"
)

// FormatRecord renders "<class_index> <v1> ... <vn>" with fixed precision
func FormatRecord(rec models.OutputRecord, precision int) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(rec.ClassIndex))
	for _, v := range rec.Values() {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(v, 'f', precision, 64))
	}
	return b.String()
}

// FormatLines renders all records joined by newlines, without a trailing
// newline
func FormatLines(records []models.OutputRecord, precision int) string {
	lines := make([]string, len(records))
	for i, rec := range records {
		lines[i] = FormatRecord(rec, precision)
	}
	return strings.Join(lines, "\n")
}

// writeFileAtomic replaces path with data through a temporary file in the
// same directory, so readers never see a partially written file
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.NewError(models.ErrIO, "create output directory", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return models.NewError(models.ErrIO, "create temporary file", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return models.NewError(models.ErrIO, "write output", path, err)
	}
	if err := tmp.Close(); err != nil {
		return models.NewError(models.ErrIO, "write output", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return models.NewError(models.ErrIO, "write output", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return models.NewError(models.ErrIO, "replace output", path, err)
	}
	return nil
}
