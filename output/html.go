package output

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChristianF88/logstat/logparser"
)

// TablePlaceholder is replaced by the JSON encoded rows
const TablePlaceholder = "$table_json"

const bracedPlaceholder = "${table_json}"

//go:embed report.html
var defaultTemplate string

// DefaultTemplate returns the built-in report page
func DefaultTemplate() string {
	return defaultTemplate
}

// LoadTemplate reads an HTML template from path, or returns the built-in one
// when path is empty. A template without the placeholder is rejected.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading report template: %w", err)
	}

	tmpl := string(data)
	if _, n := substituteTable(tmpl, ""); n == 0 {
		return "", fmt.Errorf("report template %s does not contain %s", path, TablePlaceholder)
	}
	return tmpl, nil
}

// RenderHTML substitutes the rows into tmpl. Both $table_json and ${table_json}
// are replaced, any other $ text (including $table_json_v2) is left alone.
func RenderHTML(tmpl string, report *Report) ([]byte, error) {
	rows, err := report.RowsJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding report rows: %w", err)
	}

	page, _ := substituteTable(tmpl, string(rows))
	return []byte(page), nil
}

// substituteTable replaces whole $table_json identifiers and ${table_json} in one
// pass, so placeholder text inside the table itself is never expanded. It returns
// the result and the number of replacements.
func substituteTable(tmpl, table string) (string, int) {
	var b strings.Builder
	b.Grow(len(tmpl) + len(table))

	n := 0
	for i := 0; i < len(tmpl); {
		if tmpl[i] == '$' {
			if strings.HasPrefix(tmpl[i:], bracedPlaceholder) {
				b.WriteString(table)
				i += len(bracedPlaceholder)
				n++
				continue
			}
			if strings.HasPrefix(tmpl[i:], TablePlaceholder) {
				end := i + len(TablePlaceholder)
				if end == len(tmpl) || !logparser.IsIdentByte(tmpl[end]) {
					b.WriteString(table)
					i = end
					n++
					continue
				}
			}
		}
		b.WriteByte(tmpl[i])
		i++
	}
	return b.String(), n
}

// WriteHTML renders the report into filename. The page is written to a temporary
// file next to filename and renamed, so a half written report is never visible
// under the final name.
func WriteHTML(filename, tmpl string, report *Report) error {
	page, err := RenderHTML(tmpl, report)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("could not create report file %s: %w", filename, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(page); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing report file %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing report file %s: %w", filename, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing report file %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("moving report into place: %w", err)
	}
	return nil
}
