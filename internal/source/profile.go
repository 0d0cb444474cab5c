package source

import (
	"fmt"
	"sort"
	"strings"

	"egretail/internal/models"
	"egretail/pkg/utils"
)

// TableProfile describes the shape and defects of one raw table.
type TableProfile struct {
	Name           string         `yaml:"name"`
	Rows           int            `yaml:"rows"`
	Columns        int            `yaml:"columns"`
	Nulls          map[string]int `yaml:"nulls"`
	DuplicatedRows int            `yaml:"duplicated_rows"`
}

// Profile counts blank cells per column and fully duplicated rows.
// A repeated row counts once per repeat after the first.
func Profile(t *models.Table) TableProfile {
	p := TableProfile{
		Name:    t.Name,
		Rows:    len(t.Rows),
		Columns: len(t.Header),
		Nulls:   make(map[string]int, len(t.Header)),
	}

	seen := make(map[string]bool, len(t.Rows))

	for i := range t.Rows {
		cells := make([]string, len(t.Header))
		for c, h := range t.Header {
			v := t.Cell(i, c)
			cells[c] = v

			if utils.IsBlank(v) {
				p.Nulls[strings.TrimSpace(h)]++
			}
		}

		key := strings.Join(cells, "\x1f")
		if seen[key] {
			p.DuplicatedRows++
		}

		seen[key] = true
	}

	return p
}

// NullColumns returns the columns with at least one blank cell, most
// affected first.
func (p TableProfile) NullColumns() []string {
	var cols []string
	for c, n := range p.Nulls {
		if n > 0 {
			cols = append(cols, c)
		}
	}

	sort.Slice(cols, func(i, j int) bool {
		if p.Nulls[cols[i]] != p.Nulls[cols[j]] {
			return p.Nulls[cols[i]] > p.Nulls[cols[j]]
		}

		return cols[i] < cols[j]
	})

	return cols
}

// String returns a one-line summary of the profile.
func (p TableProfile) String() string {
	return fmt.Sprintf("%s: %d rows x %d columns | %d duplicated rows | %d columns with nulls",
		p.Name, p.Rows, p.Columns, p.DuplicatedRows, len(p.NullColumns()))
}
