package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"avance/internal"
	"avance/internal/util"
)

var ErrUnknownColumn = errors.New("unknown column")

// Breakdown is the department / province / MCP table as displayed.
type Breakdown struct {
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
	SortColumn string     `json:"sortColumn,omitempty"`
	Descending bool       `json:"descending"`
}

// BuildBreakdown renders t as text, optionally sorted by sortColumn (matched
// case-insensitively). Numeric cells sort numerically and before text;
// empty cells always go last.
func BuildBreakdown(t internal.Table, sortColumn string, descending bool) (Breakdown, error) {
	out := Breakdown{Columns: append([]string(nil), t.Columns...), Rows: make([][]string, 0, len(t.Rows)), Descending: descending}
	order := make([]int, len(t.Rows))
	for i := range order {
		order[i] = i
	}

	if strings.TrimSpace(sortColumn) != "" {
		idx := util.FindColumnExact(t.Columns, []string{util.NormalizeColumnName(sortColumn)})
		if idx < 0 {
			return Breakdown{}, fmt.Errorf("sort by %q: %w", sortColumn, ErrUnknownColumn)
		}
		out.SortColumn = t.Columns[idx]
		sort.SliceStable(order, func(a, b int) bool {
			return lessCell(t.Cell(order[a], idx), t.Cell(order[b], idx), descending)
		})
	}

	for _, r := range order {
		row := make([]string, len(t.Columns))
		for c := range t.Columns {
			row[c] = t.Text(r, c)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func lessCell(a, b any, descending bool) bool {
	aNull, bNull := internal.IsNull(a), internal.IsNull(b)
	if aNull || bNull {
		return !aNull && bNull
	}

	af, aNum := util.ParseNumber(a)
	bf, bNum := util.ParseNumber(b)
	switch {
	case aNum && bNum:
		if af == bf {
			return false
		}
		return (af < bf) != descending
	case aNum != bNum:
		return aNum
	}

	as := strings.ToLower(fmt.Sprint(a))
	bs := strings.ToLower(fmt.Sprint(b))
	if as == bs {
		return false
	}
	return (as < bs) != descending
}
