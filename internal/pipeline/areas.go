package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"avance/internal"
	"avance/internal/util"
	"avance/internal/workbook"
)

// AreaLabel derives the display label from an area file name:
// "mcp_san_juan.xlsx" -> "SAN JUAN".
func AreaLabel(prefix, filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if len(base) >= len(prefix) && strings.EqualFold(base[:len(prefix)], prefix) {
		base = base[len(prefix):]
	}
	base = strings.ReplaceAll(base, "_", " ")
	return strings.ToUpper(util.NormalizeSpaces(base))
}

// HeatmapFile is the per-area workbook holding the crosstab/annot sheets.
func HeatmapFile(label string) string {
	return util.SnakeLower(label) + ".xlsx"
}

// DiscoverAreas lists area workbooks in dir, sorted by label. Files whose
// label would be empty are skipped. When several files map to one label the
// one with the preferred extension wins and the others are reported.
func DiscoverAreas(dir, prefix string) ([]internal.Area, []internal.Advisory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	byLabel := map[string]internal.Area{}
	var skipped []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "~$") || !workbook.Supported(name) {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
			continue
		}
		label := AreaLabel(prefix, name)
		if label == "" {
			continue
		}
		area := internal.Area{
			Label:       label,
			Path:        filepath.Join(dir, name),
			HeatmapPath: filepath.Join(dir, HeatmapFile(label)),
		}
		prev, dup := byLabel[label]
		if !dup {
			byLabel[label] = area
			continue
		}
		if extRank(area.Path) < extRank(prev.Path) {
			byLabel[label], area = area, prev
		}
		skipped = append(skipped, area.Path)
	}

	out := make([]internal.Area, 0, len(byLabel))
	for _, a := range byLabel {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })

	sort.Strings(skipped)
	var adv []internal.Advisory
	for _, path := range skipped {
		label := AreaLabel(prefix, path)
		kept := byLabel[label]
		adv = append(adv, internal.Advisory{
			Level:   internal.LevelWarning,
			Source:  filepath.Base(path),
			Message: fmt.Sprintf("area %s is already read from %s; file ignored", label, filepath.Base(kept.Path)),
		})
	}
	return out, adv, nil
}

// extRank orders duplicate area files: xlsx first, csv last.
func extRank(path string) int {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return 0
	case ".xlsm":
		return 1
	case ".xls":
		return 2
	default:
		return 3
	}
}

// FindArea looks an area up by label, case-insensitively.
func FindArea(areas []internal.Area, label string) (internal.Area, bool) {
	for _, a := range areas {
		if strings.EqualFold(a.Label, strings.TrimSpace(label)) {
			return a, true
		}
	}
	return internal.Area{}, false
}
