package lookup

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// IndexColumns is the header row of index.csv.
var IndexColumns = []string{"path", "spoken_language", "signed_language", "start", "end", "words", "glosses", "priority"}

// ReadIndex parses an index.csv stream. Columns are matched by header name.
func ReadIndex(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range IndexColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("index is missing column %q", name)
		}
	}

	var entries []Entry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("index line %d: %w", line, err)
		}

		e := Entry{
			Path:           rec[col["path"]],
			SpokenLanguage: rec[col["spoken_language"]],
			SignedLanguage: rec[col["signed_language"]],
			Words:          rec[col["words"]],
			Glosses:        rec[col["glosses"]],
		}
		ints := []struct {
			name string
			dst  *int
		}{
			{"start", &e.StartMS},
			{"end", &e.EndMS},
			{"priority", &e.Priority},
		}
		for _, f := range ints {
			v := strings.TrimSpace(rec[col[f.name]])
			if v == "" {
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("index line %d: %s: %w", line, f.name, err)
			}
			*f.dst = n
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteIndex writes entries as index.csv with a header row.
func WriteIndex(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(IndexColumns); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			e.Path, e.SpokenLanguage, e.SignedLanguage,
			strconv.Itoa(e.StartMS), strconv.Itoa(e.EndMS),
			e.Words, e.Glosses, strconv.Itoa(e.Priority),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVIndex is an in-memory Index loaded from index.csv.
type CSVIndex struct {
	entries []Entry
}

// NewCSVIndex creates an index over entries.
func NewCSVIndex(entries []Entry) *CSVIndex {
	return &CSVIndex{entries: entries}
}

// LoadCSVIndex reads an index file.
func LoadCSVIndex(path string) (*CSVIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer f.Close()

	entries, err := ReadIndex(f)
	if err != nil {
		return nil, err
	}
	return NewCSVIndex(entries), nil
}

// NewCSVLookup loads an index file and resolves pose paths relative to the
// directory that holds it.
func NewCSVLookup(indexPath string) (*PoseLookup, error) {
	idx, err := LoadCSVIndex(indexPath)
	if err != nil {
		return nil, err
	}
	return NewPoseLookup(idx, filepath.Dir(indexPath)), nil
}

// Entries returns the loaded rows.
func (c *CSVIndex) Entries() []Entry {
	return c.entries
}

// Find implements Index. A gloss matches an entry's words after
// standardization or its glosses case-insensitively. Among matches for the
// language pair, the lowest priority wins; ties keep file order.
func (c *CSVIndex) Find(_ context.Context, gloss, spoken, signed, source string) (Entry, error) {
	word := StandardizeWord(gloss)
	best := -1
	for i, e := range c.entries {
		if e.SpokenLanguage != spoken || e.SignedLanguage != signed {
			continue
		}
		if source != "" && !strings.HasPrefix(e.Path, source) {
			continue
		}
		if StandardizeWord(e.Words) != word && !strings.EqualFold(e.Glosses, gloss) {
			continue
		}
		if best < 0 || e.Priority < c.entries[best].Priority {
			best = i
		}
	}
	if best < 0 {
		return Entry{}, missError(gloss, spoken, signed)
	}
	return c.entries[best], nil
}

// BuildIndex scans dir for .pose files and returns one entry per file,
// sorted by words. The file name without extension becomes the word,
// standardized, and its upper-case form the gloss. Paths are relative to dir.
func BuildIndex(dir, spoken, signed string) ([]Entry, error) {
	var entries []Entry
	seen := make(map[string]bool)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".pose" {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		word := StandardizeWord(strings.TrimSuffix(d.Name(), ".pose"))
		if seen[word] {
			return nil
		}
		seen[word] = true

		entries = append(entries, Entry{
			Path:           filepath.ToSlash(rel),
			SpokenLanguage: spoken,
			SignedLanguage: signed,
			Words:          word,
			Glosses:        strings.ToUpper(word),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Words < entries[j].Words })
	return entries, nil
}
