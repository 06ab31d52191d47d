package workspec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Kind selects the backend and output subtree for a work item.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Kinds lists the supported kinds in phase order.
var Kinds = []Kind{KindImage, KindAudio}

// ParseKind maps a type cell to a Kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindImage:
		return KindImage, nil
	case KindAudio:
		return KindAudio, nil
	default:
		return "", fmt.Errorf("unknown type %q (want image or audio)", raw)
	}
}

// Required column names.
const (
	ColumnAssetID  = "asset_id"
	ColumnType     = "type"
	ColumnFilename = "filename"
)

var requiredColumns = []string{ColumnAssetID, ColumnType, ColumnFilename}

// WorkItem is one deliverable. It is never mutated after Load.
type WorkItem struct {
	AssetID  string
	Kind     Kind
	Filename string
	Payload  map[string]string
}

// Value returns a payload cell, or fallback when it is absent.
func (w WorkItem) Value(key, fallback string) string {
	if v, ok := w.Payload[key]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

// Table is an ordered, validated set of work items.
type Table struct {
	items []WorkItem
	index map[string]int
}

// LoadFile opens path and loads it as a work specification.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open work spec: %w", err)
	}
	defer f.Close()
	table, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return table, nil
}

// Load parses CSV data with a header row.
func Load(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MalformedInputError{Reason: "missing header row"}
	}
	if err != nil {
		return nil, &MalformedInputError{Reason: err.Error()}
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if name == "" {
			continue
		}
		if _, dup := columns[name]; dup {
			return nil, &MalformedInputError{Column: name, Reason: "column appears more than once"}
		}
		columns[name] = i
		header[i] = name
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, &MalformedInputError{Column: name, Reason: "required column missing"}
		}
	}

	table := &Table{index: make(map[string]int)}
	firstRow := make(map[string]int)
	filenames := make(map[Kind]map[string]int)
	rowNum := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			return nil, &MalformedInputError{Row: rowNum, Reason: err.Error()}
		}
		if blankRecord(record) {
			continue
		}

		item, err := buildItem(header, columns, record, rowNum)
		if err != nil {
			return nil, err
		}
		if prev, dup := firstRow[item.AssetID]; dup {
			return nil, &DuplicateAssetIDError{AssetID: item.AssetID, FirstRow: prev, SecondRow: rowNum}
		}
		byName := filenames[item.Kind]
		if byName == nil {
			byName = make(map[string]int)
			filenames[item.Kind] = byName
		}
		if prev, dup := byName[item.Filename]; dup {
			return nil, &MalformedInputError{
				Row:    rowNum,
				Column: ColumnFilename,
				Reason: fmt.Sprintf("filename %q already used by %s row %d", item.Filename, item.Kind, prev),
			}
		}
		firstRow[item.AssetID] = rowNum
		byName[item.Filename] = rowNum
		table.index[item.AssetID] = len(table.items)
		table.items = append(table.items, item)
	}
	return table, nil
}

func buildItem(header []string, columns map[string]int, record []string, rowNum int) (WorkItem, error) {
	assetID := valueAt(columns, record, ColumnAssetID)
	if assetID == "" {
		return WorkItem{}, &MalformedInputError{Row: rowNum, Column: ColumnAssetID, Reason: "value is empty"}
	}
	rawKind := valueAt(columns, record, ColumnType)
	if rawKind == "" {
		return WorkItem{}, &MalformedInputError{Row: rowNum, Column: ColumnType, Reason: "value is empty"}
	}
	kind, err := ParseKind(rawKind)
	if err != nil {
		return WorkItem{}, &MalformedInputError{Row: rowNum, Column: ColumnType, Reason: err.Error()}
	}
	filename := valueAt(columns, record, ColumnFilename)
	if filename == "" {
		return WorkItem{}, &MalformedInputError{Row: rowNum, Column: ColumnFilename, Reason: "value is empty"}
	}
	if strings.ContainsAny(filename, `/\`) || filename == "." || filename == ".." {
		return WorkItem{}, &MalformedInputError{Row: rowNum, Column: ColumnFilename, Reason: "must be a bare file name"}
	}

	payload := make(map[string]string)
	for i, name := range header {
		if name == "" || name == ColumnAssetID || name == ColumnType || name == ColumnFilename {
			continue
		}
		if i >= len(record) || record[i] == "" {
			continue
		}
		payload[name] = record[i]
	}
	return WorkItem{AssetID: assetID, Kind: kind, Filename: filename, Payload: payload}, nil
}

func valueAt(columns map[string]int, record []string, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Len returns the number of items.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.items)
}

// Items returns a copy of the items in input order.
func (t *Table) Items() []WorkItem {
	if t == nil {
		return nil
	}
	out := make([]WorkItem, len(t.items))
	copy(out, t.items)
	return out
}

// ByKind returns the items of one kind, preserving relative order.
func (t *Table) ByKind(kind Kind) []WorkItem {
	return t.Filter(func(item WorkItem) bool { return item.Kind == kind })
}

// Filter returns the items for which keep is true, preserving order.
func (t *Table) Filter(keep func(WorkItem) bool) []WorkItem {
	if t == nil {
		return nil
	}
	var out []WorkItem
	for _, item := range t.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Lookup finds an item by asset ID.
func (t *Table) Lookup(assetID string) (WorkItem, bool) {
	if t == nil {
		return WorkItem{}, false
	}
	idx, ok := t.index[assetID]
	if !ok {
		return WorkItem{}, false
	}
	return t.items[idx], true
}

// CountByKind tallies items per kind.
func (t *Table) CountByKind() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	if t == nil {
		return counts
	}
	for _, item := range t.items {
		counts[item.Kind]++
	}
	return counts
}
