// Package migrate exports the cache to portable files and imports it back.
//
// The JSONL format has one record per line: a header carrying the cursor,
// then one record per entity in collection order.
//
//	{"kind":"header","sync_token":"abc","version":1}
//	{"kind":"items","data":{"id":"2995104339","content":"Buy milk",...}}
//	{"kind":"projects","data":{"id":"2203306141","name":"Inbox",...}}
//
// The YAML format is a single document with the same information, for
// reading rather than restoring.
package migrate

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mschirtzinger/todosync/internal/schema"
)

// Version is the export format version.
const Version = 1

const headerKind = "header"

// Format selects the export encoding.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSONL, "":
		return FormatJSONL, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want jsonl or yaml)", s)
}

// Record is one JSONL line.
type Record struct {
	Kind    string          `json:"kind"`
	Cursor  string          `json:"sync_token,omitempty"`
	Version int             `json:"version,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ExportOptions configures an export to a file.
type ExportOptions struct {
	Format Format // Output encoding (default: jsonl)
	Backup bool   // Keep a timestamped copy of an existing output file
}

// Result contains statistics about an export or import.
type Result struct {
	Records       int
	Counts        map[schema.Kind]int
	BackupCreated string
	Errors        []string
}

func newResult() *Result {
	return &Result{Counts: make(map[schema.Kind]int)}
}

// WriteJSONL writes snap as JSONL.
func WriteJSONL(w io.Writer, snap schema.Snapshot) (*Result, error) {
	result := newResult()
	enc := json.NewEncoder(w)

	if err := enc.Encode(Record{Kind: headerKind, Cursor: snap.Cursor, Version: Version}); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	err := snap.Each(func(kind schema.Kind, _ int, e schema.Entity) error {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal %s %s: %w", kind, e.EntityID(), err)
		}
		if err := enc.Encode(Record{Kind: string(kind), Data: data}); err != nil {
			return fmt.Errorf("failed to write %s %s: %w", kind, e.EntityID(), err)
		}
		result.Records++
		result.Counts[kind]++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReadJSONL reads a snapshot written by WriteJSONL. Records of unknown kinds
// are skipped and reported in Result.Errors.
func ReadJSONL(r io.Reader) (schema.Snapshot, *Result, error) {
	result := newResult()
	snap := schema.Snapshot{}
	sawHeader := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return schema.Snapshot{}, nil, fmt.Errorf("invalid JSON at line %d: %w", lineNum, err)
		}

		if rec.Kind == headerKind {
			if rec.Version > Version {
				return schema.Snapshot{}, nil, fmt.Errorf("export version %d is newer than supported version %d", rec.Version, Version)
			}
			snap.Cursor = rec.Cursor
			sawHeader = true
			continue
		}

		kind, err := schema.ParseKind(rec.Kind)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}
		if err := snap.AppendJSON(kind, rec.Data); err != nil {
			return schema.Snapshot{}, nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		result.Records++
		result.Counts[kind]++
	}
	if err := scanner.Err(); err != nil {
		return schema.Snapshot{}, nil, fmt.Errorf("failed to read export: %w", err)
	}
	if !sawHeader {
		return schema.Snapshot{}, nil, errors.New("missing header record")
	}
	if snap.Cursor == "" {
		snap.Cursor = schema.WildcardCursor
	}
	return snap, result, nil
}

// yamlExport is the YAML document layout.
type yamlExport struct {
	Version  int              `yaml:"version"`
	Cursor   string           `yaml:"sync_token"`
	Exported time.Time        `yaml:"exported_at"`
	Entities map[string][]any `yaml:"entities"`
}

// WriteYAML writes snap as a YAML document. Entities keep their JSON field
// names.
func WriteYAML(w io.Writer, snap schema.Snapshot) (*Result, error) {
	result := newResult()
	doc := yamlExport{
		Version:  Version,
		Cursor:   snap.Cursor,
		Exported: time.Now().UTC().Truncate(time.Second),
		Entities: make(map[string][]any),
	}

	err := snap.Each(func(kind schema.Kind, _ int, e schema.Entity) error {
		// Round-trip through JSON so YAML keys match the wire names.
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal %s %s: %w", kind, e.EntityID(), err)
		}
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("failed to convert %s %s: %w", kind, e.EntityID(), err)
		}
		doc.Entities[string(kind)] = append(doc.Entities[string(kind)], fields)
		result.Records++
		result.Counts[kind]++
		return nil
	})
	if err != nil {
		return nil, err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to write YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to write YAML: %w", err)
	}
	return result, nil
}

// ExportFile writes snap to path atomically.
func ExportFile(path string, snap schema.Snapshot, opts ExportOptions) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	backup := ""
	if opts.Backup {
		if input, err := os.ReadFile(path); err == nil {
			backup = path + ".backup." + time.Now().Format("20060102-150405")
			if err := os.WriteFile(backup, input, 0o600); err != nil {
				return nil, fmt.Errorf("failed to create backup: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read existing export for backup: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	var result *Result
	switch opts.Format {
	case FormatYAML:
		result, err = WriteYAML(f, snap)
	default:
		result, err = WriteJSONL(f, snap)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close temp file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to rename temp file: %w", err)
	}
	result.BackupCreated = backup
	return result, nil
}

// ImportFile reads a JSONL export.
func ImportFile(path string) (schema.Snapshot, *Result, error) {
	// #nosec G304 - controlled path from CLI
	f, err := os.Open(path)
	if err != nil {
		return schema.Snapshot{}, nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()
	return ReadJSONL(f)
}
