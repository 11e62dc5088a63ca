// Package file persists the ledger as one structured document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"ledgerbot/internal/core"
)

// CurrentVersion is written by Save. Version 0 is the legacy layout where
// the document root is the user mapping itself.
const CurrentVersion = 1

type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type yamlCodec struct{}

func (yamlCodec) Name() string                       { return "yaml" }
func (yamlCodec) Marshal(v any) ([]byte, error)      { return yaml.Marshal(v) }
func (yamlCodec) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

var (
	JSON Codec = jsonCodec{}
	YAML Codec = yamlCodec{}
)

type expenseDoc struct {
	Description string    `json:"description" yaml:"description"`
	Amount      float64   `json:"amount" yaml:"amount"`
	Category    string    `json:"category" yaml:"category"`
	Date        Timestamp `json:"date" yaml:"date"`
}

type userDoc struct {
	Expenses   []expenseDoc `json:"expenses" yaml:"expenses"`
	Categories []string     `json:"categories" yaml:"categories"`
}

type document struct {
	Version int                `json:"version" yaml:"version"`
	Users   map[string]userDoc `json:"users" yaml:"users"`
}

type versionProbe struct {
	Version *int `json:"version" yaml:"version"`
}

var ErrUnsupportedVersion = errors.New("unsupported document version")

// Gateway reads and writes the whole mapping in one file.
type Gateway struct {
	path  string
	codec Codec
}

func New(path string, codec Codec) *Gateway {
	if codec == nil {
		codec = JSON
	}
	return &Gateway{path: path, codec: codec}
}

func (g *Gateway) Path() string { return g.path }

// Load returns an empty mapping when the file does not exist yet.
func (g *Gateway) Load(_ context.Context) (map[core.UserID]*core.UserLedger, error) {
	data, err := os.ReadFile(g.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[core.UserID]*core.UserLedger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", g.path, err)
	}
	if len(data) == 0 {
		return map[core.UserID]*core.UserLedger{}, nil
	}

	users, err := g.decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s (%s): %w", g.path, g.codec.Name(), err)
	}
	return fromDocs(users)
}

func (g *Gateway) decode(data []byte) (map[string]userDoc, error) {
	var probe versionProbe
	if err := g.codec.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if probe.Version == nil {
		var legacy map[string]userDoc
		if err := g.codec.Unmarshal(data, &legacy); err != nil {
			return nil, err
		}
		return legacy, nil
	}
	if *probe.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, *probe.Version)
	}
	var doc document
	if err := g.codec.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Users, nil
}

// Save replaces the file atomically: the document is written to a temporary
// file in the same directory, synced, then renamed over the target.
func (g *Gateway) Save(_ context.Context, users map[core.UserID]*core.UserLedger) error {
	data, err := g.codec.Marshal(document{Version: CurrentVersion, Users: toDocs(users)})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(g.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(g.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, g.path); err != nil {
		return fmt.Errorf("replace %s: %w", g.path, err)
	}
	return nil
}

func toDocs(users map[core.UserID]*core.UserLedger) map[string]userDoc {
	out := make(map[string]userDoc, len(users))
	for id, l := range users {
		d := userDoc{
			Expenses:   make([]expenseDoc, 0, len(l.Expenses)),
			Categories: append([]string{}, l.Categories...),
		}
		for _, e := range l.Expenses {
			d.Expenses = append(d.Expenses, expenseDoc{
				Description: e.Description,
				Amount:      e.Amount,
				Category:    e.Category,
				Date:        Timestamp(e.Date),
			})
		}
		out[id.String()] = d
	}
	return out
}

func fromDocs(docs map[string]userDoc) (map[core.UserID]*core.UserLedger, error) {
	out := make(map[core.UserID]*core.UserLedger, len(docs))
	for key, d := range docs {
		id, err := core.ParseUserID(key)
		if err != nil {
			return nil, fmt.Errorf("user key %q: %w", key, err)
		}
		l := &core.UserLedger{Categories: append([]string(nil), d.Categories...)}
		for _, e := range d.Expenses {
			l.Expenses = append(l.Expenses, core.Expense{
				Description: e.Description,
				Amount:      e.Amount,
				Category:    e.Category,
				Date:        time.Time(e.Date),
			})
		}
		out[id] = l
	}
	return out, nil
}
