package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/config"
)

type Status string

const (
	StatusInitialized Status = "initialized"
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

// StepState is the persisted outcome of one pipeline step.
type StepState struct {
	Status    Status        `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
	Error     *apperr.Error `json:"error,omitempty"`
}

// CoverInfo holds the cover choice and its text overlay. Empty style fields
// inherit the global cover defaults.
type CoverInfo struct {
	SourceImageID string `json:"source_image_id,omitempty"`
	Title         string `json:"title,omitempty"`
	Subtitle      string `json:"subtitle,omitempty"`
	Position      string `json:"position,omitempty"`
	Color         string `json:"color,omitempty"`
	Background    string `json:"background,omitempty"`
	QRText        string `json:"qr_text,omitempty"`
}

type Settings struct {
	Video *config.VideoOverrides `json:"video,omitempty"`
}

// Record is the content of project.json.
type Record struct {
	ID            string               `json:"project_id"`
	ProductName   string               `json:"product_name,omitempty"`
	Status        Status               `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"last_updated"`
	Pipeline      map[string]StepState `json:"pipeline,omitempty"`
	Settings      Settings             `json:"settings"`
	Cover         CoverInfo            `json:"cover"`
	DisabledSteps []string             `json:"disabled_steps,omitempty"`
}

// StepDisabled reports whether the step is switched off for this project.
func (r *Record) StepDisabled(step string) bool {
	for _, s := range r.DisabledSteps {
		if s == step {
			return true
		}
	}
	return false
}

var ErrNotFound = errors.New("project not found")

// Store keeps projects as directories under Root. Writes to project.json
// are serialized per store.
type Store struct {
	Root string
	mu   sync.Mutex
}

func NewStore(root string) *Store {
	return &Store{Root: root}
}

// ValidID rejects ids that could escape the store root.
func ValidID(id string) bool {
	return id != "" &&
		id != "." &&
		!strings.Contains(id, "..") &&
		!strings.ContainsAny(id, `/\`) &&
		!strings.HasPrefix(id, ".")
}

// Paths returns the layout of project id.
func (s *Store) Paths(id string) (Paths, error) {
	if !ValidID(id) {
		return Paths{}, apperr.Input(apperr.CodeInvalidInput, fmt.Sprintf("invalid project id %q", id), "รหัสโปรเจกต์ไม่ถูกต้อง")
	}
	return Paths{Dir: filepath.Join(s.Root, id)}, nil
}

// Create initializes the directory layout and project.json. An existing
// project is returned unchanged.
func (s *Store) Create(id, productName string) (*Record, error) {
	p, err := s.Paths(id)
	if err != nil {
		return nil, err
	}
	for _, dir := range p.Subdirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, err := s.load(p); err == nil {
		return rec, nil
	}
	now := time.Now().UTC()
	rec := &Record{
		ID:          id,
		ProductName: productName,
		Status:      StatusInitialized,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := writeJSON(p.ProjectJSON(), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) Load(id string) (*Record, error) {
	p, err := s.Paths(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(p)
}

func (s *Store) load(p Paths) (*Record, error) {
	var rec Record
	if err := readJSON(p.ProjectJSON(), &rec); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(p.Dir))
		}
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = filepath.Base(p.Dir)
	}
	return &rec, nil
}

// Save replaces project.json with rec and bumps its update time.
func (s *Store) Save(rec *Record) error {
	p, err := s.Paths(rec.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.UpdatedAt = time.Now().UTC()
	return writeJSON(p.ProjectJSON(), rec)
}

// Update deep-merges patch into the stored project.json. Keys unknown to
// Record survive the merge.
func (s *Store) Update(id string, patch map[string]any) (*Record, error) {
	p, err := s.Paths(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := map[string]any{}
	if err := readJSON(p.ProjectJSON(), &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	merged := DeepMerge(raw, patch)
	merged["last_updated"] = time.Now().UTC().Format(time.RFC3339Nano)

	// the merged document must still decode as a Record
	data, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, apperr.Input(apperr.CodeInvalidInput, fmt.Sprintf("invalid project patch: %v", err), "ข้อมูลโปรเจกต์ไม่ถูกต้อง")
	}
	if err := writeJSON(p.ProjectJSON(), merged); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return &rec, nil
}

// SetStep records the state of one pipeline step.
func (s *Store) SetStep(id, step string, status Status, stepErr *apperr.Error) error {
	return s.Mutate(id, func(rec *Record) {
		if rec.Pipeline == nil {
			rec.Pipeline = map[string]StepState{}
		}
		rec.Pipeline[step] = StepState{Status: status, UpdatedAt: time.Now().UTC(), Error: stepErr}
	})
}

// SetStatus records the overall project status.
func (s *Store) SetStatus(id string, status Status) error {
	return s.Mutate(id, func(rec *Record) { rec.Status = status })
}

// Mutate loads the record, applies fn and saves it under the store lock.
func (s *Store) Mutate(id string, fn func(*Record)) error {
	p, err := s.Paths(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load(p)
	if err != nil {
		return err
	}
	fn(rec)
	rec.UpdatedAt = time.Now().UTC()
	return writeJSON(p.ProjectJSON(), rec)
}

// List returns every readable project, newest first.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []*Record
	for _, e := range entries {
		if !e.IsDir() || !ValidID(e.Name()) {
			continue
		}
		rec, err := s.Load(e.Name())
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// DeepMerge merges src into dst recursively and returns dst. Nested objects
// are merged key by key, any other value replaces the old one, and a nil
// value deletes the key.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		if v == nil {
			delete(dst, k)
			continue
		}
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				dst[k] = DeepMerge(dv, sv)
				continue
			}
			dst[k] = DeepMerge(map[string]any{}, sv)
			continue
		}
		dst[k] = v
	}
	return dst
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON writes through a temporary file so readers never see a partial
// document.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
