package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/randytsao24/busalert/internal/alerts"
)

// File keeps alerts in a YAML file. Every change rewrites the whole file
// through a temporary file and a rename.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

type fileDoc struct {
	Alerts []record `yaml:"alerts"`
}

func (f *File) PendingAlerts(ctx context.Context) ([]*alerts.ArrivalAlertRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	out := make([]*alerts.ArrivalAlertRequest, 0, len(doc.Alerts))
	for _, r := range doc.Alerts {
		a, err := r.alert()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *File) AddAlert(ctx context.Context, a *alerts.ArrivalAlertRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	if slices.ContainsFunc(doc.Alerts, func(r record) bool { return r.ID == a.ID }) {
		return fmt.Errorf("alert %s already stored", a.ID)
	}
	doc.Alerts = append(doc.Alerts, newRecord(a))
	return f.write(doc)
}

func (f *File) RemoveAlerts(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	n := len(doc.Alerts)
	doc.Alerts = slices.DeleteFunc(doc.Alerts, func(r record) bool { return slices.Contains(ids, r.ID) })
	if len(doc.Alerts) == n {
		return nil
	}
	return f.write(doc)
}

func (f *File) read() (*fileDoc, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &fileDoc{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading alerts file: %w", err)
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing alerts file: %w", err)
	}
	return &doc, nil
}

func (f *File) write(doc *fileDoc) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding alerts: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing alerts file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing alerts file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing alerts file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("writing alerts file: %w", err)
	}
	return nil
}
