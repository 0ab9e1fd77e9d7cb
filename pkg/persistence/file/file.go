// Package file provides file-based persistence for templates, plans and leads.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/followup/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	planRepo     *PlanRepository
	templateRepo *TemplateRepository
	leadRepo     *LeadRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		planRepo:     NewPlanRepository(cleanRoot),
		templateRepo: NewTemplateRepository(cleanRoot),
		leadRepo:     NewLeadRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) PlanRepository() persistence.PlanRepository {
	return fp.planRepo
}

func (fp *Persistence) TemplateRepository() persistence.TemplateRepository {
	return fp.templateRepo
}

func (fp *Persistence) LeadRepository() persistence.LeadRepository {
	return fp.leadRepo
}

// collection stores one JSON document per entity under root/<name>.
type collection struct {
	mu  sync.RWMutex
	dir string
}

func newCollection(root, name string) *collection {
	return &collection{dir: path.Join(root, name)}
}

// read decodes the document with the given id; found is false when no file exists.
func (c *collection) read(id string, target any) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.readLocked(id, target)
}

func (c *collection) readLocked(id string, target any) (bool, error) {
	filePath := filepath.Clean(path.Join(c.dir, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	err = json.Unmarshal(body, target)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", filePath, err)
	}

	return true, nil
}

func (c *collection) write(id string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.writeLocked(id, value)
}

// update overwrites an existing document; found is false when there is nothing to replace.
func (c *collection) update(id string, value any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := os.Stat(path.Join(c.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to stat %s: %w", id, err)
	}

	return true, c.writeLocked(id, value)
}

func (c *collection) writeLocked(id string, value any) error {
	err := os.MkdirAll(c.dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", c.dir, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	return os.WriteFile(path.Join(c.dir, id+".json"), data, 0600)
}

// removeIf decodes the document into current and deletes it only when allow approves it.
func (c *collection) removeIf(id string, current any, allow func() bool) (found, removed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	found, err = c.readLocked(id, current)
	if err != nil || !found {
		return found, false, err
	}

	if !allow() {
		return true, false, nil
	}

	err = os.Remove(path.Join(c.dir, id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return true, false, fmt.Errorf("failed to delete %s: %w", id, err)
	}

	return true, true, nil
}

// ids lists stored document ids.
func (c *collection) ids() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(c.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list files in %s: %w", c.dir, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}
