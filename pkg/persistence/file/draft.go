package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/okanero/flowstudio/pkg/models"
	"github.com/okanero/flowstudio/pkg/persistence"
)

// DraftRepository handles draft-related file operations. Each entity type has
// at most one draft, stored as drafts/<entity_type>.json under the root.
type DraftRepository struct {
	root string
}

// NewDraftRepository creates a new draft repository.
func NewDraftRepository(root string) *DraftRepository {
	return &DraftRepository{root: root}
}

// Get retrieves the draft for an entity type from the file system.
func (dr *DraftRepository) Get(_ context.Context, entityType string) (*models.Draft, error) {
	filePath := filepath.Clean(path.Join(dr.root, "drafts", entityType+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewDraftError("Get", entityType, persistence.ErrDraftNotFound)
		}

		return nil, persistence.NewDraftError("Get", entityType, err)
	}

	var draft models.Draft

	err = json.Unmarshal(body, &draft)
	if err != nil {
		return nil, persistence.NewDraftError("Get", entityType, fmt.Errorf("failed to unmarshal draft: %w", err))
	}

	return &draft, nil
}

// Save saves a draft to the file system, replacing any previous version.
func (dr *DraftRepository) Save(_ context.Context, draft *models.Draft) error {
	err := os.MkdirAll(path.Join(dr.root, "drafts"), 0750)
	if err != nil {
		return persistence.NewDraftError("Save", draft.EntityType, fmt.Errorf("failed to create drafts directory: %w", err))
	}

	draft.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return persistence.NewDraftError("Save", draft.EntityType, fmt.Errorf("failed to marshal draft: %w", err))
	}

	filePath := path.Join(dr.root, "drafts", draft.EntityType+".json")

	return os.WriteFile(filePath, data, 0600)
}

// Delete removes the draft for an entity type. Deleting an absent draft is not an error.
func (dr *DraftRepository) Delete(_ context.Context, entityType string) error {
	filePath := path.Join(dr.root, "drafts", entityType+".json")

	err := os.Remove(filePath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return persistence.NewDraftError("Delete", entityType, err)
	}

	return nil
}

// List returns all stored drafts.
func (dr *DraftRepository) List(ctx context.Context) ([]*models.Draft, error) {
	root := os.DirFS(path.Join(dr.root, "drafts"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, persistence.NewDraftError("List", "", err)
	}

	drafts := make([]*models.Draft, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		entityType := file[:len(file)-5] // Remove .json extension

		draft, err := dr.Get(ctx, entityType)
		if err != nil {
			return nil, err
		}

		drafts = append(drafts, draft)
	}

	return drafts, nil
}
