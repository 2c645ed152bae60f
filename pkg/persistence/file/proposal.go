package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/okanero/flowstudio/pkg/models"
	"github.com/okanero/flowstudio/pkg/persistence"
)

// ProposalRepository handles proposal-related file operations. Proposals are
// stored as proposals/<id>.json under the root.
type ProposalRepository struct {
	root string
}

// NewProposalRepository creates a new proposal repository.
func NewProposalRepository(root string) *ProposalRepository {
	return &ProposalRepository{root: root}
}

// Get retrieves a proposal by its ID from the file system.
func (pr *ProposalRepository) Get(_ context.Context, id string) (*models.Proposal, error) {
	filePath := filepath.Clean(path.Join(pr.root, "proposals", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewProposalError("Get", id, persistence.ErrProposalNotFound)
		}

		return nil, persistence.NewProposalError("Get", id, err)
	}

	var proposal models.Proposal

	err = json.Unmarshal(body, &proposal)
	if err != nil {
		return nil, persistence.NewProposalError("Get", id, fmt.Errorf("failed to unmarshal proposal: %w", err))
	}

	return &proposal, nil
}

// Save saves a proposal to the file system, replacing any previous version.
func (pr *ProposalRepository) Save(_ context.Context, proposal *models.Proposal) error {
	err := os.MkdirAll(path.Join(pr.root, "proposals"), 0750)
	if err != nil {
		return persistence.NewProposalError("Save", proposal.ID, fmt.Errorf("failed to create proposals directory: %w", err))
	}

	data, err := json.MarshalIndent(proposal, "", "  ")
	if err != nil {
		return persistence.NewProposalError("Save", proposal.ID, fmt.Errorf("failed to marshal proposal: %w", err))
	}

	filePath := path.Join(pr.root, "proposals", proposal.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// ListByEntityType returns all proposals for an entity type, newest first.
func (pr *ProposalRepository) ListByEntityType(ctx context.Context, entityType string) ([]*models.Proposal, error) {
	root := os.DirFS(path.Join(pr.root, "proposals"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, persistence.NewProposalError("List", "", err)
	}

	proposals := make([]*models.Proposal, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-5] // Remove .json extension

		proposal, err := pr.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if proposal.EntityType == entityType {
			proposals = append(proposals, proposal)
		}
	}

	sort.Slice(proposals, func(i, j int) bool {
		return proposals[i].CreatedAt.After(proposals[j].CreatedAt)
	})

	return proposals, nil
}

// Delete removes a proposal by its ID.
func (pr *ProposalRepository) Delete(_ context.Context, id string) error {
	filePath := path.Join(pr.root, "proposals", id+".json")

	err := os.Remove(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewProposalError("Delete", id, persistence.ErrProposalNotFound)
		}

		return persistence.NewProposalError("Delete", id, err)
	}

	return nil
}
