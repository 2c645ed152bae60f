package editor

import (
	"encoding/json"
	"fmt"

	"github.com/okanero/flowstudio/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDraft is returned when imported draft JSON fails boundary
// validation. The editor state is never touched by a rejected import.
var ErrInvalidDraft = fmt.Errorf("invalid draft document")

// draftFile is the on-disk / clipboard draft exchange format.
type draftFile struct {
	EntityType string              `json:"entity_type"`
	Nodes      []*models.GraphNode `json:"nodes"`
	Edges      []*models.GraphEdge `json:"edges"`
}

// draftSchema validates the structural shape of an imported draft before any
// of it reaches editor state. Dangling edges are legal; unknown node types
// are not.
const draftSchema = `{
  "type": "object",
  "required": ["entity_type", "nodes", "edges"],
  "properties": {
    "entity_type": {"type": "string", "minLength": 1},
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "label"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"enum": ["state", "decision", "end"]},
          "label": {"type": "string"},
          "position": {
            "type": "object",
            "properties": {
              "x": {"type": "number"},
              "y": {"type": "number"}
            }
          },
          "actions": {"type": "array", "items": {"type": "string"}},
          "guards": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "source", "target"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "source": {"type": "string", "minLength": 1},
          "target": {"type": "string", "minLength": 1},
          "label": {"type": "string"},
          "condition": {"type": "string"}
        }
      }
    }
  }
}`

// Export serializes the current state as a draft JSON document.
func (d *Document) Export() ([]byte, error) {
	current := d.Current()

	file := draftFile{
		EntityType: d.entityType,
		Nodes:      current.Nodes,
		Edges:      current.Edges,
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export draft for %s: %w", d.entityType, err)
	}

	return data, nil
}

// Import replaces the current state with a draft JSON document. The payload
// is schema-validated first; malformed input is rejected without corrupting
// in-memory state. A successful import is one local edit and is undoable.
func (d *Document) Import(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(draftSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}

	if !result.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidDraft, result.Errors()[0].String())
	}

	var file draftFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}

	d.ApplyLocal(func(s *Snapshot) {
		s.Nodes = file.Nodes
		s.Edges = file.Edges
	})

	return nil
}
