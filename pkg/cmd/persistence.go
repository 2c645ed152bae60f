package cmd

import (
	"github.com/okanero/flowstudio/pkg/persistence"
	"github.com/okanero/flowstudio/pkg/persistence/file"
)

// NewPersistence builds the persistence layer for a database URL. Only
// file:// URLs (or bare paths) are supported today.
func NewPersistence(databaseURL string) persistence.Persistence {
	return file.NewPersistence(databaseURL)
}
