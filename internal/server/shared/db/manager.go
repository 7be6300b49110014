// Package db constructs the metadata store backend selected by configuration.
package db

import (
	"context"

	"github.com/dmitrijs2005/fileintake/internal/server/repositories/files"
)

// RepositoryManager owns the metadata store connection and hands out
// repositories bound to it.
type RepositoryManager interface {
	RunMigrations(context.Context) error
	Files() files.Repository
	Close() error
}
