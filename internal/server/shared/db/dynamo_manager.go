package db

import (
	"context"

	"github.com/dmitrijs2005/fileintake/internal/server/repositories/files"
)

// DynamoRepositoryManager serves records from a pre-provisioned table;
// table creation is left to infrastructure tooling.
type DynamoRepositoryManager struct {
	files *files.DynamoRepository
}

func (m *DynamoRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *DynamoRepositoryManager) Files() files.Repository {
	return m.files
}

func (m *DynamoRepositoryManager) Close() error {
	return nil
}

func NewDynamoRepositoryManager(client files.DynamoAPI, table string) RepositoryManager {
	return &DynamoRepositoryManager{files: files.NewDynamoRepository(client, table)}
}
