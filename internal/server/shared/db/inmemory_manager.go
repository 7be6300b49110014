package db

import (
	"context"

	"github.com/dmitrijs2005/fileintake/internal/server/repositories/files"
)

type InMemoryRepositoryManager struct {
	files *files.MemoryRepository
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Files() files.Repository {
	return m.files
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{files: files.NewMemoryRepository()}
}
