package backend

import (
	"context"
	"fmt"

	"ledgerbot/internal/log"
	"ledgerbot/internal/storage"
	"ledgerbot/internal/storage/file"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case JSONBackend:
		return f.createFileBackend(ctx, config.DataFilePath, file.JSON)
	case YAMLBackend:
		return f.createFileBackend(ctx, config.DataFilePath, file.YAML)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileBackend(ctx context.Context, path string, codec file.Codec) (*BackendResult, error) {
	gw := file.New(path, codec)
	f.logger.InfoContext(ctx, "Initialized file backend",
		log.FieldBackend, codec.Name(),
		"path", gw.Path())
	return &BackendResult{Persister: gw}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		log.FieldBackend, SQLiteBackend.String(),
		"db_path", config.SQLiteDBPath)
	return &BackendResult{Persister: repo, Cleanup: repo.Close}, nil
}
