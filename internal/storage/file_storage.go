// Package storage provides the file-storage collaborator used for QR card
// assets and batch print sheets. The interface mirrors the platform storage
// service contract (upload returns a URL and content hash); the local
// implementation backs development and tests.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// StoredFile describes an uploaded object
type StoredFile struct {
	URL  string
	Hash string
}

// FileStorage is the upload/delete contract
type FileStorage interface {
	// UploadFile writes content under the storage-relative path and returns
	// its URL and content hash. Parent directories are created as needed.
	UploadFile(content []byte, path string, metadata map[string]string) (*StoredFile, error)

	// DeleteFile removes the object at the storage-relative path. Deleting
	// a missing object is not an error.
	DeleteFile(path string) error
}

// LocalFileStorage implements FileStorage on the local filesystem
type LocalFileStorage struct {
	baseDir string
	baseURL string
	logger  *zap.Logger
}

// NewLocalFileStorage creates a local storage rooted at baseDir
func NewLocalFileStorage(baseDir, baseURL string, logger *zap.Logger) *LocalFileStorage {
	return &LocalFileStorage{
		baseDir: baseDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// UploadFile writes content under baseDir and returns URL and sha256 hash
func (s *LocalFileStorage) UploadFile(content []byte, path string, metadata map[string]string) (*StoredFile, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create storage directories",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write file",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	sum := sha256.Sum256(content)

	s.logger.Debug("File stored",
		zap.String("path", path),
		zap.Int("size", len(content)),
		zap.Any("metadata", metadata))

	return &StoredFile{
		URL:  s.baseURL + "/" + filepath.ToSlash(path),
		Hash: hex.EncodeToString(sum[:]),
	}, nil
}

// DeleteFile removes the object; missing objects are ignored
func (s *LocalFileStorage) DeleteFile(path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete file",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// resolve joins path under baseDir and rejects traversal outside it
func (s *LocalFileStorage) resolve(path string) (string, error) {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(path))

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base dir: %w", err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if absPath != absBase && !strings.HasPrefix(absPath, absBase+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes storage root: %s", path)
	}

	return fullPath, nil
}
