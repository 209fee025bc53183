package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// resolve maps a storage key to an absolute path, rejecting traversal out of
// the base directory.
func (ls *LocalStorage) resolve(key string) (string, error) {
	absBasePath, err := filepath.Abs(ls.basePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	absFullPath, err := filepath.Abs(filepath.Join(ls.basePath, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("failed to resolve file path: %w", err)
	}

	if !strings.HasPrefix(absFullPath, absBasePath) {
		return "", fmt.Errorf("invalid storage key: path traversal detected")
	}

	return absFullPath, nil
}

func (ls *LocalStorage) Put(ctx context.Context, key string, content io.Reader, contentType string) error {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func (ls *LocalStorage) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

func (ls *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// List reads the directory named by prefix and returns its files sorted by
// name descending, capped at max.
func (ls *LocalStorage) List(ctx context.Context, prefix string, max int) ([]ObjectInfo, error) {
	dirPath, err := ls.resolve(prefix)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory (prefix=%s): %w", prefix, err)
	}

	prefix = strings.TrimSuffix(prefix, "/")

	var objects []ObjectInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info := ObjectInfo{
			Key:  prefix + "/" + entry.Name(),
			Name: entry.Name(),
		}
		if fi, err := entry.Info(); err == nil {
			info.Size = fi.Size()
			info.LastModified = fi.ModTime()
		}
		objects = append(objects, info)
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Name > objects[j].Name
	})

	if max > 0 && len(objects) > max {
		objects = objects[:max]
	}

	return objects, nil
}

func (ls *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (ls *LocalStorage) GetURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	// Served by the file route; local storage has no signed URLs.
	return fmt.Sprintf("/files/%s", key), nil
}
