package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImageStorage — файловое хранилище изображений карусели.
type ImageStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewImageStorage создаёт хранилище в каталоге rootPath.
func NewImageStorage(rootPath string, maxUploadMB int64) (*ImageStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	return &ImageStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save записывает файл через временное имя и возвращает относительный путь.
// Размер ограничивается лимитом хранилища.
func (s *ImageStorage) Save(ctx context.Context, originalName string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	ext := strings.ToLower(filepath.Ext(sanitizeFilename(originalName)))
	fileName := fmt.Sprintf("%s_%d%s", uuid.NewString(), time.Now().UnixNano(), ext)
	targetPath := filepath.Join(s.rootPath, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limited := io.LimitedReader{R: r, N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limited)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: размер файла превышает лимит %d байт", s.maxUploadBytes)
	}

	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return fileName, written, nil
}

// Delete удаляет файл. Отсутствующий файл ошибкой не считается.
func (s *ImageStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(s.rootPath, filepath.Clean(relativePath))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// sanitizeFilename убирает из имени файла управляющие и опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	replacer := strings.NewReplacer("..", "", "/", "", "\\", "", "\x00", "")
	return replacer.Replace(name)
}
