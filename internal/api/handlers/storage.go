package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"lec-market/internal/api/models"
	"lec-market/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StorageHandler lists storage presets usable as storage parameters
type StorageHandler struct {
	dir    string
	logger *zap.Logger
}

// NewStorageHandler creates a handler reading presets from dir.
func NewStorageHandler(dir string, logger *zap.Logger) *StorageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &StorageHandler{dir: dir, logger: logger}
}

// ListPresets handles GET /api/v1/storage-presets
func (h *StorageHandler) ListPresets(c *gin.Context) {
	presets := []models.StoragePreset{}

	entries, err := os.ReadDir(h.dir)
	if err != nil {
		h.logger.Warn("storage preset directory unreadable", zap.String("dir", h.dir), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"presets": presets})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(h.dir, entry.Name())
		s, err := config.LoadStorageFile(path)
		if err != nil {
			h.logger.Warn("skipping storage preset", zap.String("file", path), zap.Error(err))
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".yaml")
		name := s.Name
		if name == "" {
			name = id
		}
		presets = append(presets, models.StoragePreset{ID: id, Name: name, Storage: s})
	}

	c.JSON(http.StatusOK, gin.H{"presets": presets})
}
