package checkpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"mediacrawl/pkg/logger"
)

// Checkpoint represents the resumable state of one crawl target
type Checkpoint struct {
	Platform       string          `json:"platform"`
	Target         string          `json:"target"` // keyword, post id or creator id
	Mode           string          `json:"mode"`
	Cursor         string          `json:"cursor"`
	LastPage       int             `json:"last_page"`
	RecordedItems  map[string]bool `json:"recorded_items"` // item id -> seen
	TotalCollected int             `json:"total_collected"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a checkpoint manager for one platform/target pair
func NewManager(platform, target string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	checkpointsDir := filepath.Join(dataDir, "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	checkpointPath := filepath.Join(checkpointsDir, fmt.Sprintf("%s_%s.checkpoint.json", platform, target))

	return &Manager{
		checkpointPath: checkpointPath,
		logger:         logger.GetLogger(),
	}, nil
}

// Create creates a new checkpoint
func (m *Manager) Create(platform, target, mode string) (*Checkpoint, error) {
	checkpoint := &Checkpoint{
		Platform:       platform,
		Target:         target,
		Mode:           mode,
		Cursor:         "",
		LastPage:       0,
		RecordedItems:  make(map[string]bool),
		TotalCollected: 0,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
		Version:        1,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"platform": platform,
		"target":   target,
		"path":     m.checkpointPath,
	})

	return checkpoint, nil
}

// Load loads an existing checkpoint
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No checkpoint exists
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"platform":        checkpoint.Platform,
		"target":          checkpoint.Target,
		"total_collected": checkpoint.TotalCollected,
		"last_cursor":     checkpoint.Cursor,
		"updated_at":      checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	// Create temporary file
	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	// Write checkpoint data
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	// Ensure data is written to disk
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	// Atomically replace the old checkpoint file
	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"platform":        checkpoint.Platform,
		"target":          checkpoint.Target,
		"total_collected": checkpoint.TotalCollected,
		"last_cursor":     checkpoint.Cursor,
	})

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// UpdateProgress updates the checkpoint with current pagination progress
func (m *Manager) UpdateProgress(checkpoint *Checkpoint, cursor string, pageNum int) error {
	checkpoint.Cursor = cursor
	checkpoint.LastPage = pageNum
	return m.Save(checkpoint)
}

// RecordItem records a collected item
func (m *Manager) RecordItem(checkpoint *Checkpoint, itemID string) error {
	checkpoint.RecordedItems[itemID] = true
	checkpoint.TotalCollected++
	return m.Save(checkpoint)
}

// IsItemRecorded checks if an item was already collected
func (checkpoint *Checkpoint) IsItemRecorded(itemID string) bool {
	return checkpoint.RecordedItems[itemID]
}

// GetCheckpointInfo returns a summary of the checkpoint
func (m *Manager) GetCheckpointInfo() (map[string]interface{}, error) {
	checkpoint, err := m.Load()
	if err != nil {
		return nil, err
	}
	if checkpoint == nil {
		return nil, nil
	}

	return map[string]interface{}{
		"platform":        checkpoint.Platform,
		"target":          checkpoint.Target,
		"total_collected": checkpoint.TotalCollected,
		"last_cursor":     checkpoint.Cursor,
		"created_at":      checkpoint.CreatedAt,
		"updated_at":      checkpoint.UpdatedAt,
		"age":             time.Since(checkpoint.UpdatedAt),
	}, nil
}

// BackupCheckpoint creates a backup of the current checkpoint
func (m *Manager) BackupCheckpoint() error {
	if !m.Exists() {
		return nil // Nothing to backup
	}

	backupPath := m.checkpointPath + ".backup"

	src, err := os.Open(m.checkpointPath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy checkpoint to backup: %w", err)
	}

	m.logger.Debug("Checkpoint backed up")
	return nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		// Use XDG_DATA_HOME if set, otherwise ~/.local/share
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "mediacrawl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "mediacrawl")
		}
	case "darwin":
		// macOS: ~/Library/Application Support
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "mediacrawl")
	case "windows":
		// Windows: %APPDATA%
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "mediacrawl")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	// Create the data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
