package checkpoint

import (
	"os"
	"testing"
)

func TestCheckpointManager(t *testing.T) {
	// Create a temporary directory for testing
	tempDir, err := os.MkdirTemp("", "checkpoint_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// Set environment variable to use temp directory
	os.Setenv("XDG_DATA_HOME", tempDir)
	defer os.Unsetenv("XDG_DATA_HOME")

	platform := "dy"
	target := "creator-1"

	t.Run("CreateAndLoad", func(t *testing.T) {
		mgr, err := NewManager(platform, target)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		// Create checkpoint
		cp, err := mgr.Create(platform, target, "creator")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		if cp.Platform != platform {
			t.Errorf("Expected platform %s, got %s", platform, cp.Platform)
		}
		if cp.Target != target {
			t.Errorf("Expected target %s, got %s", target, cp.Target)
		}

		// Load checkpoint
		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if loaded == nil {
			t.Fatal("Expected checkpoint, got nil")
		}
		if loaded.Target != target {
			t.Errorf("Expected loaded target %s, got %s", target, loaded.Target)
		}
	})

	t.Run("UpdateProgress", func(t *testing.T) {
		mgr, err := NewManager(platform, target)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Create(platform, target, "creator")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		// Update progress
		err = mgr.UpdateProgress(cp, "cursor123", 5)
		if err != nil {
			t.Fatalf("Failed to update progress: %v", err)
		}

		// Verify update
		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if loaded.Cursor != "cursor123" {
			t.Errorf("Expected cursor cursor123, got %s", loaded.Cursor)
		}
		if loaded.LastPage != 5 {
			t.Errorf("Expected page 5, got %d", loaded.LastPage)
		}
	})

	t.Run("RecordItem", func(t *testing.T) {
		mgr, err := NewManager(platform, target)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Create(platform, target, "creator")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		// Record items
		err = mgr.RecordItem(cp, "7280168484")
		if err != nil {
			t.Fatalf("Failed to record item: %v", err)
		}
		err = mgr.RecordItem(cp, "7280168485")
		if err != nil {
			t.Fatalf("Failed to record item: %v", err)
		}

		// Verify items
		if !cp.IsItemRecorded("7280168484") {
			t.Error("Expected 7280168484 to be recorded")
		}
		if !cp.IsItemRecorded("7280168485") {
			t.Error("Expected 7280168485 to be recorded")
		}
		if cp.IsItemRecorded("7280168486") {
			t.Error("Expected 7280168486 to not be recorded")
		}
		if cp.TotalCollected != 2 {
			t.Errorf("Expected 2 collected items, got %d", cp.TotalCollected)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		mgr, err := NewManager(platform, target)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		_, err = mgr.Create(platform, target, "creator")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		// Verify exists
		if !mgr.Exists() {
			t.Error("Expected checkpoint to exist")
		}

		// Delete
		err = mgr.Delete()
		if err != nil {
			t.Fatalf("Failed to delete checkpoint: %v", err)
		}

		// Verify deleted
		if mgr.Exists() {
			t.Error("Expected checkpoint to not exist after deletion")
		}
	})

	t.Run("AtomicWrite", func(t *testing.T) {
		mgr, err := NewManager(platform, target)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Create(platform, target, "creator")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		// Simulate multiple concurrent saves
		done := make(chan bool, 10)
		for i := 0; i < 10; i++ {
			go func(n int) {
				cp.LastPage = n
				mgr.Save(cp)
				done <- true
			}(i)
		}

		// Wait for all saves to complete
		for i := 0; i < 10; i++ {
			<-done
		}

		// Verify checkpoint is still valid
		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint after concurrent saves: %v", err)
		}
		if loaded == nil {
			t.Fatal("Checkpoint corrupted after concurrent saves")
		}
	})

	t.Run("BackupCheckpoint", func(t *testing.T) {
		mgr, err := NewManager(platform, target)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Create(platform, target, "creator")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		// Add some data
		cp.TotalCollected = 42
		mgr.Save(cp)

		// Create backup
		err = mgr.BackupCheckpoint()
		if err != nil {
			t.Fatalf("Failed to backup checkpoint: %v", err)
		}

		// Verify backup exists
		backupPath := mgr.checkpointPath + ".backup"
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			t.Error("Backup file not created")
		}
	})
}

func TestGetDataDirectory(t *testing.T) {
	// Test actual implementation
	dir, err := getDataDirectory()
	if err != nil {
		t.Fatalf("Failed to get data directory: %v", err)
	}

	// Verify it's a valid path
	if dir == "" {
		t.Error("Data directory is empty")
	}

	// Verify it can be created
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		t.Errorf("Cannot create data directory: %v", err)
	}
}
