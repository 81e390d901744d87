package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/logger"
)

// Manager handles local recording storage: one directory per recording
// under a common output root.
type Manager struct {
	outputDir      string
	cleanupEnabled bool
	retention      time.Duration
	logger         *logger.Logger
	mu             sync.RWMutex
	recordings     map[string]*RecordingInfo // recordingID -> RecordingInfo
}

// RecordingInfo contains information about a stored recording
type RecordingInfo struct {
	Dir       string
	CreatedAt time.Time
}

// NewManager creates a new storage manager
func NewManager(outputDir string, cleanupEnabled bool, retention time.Duration, log *logger.Logger) (*Manager, error) {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	m := &Manager{
		outputDir:      outputDir,
		cleanupEnabled: cleanupEnabled,
		retention:      retention,
		logger:         log,
		recordings:     make(map[string]*RecordingInfo),
	}

	// Start cleanup goroutine if enabled
	if cleanupEnabled {
		go m.cleanupLoop()
	}

	return m, nil
}

// RecordingDir creates and registers the directory for one recording.
func (m *Manager) RecordingDir(recordingID string) (string, error) {
	// Sanitize the ID to prevent path traversal
	recordingID = filepath.Base(recordingID)

	dir := filepath.Join(m.outputDir, recordingID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create recording directory: %w", err)
	}

	m.mu.Lock()
	m.recordings[recordingID] = &RecordingInfo{
		Dir:       dir,
		CreatedAt: time.Now(),
	}
	m.mu.Unlock()

	m.logger.WithContext(nil).WithRecordingID(recordingID).LogInfo(
		"RecordingDirCreated",
		"Recording directory created",
		logger.Fields{"dir": dir},
	)

	return dir, nil
}

// Files returns the paths of all files in a recording's directory.
func (m *Manager) Files(recordingID string) ([]string, error) {
	m.mu.RLock()
	info, exists := m.recordings[recordingID]
	m.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("recording not found: %s", recordingID)
	}

	entries, err := os.ReadDir(info.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(info.Dir, e.Name()))
	}
	return files, nil
}

// DeleteRecording removes a recording's directory and all of its files.
func (m *Manager) DeleteRecording(recordingID string) error {
	m.mu.Lock()
	info, exists := m.recordings[recordingID]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("recording not found: %s", recordingID)
	}
	delete(m.recordings, recordingID)
	m.mu.Unlock()

	if err := os.RemoveAll(info.Dir); err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}

	m.logger.WithContext(nil).WithRecordingID(recordingID).LogInfo(
		"RecordingDeleted",
		"Recording directory deleted",
		logger.Fields{"dir": info.Dir},
	)

	return nil
}

// CheckDiskSpace checks if the output directory is writable (simplified)
func (m *Manager) CheckDiskSpace() error {
	// This is a simplified check - in production, use syscall.Statfs
	testFile := filepath.Join(m.outputDir, ".diskcheck")
	f, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("insufficient disk space or permissions")
	}
	f.Close()
	os.Remove(testFile)
	return nil
}

// cleanupLoop periodically cleans up expired recordings
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.cleanup()
	}
}

// cleanup removes recordings older than the retention window. It scans
// the output directory rather than the in-memory map, so recordings from
// earlier runs are covered too.
func (m *Manager) cleanup() {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		m.logger.Warn("Failed to scan output directory for cleanup", logger.Fields{"error": err.Error()})
		return
	}

	now := time.Now()
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= m.retention {
			continue
		}
		dir := filepath.Join(m.outputDir, e.Name())
		if err := os.RemoveAll(dir); err == nil {
			m.mu.Lock()
			delete(m.recordings, e.Name())
			m.mu.Unlock()
			m.logger.WithContext(nil).WithRecordingID(e.Name()).LogInfo(
				"RecordingCleanup",
				"Expired recording cleaned up",
				logger.Fields{"dir": dir, "age": now.Sub(info.ModTime()).String()},
			)
		}
	}
}

// Close stops the cleanup loop and cleans up resources
func (m *Manager) Close() error {
	// Cleanup loop will stop automatically when manager is garbage collected
	return nil
}
