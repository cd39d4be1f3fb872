// =============================================================================
// TCD Bridge - File Manager Utility
// =============================================================================
//
// This module provides the file plumbing around a reconciliation run:
//   - discovery of TCD workbooks in the input directory
//   - archival of processed workbooks
//   - unique output file naming
//   - archive retention
//
// ARCHIVAL STRATEGY:
//   - Input workbooks are moved to the archive after successful processing
//   - Failed workbooks remain in their original location
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations around processing runs.
type FileManager struct {
	// InputDir is the directory scanned for TCD workbooks.
	InputDir string

	// OutputDir is the directory where payloads and reports are written.
	OutputDir string

	// ArchiveDir is the directory for processed workbooks.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: archive/2024/01/15/file.xlsx
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether workbooks are archived after
	// successful processing.
	ArchiveOnSuccess bool
}

// NewFileManager creates a FileManager over the configured directories.
func NewFileManager(inputDir, outputDir, archiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		ArchiveDir:       archiveDir,
		ArchiveOnSuccess: true,
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{
		fm.InputDir,
		fm.OutputDir,
		fm.ArchiveDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverWorkbooks scans the input directory for workbooks matching the
// pattern.
//
// PARAMETERS:
//   - pattern: A glob pattern to match files (e.g., "*.xlsx").
//     If empty, defaults to "*.xlsx".
//
// RETURNS:
//   - A slice of file paths.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverWorkbooks(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.xlsx"
	}

	files, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		// Excel lock files start with ~$ and are not real workbooks.
		if info.IsDir() || strings.HasPrefix(filepath.Base(file), "~$") {
			continue
		}
		result = append(result, file)
	}

	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveWorkbook moves a processed workbook to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the workbook to archive.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveWorkbook(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.archivePath(filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// archivePath constructs the archive destination for a file.
func (fm *FileManager) archivePath(filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := time.Now()
		subDir := filepath.Join(
			fm.ArchiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
		return filepath.Join(subDir, fileName)
	}

	return filepath.Join(fm.ArchiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//   - params: A map of additional placeholder values.
//
// RETURNS:
//   - The generated file name, with a .json extension when none was given.
//
// EXAMPLE:
//
//	format: "payload_{timestamp}_{uuid}.json"
//	output: "payload_20240115_143022_a1b2c3d4-....json"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if filepath.Ext(result) == "" {
		result += ".json"
	}

	return result
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CleanOldArchives removes archive files older than the specified duration.
//
// PARAMETERS:
//   - archiveDir: The archive directory to clean.
//   - maxAge: The maximum age of files to keep.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails.
func CleanOldArchives(archiveDir string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})

	if err != nil {
		return removed, fmt.Errorf("failed to clean archives: %w", err)
	}

	return removed, nil
}
