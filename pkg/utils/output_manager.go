package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputFile describes one file written for a run.
type OutputFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// OutputManager lays out run outputs as <base>/<run id>/<file>.
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// RunDir creates the directory holding a run's outputs.
func (om *OutputManager) RunDir(runID string) (string, error) {
	if runID == "" || runID != filepath.Base(runID) {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	runDir := filepath.Join(om.BaseOutputDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run output directory: %w", err)
	}
	return runDir, nil
}

// FilePath returns the path of fileName inside the run directory. Any
// directory part of fileName is discarded.
func (om *OutputManager) FilePath(runID, fileName string) (string, error) {
	runDir, err := om.RunDir(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(runDir, filepath.Base(fileName)), nil
}

// Describe stats a written file.
func (om *OutputManager) Describe(path string) (OutputFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return OutputFile{}, err
	}
	return OutputFile{
		Name: filepath.Base(path),
		Path: path,
		Type: FileType(path),
		Size: info.Size(),
	}, nil
}

// FileType determines the file type based on extension
func FileType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return "csv"
	case ".tsv":
		return "tsv"
	case ".json":
		return "json"
	default:
		return "unknown"
	}
}
