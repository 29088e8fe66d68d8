package files

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo holds information about a file queued for sending.
type FileInfo struct {
	// Path is the absolute path to the file.
	Path string

	// Name is the filename without directory.
	Name string

	// Size is the file size in bytes.
	Size int64

	// Type is the detected MIME type, octet-stream when unknown.
	Type string
}

// ValidateFiles checks that every path exists and is a readable
// regular file. All failures are collected and reported together.
func ValidateFiles(filePaths []string) ([]FileInfo, error) {
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("no files specified")
	}

	var fileInfos []FileInfo
	var errors []string

	for _, path := range filePaths {
		fileInfo, err := validateSingleFile(path)
		if err != nil {
			errors = append(errors, err.Error())
			continue
		}
		fileInfos = append(fileInfos, fileInfo)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("file validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return fileInfos, nil
}

func validateSingleFile(path string) (FileInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: failed to get absolute path: %w", path, err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return FileInfo{}, fmt.Errorf("%s: file does not exist", path)
		}
		return FileInfo{}, fmt.Errorf("%s: failed to stat file: %w", path, err)
	}

	if stat.IsDir() {
		return FileInfo{}, fmt.Errorf("%s: is a directory (directories not yet supported)", path)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: cannot open file (check permissions): %w", path, err)
	}
	file.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(absPath))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return FileInfo{
		Path: absPath,
		Name: filepath.Base(absPath),
		Size: stat.Size(),
		Type: mimeType,
	}, nil
}

// GetTotalSize returns the combined size of all files.
func GetTotalSize(fileInfos []FileInfo) int64 {
	var total int64
	for _, file := range fileInfos {
		total += file.Size
	}
	return total
}
