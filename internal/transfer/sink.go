package transfer

import (
	"os"
	"path/filepath"

	"github.com/jannskiee/floe/internal/utils"
)

// DiskSink materializes completed downloads as files in a directory,
// renaming on collision so nothing gets overwritten.
type DiskSink struct {
	Dir string
}

func (s DiskSink) Materialize(fileName string, data []byte) (string, error) {
	name := filepath.Base(fileName)
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return "", NewFileError("create directory", s.Dir, err)
		}
		name = filepath.Join(s.Dir, name)
	}
	name = utils.GetUniqueFilename(name)

	if err := os.WriteFile(name, data, 0o644); err != nil {
		return "", NewFileError("write file", fileName, err)
	}
	return name, nil
}
