package output

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const MetadataFilename = "metadata.json"

// MetadataRecord maps a sanitized local filename back to its origin so users
// can tell where a downloaded file came from.
type MetadataRecord struct {
	LocalFilename string `json:"local_filename"`
	ProjectPath   string `json:"project_path"`
	FilePath      string `json:"file_path"`
	Ref           string `json:"ref"`
}

// WriteMetadata persists the metadata collection as an indented JSON array.
func WriteMetadata(dir string, records []MetadataRecord) error {
	if records == nil {
		records = []MetadataRecord{}
	}
	f, err := os.Create(filepath.Join(dir, MetadataFilename))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadMetadata reads a previous run's metadata collection from dir. A missing
// file is not an error; it just means there is nothing to resume.
func LoadMetadata(dir string) ([]MetadataRecord, error) {
	raw, err := os.ReadFile(filepath.Join(dir, MetadataFilename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var records []MetadataRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}
