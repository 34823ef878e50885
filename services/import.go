package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ImportFile copies a local PDF into the upload store and ingests the
// stored copy. The copy is removed again when ingestion fails.
func (s *IngestService) ImportFile(ctx context.Context, store *UploadStore, path string, maxBytes int64) (*IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	original := filepath.Base(path)
	if err := CheckPDF(f, original, ""); err != nil {
		return nil, err
	}
	if maxBytes > 0 {
		if st, err := f.Stat(); err == nil && st.Size() > maxBytes {
			return nil, fmt.Errorf("%s is %d bytes, limit is %d", original, st.Size(), maxBytes)
		}
	}

	name, stored, err := store.Save(f, original, maxBytes)
	if err != nil {
		return nil, err
	}

	res, err := s.Ingest(ctx, stored, original)
	if err != nil {
		store.Remove(name)
		return nil, err
	}
	return res, nil
}
