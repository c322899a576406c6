package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"catalog-import-service/internal/models"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readBatch loads records from a file holding either {"categories": [...]}
// or a bare array of category objects
func readBatch(path string) ([]models.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var wrapped models.ValidateRequest
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Categories != nil {
		return wrapped.Categories, nil
	}

	var records []models.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: expected {\"categories\": [...]} or an array: %w", path, err)
	}
	return records, nil
}
