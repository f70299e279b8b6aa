package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"unibot/internal/domain"
)

// LoadLinks reads the Moodle link catalog, a JSON array of
// {title, description, link} records.
func LoadLinks(path string) ([]domain.LinkRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read link catalog %s: %w", path, err)
	}

	var records []domain.LinkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse link catalog %s: %w", path, err)
	}
	return records, nil
}

// linkContent renders a catalog record as the text that gets embedded.
func linkContent(rec domain.LinkRecord) string {
	return rec.Title + "\n" + rec.Description + "\n" + "Moodle-Kurs-Link:" + rec.Link
}
