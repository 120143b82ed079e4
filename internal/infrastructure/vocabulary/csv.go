package vocabulary

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

// LoadCSV reads the controlled entity vocabulary from a CSV file with a
// header row of code,name,description,category. Missing trailing columns
// are tolerated; a missing code is not.
func LoadCSV(path string) (*domain.EntityVocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, domain.WrapError(domain.ErrConfiguration, "load vocabulary", fmt.Errorf("%s has no data rows", path))
	}

	entries := make([]domain.EntityInfo, 0, len(rows)-1)
	for i, row := range rows[1:] {
		code := field(row, 0)
		if code == "" {
			return nil, domain.WrapError(domain.ErrConfiguration, "load vocabulary", fmt.Errorf("%s row %d: empty code", path, i+2))
		}
		entries = append(entries, domain.EntityInfo{
			Code:        domain.EntityCode(code),
			Name:        field(row, 1),
			Description: field(row, 2),
			Category:    field(row, 3),
		})
	}
	return domain.NewEntityVocabulary(entries)
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
