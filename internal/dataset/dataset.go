// Package dataset loads the candidate customer queries the batch driver
// samples from.
package dataset

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// QueryRow is one candidate customer query.
type QueryRow struct {
	CustomerEmail string
	Description   string
	Product       string
}

// Source supplies rows for a batch run.
type Source interface {
	Sample(n int) ([]QueryRow, error)
}

// CSVSource reads queries from a CSV file with customer_email,
// ticket_description and product_purchased columns. The file is re-read on
// every sample so edits take effect without a restart.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source for the given file path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Sample draws n rows without replacement.
func (s *CSVSource) Sample(n int) ([]QueryRow, error) {
	rows, err := s.load()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", n)
	}
	if n > len(rows) {
		return nil, fmt.Errorf("sample size %d exceeds dataset size %d", n, len(rows))
	}

	sampled := make([]QueryRow, 0, n)
	for _, idx := range rand.Perm(len(rows))[:n] {
		sampled = append(sampled, rows[idx])
	}
	return sampled, nil
}

func (s *CSVSource) load() ([]QueryRow, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %s is empty", s.path)
	}

	cols := columnIndex(records[0])
	emailIdx, ok := cols["customer_email"]
	if !ok {
		return nil, fmt.Errorf("dataset %s missing customer_email column", s.path)
	}
	descIdx := columnOrMissing(cols, "ticket_description")
	productIdx := columnOrMissing(cols, "product_purchased")

	rows := make([]QueryRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := QueryRow{
			CustomerEmail: field(record, emailIdx),
			Description:   field(record, descIdx),
			Product:       field(record, productIdx),
		}
		if row.CustomerEmail == "" {
			continue
		}
		if row.Description == "" {
			row.Description = "No description provided"
		}
		if row.Product == "" {
			row.Product = "Unknown"
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// columnIndex maps normalized header names to positions. Headers like
// "Customer Email" and "customer_email" resolve to the same column.
func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		normalized = strings.ReplaceAll(normalized, " ", "_")
		cols[normalized] = i
	}
	return cols
}

func columnOrMissing(cols map[string]int, name string) int {
	if idx, ok := cols[name]; ok {
		return idx
	}
	return -1
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
