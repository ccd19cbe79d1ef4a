// Command seed loads the customer directory from a CRM CSV export into
// postgres. It truncates the customers table first, so a re-run produces the
// same directory the file describes.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-orchestrator/internal/config"
	"github.com/spec-kit/support-orchestrator/internal/domain"
	"github.com/spec-kit/support-orchestrator/internal/observability"
	"github.com/spec-kit/support-orchestrator/internal/persistence"
	"github.com/spec-kit/support-orchestrator/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.PoolHandle() == nil {
		logger.Fatal("POSTGRES_DSN required for seeding")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	profiles, skipped, err := loadProfiles(cfg.Batch.CRMCSVPath)
	if err != nil {
		logger.Fatal("failed to read CRM export", zap.String("path", cfg.Batch.CRMCSVPath), zap.Error(err))
	}

	customers := repository.NewCustomerRepository(pg.PoolHandle())
	if err := customers.Truncate(ctx); err != nil {
		logger.Fatal("failed to truncate customers", zap.Error(err))
	}

	inserted := 0
	for _, profile := range profiles {
		if err := customers.Create(ctx, profile); err != nil {
			logger.Fatal("failed to insert customer", zap.String("email", profile.Email), zap.Error(err))
		}
		inserted++
	}

	logger.Info("customer directory seeded",
		zap.String("path", cfg.Batch.CRMCSVPath),
		zap.Int("inserted", inserted),
		zap.Int("skipped", skipped))
}

// loadProfiles parses the CRM export, deduplicating on email; the first row
// for an address wins. Returns the profiles plus how many rows were dropped.
func loadProfiles(path string) ([]*domain.CustomerProfile, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open CRM export: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read CRM export: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, fmt.Errorf("CRM export %s is empty", path)
	}

	cols := columnIndex(records[0])
	emailIdx, ok := cols["email"]
	if !ok {
		// Some exports label the column the way the support tool does.
		if emailIdx, ok = cols["customer_email"]; !ok {
			return nil, 0, fmt.Errorf("CRM export %s missing email column", path)
		}
	}
	nameIdx := columnOrMissing(cols, "name")
	ageIdx := columnOrMissing(cols, "age")
	genderIdx := columnOrMissing(cols, "gender")

	seen := make(map[string]bool)
	profiles := make([]*domain.CustomerProfile, 0, len(records)-1)
	skipped := 0
	for _, record := range records[1:] {
		email := strings.ToLower(field(record, emailIdx))
		if email == "" || seen[email] {
			skipped++
			continue
		}
		seen[email] = true

		age := 0
		if raw := field(record, ageIdx); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				age = parsed
			}
		}

		profiles = append(profiles, &domain.CustomerProfile{
			Email:  email,
			Name:   field(record, nameIdx),
			Age:    age,
			Gender: field(record, genderIdx),
		})
	}
	return profiles, skipped, nil
}

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
