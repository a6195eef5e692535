package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"estatemap/internal/models"
)

var (
	tierTables map[models.Operation]models.TierTable
	tierLock   sync.RWMutex
)

// LoadTierTables reads tier tables from a TOML file. Operations missing from
// the file keep their built-in table. An empty path loads the defaults only.
func LoadTierTables(path string) (map[models.Operation]models.TierTable, error) {
	tables := DefaultTierTables()
	if path == "" {
		setTierTables(tables)
		return tables, nil
	}

	// Get absolute path to config file
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tier table file: %w", err)
	}

	var raw map[string]models.TierTable
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse tier table file: %w", err)
	}

	for name, table := range raw {
		op := models.Operation(name)
		if !op.Valid() {
			return nil, fmt.Errorf("unknown operation in tier table: %s", name)
		}
		if err := validateTierTable(op, table); err != nil {
			return nil, err
		}
		tables[op] = table
	}

	setTierTables(tables)
	return tables, nil
}

// GetTierTable returns the loaded table for an operation
func GetTierTable(op models.Operation) (models.TierTable, bool) {
	tierLock.RLock()
	defer tierLock.RUnlock()

	if tierTables == nil {
		table, ok := DefaultTierTables()[op]
		return table, ok
	}
	table, ok := tierTables[op]
	return table, ok
}

func setTierTables(tables map[models.Operation]models.TierTable) {
	tierLock.Lock()
	defer tierLock.Unlock()
	tierTables = tables
}

func validateTierTable(op models.Operation, table models.TierTable) error {
	if len(table.Tiers) == 0 {
		return fmt.Errorf("tier table for %s has no tiers", op)
	}
	seen := make(map[models.Tier]bool)
	for _, tier := range table.Tiers {
		if tier.Name == models.TierNone {
			return fmt.Errorf("tier table for %s has an unnamed tier", op)
		}
		if seen[tier.Name] {
			return fmt.Errorf("tier table for %s lists %s twice", op, tier.Name)
		}
		if tier.FreeCap < 0 {
			return fmt.Errorf("tier %s of %s has a negative free cap", tier.Name, op)
		}
		seen[tier.Name] = true
	}
	return nil
}
