package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/godilite/review-insights/internal/repository/models"
)

// Seed is the agent and department directory loaded at startup.
type Seed struct {
	Departments []models.Department `json:"departments" validate:"dive"`
	Agents      []models.Agent      `json:"agents" validate:"dive"`
}

// LoadSeed reads and validates a seed file. Every agent department must be
// declared in the same file.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed %s: %w", path, err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("decode seed %s: %w", path, err)
	}
	if err := validate.Struct(seed); err != nil {
		return Seed{}, fmt.Errorf("invalid seed %s: %w", path, err)
	}

	known := make(map[string]bool, len(seed.Departments))
	for _, d := range seed.Departments {
		known[d.ID] = true
	}
	for _, a := range seed.Agents {
		if a.DepartmentID != "" && !known[a.DepartmentID] {
			return Seed{}, fmt.Errorf("invalid seed %s: agent %s references unknown department %s", path, a.ID, a.DepartmentID)
		}
	}
	return seed, nil
}
