// Package seed loads a YAML directory of organizations and resources into an
// empty or partially filled database.
package seed

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"aidfinder-backend/internal/catalog"
	"aidfinder-backend/internal/model"
	"aidfinder-backend/internal/store"
)

// File is the on-disk seed layout.
type File struct {
	Organizations []Organization `yaml:"organizations"`
	Resources     []Resource     `yaml:"resources"`
}

// Organization is one seeded organization.
type Organization struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Website     string `yaml:"website"`
	Phone       string `yaml:"phone"`
}

// Resource is one seeded resource. Organization refers to an organization by
// name.
type Resource struct {
	Name              string   `yaml:"name"`
	Organization      string   `yaml:"organization"`
	Category          string   `yaml:"category"`
	Description       string   `yaml:"description"`
	Address           string   `yaml:"address"`
	City              string   `yaml:"city"`
	State             string   `yaml:"state"`
	Zip               string   `yaml:"zip"`
	Phone             string   `yaml:"phone"`
	Website           string   `yaml:"website"`
	Lat               *float64 `yaml:"lat"`
	Lng               *float64 `yaml:"lng"`
	CapacityTotal     int      `yaml:"capacity_total"`
	CapacityAvailable *int     `yaml:"capacity_available"`
}

// Load decodes the seed file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var file File
	if err := yaml.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode seed file %s: %w", path, err)
	}
	return &file, nil
}

// Apply upserts organizations by name and creates missing resources.
// Existing resources keep their capacity state.
func Apply(ctx context.Context, file *File, s store.Store, cat *catalog.Catalog, log *zap.Logger) error {
	orgs := make([]model.Organization, 0, len(file.Organizations))
	for _, o := range file.Organizations {
		orgs = append(orgs, model.Organization{
			Name:        o.Name,
			Description: o.Description,
			Website:     o.Website,
			Phone:       o.Phone,
		})
	}

	log.Info("upserting seed organizations", zap.Int("count", len(orgs)))
	orgMap, err := s.UpsertOrganizations(ctx, orgs)
	if err != nil {
		return err
	}

	created := 0
	for _, r := range file.Resources {
		res := model.Resource{
			Name:              r.Name,
			Category:          model.Category(r.Category),
			Description:       r.Description,
			Address:           r.Address,
			City:              r.City,
			State:             r.State,
			Zip:               r.Zip,
			Phone:             r.Phone,
			Website:           r.Website,
			Lat:               r.Lat,
			Lng:               r.Lng,
			CapacityTotal:     r.CapacityTotal,
			CapacityAvailable: r.CapacityAvailable,
		}
		if r.Organization != "" {
			org, ok := orgMap[r.Organization]
			if !ok {
				return fmt.Errorf("seed resource %q references unknown organization %q", r.Name, r.Organization)
			}
			res.OrgID = &org.ID
		}

		ok, err := cat.EnsureResource(ctx, &res)
		if err != nil {
			return fmt.Errorf("seed resource %q: %w", r.Name, err)
		}
		if ok {
			created++
		}
	}

	log.Info("seed applied", zap.Int("resources_created", created), zap.Int("resources_total", len(file.Resources)))
	return nil
}
