package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aidfinder-backend/internal/apperr"
	"aidfinder-backend/internal/model"
)

func (s *gormStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()
	if err := db.Create(org).Error; err != nil {
		return translate(ctx, fmt.Errorf("failed to create organization %q: %w", org.Name, err))
	}
	return nil
}

func (s *gormStore) GetOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()
	var org model.Organization
	if err := db.First(&org, "id = ?", id).Error; err != nil {
		return nil, notFound(ctx, err, apperr.ErrOrganizationNotFound, id)
	}
	return &org, nil
}

func (s *gormStore) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()
	orgs := []model.Organization{}
	if err := db.Order("name ASC").Find(&orgs).Error; err != nil {
		return nil, translate(ctx, err)
	}
	return orgs, nil
}

// UpsertOrganizations inserts or refreshes organizations keyed by name and
// returns every stored organization indexed by name.
func (s *gormStore) UpsertOrganizations(ctx context.Context, orgs []model.Organization) (map[string]model.Organization, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()

	if len(orgs) > 0 {
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "website", "phone", "updated_at"}),
		}).Create(&orgs).Error; err != nil {
			return nil, translate(ctx, fmt.Errorf("batch upsert organizations failed: %w", err))
		}
	}

	var all []model.Organization
	if err := db.Find(&all).Error; err != nil {
		return nil, translate(ctx, fmt.Errorf("failed to retrieve organizations after upsert: %w", err))
	}
	byName := make(map[string]model.Organization, len(all))
	for _, o := range all {
		byName[o.Name] = o
	}
	return byName, nil
}

func (s *gormStore) CreateResource(ctx context.Context, r *model.Resource) error {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()
	if err := db.Create(r).Error; err != nil {
		return translate(ctx, fmt.Errorf("failed to create resource %q: %w", r.Name, err))
	}
	return nil
}

// EnsureResource creates r unless a resource with the same name and owner
// already exists. It reports whether a row was created.
func (s *gormStore) EnsureResource(ctx context.Context, r *model.Resource) (bool, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()

	q := db.Where("name = ?", r.Name)
	if r.OrgID != nil {
		q = q.Where("org_id = ?", *r.OrgID)
	} else {
		q = q.Where("org_id IS NULL")
	}

	var existing model.Resource
	err := q.First(&existing).Error
	if err == nil {
		*r = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, translate(ctx, err)
	}
	if err := db.Create(r).Error; err != nil {
		return false, translate(ctx, fmt.Errorf("failed to create resource %q: %w", r.Name, err))
	}
	return true, nil
}

func (s *gormStore) GetResource(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()
	var r model.Resource
	if err := db.First(&r, "id = ?", id).Error; err != nil {
		return nil, notFound(ctx, err, apperr.ErrResourceNotFound, id)
	}
	return &r, nil
}

// QueryResources returns matching resources in catalog order (creation time,
// then id). Postgres folds case in SQL; sqlite's LOWER only folds ASCII, so
// there the text predicates run over the fetched rows instead.
func (s *gormStore) QueryResources(ctx context.Context, q ResourceQuery) ([]model.Resource, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()

	foldInSQL := db.Dialector.Name() == "postgres"

	tx := db.Model(&model.Resource{})
	if q.Category != "" {
		tx = tx.Where("LOWER(category) = ?", strings.ToLower(string(q.Category)))
	}
	if len(q.OrganizationIDs) > 0 {
		tx = tx.Where("org_id IN ?", q.OrganizationIDs)
	}
	if foldInSQL && q.Keyword != "" {
		pattern := "%" + escapeLike(q.Keyword) + "%"
		tx = tx.Where("(name ILIKE ? ESCAPE '\\' OR description ILIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if foldInSQL && q.City != "" {
		tx = tx.Where("LOWER(city) = LOWER(?)", q.City)
	}
	if q.RequireCoordinates {
		tx = tx.Where("lat IS NOT NULL AND lng IS NOT NULL")
	}

	resources := []model.Resource{}
	if err := tx.Order("created_at ASC").Order("id ASC").Find(&resources).Error; err != nil {
		return nil, translate(ctx, fmt.Errorf("resource query failed: %w", err))
	}
	if !foldInSQL {
		resources = matchText(resources, q.Keyword, q.City)
	}
	return resources, nil
}

// matchText applies the keyword and city predicates with Unicode case folding.
func matchText(resources []model.Resource, keyword, city string) []model.Resource {
	if keyword == "" && city == "" {
		return resources
	}
	keyword = strings.ToLower(keyword)
	out := resources[:0]
	for _, r := range resources {
		if city != "" && !strings.EqualFold(strings.TrimSpace(r.City), city) {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(r.Name), keyword) &&
			!strings.Contains(strings.ToLower(r.Description), keyword) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// CompareAndDecrement takes one slot only if capacity_available still equals
// expected. It reports false when another writer got there first.
func (s *gormStore) CompareAndDecrement(ctx context.Context, id uuid.UUID, expected int) (bool, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&model.Resource{}).
		Where("id = ? AND capacity_available = ? AND capacity_available > 0", id, expected).
		Updates(map[string]any{
			"capacity_available": gorm.Expr("capacity_available - 1"),
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return false, translate(ctx, fmt.Errorf("capacity decrement for resource %s failed: %w", id, res.Error))
	}
	return res.RowsAffected == 1, nil
}

// Restock returns n slots, never exceeding capacity_total. Resources that do
// not track capacity are left alone and report false.
func (s *gormStore) Restock(ctx context.Context, id uuid.UUID, n int) (bool, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&model.Resource{}).
		Where("id = ? AND capacity_available IS NOT NULL", id).
		Updates(map[string]any{
			"capacity_available": gorm.Expr(
				"CASE WHEN capacity_available + ? > capacity_total THEN capacity_total ELSE capacity_available + ? END", n, n),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, translate(ctx, fmt.Errorf("restock for resource %s failed: %w", id, res.Error))
	}
	return res.RowsAffected == 1, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
