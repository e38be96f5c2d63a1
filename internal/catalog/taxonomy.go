package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/law-makers/adscout/internal/utils/slug"
)

// Category is a top-level taxonomy node
type Category struct {
	ID   string
	Name string
	Slug string
}

// Niche is a taxonomy node scoped to a category
type Niche struct {
	ID         string
	CategoryID string
	Name       string
	Slug       string
}

// EnsureCategory returns the category with name's slug, creating it when missing
func (s *Store) EnsureCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	sl := slug.Key(name)
	if sl == "" {
		return nil, fmt.Errorf("category %q has no usable slug", name)
	}

	c := &Category{}
	err := s.db.QueryRowContext(ctx, s.d.rebind(`
INSERT INTO categories (id, name, slug, is_premium, created_at)
VALUES (?, ?, ?, FALSE, ?)
ON CONFLICT (slug) DO UPDATE SET name = excluded.name
RETURNING id, name, slug`),
		uuid.NewString(), name, sl, s.now().UTC(),
	).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		return nil, fmt.Errorf("upsert category %q: %w", name, err)
	}
	return c, nil
}

// EnsureNiche returns the niche keyed by NicheSlug(categoryID, name), creating
// it when missing. It returns nil without error when the deployment has no niches table.
func (s *Store) EnsureNiche(ctx context.Context, name, categoryID string) (*Niche, error) {
	if !s.caps.Niches {
		return nil, nil
	}

	name = strings.TrimSpace(name)
	n := &Niche{}
	err := s.db.QueryRowContext(ctx, s.d.rebind(`
INSERT INTO niches (id, category_id, name, slug, is_active, created_at)
VALUES (?, ?, ?, ?, TRUE, ?)
ON CONFLICT (slug) DO UPDATE SET name = excluded.name, is_active = TRUE
RETURNING id, category_id, name, slug`),
		uuid.NewString(), categoryID, name, NicheSlug(categoryID, name), s.now().UTC(),
	).Scan(&n.ID, &n.CategoryID, &n.Name, &n.Slug)
	if err != nil {
		return nil, fmt.Errorf("upsert niche %q: %w", name, err)
	}
	return n, nil
}

// NicheSlug is the unique key of a niche within the catalog
func NicheSlug(categoryID, name string) string {
	return categoryID + "-" + slug.Key(name)
}
