package knowledge

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"pigeonhole/internal/services"
)

// Seed is the TOML shape operators use to bulk-load the knowledge base.
type Seed struct {
	Assets     []SeedAsset       `toml:"assets"`
	Categories []SeedCategorySet `toml:"categories"`
}

// SeedAsset declares one asset with its optional sender associations.
type SeedAsset struct {
	ID        string   `toml:"id"`
	Name      string   `toml:"name"`
	Type      string   `toml:"type"`
	Keywords  []string `toml:"keywords"`
	Threshold float64  `toml:"threshold"`
	Senders   []string `toml:"senders"`
}

// SeedCategorySet declares the allowed categories, patterns and fallback for
// one asset type.
type SeedCategorySet struct {
	AssetType string        `toml:"asset_type"`
	Allowed   []string      `toml:"allowed"`
	Fallback  string        `toml:"fallback"`
	Patterns  []SeedPattern `toml:"patterns"`
}

// SeedPattern declares one classification pattern within a category set.
type SeedPattern struct {
	Category       string  `toml:"category"`
	Expression     string  `toml:"expression"`
	BaseConfidence float64 `toml:"base_confidence"`
}

// LoadSeed reads and validates a TOML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, services.Wrap(services.ErrValidation, "knowledge", "load seed",
			"parse seed file", err)
	}
	for i, asset := range seed.Assets {
		if strings.TrimSpace(asset.ID) == "" || strings.TrimSpace(asset.Name) == "" {
			return nil, services.Wrap(services.ErrValidation, "knowledge", "load seed",
				fmt.Sprintf("asset %d is missing an id or name", i), nil)
		}
	}
	for i, set := range seed.Categories {
		if strings.TrimSpace(set.AssetType) == "" {
			return nil, services.Wrap(services.ErrValidation, "knowledge", "load seed",
				fmt.Sprintf("category set %d is missing asset_type", i), nil)
		}
	}
	return &seed, nil
}

// ApplySeed upserts seed contents into the store. Existing rows with the same
// keys are overwritten; rows not mentioned in the seed are left alone.
func (s *Store) ApplySeed(ctx context.Context, seed *Seed) error {
	for _, entry := range seed.Assets {
		asset := Asset{
			ID:        strings.TrimSpace(entry.ID),
			Name:      strings.TrimSpace(entry.Name),
			Type:      strings.TrimSpace(entry.Type),
			Keywords:  entry.Keywords,
			Threshold: entry.Threshold,
		}
		if err := s.UpsertAsset(ctx, asset); err != nil {
			return fmt.Errorf("seed asset %s: %w", asset.ID, err)
		}
		for _, sender := range entry.Senders {
			if err := s.UpsertSenderMapping(ctx, sender, asset.ID); err != nil {
				return fmt.Errorf("seed sender mapping %s: %w", sender, err)
			}
		}
	}
	for _, set := range seed.Categories {
		assetType := strings.TrimSpace(set.AssetType)
		if err := s.SetAllowedCategories(ctx, assetType, set.Allowed, set.Fallback); err != nil {
			return fmt.Errorf("seed categories for %s: %w", assetType, err)
		}
		for _, pattern := range set.Patterns {
			if err := s.UpsertPattern(ctx, assetType, Pattern{
				Category:       pattern.Category,
				Expression:     pattern.Expression,
				BaseConfidence: pattern.BaseConfidence,
			}); err != nil {
				return fmt.Errorf("seed pattern %q: %w", pattern.Expression, err)
			}
		}
	}
	return nil
}
