package backend

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/liminara-shop/storefront/internal/domain"
)

type catalogSeed struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	Price         string `yaml:"price"`
	OriginalPrice string `yaml:"original_price"`
	DealPrice     string `yaml:"deal_price"`
	IsDeal        bool   `yaml:"is_deal"`
	ImageURL      string `yaml:"image_url"`
	Stock         int    `yaml:"stock"`
	Category      string `yaml:"category"`
}

// LoadCatalog reads a YAML catalog seed for the fake backend. A missing file
// is reported via os.ErrNotExist so callers can fall back to defaults.
func LoadCatalog(path string) ([]domain.Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed catalogSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("backend: parse catalog seed %s: %w", path, err)
	}

	products := make([]domain.Product, 0, len(seed.Products))
	for _, p := range seed.Products {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("backend: catalog seed %s: product entries need id and name", path)
		}
		products = append(products, domain.Product{
			ID:            strings.TrimSpace(p.ID),
			Name:          strings.TrimSpace(p.Name),
			Description:   strings.TrimSpace(p.Description),
			Price:         strings.TrimSpace(p.Price),
			OriginalPrice: strings.TrimSpace(p.OriginalPrice),
			DealPrice:     strings.TrimSpace(p.DealPrice),
			IsDeal:        p.IsDeal,
			ImageURL:      strings.TrimSpace(p.ImageURL),
			Stock:         p.Stock,
			Category:      strings.TrimSpace(p.Category),
		})
	}
	return products, nil
}

// DefaultCatalog returns the built-in demo catalog used when no seed file is
// present.
func DefaultCatalog() []domain.Product {
	return []domain.Product{
		{
			ID:          "1",
			Name:        "Sheesham Wood Coffee Table",
			Description: "Hand-finished solid sheesham coffee table with storage shelf.",
			Price:       "8999.00",
			ImageURL:    "/images/coffee-table.jpg",
			Stock:       12,
			Category:    "living",
		},
		{
			ID:            "2",
			Name:          "Teak Bookshelf",
			Description:   "Five-tier teak bookshelf with anti-tip wall strap.",
			Price:         "12499.00",
			OriginalPrice: "14999.00",
			ImageURL:      "/images/bookshelf.jpg",
			Stock:         7,
			Category:      "study",
		},
		{
			ID:          "3",
			Name:        "Rattan Accent Chair",
			Description: "Natural rattan chair with removable cushion.",
			Price:       "6499.00",
			DealPrice:   "4999.00",
			IsDeal:      true,
			ImageURL:    "/images/accent-chair.jpg",
			Stock:       4,
			Category:    "living",
		},
	}
}
