// Package seed generates a synthetic catalog for load and pagination testing.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/luxemarket/storefront/internal/domain"
)

// namespace keeps generated IDs stable across runs so reseeding is idempotent.
var namespace = uuid.MustParse("6f2c1d7e-3b4a-4e8f-9a1c-5d0e7b2f4a60")

type category struct {
	name     string
	weight   float64
	nouns    []string
	minPrice int
	maxPrice int
}

var categories = []category{
	{"apparel", 0.40, []string{"Wrap Dress", "Wool Coat", "Linen Shirt", "Pleated Skirt", "Knit Cardigan", "Tailored Trousers"}, 60, 1200},
	{"accessories", 0.20, []string{"Silk Scarf", "Leather Belt", "Cashmere Gloves", "Sunglasses"}, 25, 350},
	{"bags", 0.15, []string{"Leather Tote", "Crossbody Bag", "Clutch", "Weekender"}, 90, 900},
	{"jewellery", 0.15, []string{"Hoop Earrings", "Pendant Necklace", "Signet Ring", "Cuff Bracelet"}, 40, 600},
	{"footwear", 0.10, []string{"Ankle Boots", "Loafers", "Ballet Flats", "Leather Sneakers"}, 80, 700},
}

var adjectives = []string{"Classic", "Heritage", "Atelier", "Nocturne", "Riviera", "Ivory", "Midnight", "Sienna", "Alpine", "Gilded"}

var images = []string{
	"https://images.unsplash.com/photo-1515886657613-9f3515b0c78f",
	"https://images.unsplash.com/photo-1539533018447-63fcce2678e3",
	"https://images.unsplash.com/photo-1584917865442-de89df76afd3",
	"https://images.unsplash.com/photo-1535632066927-ab7c9ab60908",
}

// Generate returns n products. The same seed and n always yield the same
// catalog. Roughly a third of the products carry a markdown.
func Generate(n int, seed uint64, now time.Time) []domain.Product {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	products := make([]domain.Product, n)

	for i := range products {
		c := pickCategory(rng.Float64())
		name := adjectives[rng.IntN(len(adjectives))] + " " + c.nouns[rng.IntN(len(c.nouns))]

		cents := (c.minPrice + rng.IntN(c.maxPrice-c.minPrice+1)) * 100
		cents -= cents % 500
		cents += 99
		price := decimal.New(int64(cents), -2)

		p := domain.Product{
			ID:          uuid.NewSHA1(namespace, []byte(strconv.Itoa(i))).String(),
			Name:        name,
			Description: fmt.Sprintf("%s from the %s collection.", name, c.name),
			Price:       price,
			ImageURL:    images[rng.IntN(len(images))],
			Category:    c.name,
			// Spread creation times so newest-first ordering is stable.
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		}
		if rng.IntN(3) == 0 {
			pct := int64(10 + rng.IntN(41))
			original := price.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(100 - pct)).Round(0)
			p.OriginalPrice = &original
		}
		products[i] = p
	}
	return products
}

func pickCategory(r float64) category {
	for _, c := range categories {
		if r < c.weight {
			return c
		}
		r -= c.weight
	}
	return categories[len(categories)-1]
}

const insertProductSQL = `
	INSERT INTO products (id, name, description, price, original_price, image_url, category, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING`

// Querier is the subset of a pgx pool the loader needs.
type Querier interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Load inserts products in batches of batchSize and returns how many rows
// were new. Existing IDs are skipped.
func Load(ctx context.Context, db Querier, products []domain.Product, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	inserted := 0
	for start := 0; start < len(products); start += batchSize {
		end := min(start+batchSize, len(products))

		batch := &pgx.Batch{}
		for _, p := range products[start:end] {
			var original *string
			if p.OriginalPrice != nil {
				s := p.OriginalPrice.StringFixed(2)
				original = &s
			}
			batch.Queue(insertProductSQL,
				p.ID, p.Name, p.Description, p.Price.StringFixed(2), original, p.ImageURL, p.Category, p.CreatedAt)
		}

		n, err := execBatch(ctx, db, batch)
		inserted += n
		if err != nil {
			return inserted, fmt.Errorf("insert products %d-%d: %w", start, end, err)
		}
	}
	return inserted, nil
}

func execBatch(ctx context.Context, db Querier, batch *pgx.Batch) (n int, err error) {
	br := db.SendBatch(ctx, batch)
	defer func() {
		if cerr := br.Close(); err == nil {
			err = cerr
		}
	}()

	for i := 0; i < batch.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			return n, err
		}
		n += int(tag.RowsAffected())
	}
	return n, nil
}
