package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/AlanMedina53232/RawConnect/internal/cache"
	"github.com/AlanMedina53232/RawConnect/internal/domain"
	"github.com/AlanMedina53232/RawConnect/internal/repository"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrStockExceeded   = errors.New("quantity exceeds available stock")
)

type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, products repository.ProductRepository, cartCache cache.CartCache) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		cache:    cartCache,
	}
}

// LoadCart returns the buyer's cart lines, empty when none exist. Reads go
// through the cache; concurrent misses for the same buyer are collapsed
// into one store query.
func (s *CartService) LoadCart(ctx context.Context, userEmail string) ([]domain.CartLine, error) {
	v, err, _ := s.sfg.Do(userEmail, func() (interface{}, error) {

		lines, err := s.cache.Get(ctx, userEmail)
		if err == nil {
			return lines, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		lines, errGet := s.repo.LinesByUser(ctx, userEmail)
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), userEmail, lines)
			if errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return lines, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]domain.CartLine), nil
}

// AddLine snapshots the product's current price, stock and vendor into a
// new cart line. Adding a product already in the cart merges quantities,
// capped by the stock snapshot.
func (s *CartService) AddLine(ctx context.Context, userEmail, productID string, quantity int) (string, error) {
	if quantity < 1 {
		return "", ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return "", err
	}
	if quantity > product.Quantity {
		return "", ErrStockExceeded
	}

	lines, err := s.repo.LinesByUser(ctx, userEmail)
	if err != nil {
		return "", fmt.Errorf("failed to load existing lines: %w", err)
	}

	for _, existing := range lines {
		if existing.ProductID != productID {
			continue
		}
		merged := existing.Quantity + quantity
		if merged > product.Quantity {
			return "", ErrStockExceeded
		}
		if err := s.repo.UpdateLineQuantity(ctx, existing.ID, merged); err != nil {
			return "", err
		}
		s.invalidateCache(userEmail)
		return existing.ID, nil
	}

	line := &domain.CartLine{
		UserEmail:    userEmail,
		ProductID:    product.ID,
		ProductName:  product.Name,
		Price:        product.Price,
		Quantity:     quantity,
		UnitMeasure:  product.UnitMeasure,
		ImageURL:     product.ImageURL,
		VendorEmail:  product.VendorEmail,
		ProductStock: product.Quantity,
		AddedAt:      time.Now(),
	}

	id, err := s.repo.InsertLine(ctx, line)
	if err != nil {
		log.Printf("repo insert line error: %v", err)
		return "", err
	}

	s.invalidateCache(userEmail)
	return id, nil
}

// SetQuantity updates a line in place. Quantities below 1 or above the
// line's stock snapshot are rejected without touching the store.
func (s *CartService) SetQuantity(ctx context.Context, userEmail, lineID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	line, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return err
	}
	if line.UserEmail != userEmail {
		return repository.ErrLineNotFound
	}
	if quantity > line.ProductStock {
		return ErrStockExceeded
	}

	if err := s.repo.UpdateLineQuantity(ctx, lineID, quantity); err != nil {
		log.Printf("repo update line quantity error: %v", err)
		return err
	}

	s.invalidateCache(userEmail)
	return nil
}

// RemoveLine deletes a line unconditionally. Removing a line that no
// longer exists succeeds.
func (s *CartService) RemoveLine(ctx context.Context, userEmail, lineID string) error {
	line, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		if errors.Is(err, repository.ErrLineNotFound) {
			return nil
		}
		return err
	}
	if line.UserEmail != userEmail {
		return repository.ErrLineNotFound
	}

	if err := s.repo.DeleteLine(ctx, lineID); err != nil {
		log.Printf("repo delete line error: %v", err)
		return err
	}

	s.invalidateCache(userEmail)
	return nil
}

// Clear removes every line in the buyer's cart.
func (s *CartService) Clear(ctx context.Context, userEmail string) error {
	if err := s.repo.DeleteLinesByUser(ctx, userEmail); err != nil {
		log.Printf("repo clear cart error: %v", err)
		return err
	}

	s.invalidateCache(userEmail)
	return nil
}

func (s *CartService) invalidateCache(userEmail string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userEmail); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
