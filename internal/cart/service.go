package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/storelyhq/storely-backend/pkg/db/models"
	pkgerrors "github.com/storelyhq/storely-backend/pkg/errors"
	"github.com/storelyhq/storely-backend/pkg/logger"
	"gorm.io/gorm"
)

type cartCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
	CartKey(userID uint) string
	CartLockKey(userID uint) string
}

type productLoader interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	FindByUUID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service manages the in-progress cart kept in the cache.
type Service interface {
	AddLine(ctx context.Context, userID uint, productID uuid.UUID, quantity int) (*AddedLine, error)
	RemoveLine(ctx context.Context, userID uint, productID uuid.UUID) error
	GetCart(ctx context.Context, userID uint) (*CartView, error)
}

type service struct {
	cache   cartCache
	catalog productLoader
	logg    *logger.Logger

	lockTTL      time.Duration
	lockAttempts int
	lockBackoff  time.Duration
}

const (
	defaultLockTTL      = 5 * time.Second
	defaultLockAttempts = 5
	defaultLockBackoff  = 50 * time.Millisecond
)

// NewService constructs the cart service.
func NewService(cache cartCache, catalog productLoader, lockTTL time.Duration, logg *logger.Logger) (Service, error) {
	if cache == nil {
		return nil, fmt.Errorf("cart cache required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &service{
		cache:        cache,
		catalog:      catalog,
		logg:         logg,
		lockTTL:      lockTTL,
		lockAttempts: defaultLockAttempts,
		lockBackoff:  defaultLockBackoff,
	}, nil
}

// AddLine increments the cached quantity for the product, creating the line
// when absent. The returned quantity is the amount just added, not the
// cumulative cart quantity.
func (s *service) AddLine(ctx context.Context, userID uint, productID uuid.UUID, quantity int) (*AddedLine, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	product, err := s.resolveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	token, err := s.acquireMutationLock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer s.releaseMutationLock(ctx, userID, token)

	lines, err := s.loadLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := lineKey(product.ID)
	line := lines[key]
	line.ProductID = product.ID
	line.Quantity += quantity
	lines[key] = line

	if err := s.storeLines(ctx, userID, lines); err != nil {
		return nil, err
	}

	return &AddedLine{
		ProductID:   product.UUID,
		ProductName: product.Name,
		Quantity:    quantity,
	}, nil
}

// RemoveLine drops the product from the cached cart. Removing a product that
// is not in the cart is a no-op. Removing the last line deletes the cache key
// so an empty cart is always represented by key absence.
func (s *service) RemoveLine(ctx context.Context, userID uint, productID uuid.UUID) error {
	product, err := s.resolveProduct(ctx, productID)
	if err != nil {
		return err
	}

	token, err := s.acquireMutationLock(ctx, userID)
	if err != nil {
		return err
	}
	defer s.releaseMutationLock(ctx, userID, token)

	raw, err := s.cache.Get(ctx, s.cache.CartKey(userID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart")
	}

	lines, err := decodeLines(raw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse cart")
	}

	key := lineKey(product.ID)
	if _, ok := lines[key]; !ok {
		return nil
	}
	delete(lines, key)

	if len(lines) == 0 {
		if err := s.cache.Del(ctx, s.cache.CartKey(userID)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
		}
		return nil
	}
	return s.storeLines(ctx, userID, lines)
}

// GetCart returns the cached cart enriched with current catalog data and a
// total computed at current prices.
func (s *service) GetCart(ctx context.Context, userID uint) (*CartView, error) {
	raw, err := s.cache.Get(ctx, s.cache.CartKey(userID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart")
	}

	lines, err := decodeLines(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse cart")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	view := newCartView()
	for _, line := range sortedLines(lines) {
		product, err := s.catalog.FindByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("product %d is no longer available", line.ProductID))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		view.addLine(product, line.Quantity)
	}
	return view, nil
}

func (s *service) resolveProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.catalog.FindByUUID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Enabled {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

// acquireMutationLock serializes read-modify-write cycles per user. Without
// it two concurrent adds can both read the same snapshot and the later write
// erases the earlier one.
func (s *service) acquireMutationLock(ctx context.Context, userID uint) (string, error) {
	lockKey := s.cache.CartLockKey(userID)
	for attempt := 0; attempt < s.lockAttempts; attempt++ {
		token, ok, err := s.cache.AcquireLock(ctx, lockKey, s.lockTTL)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cart lock")
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "acquire cart lock")
		case <-time.After(s.lockBackoff):
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "cart is being updated, retry shortly")
}

func (s *service) releaseMutationLock(ctx context.Context, userID uint, token string) {
	if err := s.cache.ReleaseLock(ctx, s.cache.CartLockKey(userID), token); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "user_id", userID), "failed to release cart lock")
	}
}

func (s *service) loadLines(ctx context.Context, userID uint) (map[string]Line, error) {
	raw, err := s.cache.Get(ctx, s.cache.CartKey(userID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return map[string]Line{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart")
	}
	lines, err := decodeLines(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse cart")
	}
	return lines, nil
}

// storeLines persists the whole mapping without a TTL; carts live until
// checkout or explicit removal.
func (s *service) storeLines(ctx context.Context, userID uint, lines map[string]Line) error {
	payload, err := encodeLines(lines)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serialize cart")
	}
	if err := s.cache.Set(ctx, s.cache.CartKey(userID), payload, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write cart")
	}
	return nil
}
