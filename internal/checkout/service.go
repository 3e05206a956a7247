package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/storelyhq/storely-backend/internal/cart"
	"github.com/storelyhq/storely-backend/internal/orders"
	"github.com/storelyhq/storely-backend/pkg/db/models"
	pkgerrors "github.com/storelyhq/storely-backend/pkg/errors"
	"github.com/storelyhq/storely-backend/pkg/logger"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
}

type checkoutCache interface {
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
	CartKey(userID uint) string
	CheckoutLockKey(userID uint) string
}

// Service converts the cached cart into durable cart, item, and order rows.
type Service interface {
	Checkout(ctx context.Context, userID uint) (*OrderDTO, error)
}

type service struct {
	tx       txRunner
	cache    checkoutCache
	catalog  productLoader
	cartRepo *cart.Repository
	orders   *orders.Repository
	logg     *logger.Logger
	lockTTL  time.Duration
}

const defaultCheckoutLockTTL = 30 * time.Second

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cache checkoutCache,
	catalog productLoader,
	cartRepo *cart.Repository,
	ordersRepo *orders.Repository,
	lockTTL time.Duration,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cache == nil {
		return nil, fmt.Errorf("checkout cache required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if lockTTL <= 0 {
		lockTTL = defaultCheckoutLockTTL
	}
	return &service{
		tx:       tx,
		cache:    cache,
		catalog:  catalog,
		cartRepo: cartRepo,
		orders:   ordersRepo,
		logg:     logg,
		lockTTL:  lockTTL,
	}, nil
}

// Checkout reads the cached cart and materializes it inside one transaction.
// The cache key is deleted only after the transaction commits, so a failed
// checkout leaves the cart intact and retryable.
func (s *service) Checkout(ctx context.Context, userID uint) (*OrderDTO, error) {
	lockKey := s.cache.CheckoutLockKey(userID)
	token, ok, err := s.cache.AcquireLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
	}
	defer func() {
		if err := s.cache.ReleaseLock(ctx, lockKey, token); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "user_id", userID), "failed to release checkout lock")
		}
	}()

	lines, err := s.readCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		record, err := cartRepo.Create(ctx, &models.Cart{UserID: userID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart record")
		}

		total := decimal.Zero
		items := make([]models.CartItem, 0, len(lines))
		for _, line := range lines {
			product, err := s.catalog.FindByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound,
						fmt.Sprintf("product %d is no longer available", line.ProductID))
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			items = append(items, models.CartItem{
				CartID:    record.ID,
				ProductID: product.ID,
				Quantity:  line.Quantity,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		if err := cartRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart items")
		}

		order, err = ordersRepo.Create(ctx, &models.Order{
			CartID:      record.ID,
			UserID:      userID,
			Status:      models.OrderStatusPending,
			TotalAmount: total,
			Reference:   newOrderReference(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Del(ctx, s.cache.CartKey(userID)); err != nil {
		// The order is committed; a stale cart key is recoverable while a
		// rolled-back order is not.
		s.logg.Error(s.logg.WithField(ctx, "user_id", userID), "failed to clear cart after checkout", err)
	}

	return toOrderDTO(order), nil
}

func (s *service) readCart(ctx context.Context, userID uint) ([]cart.Line, error) {
	raw, err := s.cache.Get(ctx, s.cache.CartKey(userID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart")
	}
	lines, err := cart.ParseLines(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse cart")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	return lines, nil
}

// newOrderReference builds a human-readable order reference. Uniqueness is
// enforced by the database constraint; the random suffix keeps same-second
// collisions unlikely.
func newOrderReference() string {
	return fmt.Sprintf("ORD-%d-%04d", time.Now().Unix(), rand.Intn(10000))
}
