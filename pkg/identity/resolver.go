// Package identity resolves supplier keys to canonical manufacturer, vendor and product ids.
package identity

import (
	"context"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	StepManufacturer = "manufacturer"
	StepVendor       = "vendor"
	StepBaseProduct  = "base_product"

	cachePrefix = "clover:identity"
)

type ManufacturerStore interface {
	GetOrCreate(ctx context.Context, supplierID, supplierName string) (*models.Manufacturer, bool, error)
}

type VendorStore interface {
	GetOrCreate(ctx context.Context, supplierID, supplierName string) (*models.Vendor, bool, error)
}

type BaseProductStore interface {
	GetOrCreate(ctx context.Context, manufacturerID, vendorID, vendorProductID string) (*models.BaseProduct, bool, error)
}

// Cache is a string key/value store. Identities never change once created, so cached ids stay valid.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Result is a resolution plus which of its identities were created by this call.
type Result struct {
	models.Resolution
	ManufacturerCreated bool
	VendorCreated       bool
	BaseProductCreated  bool
}

type Resolver struct {
	manufacturers ManufacturerStore
	vendors       VendorStore
	baseProducts  BaseProductStore
	cache         Cache
	cacheTTL      time.Duration
	logger        ectologger.Logger
}

func NewResolver(manufacturers ManufacturerStore, vendors VendorStore, baseProducts BaseProductStore, logger ectologger.Logger) *Resolver {
	return &Resolver{
		manufacturers: manufacturers,
		vendors:       vendors,
		baseProducts:  baseProducts,
		logger:        logger,
	}
}

// WithCache puts a read-through cache in front of every store.
func (r *Resolver) WithCache(cache Cache, ttl time.Duration) *Resolver {
	r.cache = cache
	r.cacheTTL = ttl
	return r
}

// Resolve gets or creates the manufacturer, the vendor and then the base product for one staging
// product. The base product is not attempted unless both supplier identities resolved.
func (r *Resolver) Resolve(ctx context.Context, manufacturerID, manufacturerName, productID string) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "identity.Resolver.Resolve")
	defer span.End()

	result := &Result{}

	mID, created, err := r.resolveManufacturer(ctx, manufacturerID, manufacturerName)
	if err != nil {
		return nil, err
	}
	result.ManufacturerID = mID
	result.ManufacturerCreated = created

	vID, created, err := r.resolveVendor(ctx, manufacturerID, manufacturerName)
	if err != nil {
		return nil, err
	}
	result.VendorID = vID
	result.VendorCreated = created

	internalID, created, err := r.resolveBaseProduct(ctx, mID, vID, productID, manufacturerID, manufacturerName)
	if err != nil {
		return nil, err
	}
	result.InternalProductID = internalID
	result.BaseProductCreated = created

	return result, nil
}

func (r *Resolver) resolveManufacturer(ctx context.Context, supplierID, supplierName string) (string, bool, error) {
	key := cacheKey(StepManufacturer, supplierID, supplierName)
	if id, ok := r.cached(ctx, key); ok {
		return id, false, nil
	}

	manufacturer, created, err := r.manufacturers.GetOrCreate(ctx, supplierID, supplierName)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"manufacturer_id":   supplierID,
			"manufacturer_name": supplierName,
		}).Error("Failed to resolve manufacturer")
		return "", false, errors.NewIdentityResolutionError("failed to resolve manufacturer").
			AddStep(StepManufacturer).AddManufacturer(supplierID, supplierName).Wrap(err)
	}
	if manufacturer == nil || manufacturer.ID == "" {
		return "", false, errors.NewIdentityResolutionErrorf("no manufacturer id for supplier manufacturer '%s' (%s)", supplierID, supplierName).
			AddStep(StepManufacturer).AddManufacturer(supplierID, supplierName)
	}

	r.remember(ctx, key, manufacturer.ID)
	return manufacturer.ID, created, nil
}

func (r *Resolver) resolveVendor(ctx context.Context, supplierID, supplierName string) (string, bool, error) {
	key := cacheKey(StepVendor, supplierID, supplierName)
	if id, ok := r.cached(ctx, key); ok {
		return id, false, nil
	}

	vendor, created, err := r.vendors.GetOrCreate(ctx, supplierID, supplierName)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"vendor_id":   supplierID,
			"vendor_name": supplierName,
		}).Error("Failed to resolve vendor")
		return "", false, errors.NewIdentityResolutionError("failed to resolve vendor").
			AddStep(StepVendor).AddManufacturer(supplierID, supplierName).Wrap(err)
	}
	if vendor == nil || vendor.ID == "" {
		return "", false, errors.NewIdentityResolutionErrorf("no vendor id for supplier vendor '%s' (%s)", supplierID, supplierName).
			AddStep(StepVendor).AddManufacturer(supplierID, supplierName)
	}

	r.remember(ctx, key, vendor.ID)
	return vendor.ID, created, nil
}

func (r *Resolver) resolveBaseProduct(ctx context.Context, manufacturerID, vendorID, productID, supplierID, supplierName string) (string, bool, error) {
	key := cacheKey(StepBaseProduct, manufacturerID, vendorID, productID)
	if id, ok := r.cached(ctx, key); ok {
		return id, false, nil
	}

	baseProduct, created, err := r.baseProducts.GetOrCreate(ctx, manufacturerID, vendorID, productID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"product_id":      productID,
			"manufacturer_id": supplierID,
		}).Error("Failed to resolve base product")
		return "", false, errors.NewIdentityResolutionErrorf("failed to resolve base product '%s' for manufacturer '%s'", productID, supplierID).
			AddStep(StepBaseProduct).AddManufacturer(supplierID, supplierName).AddProduct(productID).Wrap(err)
	}
	if baseProduct == nil || baseProduct.InternalProductID == "" {
		return "", false, errors.NewIdentityResolutionErrorf("no internal product id for product '%s' of manufacturer '%s'", productID, supplierID).
			AddStep(StepBaseProduct).AddManufacturer(supplierID, supplierName).AddProduct(productID)
	}

	r.remember(ctx, key, baseProduct.InternalProductID)
	return baseProduct.InternalProductID, created, nil
}

// cached looks key up in the cache. Cache failures are logged and treated as misses.
func (r *Resolver) cached(ctx context.Context, key string) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	id, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("key", key).Warn("Identity cache lookup failed")
		return "", false
	}
	return id, ok && id != ""
}

func (r *Resolver) remember(ctx context.Context, key, id string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, id, r.cacheTTL); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("key", key).Warn("Failed to cache identity")
	}
}

func cacheKey(step string, parts ...string) string {
	key := cachePrefix + ":" + step
	for _, part := range parts {
		key += ":" + strconv.Quote(part)
	}
	return key
}
