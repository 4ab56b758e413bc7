// Package memstore holds in-memory implementations of every pipeline store. It backs dry runs and
// the pipeline tests. Uniqueness is enforced with maps under a mutex.
package memstore

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Store groups one instance of each store.
type Store struct {
	Staging       *StagingStore
	Manufacturers *ManufacturerStore
	Vendors       *VendorStore
	BaseProducts  *BaseProductStore
	Catalog       *CatalogStore
	Runs          *RunStore
}

func New() *Store {
	return &Store{
		Staging:       NewStagingStore(),
		Manufacturers: NewManufacturerStore(),
		Vendors:       NewVendorStore(),
		BaseProducts:  NewBaseProductStore(),
		Catalog:       NewCatalogStore(),
		Runs:          NewRunStore(),
	}
}

// StagingStore keeps staging products in first-seen order.
type StagingStore struct {
	mu       sync.Mutex
	order    []models.StagingKey
	products map[models.StagingKey]*models.StagingProduct
}

func NewStagingStore() *StagingStore {
	return &StagingStore{products: map[models.StagingKey]*models.StagingProduct{}}
}

func (s *StagingStore) Truncate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.products = map[models.StagingKey]*models.StagingProduct{}
	return nil
}

func (s *StagingStore) AppendVariant(_ context.Context, row models.StagingRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.StagingKey{ProductID: row.ProductID, ManufacturerID: row.ManufacturerID}
	product, ok := s.products[key]
	if !ok {
		product = &models.StagingProduct{
			ProductID:        row.ProductID,
			ManufacturerID:   row.ManufacturerID,
			ManufacturerName: row.ManufacturerName,
		}
		s.products[key] = product
		s.order = append(s.order, key)
	}
	product.Variants = append(product.Variants, row.Variant)
	return nil
}

// Stream sends a snapshot of every staging product taken when it is called.
func (s *StagingStore) Stream(ctx context.Context) (<-chan models.StagingProduct, <-chan error) {
	s.mu.Lock()
	snapshot := make([]models.StagingProduct, 0, len(s.order))
	for _, key := range s.order {
		product := *s.products[key]
		product.Variants = append([]models.StagingVariant(nil), product.Variants...)
		snapshot = append(snapshot, product)
	}
	s.mu.Unlock()

	records := make(chan models.StagingProduct)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(records)
		for _, product := range snapshot {
			select {
			case records <- product:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()
	return records, errs
}

func (s *StagingStore) Get(key models.StagingKey) (models.StagingProduct, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[key]
	if !ok {
		return models.StagingProduct{}, false
	}
	return *product, true
}

func (s *StagingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

type supplierKey struct {
	id   string
	name string
}

type ManufacturerStore struct {
	mu      sync.Mutex
	records map[supplierKey]models.Manufacturer
}

func NewManufacturerStore() *ManufacturerStore {
	return &ManufacturerStore{records: map[supplierKey]models.Manufacturer{}}
}

func (s *ManufacturerStore) GetOrCreate(_ context.Context, supplierID, supplierName string) (*models.Manufacturer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := supplierKey{id: supplierID, name: supplierName}
	if existing, ok := s.records[key]; ok {
		return &existing, false, nil
	}
	record := models.Manufacturer{
		ID:                       uuid.NewString(),
		SupplierManufacturerID:   supplierID,
		SupplierManufacturerName: supplierName,
		CreatedAt:                time.Now().UTC(),
	}
	s.records[key] = record
	return &record, true, nil
}

func (s *ManufacturerStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type VendorStore struct {
	mu      sync.Mutex
	records map[supplierKey]models.Vendor
}

func NewVendorStore() *VendorStore {
	return &VendorStore{records: map[supplierKey]models.Vendor{}}
}

func (s *VendorStore) GetOrCreate(_ context.Context, supplierID, supplierName string) (*models.Vendor, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := supplierKey{id: supplierID, name: supplierName}
	if existing, ok := s.records[key]; ok {
		return &existing, false, nil
	}
	record := models.Vendor{
		ID:                 uuid.NewString(),
		SupplierVendorID:   supplierID,
		SupplierVendorName: supplierName,
		CreatedAt:          time.Now().UTC(),
	}
	s.records[key] = record
	return &record, true, nil
}

func (s *VendorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type baseProductKey struct {
	manufacturerID  string
	vendorID        string
	vendorProductID string
}

type BaseProductStore struct {
	mu      sync.Mutex
	records map[baseProductKey]models.BaseProduct
}

func NewBaseProductStore() *BaseProductStore {
	return &BaseProductStore{records: map[baseProductKey]models.BaseProduct{}}
}

func (s *BaseProductStore) GetOrCreate(_ context.Context, manufacturerID, vendorID, vendorProductID string) (*models.BaseProduct, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := baseProductKey{manufacturerID: manufacturerID, vendorID: vendorID, vendorProductID: vendorProductID}
	if existing, ok := s.records[key]; ok {
		return &existing, false, nil
	}
	record := models.BaseProduct{
		ID:                uuid.NewString(),
		ManufacturerID:    manufacturerID,
		VendorID:          vendorID,
		VendorProductID:   vendorProductID,
		InternalProductID: uuid.NewString(),
		CreatedAt:         time.Now().UTC(),
	}
	s.records[key] = record
	return &record, true, nil
}

func (s *BaseProductStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// CatalogWrites counts the catalog writes performed, for idempotence checks.
type CatalogWrites struct {
	ProductInserts int
	VariantAppends int
	VariantUpdates int
	// UpdatedFields lists the columns of every variant update, in call order.
	UpdatedFields [][]string
}

type CatalogStore struct {
	mu       sync.Mutex
	products map[string]*models.Product
	writes   CatalogWrites
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{products: map[string]*models.Product{}}
}

func (s *CatalogStore) GetOrCreate(_ context.Context, seed *models.Product) (*models.Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.products[seed.ID]; ok {
		return cloneProduct(existing), false, nil
	}
	stored := cloneProduct(seed)
	stored.Variants = []models.Variant{}
	s.products[seed.ID] = stored
	s.writes.ProductInserts++
	return cloneProduct(stored), true, nil
}

// AppendVariant adds variant at the next position. It reports false when the sku already exists.
func (s *CatalogStore) AppendVariant(_ context.Context, productID string, variant models.Variant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return false, httperror.NewHTTPErrorf(http.StatusNotFound, "product '%s' not found", productID)
	}
	if _, exists := product.FindVariant(variant.SKU); exists {
		return false, nil
	}
	variant.Position = len(product.Variants)
	variant.Images = append([]models.Image{}, variant.Images...)
	product.Variants = append(product.Variants, variant)
	product.UpdatedAt = time.Now().UTC()
	s.writes.VariantAppends++
	return true, nil
}

func (s *CatalogStore) UpdateVariant(_ context.Context, productID, sku string, patch models.VariantPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "product '%s' not found", productID)
	}
	variant, ok := product.FindVariant(sku)
	if !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "variant '%s' not found on product '%s'", sku, productID)
	}
	patch.Apply(variant)
	product.UpdatedAt = time.Now().UTC()
	s.writes.VariantUpdates++
	s.writes.UpdatedFields = append(s.writes.UpdatedFields, patch.Fields())
	return nil
}

func (s *CatalogStore) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "product '%s' not found", id)
	}
	return cloneProduct(product), nil
}

func (s *CatalogStore) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]models.Product, 0, len(s.products))
	for _, product := range s.products {
		products = append(products, *cloneProduct(product))
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

func (s *CatalogStore) Writes() CatalogWrites {
	s.mu.Lock()
	defer s.mu.Unlock()

	writes := s.writes
	writes.UpdatedFields = append([][]string(nil), s.writes.UpdatedFields...)
	return writes
}

// ResetWrites zeroes the write counters without touching stored products.
func (s *CatalogStore) ResetWrites() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = CatalogWrites{}
}

func cloneProduct(p *models.Product) *models.Product {
	clone := *p
	clone.Options = append([]models.Option{}, p.Options...)
	clone.Images = append([]models.Image{}, p.Images...)
	clone.Variants = make([]models.Variant, len(p.Variants))
	for i, v := range p.Variants {
		v.Images = append([]models.Image{}, v.Images...)
		clone.Variants[i] = v
	}
	return &clone
}

type RunStore struct {
	mu   sync.Mutex
	runs map[string]models.Run
}

func NewRunStore() *RunStore {
	return &RunStore{runs: map[string]models.Run{}}
}

func (s *RunStore) Create(_ context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

func (s *RunStore) Finish(_ context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "run '%s' not found", run.ID)
	}
	s.runs[run.ID] = *run
	return nil
}

func (s *RunStore) Get(_ context.Context, id string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "run '%s' not found", id)
	}
	return &run, nil
}

// List returns the most recent runs first.
func (s *RunStore) List(_ context.Context, limit int) ([]models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make([]models.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
