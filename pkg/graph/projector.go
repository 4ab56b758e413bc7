package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Writer runs a managed write transaction.
type Writer interface {
	ExecuteWrite(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error)
}

// projectProductCypher upserts a product, its manufacturer and vendor, and every variant. Nodes are
// keyed by their canonical ids so replays converge.
const projectProductCypher = `
	MERGE (m:Manufacturer {id: $manufacturer_id})
	SET m.supplier_manufacturer_id = $supplier_manufacturer_id, m.name = $manufacturer_name
	MERGE (v:Vendor {id: $vendor_id})
	MERGE (p:Product {id: $id})
	SET p += $props
	MERGE (p)-[:MADE_BY]->(m)
	MERGE (p)-[:SOLD_BY]->(v)
	WITH p
	UNWIND $variants AS variant
	MERGE (x:Variant {product_id: p.id, sku: variant.sku})
	SET x += variant
	MERGE (p)-[:HAS_VARIANT]->(x)
`

// CatalogProjector copies merged products into the graph.
type CatalogProjector struct {
	writer Writer
	logger ectologger.Logger
}

func NewCatalogProjector(writer Writer, logger ectologger.Logger) *CatalogProjector {
	return &CatalogProjector{
		writer: writer,
		logger: logger,
	}
}

func (p *CatalogProjector) ProjectProduct(ctx context.Context, staging models.StagingProduct, product *models.Product) error {
	ctx, span := tracing.StartSpan(ctx, "graph.CatalogProjector.ProjectProduct")
	defer span.End()

	params := ProductParams(staging, product)

	_, err := p.writer.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, projectProductCypher, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("internal_product_id", product.ID).Error("Failed to project product to graph")
		return fmt.Errorf("failed to project product %s to graph: %w", product.ID, err)
	}

	p.logger.WithContext(ctx).WithField("internal_product_id", product.ID).Debug("Projected product to graph")
	return nil
}

// ProductParams builds the Bolt parameters for one product. Missing optional values are sent as
// nil, which clears the property on the node.
func ProductParams(staging models.StagingProduct, product *models.Product) map[string]any {
	return map[string]any{
		"id":                       product.ID,
		"manufacturer_id":          product.ManufacturerID,
		"supplier_manufacturer_id": staging.ManufacturerID,
		"manufacturer_name":        staging.ManufacturerName,
		"vendor_id":                product.VendorID,
		"props": map[string]any{
			"name":           derefString(product.Name),
			"vendor_product": staging.ProductID,
			"type":           product.Type,
			"data_source":    product.DataSource,
			"updated_at":     product.UpdatedAt.UTC().Format(time.RFC3339),
			"variant_count":  int64(len(product.Variants)),
		},
		"variants": ectolinq.Map(product.Variants, func(v models.Variant) any {
			return map[string]any{
				"sku":         v.SKU,
				"id":          v.ID,
				"position":    int64(v.Position),
				"cost":        derefFloat(v.Cost),
				"price":       derefFloat(v.Price),
				"currency":    v.Currency,
				"option_name": v.OptionName,
				"available":   v.Available,
			}
		}),
	}
}

func derefString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
