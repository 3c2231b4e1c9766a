// Package ports declares the external collaborators the registration
// orchestrator consumes. The product catalog lives outside this system;
// only its read contract is defined here.
package ports

import "context"

//go:generate mockgen -source=catalog.go -destination=mocks/catalog_mock.go -package=mocks

// ProductInfo is the metadata slice needed to assemble a registry
// submission for one product.
type ProductInfo struct {
	Name        string
	Brand       string
	ImageURL    string
	CategoryRef string
	// Weight in kilograms as the catalog reports it, nil when unknown.
	WeightKG *float64
}

// Catalog supplies product metadata by reference, read-only.
type Catalog interface {
	Product(ctx context.Context, productRef string) (*ProductInfo, error)
}
