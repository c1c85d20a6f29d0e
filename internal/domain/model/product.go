package model

type ProductStatus string

const (
	ProductStatusTest ProductStatus = "test"
	ProductStatusShop ProductStatus = "shop"
	ProductStatusBoth ProductStatus = "both"
)

// Product is a sellable bundle of servers. Subscriptions keep a reference to
// the product they were issued from.
type Product struct {
	ID              string // UUID
	Name            string
	Status          ProductStatus
	ServerIDs       []string
	PriceMultiplier float64
	Stock           int
}

func (p *Product) InStock() bool { return p.Stock > 0 }

func (p *Product) Sellable() bool {
	return p.Status == ProductStatusShop || p.Status == ProductStatusBoth
}

func (p *Product) TestEligible() bool {
	return p.Status == ProductStatusTest || p.Status == ProductStatusBoth
}
