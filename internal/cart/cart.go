package cart

import (
	_ "embed"
	"fmt"
	"math"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Product is one item of the demo shop.
type Product struct {
	ID    int     `yaml:"id"`
	Name  string  `yaml:"name"`
	Price float64 `yaml:"price"`
	Image string  `yaml:"image"`
}

// Cents returns the price in integer cents.
func (p Product) Cents() int64 {
	return int64(math.Round(p.Price * 100))
}

// Catalog is the fixed product list of the demo shop.
type Catalog struct {
	products []Product
	byID     map[int]Product
}

// DefaultCatalog parses the embedded product list.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses a YAML document with a top-level "products" list.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Products []Product `yaml:"products"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{byID: make(map[int]Product, len(doc.Products))}
	for _, p := range doc.Products {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate product id %d", p.ID)
		}
		c.byID[p.ID] = p
		c.products = append(c.products, p)
	}
	return c, nil
}

// Products returns the products in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Lookup finds a product by id.
func (c *Catalog) Lookup(id int) (Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Cart is an ordered list of products. It lives as long as the browser
// session that owns it and is never persisted.
type Cart struct {
	mu    sync.Mutex
	items []Product
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add appends a product.
func (c *Cart) Add(p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, p)
}

// Remove deletes the item at index. An index outside the cart leaves it
// unchanged and reports false.
func (c *Cart) Remove(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.items) {
		return false
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	return true
}

// Clear empties the cart and returns how many items it held.
func (c *Cart) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.items)
	c.items = nil
	return n
}

// Items returns a copy of the cart contents.
func (c *Cart) Items() []Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Product, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// TotalCents is the sum of item prices in cents.
func (c *Cart) TotalCents() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, p := range c.items {
		total += p.Cents()
	}
	return total
}

// FormatCents renders an amount as "$1234.56".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
