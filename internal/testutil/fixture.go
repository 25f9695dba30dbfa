// Package testutil holds fixtures and helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/calvinalkan/pagelister/internal/content"
	"github.com/calvinalkan/pagelister/internal/store"
)

// ShopYAML is a small seed document: a home page, two categories and a
// products container with three products, configured as a container with a
// page size of 2.
const ShopYAML = `
templates:
  - name: home
    label: Home
    fields:
      - {name: body, type: textarea}
  - name: data_container
    label: Data container
    children: [product]
  - name: category
    label: Category
  - name: product
    label: Product
    fields:
      - {name: title, type: title}
      - {name: price, type: float, label: Price}
      - {name: photo, type: image}
      - {name: sku, type: text, label: SKU}
      - {name: stock, type: integer, label: Stock}
      - {name: featured, type: checkbox}
      - {name: released, type: datetime, label: Released}
      - {name: category, type: page, label: Category}

settings:
  numConfigs: "1"
  config_0_template: data_container
  config_0_mode: auto
  config_0_numFields: "5"
  config_0_fieldSelectionMode: firstN
  pageSize: "2"

pages:
  - name: home
    title: Home
    template: home
    created: 2024-01-01T00:00:00Z
    children:
      - name: categories
        title: Categories
        template: home
        created: 2024-01-01T00:00:00Z
        children:
          - {name: shoes, title: Shoes, template: category, created: 2024-01-01T00:00:00Z}
          - {name: bags, title: Bags, template: category, created: 2024-01-01T00:00:00Z}
      - name: products
        title: Products
        template: data_container
        created: 2024-01-01T00:00:00Z
        children:
          - name: sandal
            title: Sandal
            template: product
            created: 2024-02-01T00:00:00Z
            values:
              price: 19.5
              sku: S-100
              stock: 3
              featured: false
              released: 2024-03-01
              category: /home/categories/shoes/
          - name: boot
            title: Boot
            template: product
            created: 2024-01-15T00:00:00Z
            values:
              price: 89
              sku: B-200
              stock: 12
              featured: true
              category: /home/categories/shoes/
          - name: tote
            title: Tote 50% off
            template: product
            status: unpublished
            created: 2024-03-10T00:00:00Z
            values:
              price: 35.25
              sku: T_300
              category: [/home/categories/bags/]
`

// OpenShop opens a store at path seeded with [ShopYAML]. The store is closed
// when the test ends.
func OpenShop(t *testing.T, path string) *store.Store {
	t.Helper()

	s, err := store.Open(t.Context(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	t.Cleanup(func() { _ = s.Close() })

	f, err := store.ParseFixture([]byte(ShopYAML))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	_, err = s.Seed(t.Context(), f)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	return s
}

// Child returns the direct child of parentID with the given name.
func Child(t *testing.T, s content.Store, parentID int64, name string) content.Record {
	t.Helper()

	children, err := s.Children(t.Context(), parentID, 0)
	if err != nil {
		t.Fatalf("children of %d: %v", parentID, err)
	}

	for _, c := range children {
		if c.Name == name {
			return c
		}
	}

	t.Fatalf("no child %q under %d", name, parentID)

	return content.Record{}
}

// Lookup walks names from the roots and returns the record at the end.
func Lookup(t *testing.T, s content.Store, names ...string) content.Record {
	t.Helper()

	var rec content.Record

	for _, name := range names {
		rec = Child(t, s, rec.ID, name)
	}

	return rec
}
