package sheets

import (
	"strings"

	"github.com/shopdesk/catalog-service/internal/extract"
	"github.com/shopdesk/catalog-service/internal/models"
)

// Header aliases accepted for product sheets, including the Chinese
// headers exported by supplier catalogs.
var (
	productName        = []string{"name", "Name", "NAME", "产品名称"}
	productDescription = []string{"description", "Description", "DESCRIPTION", "描述"}
	productPrice       = []string{"price", "Price", "PRICE", "价格"}
	productCategory    = []string{"category", "Category", "CATEGORY", "类别"}
	productSKU         = []string{"sku", "SKU", "Sku", "货号"}
	productImage       = []string{"imageUrl", "image_url", "ImageUrl", "Image URL", "图片链接"}
)

var (
	contactName       = []string{"name", "Name", "NAME"}
	contactEmail      = []string{"email", "Email", "EMAIL"}
	contactPhone      = []string{"phone", "Phone", "PHONE"}
	contactDepartment = []string{"department", "Department", "DEPARTMENT"}
	contactRole       = []string{"role", "Role", "ROLE"}
	contactNotes      = []string{"notes", "Notes", "NOTES"}
)

// Products maps rows to products. Rows without a name or with a missing,
// unparseable or non-positive price are dropped and counted in skipped.
func Products(rows []Row) (products []models.Product, skipped int) {
	for _, row := range rows {
		name := row.First(productName...)
		price, ok := parsePrice(row.First(productPrice...))
		if name == "" || !ok {
			skipped++
			continue
		}

		category := row.First(productCategory...)
		if category == "" {
			category = string(extract.CategoryUncategorized)
		}

		products = append(products, models.Product{
			Name:        name,
			Description: row.First(productDescription...),
			Price:       price,
			Category:    category,
			SKU:         row.First(productSKU...),
			ImageURL:    row.First(productImage...),
		})
	}
	return products, skipped
}

// Contacts maps rows to contacts. Rows without a name or email are dropped.
func Contacts(rows []Row) (contacts []models.Contact, skipped int) {
	for _, row := range rows {
		name := row.First(contactName...)
		email := row.First(contactEmail...)
		if name == "" || email == "" {
			skipped++
			continue
		}
		contacts = append(contacts, models.Contact{
			Name:       name,
			Email:      email,
			Phone:      row.First(contactPhone...),
			Department: row.First(contactDepartment...),
			Role:       row.First(contactRole...),
			Notes:      row.First(contactNotes...),
		})
	}
	return contacts, skipped
}

// parsePrice accepts "12.50", "1,234.00" and values with a leading or
// trailing currency symbol.
func parsePrice(raw string) (models.Money, bool) {
	s := strings.Trim(strings.TrimSpace(raw), "$€£¥￥ ")
	if s == "" {
		return models.Money{}, false
	}
	d, err := extract.ParseAmount(s)
	if err != nil || !d.IsPositive() {
		return models.Money{}, false
	}
	return models.NewMoney(d.Round(2)), true
}
