package enums

// ProductCategory represents the canonical catalog categories.
type ProductCategory string

const (
	ProductCategoryElectronics ProductCategory = "electronics"
	ProductCategoryPhones      ProductCategory = "phones"
	ProductCategoryComputers   ProductCategory = "computers"
	ProductCategoryAccessories ProductCategory = "accessories"
	ProductCategoryClothing    ProductCategory = "clothing"
	ProductCategoryHome        ProductCategory = "home"
	ProductCategoryBeauty      ProductCategory = "beauty"
	ProductCategorySports      ProductCategory = "sports"
	ProductCategoryOther       ProductCategory = "other"
)

var validProductCategories = []ProductCategory{
	ProductCategoryElectronics,
	ProductCategoryPhones,
	ProductCategoryComputers,
	ProductCategoryAccessories,
	ProductCategoryClothing,
	ProductCategoryHome,
	ProductCategoryBeauty,
	ProductCategorySports,
	ProductCategoryOther,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	return member(c, validProductCategories)
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	return parseMember("product category", value, validProductCategories)
}
