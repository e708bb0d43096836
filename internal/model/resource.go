package model

// Category is one of the four top-level resource kinds served by the upstream.
type Category string

const (
	CategoryHospital Category = "hospitals"
	CategoryStaff    Category = "staffs"
	CategoryPatient  Category = "patients"
	CategoryNote     Category = "notes"
)

var categories = map[string]Category{
	string(CategoryHospital): CategoryHospital,
	string(CategoryStaff):    CategoryStaff,
	string(CategoryPatient):  CategoryPatient,
	string(CategoryNote):     CategoryNote,
}

// ParseCategory maps a path segment to its Category.
func ParseCategory(segment string) (Category, bool) {
	c, ok := categories[segment]
	return c, ok
}
