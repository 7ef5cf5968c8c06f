package entity

// Category representa una categoría de productos. Name es único.
type Category struct {
	ID          string
	Name        string
	Description string
}
