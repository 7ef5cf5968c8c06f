package entity

// Supplier representa un proveedor. Name es único.
type Supplier struct {
	ID          string
	Name        string
	ContactInfo string
}
