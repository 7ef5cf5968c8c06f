// Package textkey normaliza nombres de catálogo para compararlos sin distinguir
// mayúsculas, acentos compuestos ni espacios repetidos.
package textkey

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Clean recorta, colapsa espacios internos y lleva el texto a NFC.
func Clean(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// Key devuelve la clave de unicidad de un nombre: Clean + case folding Unicode.
// "Café  Molido" y "CAFÉ molido" producen la misma clave.
func Key(s string) string {
	return cases.Fold().String(Clean(s))
}

// Equal compara dos nombres por su clave.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}
