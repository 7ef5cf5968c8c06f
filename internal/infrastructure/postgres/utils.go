package postgres

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// isForeignKeyViolation verifica si un error es una violación de foreign key (23503).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}

// isOutOfRange detecta desbordes numéricos (22003), p. ej. un INTEGER mayor a 2^31-1.
func isOutOfRange(err error) bool {
	return hasCode(err, "22003") // numeric_value_out_of_range
}

// isCheckViolation detecta violaciones de CHECK (23514).
func isCheckViolation(err error) bool {
	return hasCode(err, "23514") // check_violation
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// nullable convierte "" en NULL para columnas FK opcionales.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isUUID evita enviar a PostgreSQL IDs que fallarían con 22P02; un ID mal formado
// simplemente no existe.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
