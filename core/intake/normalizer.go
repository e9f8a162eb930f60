package intake

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tesoportamos/core/store"
)

// FechaLayout is the calendar-date wire format (DD-MM-YYYY).
const FechaLayout = "02-01-2006"

type RejectReason string

const (
	ReasonMissingField  RejectReason = "missing_field"
	ReasonInvalidType   RejectReason = "invalid_type"
	ReasonMalformedDate RejectReason = "malformed_date"
)

// RowError is a row-level rejection: it carries the 1-based data row number
// and a display message, and never aborts the batch.
type RowError struct {
	Line   int
	Reason RejectReason
	Detail string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("línea %d: %s", e.Line, e.Detail)
}

type ClienteRecord struct {
	Nombre   string
	Email    string
	Telefono string
}

type IncidenciaRecord struct {
	IDCliente   int64
	Fecha       string
	Descripcion string
	Estado      string
}

// HeaderIndex maps lowercased, trimmed column names to positions. CSV files
// carry a header row; field lookup is by name, not position.
func HeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		clean := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		if clean != "" {
			idx[clean] = i
		}
	}
	return idx
}

func fieldValue(idx map[string]int, row []string, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

// NormalizeCliente cleans one client row. Every required field must be
// non-empty after trimming; nothing is defaulted.
func NormalizeCliente(idx map[string]int, row []string, line int) (*ClienteRecord, *RowError) {
	rec := &ClienteRecord{
		Nombre:   fieldValue(idx, row, "nombre"),
		Email:    fieldValue(idx, row, "email"),
		Telefono: fieldValue(idx, row, "telefono"),
	}
	for _, req := range []struct{ name, val string }{
		{"nombre", rec.Nombre},
		{"email", rec.Email},
		{"telefono", rec.Telefono},
	} {
		if req.val == "" {
			return nil, &RowError{Line: line, Reason: ReasonMissingField,
				Detail: fmt.Sprintf("campo '%s' vacío o ausente", req.name)}
		}
	}
	return rec, nil
}

// NormalizeIncidencia cleans one incident row. estado defaults to ABIERTA
// and an absent fecha defaults to the ingestion date; everything else is
// required as given.
func NormalizeIncidencia(idx map[string]int, row []string, line int, now time.Time) (*IncidenciaRecord, *RowError) {
	rawID := fieldValue(idx, row, "id_cliente")
	if rawID == "" {
		return nil, &RowError{Line: line, Reason: ReasonMissingField, Detail: "campo 'id_cliente' vacío o ausente"}
	}
	idCliente, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || idCliente <= 0 {
		return nil, &RowError{Line: line, Reason: ReasonInvalidType,
			Detail: fmt.Sprintf("id_cliente '%s' no es un entero válido", rawID)}
	}

	descripcion := fieldValue(idx, row, "descripcion")
	if descripcion == "" {
		return nil, &RowError{Line: line, Reason: ReasonMissingField, Detail: "campo 'descripcion' vacío o ausente"}
	}

	fecha := fieldValue(idx, row, "fecha")
	if fecha == "" {
		fecha = now.Format(FechaLayout)
	} else if !ValidFecha(fecha) {
		return nil, &RowError{Line: line, Reason: ReasonMalformedDate,
			Detail: fmt.Sprintf("fecha '%s' no tiene formato DD-MM-YYYY", fecha)}
	}

	estado := strings.ToUpper(fieldValue(idx, row, "estado"))
	if estado == "" {
		estado = store.EstadoAbierta
	} else if !store.ValidEstado(estado) {
		return nil, &RowError{Line: line, Reason: ReasonInvalidType,
			Detail: fmt.Sprintf("estado '%s' no reconocido", estado)}
	}

	return &IncidenciaRecord{
		IDCliente:   idCliente,
		Fecha:       fecha,
		Descripcion: descripcion,
		Estado:      estado,
	}, nil
}

// ValidFecha checks the strict DD-MM-YYYY form, zero padding included.
func ValidFecha(fecha string) bool {
	if len(fecha) != 10 {
		return false
	}
	t, err := time.Parse(FechaLayout, fecha)
	return err == nil && t.Format(FechaLayout) == fecha
}
