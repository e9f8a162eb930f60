// Package incidents holds the status transition service: it validates and
// applies estado changes on stored incidents and produces the confirmation
// message the UI displays verbatim.
package incidents

import (
	"context"
	"errors"
	"fmt"

	"tesoportamos/core/store"
	"tesoportamos/core/utils"
)

var (
	ErrNotFound      = errors.New("incidencia no encontrada")
	ErrInvalidStatus = errors.New("estado no válido")
)

type Service struct {
	clients   store.ClientsStore
	incidents store.IncidentsStore
	audits    store.AuditStore
	logger    *utils.Logger
}

func NewService(clients store.ClientsStore, incidents store.IncidentsStore, audits store.AuditStore, logger *utils.Logger) *Service {
	return &Service{clients: clients, incidents: incidents, audits: audits, logger: logger}
}

// UpdateEstado moves an incident to a new status. The state machine is
// deliberately permissive: any of the three statuses may move to any other,
// including a no-op to the same status, and there is no terminal state.
// prioridad_ia and every other field stay untouched.
func (s *Service) UpdateEstado(ctx context.Context, id int64, estado string) (string, error) {
	if !store.ValidEstado(estado) {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, estado)
	}
	inc, err := s.incidents.GetIncidencia(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load incidencia %d: %w", id, err)
	}
	if inc == nil {
		return "", ErrNotFound
	}
	cliente, err := s.clients.GetCliente(ctx, inc.IDCliente)
	if err != nil {
		return "", fmt.Errorf("load cliente %d: %w", inc.IDCliente, err)
	}
	if cliente == nil {
		return "", ErrNotFound
	}
	anterior := inc.Estado
	if err := s.incidents.UpdateEstado(ctx, id, estado); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("update estado: %w", err)
	}
	mensaje := fmt.Sprintf(
		"La incidencia %d correspondiente al cliente %s, cuyo email es %s y cuyo teléfono es %s, "+
			"con fecha %s y descripción '%s' ha pasado de %s a %s",
		inc.ID, cliente.Nombre, cliente.Email, cliente.Telefono, inc.Fecha, inc.Descripcion, anterior, estado)
	if s.audits != nil {
		if auditErr := s.audits.Log(ctx, "system", "incidencias.estado",
			fmt.Sprintf("id=%d de=%s a=%s", id, anterior, estado)); auditErr != nil && s.logger != nil {
			s.logger.Errorf("audit incidencias.estado: %v", auditErr)
		}
	}
	return mensaje, nil
}
