package store

import (
	"context"
	"time"
)

// Timeout decorators: every store access is the pipeline's only suspension
// point, so each call gets its own deadline and surfaces as a
// store-unavailable failure instead of hanging the request.

type timeoutClients struct {
	inner ClientsStore
	d     time.Duration
}

func ClientsWithTimeout(inner ClientsStore, d time.Duration) ClientsStore {
	if d <= 0 {
		return inner
	}
	return &timeoutClients{inner: inner, d: d}
}

func (s *timeoutClients) CreateCliente(ctx context.Context, c *Cliente) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return s.inner.CreateCliente(ctx, c)
}

func (s *timeoutClients) GetCliente(ctx context.Context, id int64) (*Cliente, error) {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return s.inner.GetCliente(ctx, id)
}

func (s *timeoutClients) GetClienteByEmail(ctx context.Context, email string) (*Cliente, error) {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return s.inner.GetClienteByEmail(ctx, email)
}

func (s *timeoutClients) ListClientesSorted(ctx context.Context) ([]Cliente, error) {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return s.inner.ListClientesSorted(ctx)
}

func (s *timeoutClients) CountClientes(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return s.inner.CountClientes(ctx)
}

type timeoutIncidents struct {
	inner IncidentsStore
	d     time.Duration
}

func IncidentsWithTimeout(inner IncidentsStore, d time.Duration) IncidentsStore {
	if d <= 0 {
		return inner
	}
	return &timeoutIncidents{inner: inner, d: d}
}

func (s *timeoutIncidents) CreateIncidencia(ctx context.Context, inc *Incidencia) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return s.inner.CreateIncidencia(ctx, inc)
}

func (s *timeoutIncidents) GetIncidencia(ctx context.Context, id int64) (*Incidencia, error) {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return s.inner.GetIncidencia(ctx, id)
}

func (s *timeoutIncidents) FindIncidenciaByNaturalKey(ctx context.Context, idCliente int64, fecha, descripcion string) (*Incidencia, error) {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return s.inner.FindIncidenciaByNaturalKey(ctx, idCliente, fecha, descripcion)
}

func (s *timeoutIncidents) ListIncidenciasByCliente(ctx context.Context, idCliente int64) ([]Incidencia, error) {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return s.inner.ListIncidenciasByCliente(ctx, idCliente)
}

func (s *timeoutIncidents) UpdateEstado(ctx context.Context, id int64, estado string) error {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return s.inner.UpdateEstado(ctx, id, estado)
}

func (s *timeoutIncidents) Estadisticas(ctx context.Context) (*EstadisticasSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return s.inner.Estadisticas(ctx)
}
