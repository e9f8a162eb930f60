package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const (
	EstadoAbierta   = "ABIERTA"
	EstadoEnProceso = "EN PROCESO"
	EstadoCerrada   = "CERRADA"
)

// ValidEstado reports whether estado is one of the three recognized values.
func ValidEstado(estado string) bool {
	switch estado {
	case EstadoAbierta, EstadoEnProceso, EstadoCerrada:
		return true
	}
	return false
}

type Incidencia struct {
	ID            int64     `json:"id"`
	IDCliente     int64     `json:"id_cliente"`
	Fecha         string    `json:"fecha"`
	Descripcion   string    `json:"descripcion"`
	Estado        string    `json:"estado"`
	PrioridadIA   string    `json:"prioridad_ia"`
	PuntuacionIA  float64   `json:"puntuacion_ia"`
	FechaCreacion time.Time `json:"fecha_creacion,omitempty"`
}

// EstadisticasSnapshot is the dashboard aggregate over the incident table:
// the total plus counts broken down by priority and by status.
type EstadisticasSnapshot struct {
	TotalIncidencias int64
	PorPrioridad     map[string]int64
	PorEstado        map[string]int64
}

type IncidentsStore interface {
	CreateIncidencia(ctx context.Context, inc *Incidencia) (int64, error)
	GetIncidencia(ctx context.Context, id int64) (*Incidencia, error)
	FindIncidenciaByNaturalKey(ctx context.Context, idCliente int64, fecha, descripcion string) (*Incidencia, error)
	ListIncidenciasByCliente(ctx context.Context, idCliente int64) ([]Incidencia, error)
	UpdateEstado(ctx context.Context, id int64, estado string) error
	Estadisticas(ctx context.Context) (*EstadisticasSnapshot, error)
}

type incidentsStore struct {
	db *sql.DB
}

func NewIncidentsStore(db *sql.DB) IncidentsStore {
	return &incidentsStore{db: db}
}

// CreateIncidencia inserts one incident. The (id_cliente, fecha, descripcion)
// unique index turns cross-batch races into ErrDuplicate here, which the
// ingestion pipeline records as a skip.
func (s *incidentsStore) CreateIncidencia(ctx context.Context, inc *Incidencia) (int64, error) {
	if strings.TrimSpace(inc.Estado) == "" {
		inc.Estado = EstadoAbierta
	}
	if strings.TrimSpace(inc.PrioridadIA) == "" {
		inc.PrioridadIA = "NORMAL"
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, rebind(`
		INSERT INTO incidencia(id_cliente, fecha, descripcion, estado, prioridad_ia, puntuacion_ia, fecha_creacion)
		VALUES(?,?,?,?,?,?,?)`),
		inc.IDCliente, inc.Fecha, inc.Descripcion, inc.Estado, inc.PrioridadIA, inc.PuntuacionIA, now)
	if err != nil {
		if IsUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		existing, lookupErr := s.FindIncidenciaByNaturalKey(ctx, inc.IDCliente, inc.Fecha, inc.Descripcion)
		if lookupErr != nil || existing == nil {
			return 0, err
		}
		id = existing.ID
	}
	inc.ID = id
	inc.FechaCreacion = now
	return id, nil
}

func (s *incidentsStore) GetIncidencia(ctx context.Context, id int64) (*Incidencia, error) {
	row := s.db.QueryRowContext(ctx, rebind(`
		SELECT id, id_cliente, fecha, descripcion, estado, prioridad_ia, puntuacion_ia, fecha_creacion
		FROM incidencia WHERE id=?`), id)
	return scanIncidencia(row)
}

func (s *incidentsStore) FindIncidenciaByNaturalKey(ctx context.Context, idCliente int64, fecha, descripcion string) (*Incidencia, error) {
	row := s.db.QueryRowContext(ctx, rebind(`
		SELECT id, id_cliente, fecha, descripcion, estado, prioridad_ia, puntuacion_ia, fecha_creacion
		FROM incidencia WHERE id_cliente=? AND fecha=? AND descripcion=?`),
		idCliente, fecha, descripcion)
	return scanIncidencia(row)
}

func (s *incidentsStore) ListIncidenciasByCliente(ctx context.Context, idCliente int64) ([]Incidencia, error) {
	rows, err := s.db.QueryContext(ctx, rebind(`
		SELECT id, id_cliente, fecha, descripcion, estado, prioridad_ia, puntuacion_ia, fecha_creacion
		FROM incidencia WHERE id_cliente=? ORDER BY fecha_creacion DESC, id DESC`), idCliente)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Incidencia
	for rows.Next() {
		var inc Incidencia
		if err := rows.Scan(&inc.ID, &inc.IDCliente, &inc.Fecha, &inc.Descripcion, &inc.Estado, &inc.PrioridadIA, &inc.PuntuacionIA, &inc.FechaCreacion); err != nil {
			return nil, err
		}
		res = append(res, inc)
	}
	return res, rows.Err()
}

// UpdateEstado changes only the status column. Priority and score are set
// once at creation and never touched here.
func (s *incidentsStore) UpdateEstado(ctx context.Context, id int64, estado string) error {
	res, err := s.db.ExecContext(ctx, rebind(`UPDATE incidencia SET estado=? WHERE id=?`), estado, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *incidentsStore) Estadisticas(ctx context.Context) (*EstadisticasSnapshot, error) {
	snap := &EstadisticasSnapshot{}
	porPrioridad, err := s.countGrouped(ctx, `SELECT prioridad_ia, COUNT(1) FROM incidencia GROUP BY prioridad_ia`)
	if err != nil {
		return nil, err
	}
	porEstado, err := s.countGrouped(ctx, `SELECT estado, COUNT(1) FROM incidencia GROUP BY estado`)
	if err != nil {
		return nil, err
	}
	snap.PorPrioridad = porPrioridad
	snap.PorEstado = porEstado
	for _, n := range porEstado {
		snap.TotalIncidencias += n
	}
	return snap, nil
}

func (s *incidentsStore) countGrouped(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int64{}
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		res[key] = n
	}
	return res, rows.Err()
}

func scanIncidencia(row *sql.Row) (*Incidencia, error) {
	var inc Incidencia
	if err := row.Scan(&inc.ID, &inc.IDCliente, &inc.Fecha, &inc.Descripcion, &inc.Estado, &inc.PrioridadIA, &inc.PuntuacionIA, &inc.FechaCreacion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inc, nil
}
