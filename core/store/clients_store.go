package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

type Cliente struct {
	ID            int64     `json:"id"`
	Nombre        string    `json:"nombre"`
	Email         string    `json:"email"`
	Telefono      string    `json:"telefono"`
	FechaCreacion time.Time `json:"fecha_creacion,omitempty"`
}

type ClientsStore interface {
	CreateCliente(ctx context.Context, c *Cliente) (int64, error)
	GetCliente(ctx context.Context, id int64) (*Cliente, error)
	GetClienteByEmail(ctx context.Context, email string) (*Cliente, error)
	ListClientesSorted(ctx context.Context) ([]Cliente, error)
	CountClientes(ctx context.Context) (int64, error)
}

type clientsStore struct {
	db *sql.DB
}

func NewClientsStore(db *sql.DB) ClientsStore {
	return &clientsStore{db: db}
}

// CreateCliente inserts a new client. A collision on the email natural key
// (case-insensitive, enforced by the unique index) returns ErrDuplicate.
func (s *clientsStore) CreateCliente(ctx context.Context, c *Cliente) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, rebind(`
		INSERT INTO cliente(nombre, email, telefono, fecha_creacion)
		VALUES(?,?,?,?)`),
		strings.TrimSpace(c.Nombre), strings.TrimSpace(c.Email), strings.TrimSpace(c.Telefono), now)
	if err != nil {
		if IsUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		// pgx does not support LastInsertId; fall back to the natural key.
		existing, lookupErr := s.GetClienteByEmail(ctx, c.Email)
		if lookupErr != nil || existing == nil {
			return 0, err
		}
		id = existing.ID
	}
	c.ID = id
	c.FechaCreacion = now
	return id, nil
}

func (s *clientsStore) GetCliente(ctx context.Context, id int64) (*Cliente, error) {
	row := s.db.QueryRowContext(ctx, rebind(`
		SELECT id, nombre, email, telefono, fecha_creacion FROM cliente WHERE id=?`), id)
	return scanCliente(row)
}

func (s *clientsStore) GetClienteByEmail(ctx context.Context, email string) (*Cliente, error) {
	clean := strings.ToLower(strings.TrimSpace(email))
	if clean == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, rebind(`
		SELECT id, nombre, email, telefono, fecha_creacion FROM cliente WHERE LOWER(email)=?`), clean)
	return scanCliente(row)
}

func (s *clientsStore) ListClientesSorted(ctx context.Context) ([]Cliente, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, nombre, email, telefono, fecha_creacion FROM cliente ORDER BY nombre ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Cliente
	for rows.Next() {
		var c Cliente
		if err := rows.Scan(&c.ID, &c.Nombre, &c.Email, &c.Telefono, &c.FechaCreacion); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s *clientsStore) CountClientes(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM cliente`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanCliente(row *sql.Row) (*Cliente, error) {
	var c Cliente
	if err := row.Scan(&c.ID, &c.Nombre, &c.Email, &c.Telefono, &c.FechaCreacion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
