package intake

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"tesoportamos/config"
	"tesoportamos/core/store"
	"tesoportamos/core/utils"
)

// ErrEmptyBatch is returned when an ingestion call supplies no file at all.
var ErrEmptyBatch = errors.New("empty batch: no files supplied")

// BatchResult summarizes one ingestion call. LineasLeidas counts every data
// row read, rejected and duplicate rows included; InsertadosReales counts
// only rows that produced a new stored record.
type BatchResult struct {
	LineasLeidas     int    `json:"lineas_leidas"`
	InsertadosReales int    `json:"insertados_reales"`
	Mensaje          string `json:"mensaje"`

	batchID string
}

const logDelimiter = " | "

// Service drives one ingestion batch: rows stream through the normalizer,
// the dedup resolver and (for incidents) the classifier, and per-record
// writes are committed as they happen. A batch is processed by a single
// logical worker; concurrency happens across batches, arbitrated by the
// store's unique constraints.
type Service struct {
	cfg       *config.AppConfig
	clients   store.ClientsStore
	incidents store.IncidentsStore
	audits    store.AuditStore
	rules     *RuleSet
	logger    *utils.Logger
}

func NewService(cfg *config.AppConfig, clients store.ClientsStore, incidents store.IncidentsStore, audits store.AuditStore, rules *RuleSet, logger *utils.Logger) *Service {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	return &Service{cfg: cfg, clients: clients, incidents: incidents, audits: audits, rules: rules, logger: logger}
}

func (s *Service) Rules() *RuleSet {
	return s.rules
}

// Ingest processes the clients file fully before the incidents file, so
// incidents may reference clients created in the same batch. Row-level
// failures are contained and logged; only a missing batch or an unreachable
// store aborts the call. The batch is not atomic: a crash mid-batch leaves
// inserted records intact, and re-uploading the same file is safe because
// dedup makes ingestion idempotent.
func (s *Service) Ingest(ctx context.Context, clientesCSV, incidenciasCSV io.Reader) (*BatchResult, error) {
	if clientesCSV == nil && incidenciasCSV == nil {
		return nil, ErrEmptyBatch
	}
	batchID := uuid.Must(uuid.NewV4()).String()
	result := &BatchResult{batchID: batchID}
	state := newBatchState()
	var entries []string
	now := time.Now().UTC()

	if clientesCSV != nil {
		if err := s.ingestClientes(ctx, clientesCSV, state, result, &entries); err != nil {
			return nil, err
		}
	}
	if incidenciasCSV != nil {
		if err := s.ingestIncidencias(ctx, incidenciasCSV, state, result, &entries, now); err != nil {
			return nil, err
		}
	}

	entries = append(entries, fmt.Sprintf("Proceso completado: %d insertados de %d líneas leídas",
		result.InsertadosReales, result.LineasLeidas))
	result.Mensaje = strings.Join(entries, logDelimiter)

	s.audit(ctx, "etl.upload", fmt.Sprintf("batch=%s lineas_leidas=%d insertados_reales=%d",
		batchID, result.LineasLeidas, result.InsertadosReales))
	if s.logger != nil {
		s.logger.Printf("etl batch %s done: %d/%d inserted", batchID, result.InsertadosReales, result.LineasLeidas)
	}
	return result, nil
}

func (s *Service) ingestClientes(ctx context.Context, src io.Reader, state *batchState, result *BatchResult, entries *[]string) error {
	rd := newCSVReader(src)
	header, err := rd.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read clientes header: %w", err)
	}
	idx := HeaderIndex(header)
	line := 0
	for {
		row, err := rd.Read()
		if err == io.EOF {
			return nil
		}
		line++
		result.LineasLeidas++
		if err != nil {
			// Parse errors are scoped to one record; anything else means the
			// source itself is broken and would repeat on every Read.
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return fmt.Errorf("read clientes row %d: %w", line, err)
			}
			*entries = append(*entries, fmt.Sprintf("Línea %d (clientes) rechazada: CSV mal formado", line))
			continue
		}
		rec, rowErr := NormalizeCliente(idx, row, line)
		if rowErr != nil {
			*entries = append(*entries, fmt.Sprintf("Línea %d (clientes) rechazada: %s", line, rowErr.Detail))
			continue
		}
		res, err := state.resolveCliente(ctx, s.clients, rec)
		if err != nil {
			return fmt.Errorf("clientes dedup lookup: %w", err)
		}
		if res == ResolveSkipDuplicate {
			*entries = append(*entries, fmt.Sprintf("Cliente duplicado saltado: email %s ya existe", rec.Email))
			continue
		}
		_, err = s.clients.CreateCliente(ctx, &store.Cliente{
			Nombre:   rec.Nombre,
			Email:    rec.Email,
			Telefono: rec.Telefono,
		})
		if errors.Is(err, store.ErrDuplicate) {
			// Lost the race against a concurrent batch; same outcome as a skip.
			state.markCliente(rec)
			*entries = append(*entries, fmt.Sprintf("Cliente duplicado saltado: email %s ya existe", rec.Email))
			continue
		}
		if err != nil {
			return fmt.Errorf("insert cliente: %w", err)
		}
		state.markCliente(rec)
		result.InsertadosReales++
	}
}

func (s *Service) ingestIncidencias(ctx context.Context, src io.Reader, state *batchState, result *BatchResult, entries *[]string, now time.Time) error {
	rd := newCSVReader(src)
	header, err := rd.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read incidencias header: %w", err)
	}
	idx := HeaderIndex(header)
	line := 0
	for {
		row, err := rd.Read()
		if err == io.EOF {
			return nil
		}
		line++
		result.LineasLeidas++
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return fmt.Errorf("read incidencias row %d: %w", line, err)
			}
			*entries = append(*entries, fmt.Sprintf("Línea %d (incidencias) rechazada: CSV mal formado", line))
			continue
		}
		rec, rowErr := NormalizeIncidencia(idx, row, line, now)
		if rowErr != nil {
			*entries = append(*entries, fmt.Sprintf("Línea %d (incidencias) rechazada: %s", line, rowErr.Detail))
			continue
		}
		cliente, err := s.clients.GetCliente(ctx, rec.IDCliente)
		if err != nil {
			return fmt.Errorf("resolve cliente %d: %w", rec.IDCliente, err)
		}
		if cliente == nil {
			*entries = append(*entries, fmt.Sprintf("Incidencia saltada: Cliente ID %d no existe", rec.IDCliente))
			continue
		}
		res, err := state.resolveIncidencia(ctx, s.incidents, rec)
		if err != nil {
			return fmt.Errorf("incidencias dedup lookup: %w", err)
		}
		if res == ResolveSkipDuplicate {
			*entries = append(*entries, fmt.Sprintf("Incidencia duplicada saltada: cliente %d, fecha %s", rec.IDCliente, rec.Fecha))
			continue
		}
		prioridad, puntuacion := s.rules.Classify(rec.Descripcion)
		_, err = s.incidents.CreateIncidencia(ctx, &store.Incidencia{
			IDCliente:    rec.IDCliente,
			Fecha:        rec.Fecha,
			Descripcion:  rec.Descripcion,
			Estado:       rec.Estado,
			PrioridadIA:  string(prioridad),
			PuntuacionIA: puntuacion,
		})
		if errors.Is(err, store.ErrDuplicate) {
			state.markIncidencia(rec)
			*entries = append(*entries, fmt.Sprintf("Incidencia duplicada saltada: cliente %d, fecha %s", rec.IDCliente, rec.Fecha))
			continue
		}
		if err != nil {
			return fmt.Errorf("insert incidencia: %w", err)
		}
		state.markIncidencia(rec)
		result.InsertadosReales++
	}
}

func (s *Service) audit(ctx context.Context, action, details string) {
	if s.audits == nil {
		return
	}
	if err := s.audits.Log(ctx, "system", action, details); err != nil && s.logger != nil {
		s.logger.Errorf("audit %s: %v", action, err)
	}
}

func newCSVReader(src io.Reader) *csv.Reader {
	rd := csv.NewReader(src)
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true
	return rd
}

