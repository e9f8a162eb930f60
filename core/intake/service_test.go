package intake

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tesoportamos/config"
	"tesoportamos/core/store"
	"tesoportamos/core/utils"
)

func newTestService(t *testing.T) (*Service, store.ClientsStore, store.IncidentsStore) {
	t.Helper()

	cfg := &config.AppConfig{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "intake.db"),
	}
	logger := utils.NewLogger()

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	clients := store.NewClientsStore(db)
	incidents := store.NewIncidentsStore(db)
	audits := store.NewAuditStore(db)
	svc := NewService(cfg, clients, incidents, audits, nil, logger)
	return svc, clients, incidents
}

const clientesCSV = `id,nombre,email,telefono
1,Ana García,ana@example.com,600111222
2,Luis Pérez,luis@example.com,600333444
3,Ana Bis,ANA@example.com,600555666
`

const incidenciasCSV = `id,id_cliente,fecha,descripcion,estado
1,1,15-03-2026,el servidor no arranca,
2,99,16-03-2026,consulta sobre facturación,
`

func TestIngestMixedBatch(t *testing.T) {
	svc, clients, incidents := newTestService(t)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, strings.NewReader(clientesCSV), strings.NewReader(incidenciasCSV))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if res.LineasLeidas != 5 {
		t.Errorf("lineas_leidas = %d, want 5", res.LineasLeidas)
	}
	if res.InsertadosReales != 3 {
		t.Errorf("insertados_reales = %d, want 3", res.InsertadosReales)
	}

	parts := strings.Split(res.Mensaje, " | ")
	if len(parts) != 3 {
		t.Fatalf("mensaje has %d entries, want 3: %q", len(parts), res.Mensaje)
	}
	if !strings.Contains(parts[0], "duplicado") {
		t.Errorf("first entry should report the duplicate client, got %q", parts[0])
	}
	if !strings.Contains(parts[1], "Cliente ID 99 no existe") {
		t.Errorf("second entry should report the unknown client, got %q", parts[1])
	}
	if parts[2] != "Proceso completado: 3 insertados de 5 líneas leídas" {
		t.Errorf("unexpected summary entry: %q", parts[2])
	}

	n, err := clients.CountClientes(ctx)
	if err != nil || n != 2 {
		t.Errorf("stored clients = %d (err %v), want 2", n, err)
	}
	snap, err := incidents.Estadisticas(ctx)
	if err != nil || snap.TotalIncidencias != 1 {
		t.Fatalf("stored incidents = %+v (err %v), want 1", snap, err)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, strings.NewReader(clientesCSV), strings.NewReader(incidenciasCSV)); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	res, err := svc.Ingest(ctx, strings.NewReader(clientesCSV), strings.NewReader(incidenciasCSV))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if res.LineasLeidas != 5 {
		t.Errorf("lineas_leidas = %d, want 5", res.LineasLeidas)
	}
	if res.InsertadosReales != 0 {
		t.Errorf("insertados_reales = %d, want 0 on re-upload", res.InsertadosReales)
	}
	if !strings.Contains(res.Mensaje, "Proceso completado: 0 insertados de 5 líneas leídas") {
		t.Errorf("summary should report zero inserts, got %q", res.Mensaje)
	}
}

func TestIngestClassifiesIncidents(t *testing.T) {
	svc, _, incidents := newTestService(t)
	ctx := context.Background()

	csv := `id,id_cliente,fecha,descripcion,estado
1,1,15-03-2026,fuego en el CPD y todo urgente,
2,1,16-03-2026,el ratón hace un ruido raro,
`
	if _, err := svc.Ingest(ctx, strings.NewReader(clientesCSV), nil); err != nil {
		t.Fatalf("seed clients: %v", err)
	}
	if _, err := svc.Ingest(ctx, nil, strings.NewReader(csv)); err != nil {
		t.Fatalf("ingest incidents: %v", err)
	}

	list, err := incidents.ListIncidenciasByCliente(ctx, 1)
	if err != nil {
		t.Fatalf("list incidents: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("stored incidents = %d, want 2", len(list))
	}
	byDesc := map[string]store.Incidencia{}
	for _, inc := range list {
		byDesc[inc.Descripcion] = inc
	}
	critica := byDesc["fuego en el CPD y todo urgente"]
	if critica.PrioridadIA != "CRÍTICA" {
		t.Errorf("prioridad_ia = %s, want CRÍTICA", critica.PrioridadIA)
	}
	if critica.PuntuacionIA <= 0 {
		t.Errorf("puntuacion_ia = %f, want > 0", critica.PuntuacionIA)
	}
	normal := byDesc["el ratón hace un ruido raro"]
	if normal.PrioridadIA != "NORMAL" {
		t.Errorf("prioridad_ia = %s, want NORMAL", normal.PrioridadIA)
	}
	if normal.PuntuacionIA != 0 {
		t.Errorf("puntuacion_ia = %f, want 0", normal.PuntuacionIA)
	}
	if normal.Estado != store.EstadoAbierta {
		t.Errorf("estado = %s, want %s", normal.Estado, store.EstadoAbierta)
	}
}

func TestIngestRejectsMalformedRows(t *testing.T) {
	svc, clients, _ := newTestService(t)
	ctx := context.Background()

	csv := `id,nombre,email,telefono
1,Ana García,ana@example.com,600111222
2,,sin-nombre@example.com,600333444
3,Pepe "el malo,pepe@example.com,600555666
`
	res, err := svc.Ingest(ctx, strings.NewReader(csv), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.LineasLeidas != 3 {
		t.Errorf("lineas_leidas = %d, want 3", res.LineasLeidas)
	}
	if res.InsertadosReales != 1 {
		t.Errorf("insertados_reales = %d, want 1", res.InsertadosReales)
	}
	if !strings.Contains(res.Mensaje, "rechazada") {
		t.Errorf("mensaje should report rejections, got %q", res.Mensaje)
	}

	n, err := clients.CountClientes(ctx)
	if err != nil || n != 1 {
		t.Errorf("stored clients = %d (err %v), want 1", n, err)
	}
}

type brokenReader struct {
	data []byte
	err  error
}

func (r *brokenReader) Read(p []byte) (int, error) {
	if len(r.data) > 0 {
		n := copy(p, r.data)
		r.data = r.data[n:]
		return n, nil
	}
	return 0, r.err
}

func TestIngestAbortsOnBrokenReader(t *testing.T) {
	svc, _, _ := newTestService(t)

	src := &brokenReader{
		data: []byte("id,nombre,email,telefono\n1,Ana,ana@example.com,600111222\n"),
		err:  errors.New("connection reset"),
	}
	done := make(chan error, 1)
	go func() {
		_, err := svc.Ingest(context.Background(), src, nil)
		done <- err
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error from a failing reader")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("ingest did not return on a persistent read error")
	}
}

func TestIngestEmptyBatch(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Ingest(context.Background(), nil, nil)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("err = %v, want ErrEmptyBatch", err)
	}
}

func TestIngestHeaderOnlyFile(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.Ingest(context.Background(), strings.NewReader("id,nombre,email,telefono\n"), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.LineasLeidas != 0 || res.InsertadosReales != 0 {
		t.Errorf("got %d/%d, want 0/0 for header-only file", res.LineasLeidas, res.InsertadosReales)
	}
	if res.Mensaje != "Proceso completado: 0 insertados de 0 líneas leídas" {
		t.Errorf("unexpected mensaje: %q", res.Mensaje)
	}
}
