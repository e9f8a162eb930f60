package intake

import (
	"context"
	"strings"

	"tesoportamos/core/store"
)

// Resolution is the dedup verdict for one normalized record.
type Resolution int

const (
	ResolveInsert Resolution = iota
	ResolveSkipDuplicate
)

type incidenciaKey struct {
	idCliente   int64
	fecha       string
	descripcion string
}

// batchState is the within-batch dedup accumulator, threaded explicitly
// through row processing. It sees rows inserted earlier in the same batch
// before the store does on a second lookup, so the first row in file order
// wins and later collisions in the same file are skips.
type batchState struct {
	seenEmails      map[string]struct{}
	seenIncidencias map[incidenciaKey]struct{}
}

func newBatchState() *batchState {
	return &batchState{
		seenEmails:      map[string]struct{}{},
		seenIncidencias: map[incidenciaKey]struct{}{},
	}
}

// resolveCliente checks the batch accumulator first, then pre-batch store
// state, by the normalized (lowercased) email natural key.
func (b *batchState) resolveCliente(ctx context.Context, clients store.ClientsStore, rec *ClienteRecord) (Resolution, error) {
	key := strings.ToLower(rec.Email)
	if _, seen := b.seenEmails[key]; seen {
		return ResolveSkipDuplicate, nil
	}
	existing, err := clients.GetClienteByEmail(ctx, rec.Email)
	if err != nil {
		return ResolveSkipDuplicate, err
	}
	if existing != nil {
		b.seenEmails[key] = struct{}{}
		return ResolveSkipDuplicate, nil
	}
	return ResolveInsert, nil
}

func (b *batchState) markCliente(rec *ClienteRecord) {
	b.seenEmails[strings.ToLower(rec.Email)] = struct{}{}
}

// resolveIncidencia dedups by the (id_cliente, fecha, descripcion) tuple.
func (b *batchState) resolveIncidencia(ctx context.Context, incidents store.IncidentsStore, rec *IncidenciaRecord) (Resolution, error) {
	key := incidenciaKey{idCliente: rec.IDCliente, fecha: rec.Fecha, descripcion: rec.Descripcion}
	if _, seen := b.seenIncidencias[key]; seen {
		return ResolveSkipDuplicate, nil
	}
	existing, err := incidents.FindIncidenciaByNaturalKey(ctx, rec.IDCliente, rec.Fecha, rec.Descripcion)
	if err != nil {
		return ResolveSkipDuplicate, err
	}
	if existing != nil {
		b.seenIncidencias[key] = struct{}{}
		return ResolveSkipDuplicate, nil
	}
	return ResolveInsert, nil
}

func (b *batchState) markIncidencia(rec *IncidenciaRecord) {
	b.seenIncidencias[incidenciaKey{idCliente: rec.IDCliente, fecha: rec.Fecha, descripcion: rec.Descripcion}] = struct{}{}
}
