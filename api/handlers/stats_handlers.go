package handlers

import (
	"net/http"

	"tesoportamos/core/intake"
	"tesoportamos/core/store"
	"tesoportamos/core/utils"
)

type StatsHandler struct {
	clients   store.ClientsStore
	incidents store.IncidentsStore
	logger    *utils.Logger
}

func NewStatsHandler(clients store.ClientsStore, incidents store.IncidentsStore, logger *utils.Logger) *StatsHandler {
	return &StatsHandler{clients: clients, incidents: incidents, logger: logger}
}

type estadisticasDTO struct {
	TotalClientes    int64           `json:"total_clientes"`
	TotalIncidencias int64           `json:"total_incidencias"`
	PorPrioridad     porPrioridadDTO `json:"por_prioridad"`
	PorEstado        porEstadoDTO    `json:"por_estado"`
}

type porPrioridadDTO struct {
	Critica int64 `json:"critica"`
	Alta    int64 `json:"alta"`
	Media   int64 `json:"media"`
	Normal  int64 `json:"normal"`
}

type porEstadoDTO struct {
	Abierta   int64 `json:"abierta"`
	EnProceso int64 `json:"en_proceso"`
	Cerrada   int64 `json:"cerrada"`
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	totalClientes, err := h.clients.CountClientes(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	snap, err := h.incidents.Estadisticas(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estadisticasDTO{
		TotalClientes:    totalClientes,
		TotalIncidencias: snap.TotalIncidencias,
		PorPrioridad: porPrioridadDTO{
			Critica: snap.PorPrioridad[string(intake.PrioridadCritica)],
			Alta:    snap.PorPrioridad[string(intake.PrioridadAlta)],
			Media:   snap.PorPrioridad[string(intake.PrioridadMedia)],
			Normal:  snap.PorPrioridad[string(intake.PrioridadNormal)],
		},
		PorEstado: porEstadoDTO{
			Abierta:   snap.PorEstado[store.EstadoAbierta],
			EnProceso: snap.PorEstado[store.EstadoEnProceso],
			Cerrada:   snap.PorEstado[store.EstadoCerrada],
		},
	})
}

func (h *StatsHandler) fail(w http.ResponseWriter, err error) {
	if h.logger != nil {
		h.logger.Errorf("estadisticas: %v", err)
	}
	writeStoreError(w, err)
}
