package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tesoportamos/core/incidents"
	"tesoportamos/core/intake"
	"tesoportamos/core/store"
	"tesoportamos/core/utils"
)

type IncidentsHandler struct {
	clients    store.ClientsStore
	incidents  store.IncidentsStore
	estadosSvc *incidents.Service
	intakeSvc  *intake.Service
	audits     store.AuditStore
	logger     *utils.Logger
}

func NewIncidentsHandler(clients store.ClientsStore, is store.IncidentsStore, estadosSvc *incidents.Service, intakeSvc *intake.Service, audits store.AuditStore, logger *utils.Logger) *IncidentsHandler {
	return &IncidentsHandler{clients: clients, incidents: is, estadosSvc: estadosSvc, intakeSvc: intakeSvc, audits: audits, logger: logger}
}

type incidenciaCreatePayload struct {
	IDCliente   int64  `json:"id_cliente"`
	Descripcion string `json:"descripcion"`
	Estado      string `json:"estado"`
	Fecha       string `json:"fecha"`
}

func (h *IncidentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload incidenciaCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Cuerpo de la petición no válido")
		return
	}
	if payload.IDCliente <= 0 {
		writeDetail(w, http.StatusBadRequest, "El campo 'id_cliente' es obligatorio")
		return
	}
	descripcion := strings.TrimSpace(payload.Descripcion)
	if descripcion == "" {
		writeDetail(w, http.StatusBadRequest, "El campo 'descripcion' es obligatorio")
		return
	}
	estado := strings.ToUpper(strings.TrimSpace(payload.Estado))
	if estado == "" {
		estado = store.EstadoAbierta
	}
	if !store.ValidEstado(estado) {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Estado '%s' no reconocido", estado))
		return
	}
	// fecha formatting is the caller's responsibility; a non-conforming
	// value is rejected rather than re-parsed with a guessed format.
	fecha := strings.TrimSpace(payload.Fecha)
	if fecha == "" {
		fecha = time.Now().UTC().Format(intake.FechaLayout)
	} else if !intake.ValidFecha(fecha) {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("La fecha '%s' no tiene formato DD-MM-YYYY", fecha))
		return
	}
	cliente, err := h.clients.GetCliente(r.Context(), payload.IDCliente)
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("get cliente %d: %v", payload.IDCliente, err)
		}
		writeStoreError(w, err)
		return
	}
	if cliente == nil {
		writeDetail(w, http.StatusBadRequest, "No se puede crear incidencia para un cliente inexistente")
		return
	}
	prioridad, puntuacion := h.intakeSvc.Rules().Classify(descripcion)
	inc := &store.Incidencia{
		IDCliente:    payload.IDCliente,
		Fecha:        fecha,
		Descripcion:  descripcion,
		Estado:       estado,
		PrioridadIA:  string(prioridad),
		PuntuacionIA: puntuacion,
	}
	if _, err := h.incidents.CreateIncidencia(r.Context(), inc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeDetail(w, http.StatusBadRequest, "La incidencia ya existe para ese cliente, fecha y descripción")
			return
		}
		if h.logger != nil {
			h.logger.Errorf("create incidencia: %v", err)
		}
		writeStoreError(w, err)
		return
	}
	if h.audits != nil {
		_ = h.audits.Log(r.Context(), "api", "incidencias.create",
			fmt.Sprintf("id=%d cliente=%d prioridad=%s", inc.ID, inc.IDCliente, inc.PrioridadIA))
	}
	writeJSON(w, http.StatusCreated, inc)
}

type estadoUpdatePayload struct {
	Estado string `json:"estado"`
}

func (h *IncidentsHandler) UpdateEstado(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusBadRequest, "Identificador de incidencia no válido")
		return
	}
	var payload estadoUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Cuerpo de la petición no válido")
		return
	}
	mensaje, err := h.estadosSvc.UpdateEstado(r.Context(), id, strings.ToUpper(strings.TrimSpace(payload.Estado)))
	if err != nil {
		switch {
		case errors.Is(err, incidents.ErrInvalidStatus):
			writeDetail(w, http.StatusBadRequest,
				fmt.Sprintf("Estado no válido. Valores permitidos: %s, %s, %s",
					store.EstadoAbierta, store.EstadoEnProceso, store.EstadoCerrada))
		case errors.Is(err, incidents.ErrNotFound):
			writeDetail(w, http.StatusNotFound, "Incidencia no encontrada")
		default:
			if h.logger != nil {
				h.logger.Errorf("update estado incidencia %d: %v", id, err)
			}
			writeStoreError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mensaje": mensaje})
}
