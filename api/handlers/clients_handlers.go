package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tesoportamos/core/store"
	"tesoportamos/core/utils"
)

type ClientsHandler struct {
	clients   store.ClientsStore
	incidents store.IncidentsStore
	audits    store.AuditStore
	logger    *utils.Logger
}

func NewClientsHandler(clients store.ClientsStore, incidents store.IncidentsStore, audits store.AuditStore, logger *utils.Logger) *ClientsHandler {
	return &ClientsHandler{clients: clients, incidents: incidents, audits: audits, logger: logger}
}

type clienteCreatePayload struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
}

func (h *ClientsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload clienteCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Cuerpo de la petición no válido")
		return
	}
	for _, req := range []struct{ name, val string }{
		{"nombre", payload.Nombre},
		{"email", payload.Email},
		{"telefono", payload.Telefono},
	} {
		if strings.TrimSpace(req.val) == "" {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("El campo '%s' es obligatorio", req.name))
			return
		}
	}
	c := &store.Cliente{
		Nombre:   strings.TrimSpace(payload.Nombre),
		Email:    strings.TrimSpace(payload.Email),
		Telefono: strings.TrimSpace(payload.Telefono),
	}
	if _, err := h.clients.CreateCliente(r.Context(), c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeDetail(w, http.StatusBadRequest, "El email ya está registrado")
			return
		}
		if h.logger != nil {
			h.logger.Errorf("create cliente: %v", err)
		}
		writeStoreError(w, err)
		return
	}
	if h.audits != nil {
		_ = h.audits.Log(r.Context(), "api", "clientes.create", fmt.Sprintf("id=%d email=%s", c.ID, c.Email))
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ClientsHandler) ListSorted(w http.ResponseWriter, r *http.Request) {
	items, err := h.clients.ListClientesSorted(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("list clientes: %v", err)
		}
		writeStoreError(w, err)
		return
	}
	if items == nil {
		items = []store.Cliente{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ClientsHandler) ListIncidencias(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusBadRequest, "Identificador de cliente no válido")
		return
	}
	cliente, err := h.clients.GetCliente(r.Context(), id)
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("get cliente %d: %v", id, err)
		}
		writeStoreError(w, err)
		return
	}
	if cliente == nil {
		writeDetail(w, http.StatusNotFound, "Cliente no encontrado")
		return
	}
	items, err := h.incidents.ListIncidenciasByCliente(r.Context(), id)
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("list incidencias cliente %d: %v", id, err)
		}
		writeStoreError(w, err)
		return
	}
	if items == nil {
		items = []store.Incidencia{}
	}
	writeJSON(w, http.StatusOK, items)
}
