package handlers

import (
	"errors"
	"io"
	"net/http"

	"tesoportamos/config"
	"tesoportamos/core/intake"
	"tesoportamos/core/store"
	"tesoportamos/core/utils"
)

type ETLHandler struct {
	cfg    *config.AppConfig
	svc    *intake.Service
	logger *utils.Logger
}

func NewETLHandler(cfg *config.AppConfig, svc *intake.Service, logger *utils.Logger) *ETLHandler {
	return &ETLHandler{cfg: cfg, svc: svc, logger: logger}
}

// Upload ingests the multipart clientes_file / incidencias_file pair.
// Either file is optional but at least one must be present.
func (h *ETLHandler) Upload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(10 << 20)
	if h.cfg != nil && h.cfg.ETL.UploadMaxBytes > 0 {
		maxBytes = h.cfg.ETL.UploadMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "El fichero supera el tamaño máximo permitido")
			return
		}
		writeDetail(w, http.StatusBadRequest, "Petición multipart no válida")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	clientes := formFileReader(r, "clientes_file")
	if clientes != nil {
		defer clientes.Close()
	}
	incidencias := formFileReader(r, "incidencias_file")
	if incidencias != nil {
		defer incidencias.Close()
	}

	result, err := h.svc.Ingest(r.Context(), readerOrNil(clientes), readerOrNil(incidencias))
	if err != nil {
		if errors.Is(err, intake.ErrEmptyBatch) {
			writeDetail(w, http.StatusBadRequest, "Debe proporcionar al menos un fichero CSV")
			return
		}
		if h.logger != nil {
			h.logger.Errorf("etl upload: %v", err)
		}
		if store.IsUnavailable(err) {
			writeDetail(w, http.StatusServiceUnavailable, "Almacén de datos no disponible, inténtelo de nuevo")
			return
		}
		writeDetail(w, http.StatusBadRequest, "Error en ETL: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func formFileReader(r *http.Request, field string) io.ReadCloser {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil
	}
	return file
}

// readerOrNil keeps a typed-nil ReadCloser from masquerading as a present
// file to the ingestion service.
func readerOrNil(rc io.ReadCloser) io.Reader {
	if rc == nil {
		return nil
	}
	return rc
}
