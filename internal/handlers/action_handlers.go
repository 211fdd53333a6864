package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/docsearch-service/internal/config"
	"github.com/tesseract-hub/docsearch-service/internal/export"
	"github.com/tesseract-hub/docsearch-service/internal/highlight"
	"github.com/tesseract-hub/docsearch-service/internal/metrics"
	"github.com/tesseract-hub/docsearch-service/internal/middleware"
	"github.com/tesseract-hub/docsearch-service/internal/models"
	"github.com/tesseract-hub/docsearch-service/internal/service"
	"github.com/tesseract-hub/docsearch-service/internal/session"
	"github.com/tesseract-hub/docsearch-service/internal/storage"
	"github.com/tesseract-hub/docsearch-service/internal/tenants"
	"github.com/tesseract-hub/docsearch-service/internal/utils"
)

// ActionHandler serves the per-tenant action endpoint. Every request names
// a tenant and an action; public actions are allow-listed, everything else
// requires an admin session bound to the same tenant.
type ActionHandler struct {
	service     *service.DocumentService
	store       *storage.LocalStore
	gate        *session.Gate
	highlighter *highlight.Client
	cfg         *config.Config
	logger      *logrus.Logger
}

// NewActionHandler creates the action endpoint handler.
func NewActionHandler(svc *service.DocumentService, store *storage.LocalStore, gate *session.Gate, highlighter *highlight.Client, cfg *config.Config, logger *logrus.Logger) *ActionHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &ActionHandler{
		service:     svc,
		store:       store,
		gate:        gate,
		highlighter: highlighter,
		cfg:         cfg,
		logger:      logger,
	}
}

// Dispatch routes a request by its action parameter.
func (h *ActionHandler) Dispatch(c *gin.Context) {
	tc := middleware.GetTenantContext(c)
	if tc == nil {
		h.respondError(c, "", fmt.Errorf("%w: tenant not resolved", models.ErrTenantNotFound))
		return
	}

	action := c.Request.FormValue("action")
	token, _ := c.Cookie(h.cfg.Security.CookieName)

	if action == "logout" {
		h.logout(c, token)
		metrics.RecordAction(tc.ID, action, true)
		return
	}

	if !session.PublicActions[action] && !h.gate.Authorize(c.Request.Context(), token, tc.ID) {
		h.logger.WithFields(logrus.Fields{
			"tenant_id": tc.ID,
			"action":    action,
		}).Warn("Unauthorized action attempt")
		metrics.RecordAction(tc.ID, action, false)
		c.JSON(http.StatusUnauthorized, models.Envelope{
			Success: false,
			Message: "Acceso no autorizado. Inicie sesión primero.",
		})
		return
	}

	var ok bool
	switch action {
	case "suggest":
		ok = h.suggest(c, tc)
	case "search_by_code":
		ok = h.searchByCode(c, tc)
	case "search":
		ok = h.search(c, tc)
	case "login":
		ok = h.login(c, tc)
	case "list":
		ok = h.list(c, tc)
	case "upload":
		ok = h.upload(c, tc)
	case "edit":
		ok = h.edit(c, tc)
	case "delete":
		ok = h.delete(c, tc)
	case "download_pdfs":
		ok = h.downloadPDFs(c, tc)
	case "highlight_pdf":
		ok = h.highlightPDF(c, tc)
	default:
		c.JSON(http.StatusBadRequest, models.Envelope{
			Success: false,
			Message: "Acción no reconocida: " + action,
		})
	}
	metrics.RecordAction(tc.ID, action, ok)
}

// Branding returns the tenant's branding data for portal rendering.
func (h *ActionHandler) Branding(c *gin.Context) {
	tc := middleware.GetTenantContext(c)
	if tc == nil {
		h.respondError(c, "", fmt.Errorf("%w: tenant not resolved", models.ErrTenantNotFound))
		return
	}
	h.respondOK(c, "Branding obtenido.", tc.Config.Branding)
}

func (h *ActionHandler) suggest(c *gin.Context, tc *tenants.Context) bool {
	term := c.Request.FormValue("term")
	suggestions, err := h.service.Suggest(c.Request.Context(), tc, term)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}
	h.respondOK(c, "Sugerencias obtenidas.", suggestions)
	return true
}

func (h *ActionHandler) searchByCode(c *gin.Context, tc *tenants.Context) bool {
	code := c.Request.FormValue("code")
	docs, err := h.service.SearchByCode(c.Request.Context(), tc, code)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}
	h.respondOK(c, "Búsqueda completada.", docs)
	return true
}

func (h *ActionHandler) search(c *gin.Context, tc *tenants.Context) bool {
	codes := utils.ParseCodes(c.Request.FormValue("codes"), "\n")
	docs, err := h.service.SearchByCodes(c.Request.Context(), tc, codes)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}
	h.respondOK(c, "Búsqueda completada.", docs)
	return true
}

func (h *ActionHandler) login(c *gin.Context, tc *tenants.Context) bool {
	user := c.Request.FormValue("user")
	pass := c.Request.FormValue("pass")

	sess, err := h.gate.Login(c.Request.Context(), tc.Config, user, pass)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}

	c.SetCookie(h.cfg.Security.CookieName, sess.Token,
		h.cfg.Cache.SessionTTL, "/", "", h.cfg.Security.CookieSecure, true)
	h.respondOK(c, "Login exitoso.", nil)
	return true
}

func (h *ActionHandler) logout(c *gin.Context, token string) {
	h.gate.Logout(c.Request.Context(), token)
	c.SetCookie(h.cfg.Security.CookieName, "", -1, "/", "", h.cfg.Security.CookieSecure, true)
	h.respondOK(c, "Sesión cerrada.", nil)
}

func (h *ActionHandler) list(c *gin.Context, tc *tenants.Context) bool {
	docs, err := h.service.ListAll(c.Request.Context(), tc)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}
	h.respondOK(c, "Documentos obtenidos.", docs)
	return true
}

func (h *ActionHandler) upload(c *gin.Context, tc *tenants.Context) bool {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.respondError(c, tc.ID, fmt.Errorf("%w: no se recibió ningún archivo", models.ErrValidation))
		return false
	}
	defer file.Close()

	req := models.CreateDocumentRequest{
		Name:     c.Request.FormValue("name"),
		Date:     c.Request.FormValue("date"),
		Filename: header.Filename,
		Codes:    utils.ParseCodes(c.Request.FormValue("codes"), "\n"),
	}

	id, err := h.service.Create(c.Request.Context(), tc, req, file)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}
	h.respondOK(c, "Documento guardado exitosamente.", gin.H{"id": id})
	return true
}

func (h *ActionHandler) edit(c *gin.Context, tc *tenants.Context) bool {
	id, err := h.formID(c)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}

	var content io.Reader
	filename := ""
	if file, header, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		content = file
		filename = header.Filename
	}

	req := models.UpdateDocumentRequest{
		ID:       id,
		Name:     c.Request.FormValue("name"),
		Date:     c.Request.FormValue("date"),
		Filename: filename,
		Codes:    utils.ParseCodes(c.Request.FormValue("codes"), "\n"),
	}

	if err := h.service.Update(c.Request.Context(), tc, req, content); err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}
	h.respondOK(c, "Documento actualizado exitosamente.", nil)
	return true
}

func (h *ActionHandler) delete(c *gin.Context, tc *tenants.Context) bool {
	id, err := h.formID(c)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}

	// Optional UX confirmation step, not a security boundary: the gate
	// already authorized this action.
	if pass := tc.Config.DeletePassphrase; pass != "" {
		if c.Request.FormValue("confirm") != pass {
			h.respondError(c, tc.ID, fmt.Errorf("%w: frase de confirmación incorrecta", models.ErrValidation))
			return false
		}
	}

	if err := h.service.Delete(c.Request.Context(), tc, id); err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}
	h.respondOK(c, "Documento eliminado exitosamente.", nil)
	return true
}

func (h *ActionHandler) downloadPDFs(c *gin.Context, tc *tenants.Context) bool {
	archive, err := export.ToZIP(h.store, tc.StorageRoot)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}

	filename := fmt.Sprintf("documentos_%s_%s.zip", tc.ID, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/zip", archive)
	return true
}

// ExportCSV streams the code-to-document mapping as a spreadsheet.
func (h *ActionHandler) ExportCSV(c *gin.Context) {
	tc := middleware.GetTenantContext(c)
	if tc == nil {
		h.respondError(c, "", fmt.Errorf("%w: tenant not resolved", models.ErrTenantNotFound))
		return
	}

	token, _ := c.Cookie(h.cfg.Security.CookieName)
	if !h.gate.Authorize(c.Request.Context(), token, tc.ID) {
		c.JSON(http.StatusUnauthorized, models.Envelope{
			Success: false,
			Message: "Acceso no autorizado. Inicie sesión primero.",
		})
		return
	}

	docs, err := h.service.ListAll(c.Request.Context(), tc)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return
	}
	data, err := export.ToCSV(docs)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return
	}

	filename := fmt.Sprintf("codigos_%s_%s.csv", tc.ID, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *ActionHandler) highlightPDF(c *gin.Context, tc *tenants.Context) bool {
	id, err := h.formID(c)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}
	codes := utils.ParseCodes(c.Request.FormValue("codes"), ",")
	if len(codes) == 0 {
		h.respondError(c, tc.ID, fmt.Errorf("%w: faltan los códigos para resaltar", models.ErrValidation))
		return false
	}

	doc, err := h.service.Get(c.Request.Context(), tc, id)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}

	pdfPath, err := h.store.Resolve(tc.StorageRoot, doc.Path)
	if err != nil {
		h.respondError(c, tc.ID, fmt.Errorf("%w: archivo PDF no encontrado", models.ErrNotFound))
		return false
	}

	result, err := h.highlighter.Highlight(c.Request.Context(), tc.Config.Highlighter, pdfPath, codes)
	if err != nil {
		h.respondError(c, tc.ID, err)
		return false
	}

	if result.PagesFound != "" {
		c.Header(highlight.PagesFoundHeader, result.PagesFound)
		c.Header("Access-Control-Expose-Headers", highlight.PagesFoundHeader)
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", result.PDF)
	return true
}

func (h *ActionHandler) formID(c *gin.Context) (uint, error) {
	raw := c.Request.FormValue("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: id de documento no válido", models.ErrValidation)
	}
	return uint(id), nil
}

func (h *ActionHandler) respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// respondError maps the error taxonomy onto the response envelope. Binary
// actions fall back to this JSON envelope on failure, so callers must
// branch on content type before assuming binary success.
func (h *ActionHandler) respondError(c *gin.Context, tenantID string, err error) {
	status := http.StatusInternalServerError
	message := "Error interno del servidor."

	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
		message = "Solicitud no válida."
	case errors.Is(err, models.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		message = "Credenciales incorrectas."
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusUnauthorized
		message = "Acceso no autorizado."
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
		message = "No encontrado."
	case errors.Is(err, models.ErrTenantNotFound):
		status = http.StatusBadRequest
		message = "Cliente no encontrado."
	case errors.Is(err, models.ErrServiceUnreachable):
		status = http.StatusBadGateway
		message = "Error de comunicación con el servicio de resaltado."
	case errors.Is(err, models.ErrService):
		status = http.StatusBadGateway
		message = "El servicio de resaltado falló."
	case errors.Is(err, models.ErrStorage):
		message = "Error al guardar el archivo."
	case errors.Is(err, models.ErrDatabase):
		message = "Error de conexión con la base de datos."
	}

	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		h.logger.WithError(err).WithField("tenant_id", tenantID).Error("Action failed")
	}

	c.JSON(status, models.Envelope{
		Success: false,
		Message: message,
		Details: err.Error(),
	})
}
