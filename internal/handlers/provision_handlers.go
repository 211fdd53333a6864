package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/docsearch-service/internal/config"
	"github.com/tesseract-hub/docsearch-service/internal/models"
	"github.com/tesseract-hub/docsearch-service/internal/provisioner"
)

// ProvisionHandler exposes tenant provisioning. The endpoint is disabled
// unless an operator token is configured.
type ProvisionHandler struct {
	provisioner *provisioner.Provisioner
	cfg         *config.Config
	logger      *logrus.Logger
}

// NewProvisionHandler creates the provisioning handler.
func NewProvisionHandler(p *provisioner.Provisioner, cfg *config.Config, logger *logrus.Logger) *ProvisionHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &ProvisionHandler{provisioner: p, cfg: cfg, logger: logger}
}

// Provision creates a new tenant from a multipart form.
func (h *ProvisionHandler) Provision(c *gin.Context) {
	token := h.cfg.Security.ProvisionToken
	if token == "" {
		c.JSON(http.StatusForbidden, models.Envelope{
			Success: false,
			Message: "Provisioning is disabled.",
		})
		return
	}
	presented := c.GetHeader("X-Provision-Token")
	if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
		h.logger.Warn("Provision attempt with bad token")
		c.JSON(http.StatusUnauthorized, models.Envelope{
			Success: false,
			Message: "Invalid provisioning token.",
		})
		return
	}

	req := provisioner.Request{
		ClientID:       c.PostForm("client_id"),
		ClientName:     c.PostForm("client_name"),
		AdminUser:      c.PostForm("admin_user"),
		AdminPass:      c.PostForm("admin_pass"),
		PrimaryColor:   c.PostForm("color_primary"),
		HighlighterURL: c.PostForm("highlighter_url"),
		Database: models.TenantDatabaseConfig{
			Host:     c.PostForm("db_host"),
			Port:     c.DefaultPostForm("db_port", "5432"),
			Name:     c.PostForm("db_name"),
			User:     c.PostForm("db_user"),
			Password: c.PostForm("db_pass"),
			SSLMode:  c.DefaultPostForm("db_ssl_mode", "disable"),
		},
	}

	if file, header, err := c.Request.FormFile("logo"); err == nil {
		defer file.Close()
		req.Logo = file
		req.LogoFilename = header.Filename
	}

	result, err := h.provisioner.Provision(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrValidation) {
			status = http.StatusBadRequest
		}
		c.JSON(status, models.Envelope{
			Success: false,
			Message: "No se pudo crear el cliente.",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, models.Envelope{
		Success: true,
		Message: "Cliente creado exitosamente.",
		Data:    result,
	})
}
