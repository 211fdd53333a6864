package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/docsearch-service/internal/models"
	"github.com/tesseract-hub/docsearch-service/internal/tenants"
)

const tenantContextKey = "tenant_context"

// TenantMiddleware resolves the :tenant route parameter to the tenant's
// isolated context and stores it in the request context. Requests naming
// an unknown tenant fail closed.
func TenantMiddleware(directory *tenants.Directory, logger *logrus.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logrus.New()
	}
	return func(c *gin.Context) {
		rawID := c.Param("tenant")

		tc, err := directory.Resolve(c.Request.Context(), rawID)
		if err != nil {
			if errors.Is(err, models.ErrTenantNotFound) {
				logger.WithField("tenant", rawID).Warn("Unknown tenant - rejecting request")
				c.JSON(http.StatusBadRequest, models.Envelope{
					Success: false,
					Message: "Cliente '" + rawID + "' no encontrado.",
				})
			} else {
				logger.WithError(err).Error("Failed to resolve tenant")
				c.JSON(http.StatusBadRequest, models.Envelope{
					Success: false,
					Message: "Error de conexión con la base de datos.",
					Details: err.Error(),
				})
			}
			c.Abort()
			return
		}

		c.Set(tenantContextKey, tc)
		c.Next()
	}
}

// GetTenantContext extracts the resolved tenant context from gin context.
func GetTenantContext(c *gin.Context) *tenants.Context {
	if v, exists := c.Get(tenantContextKey); exists {
		if tc, ok := v.(*tenants.Context); ok {
			return tc
		}
	}
	return nil
}
