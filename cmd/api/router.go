package main

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/SmokyRM/snt-ulybka-sub005/internal/permissions"
)

var plotNumberRe = regexp.MustCompile(`^[0-9]+[а-яА-Яa-zA-Z]?$`)

// registerValidators adds the domain binding rules to gin's validator.
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("plotnumber", func(fl validator.FieldLevel) bool {
			return plotNumberRe.MatchString(fl.Field().String())
		})
	}
}

// NewRouter builds the gin engine with middleware and all domain routes.
func NewRouter(deps *Dependencies) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(deps))
	r.Use(rateLimiter(deps))
	r.Use(identity())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	deps.TariffHandler.RegisterRoutes(guarded(api, permissions.PermManageTariffs))
	deps.BillingHandler.RegisterRoutes(guarded(api, permissions.PermManagePeriods))
	deps.BillingHandler.RegisterDebtRoutes(guarded(api, permissions.PermViewDebts))
	deps.ImportHandler.RegisterRoutes(guarded(api, permissions.PermImportStatement))
	deps.RegistryHandler.RegisterRoutes(guarded(api, permissions.PermManageRegistry))

	return r
}

// identity copies the operator identity established by the auth layer in
// front of this service. Requests arrive with trusted headers set by it.
func identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("actor_id", c.GetHeader("X-User-Id"))
		c.Set("actor_role", c.GetHeader("X-User-Role"))
		c.Next()
	}
}

// guarded returns a sub-group requiring one permission for every route in it.
func guarded(api *gin.RouterGroup, perm permissions.Permission) *gin.RouterGroup {
	g := api.Group("")
	g.Use(func(c *gin.Context) {
		role := permissions.Role(c.GetString("actor_role"))
		if !permissions.Allowed(role, perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	})
	return g
}

func rateLimiter(deps *Dependencies) gin.HandlerFunc {
	limiter := rate.NewLimiter(
		rate.Limit(deps.Config.Server.RateLimitPerSecond),
		deps.Config.Server.RateLimitBurst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func requestLogger(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() >= http.StatusInternalServerError {
			deps.Logger.Error("request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"status", c.Writer.Status())
		}
	}
}
