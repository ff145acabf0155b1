// Package api serves descarte's impact endpoints over HTTP with gin.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rshade/descartecerto/internal/observability"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Impact  ImpactService
	DB      Pinger
	Metrics *observability.Metrics
	Logger  zerolog.Logger
	Version string
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(
		Recovery(),
		otelgin.Middleware(observability.ServiceName),
		TraceID(d.Logger),
		RequestLogger(),
	)
	SetupRoutes(router, d)
	return router
}

// SetupRoutes registers the routes on router.
func SetupRoutes(router *gin.Engine, d Deps) {
	var obs AggregateObserver
	if d.Metrics != nil {
		obs = d.Metrics
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	router.GET("/health", HandleHealth(d.DB, d.Version))

	api := router.Group("/api")
	{
		impactGroup := api.Group("/impact")
		{
			impactGroup.GET("", HandleGetGlobalImpact(d.Impact, obs))
			impactGroup.POST("/recalculate", HandleRecalculate(d.Impact))
			impactGroup.GET("/users/:userId", HandleGetUserImpact(d.Impact))
			impactGroup.GET("/ranking", HandleGetRanking(d.Impact))
			impactGroup.GET("/materials", HandleListMaterials())
		}
		api.POST("/disposals", HandleRecordDisposal(d.Impact))
	}

	router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "not_found", "no route for "+c.Request.URL.Path)
	})
}

