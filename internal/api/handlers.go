package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rshade/descartecerto/internal/greenops"
	"github.com/rshade/descartecerto/internal/impact"
	"github.com/rshade/descartecerto/internal/logging"
)

// ImpactService is the part of impact.Aggregator the handlers use.
type ImpactService interface {
	EnsureAggregate(ctx context.Context) (impact.GlobalImpact, bool, error)
	CalculateTotalImpact(ctx context.Context) (impact.GlobalImpact, error)
	GetUserImpact(ctx context.Context, userID string) (impact.UserImpactReport, error)
	GetImpactRanking(ctx context.Context, limit int) ([]impact.UserRankEntry, error)
	RecordDisposal(ctx context.Context, in impact.DisposalInput) (impact.Disposal, error)
	Options() impact.Options
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AggregateObserver receives every aggregate served, to keep gauges current.
type AggregateObserver interface {
	ObserveAggregate(agg impact.GlobalImpact)
}

// GlobalImpactResponse is the body of GET /api/impact.
type GlobalImpactResponse struct {
	Impact        impact.GlobalImpact        `json:"impact"`
	TotalWeight   float64                    `json:"totalWeight"`
	Equivalencies greenops.EquivalencyOutput `json:"equivalencies"`
}

const databaseUnreachable = "unreachable"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version"`
}

// HandleHealth reports liveness and database reachability.
func HandleHealth(db Pinger, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := HealthResponse{Status: "ok", Database: "ok", Version: version}
		if db != nil {
			ctx := c.Request.Context()
			if err := db.Ping(ctx); err != nil {
				logging.FromContext(ctx).Error().Ctx(ctx).
					Str("component", "api").
					Err(err).
					Msg("database ping failed")
				resp.Status = "degraded"
				resp.Database = databaseUnreachable
				c.JSON(http.StatusServiceUnavailable, Response{Success: false, Data: resp})
				return
			}
		}
		respondOK(c, http.StatusOK, resp)
	}
}

// HandleGetGlobalImpact returns the aggregate, creating it on first use.
func HandleGetGlobalImpact(svc ImpactService, obs AggregateObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		agg, _, err := svc.EnsureAggregate(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		if obs != nil {
			obs.ObserveAggregate(agg)
		}

		resp, err := newGlobalImpactResponse(agg)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, resp)
	}
}

// HandleRecalculate rebuilds the aggregate from the disposal log.
func HandleRecalculate(svc ImpactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		agg, err := svc.CalculateTotalImpact(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		resp, err := newGlobalImpactResponse(agg)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, resp)
	}
}

func newGlobalImpactResponse(agg impact.GlobalImpact) (GlobalImpactResponse, error) {
	eq, err := greenops.CalculateForImpact(agg.Impact())
	if err != nil {
		return GlobalImpactResponse{}, fmt.Errorf("computing equivalencies: %w", err)
	}
	return GlobalImpactResponse{Impact: agg, TotalWeight: agg.TotalWeight(), Equivalencies: eq}, nil
}

// HandleGetUserImpact returns one user's derived summary.
func HandleGetUserImpact(svc ImpactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := svc.GetUserImpact(c.Request.Context(), c.Param("userId"))
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusOK, report)
	}
}

// HandleGetRanking returns the top users by points. limit is optional and
// must lie in [1, max_ranking_limit].
func HandleGetRanking(svc ImpactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw, ok := c.GetQuery("limit"); ok {
			n, err := strconv.Atoi(raw)
			maxLimit := svc.Options().MaxRankingLimit
			if err != nil || n < 1 || n > maxLimit {
				respondErr(c, &impact.ValidationError{
					Field:  "limit",
					Reason: fmt.Sprintf("must be an integer between 1 and %d", maxLimit),
				})
				return
			}
			limit = n
		}

		entries, err := svc.GetImpactRanking(c.Request.Context(), limit)
		if err != nil {
			respondErr(c, err)
			return
		}
		if entries == nil {
			entries = []impact.UserRankEntry{}
		}
		respondOK(c, http.StatusOK, entries)
	}
}

// HandleListMaterials returns the per-kilogram factor table.
func HandleListMaterials() gin.HandlerFunc {
	return func(c *gin.Context) {
		respondOK(c, http.StatusOK, greenops.FactorTable())
	}
}

// HandleRecordDisposal records a disposal and updates the aggregate.
func HandleRecordDisposal(svc ImpactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in impact.DisposalInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondError(c, http.StatusBadRequest, CodeValidation, "invalid request body: "+err.Error())
			return
		}

		d, err := svc.RecordDisposal(c.Request.Context(), in)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondOK(c, http.StatusCreated, d)
	}
}
