package handlers_analytics

import (
	"net/http"
	"strconv"

	"github.com/Benim22/Skaply-sub000/internal/models/skvisits"
	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	service *skvisits.VisitService
}

func NewAnalyticsHandler(service *skvisits.VisitService) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
	}
}

// days lit le paramètre ?days, par défaut 30, plafonné à 365.
func days(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || n <= 0 {
		return 30
	}
	if n > 365 {
		return 365
	}
	return n
}

// GetOverview retourne les statistiques agrégées de la période.
func (ah *AnalyticsHandler) GetOverview(c *gin.Context) {
	stats, err := ah.service.GetOverviewStats(days(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve analytics",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetGeo retourne la répartition géographique des visites.
func (ah *AnalyticsHandler) GetGeo(c *gin.Context) {
	stats, err := ah.service.GetGeoStats(days(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve geo stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetRealtime retourne les visiteurs actifs et les compteurs du jour.
func (ah *AnalyticsHandler) GetRealtime(c *gin.Context) {
	stats, err := ah.service.GetRealtimeStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve realtime stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
