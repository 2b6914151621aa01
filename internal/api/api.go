package api

import (
	"net/http"
	"sort"
	"strconv"

	"steam-sentinel/internal/models"
	"steam-sentinel/internal/monitor"
	"steam-sentinel/internal/store"

	"github.com/gin-gonic/gin"
)

type APIHandler struct {
	store   *store.Store
	monitor *monitor.Monitor
	hub     *Hub
}

func SetupRoutes(r *gin.RouterGroup, st *store.Store, mon *monitor.Monitor, hub *Hub) *APIHandler {
	handler := &APIHandler{store: st, monitor: mon, hub: hub}

	r.GET("/status", handler.GetStatus)
	r.GET("/valuation", handler.GetValuation)
	r.GET("/valuation/history", handler.GetValuationHistory)
	r.GET("/recommendations", handler.GetRecommendations)
	r.GET("/items", handler.GetItems)
	r.GET("/events", handler.GetEvents)
	r.GET("/export/valuation.xlsx", handler.ExportValuation)

	return handler
}

func (h *APIHandler) GetStatus(c *gin.Context) {
	status := h.monitor.Status()
	c.JSON(http.StatusOK, gin.H{
		"monitor": status,
		"clients": h.hub.ClientCount(),
	})
}

func (h *APIHandler) GetValuation(c *gin.Context) {
	valuation, ok := h.store.Valuation()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ready": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true, "valuation": valuation})
}

func (h *APIHandler) GetValuationHistory(c *gin.Context) {
	limit := queryInt(c, "limit", 500)
	points, err := h.store.ValueHistory(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

func (h *APIHandler) GetRecommendations(c *gin.Context) {
	recs := h.store.Recommendations()
	out := make([]models.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if c.Query("verdict") != "" && string(rec.Verdict) != c.Query("verdict") {
			continue
		}
		out = append(out, rec)
	}
	// SELL first, then by confidence
	sort.Slice(out, func(i, j int) bool {
		if out[i].Verdict != out[j].Verdict {
			return out[i].Verdict == models.VerdictSell
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].MarketHashName < out[j].MarketHashName
	})
	c.JSON(http.StatusOK, gin.H{"recommendations": out})
}

// GetItems returns the valued portfolio lines, most valuable first. With
// view=to_sell only items whose current verdict is SELL are returned.
func (h *APIHandler) GetItems(c *gin.Context) {
	valuation, ok := h.store.Valuation()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ready": false, "items": []models.PortfolioItem{}})
		return
	}

	items := valuation.Items
	if c.Query("view") == "to_sell" {
		recs := h.store.Recommendations()
		filtered := make([]models.PortfolioItem, 0, len(items))
		for _, item := range items {
			if rec, ok := recs[item.MarketHashName]; ok && rec.Verdict == models.VerdictSell {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	if limit := queryInt(c, "limit", 0); limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"ready": true, "taken_at": valuation.TakenAt, "items": items})
}

func (h *APIHandler) GetEvents(c *gin.Context) {
	limit := queryInt(c, "limit", 100)
	events, err := h.store.RecentEvents(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func queryInt(c *gin.Context, key string, defaultValue int) int {
	if raw := c.Query(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
