package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"profitshare/internal/distribution"
	"profitshare/internal/middleware"
	"profitshare/pkg/money"
)

// CreateDistribution declares a quarter's profit and writes the holders' claims.
func (h *Handler) CreateDistribution(c *gin.Context) {
	var req CreateDistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	total, err := money.ParseAmount(req.TotalProfit)
	if err != nil {
		badRequest(c, err)
		return
	}

	d, err := h.engine.CreateDistribution(c.Request.Context(), distribution.CreateDistributionInput{
		ProjectID: req.ProjectID,
		Period: distribution.Period{
			StartDate: req.Period.StartDate,
			EndDate:   req.Period.EndDate,
			Quarter:   req.Period.Quarter,
			Year:      req.Period.Year,
		},
		TotalProfit: total,
		AdminID:     middleware.UserID(c),
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDistributionResponse(d))
}

// GetDistribution returns one distribution
func (h *Handler) GetDistribution(c *gin.Context) {
	d, err := h.engine.GetDistribution(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDistributionResponse(d))
}

// ListProjectDistributions pages through a project's distributions
func (h *Handler) ListProjectDistributions(c *gin.Context) {
	page, ok := pageRequest(c)
	if !ok {
		return
	}
	res, err := h.engine.ListDistributionsByProject(c.Request.Context(), c.Param("project_id"), page)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]DistributionResponse, 0, len(res.Items))
	for _, d := range res.Items {
		data = append(data, toDistributionResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{
		"data":       data,
		"pagination": pagination(page, res.NextCursor),
	})
}

func (h *Handler) AttachSettlementReference(c *gin.Context) {
	var req SettlementReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.engine.AttachSettlementReference(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDistributionResponse(d))
}

// ReconcileDistribution checks a distribution's totals against its claims.
// An unbalanced report is still a 200; the alerts describe the mismatch.
func (h *Handler) ReconcileDistribution(c *gin.Context) {
	report, err := h.engine.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !report.Balanced {
		h.logger.WithFields(logrus.Fields{
			"distribution_id": report.DistributionID,
			"admin_id":        middleware.UserID(c),
		}).Warn("Reconciliation requested for unbalanced distribution")
	}
	c.JSON(http.StatusOK, toReconciliationResponse(report))
}

func (h *Handler) ListDistributionClaims(c *gin.Context) {
	claims, err := h.engine.ListClaimsByDistribution(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toClaimResponses(claims)})
}
