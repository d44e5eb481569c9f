package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"profitshare/internal/distribution"
	"profitshare/internal/middleware"
)

// ListMyClaims pages through the caller's claims across all distributions.
func (h *Handler) ListMyClaims(c *gin.Context) {
	page, ok := pageRequest(c)
	if !ok {
		return
	}
	res, err := h.engine.ListClaimsByUser(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":       toClaimResponses(res.Items),
		"pagination": pagination(page, res.NextCursor),
	})
}

// GetClaim returns a claim to its owner or an admin.
func (h *Handler) GetClaim(c *gin.Context) {
	claim, err := h.engine.GetClaim(c.Request.Context(), c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toClaimResponse(claim))
}

// RequestClaim starts payout of the caller's claim on a distribution.
func (h *Handler) RequestClaim(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	bank := distribution.BankDetails{
		AccountNumber: req.BankAccount,
		AccountHolder: req.AccountHolder,
		BankCode:      req.BankCode,
	}
	claim, err := h.engine.RequestClaim(c.Request.Context(), c.Param("id"), middleware.UserID(c), bank)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toClaimResponse(claim))
}

// RequestClaimByID is RequestClaim addressed by claim id. A caller that does
// not own the claim gets 403 rather than 404.
func (h *Handler) RequestClaimByID(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	bank := distribution.BankDetails{
		AccountNumber: req.BankAccount,
		AccountHolder: req.AccountHolder,
		BankCode:      req.BankCode,
	}
	claim, err := h.engine.RequestClaimByID(c.Request.Context(), c.Param("id"), middleware.UserID(c), bank)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toClaimResponse(claim))
}
