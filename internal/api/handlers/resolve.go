package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edustack/edustack/internal/core"
	"github.com/edustack/edustack/internal/license"
	"github.com/edustack/edustack/internal/storage/postgres"
)

type resolveRequest struct {
	UserEmail string `json:"userEmail" binding:"required"`
}

// ResolveSchool maps a user's email to their school configuration. The
// license status in the response is derived from the stored expiry date at
// call time; clients treat it as ground truth for the session.
func (h *Handler) ResolveSchool(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.RecordResolution("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"message": "userEmail is required"})
		return
	}

	at := strings.LastIndex(req.UserEmail, "@")
	if at <= 0 || at == len(req.UserEmail)-1 {
		h.metrics.RecordResolution("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"message": "A valid email address is required"})
		return
	}
	domain := strings.ToLower(req.UserEmail[at+1:])

	if h.cache != nil {
		var cached core.TenantConfig
		if err := h.cache.GetResolvedTenant(c.Request.Context(), domain, &cached); err == nil {
			cached.ResolvedBy = "cache"
			h.metrics.RecordResolution(string(cached.LicenseStatus))
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	client, err := h.store.GetByDomain(domain)
	if err != nil {
		if errors.Is(err, postgres.ErrClientNotFound) {
			h.metrics.RecordResolution("not_found")
			c.JSON(http.StatusNotFound, gin.H{
				"message":                   "No school is registered for your email domain. Please contact support.",
				"original_domain_attempted": domain,
			})
			return
		}
		h.logger.Error("failed to resolve school", zap.String("domain", domain), zap.Error(err))
		h.metrics.RecordResolution("error")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to get school details."})
		return
	}

	cfg := core.TenantConfig{
		DatabaseID:         client.DatabaseID,
		SchoolName:         client.Name,
		LicenseStatus:      license.StatusAt(client.LicenseDate, h.now()),
		GalleryBucketID:    client.GalleryBucketID,
		AssignmentBucketID: client.AssignmentBucketID,
		NotesBucketID:      client.NotesBucketID,
		SupportContact:     client.SupportContact,
		Domain:             domain,
		ResolvedBy:         "domain",
	}

	if h.cache != nil {
		if err := h.cache.CacheResolvedTenant(c.Request.Context(), domain, &cfg, h.cacheTTL); err != nil {
			h.logger.Warn("failed to cache resolved tenant", zap.String("domain", domain), zap.Error(err))
		}
	}

	h.metrics.RecordResolution(string(cfg.LicenseStatus))
	c.JSON(http.StatusOK, cfg)
}
