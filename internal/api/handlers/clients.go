package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edustack/edustack/internal/license"
	"github.com/edustack/edustack/internal/provision"
	"github.com/edustack/edustack/internal/storage/postgres"
)

func (h *Handler) ListClients(c *gin.Context) {
	clients, err := h.store.List(c.Query("name"), c.Query("status"))
	if err != nil {
		h.logger.Error("failed to list clients", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to list clients"})
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (h *Handler) GetClient(c *gin.Context) {
	client, err := h.store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, postgres.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Client not found"})
			return
		}
		h.logger.Error("failed to get client", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to get client"})
		return
	}
	c.JSON(http.StatusOK, client)
}

// AddClient provisions a new school tenant from a multipart form. The logo
// binary goes to the logo store; only its id is recorded on the record.
func (h *Handler) AddClient(c *gin.Context) {
	payload := provision.Payload{
		Name:           c.PostForm("name"),
		Desc:           c.PostForm("desc"),
		Domain:         c.PostForm("domain"),
		AdminName:      c.PostForm("admin_name"),
		LicenseDate:    c.PostForm("license_date"),
		OwnerID:        c.GetString("user_id"),
		OwnerName:      c.PostForm("byName"),
		SupportContact: c.PostForm("byContact"),
	}

	if file, err := c.FormFile("logoImage"); err == nil && file != nil && h.logos != nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Could not read logo file"})
			return
		}
		defer f.Close()

		logoID, err := h.logos.SaveLogo(c.Request.Context(), file.Filename, f)
		if err != nil {
			h.logger.Error("failed to store logo", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to store logo"})
			return
		}
		payload.LogoFileID = logoID
	}

	result, err := h.provisioner.AddTenant(c.Request.Context(), payload)
	if err != nil {
		var vErr *provision.ValidationError
		var cleanup *provision.ManualCleanupError
		switch {
		case errors.As(err, &vErr):
			h.metrics.RecordProvisioning("invalid")
			c.JSON(http.StatusBadRequest, gin.H{"message": vErr.Message})
		case errors.As(err, &cleanup):
			h.logger.Error("provisioning left an orphaned resource",
				zap.String("resource", cleanup.Resource),
				zap.Error(err),
			)
			h.metrics.RecordProvisioning("manual_cleanup")
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		default:
			h.logger.Error("provisioning failed", zap.Error(err))
			h.metrics.RecordProvisioning("failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		}
		return
	}

	h.metrics.RecordProvisioning("success")
	c.JSON(http.StatusCreated, gin.H{
		"message":       "Client created successfully",
		"client":        result.Client,
		"adminPassword": result.AdminPassword,
		"libPassword":   result.LibraryPassword,
	})
}

type updateClientRequest struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
}

func (h *Handler) UpdateClientDetails(c *gin.Context) {
	var req updateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	client, err := h.store.UpdateDetails(c.Param("id"), req.Name, req.Desc)
	if err != nil {
		if errors.Is(err, postgres.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Client not found"})
			return
		}
		h.logger.Error("failed to update client", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update client"})
		return
	}

	h.invalidateResolveCache(c, client.Domain)
	c.JSON(http.StatusOK, client)
}

type updateLicenseRequest struct {
	LicenseDate string `json:"license_date" binding:"required"`
}

// UpdateClientLicense renews the license. Status is rederived from the new
// date; it is never accepted from the request.
func (h *Handler) UpdateClientLicense(c *gin.Context) {
	var req updateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "license_date is required"})
		return
	}

	licenseDate, err := time.Parse("2006-01-02", req.LicenseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "license_date must be YYYY-MM-DD"})
		return
	}

	current, err := h.store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, postgres.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Client not found"})
			return
		}
		h.logger.Error("failed to load client for renewal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to renew license"})
		return
	}

	status := license.RecordStatusAt(current.Status, licenseDate, h.now())
	client, err := h.store.UpdateLicense(current.ID, licenseDate, status)
	if err != nil {
		h.logger.Error("failed to renew license", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to renew license"})
		return
	}

	h.logger.Info("license renewed",
		zap.String("client_id", client.ID),
		zap.Time("license_date", licenseDate),
		zap.String("status", string(client.Status)),
	)

	h.invalidateResolveCache(c, client.Domain)
	c.JSON(http.StatusOK, client)
}

type addNoteRequest struct {
	Note string `json:"note" binding:"required"`
}

func (h *Handler) AddClientNote(c *gin.Context) {
	var req addNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "note is required"})
		return
	}

	stamped := h.now().UTC().Format(time.RFC3339) + ": " + req.Note
	client, err := h.store.AppendNote(c.Param("id"), stamped)
	if err != nil {
		if errors.Is(err, postgres.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Client not found"})
			return
		}
		h.logger.Error("failed to add note", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add note"})
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *Handler) invalidateResolveCache(c *gin.Context, domain string) {
	if h.cache == nil || domain == "" {
		return
	}
	if err := h.cache.InvalidateResolvedTenant(c.Request.Context(), domain); err != nil {
		h.logger.Warn("failed to invalidate resolve cache", zap.String("domain", domain), zap.Error(err))
	}
}
