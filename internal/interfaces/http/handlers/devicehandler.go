package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/device/usecases"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/device"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/middleware"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/utils"
)

// DeviceHandler handles device provisioning and lifecycle operations
type DeviceHandler struct {
	provisionUseCase  *usecases.ProvisionDeviceUseCase
	claimUseCase      *usecases.ClaimDeviceUseCase
	unclaimUseCase    *usecases.UnclaimDeviceUseCase
	revokeUseCase     *usecases.RevokeDeviceUseCase
	reactivateUseCase *usecases.ReactivateDeviceUseCase
	getUseCase        *usecases.GetDeviceUseCase
	logger            logger.Interface
}

func NewDeviceHandler(
	provisionUC *usecases.ProvisionDeviceUseCase,
	claimUC *usecases.ClaimDeviceUseCase,
	unclaimUC *usecases.UnclaimDeviceUseCase,
	revokeUC *usecases.RevokeDeviceUseCase,
	reactivateUC *usecases.ReactivateDeviceUseCase,
	getUC *usecases.GetDeviceUseCase,
	log logger.Interface,
) *DeviceHandler {
	return &DeviceHandler{
		provisionUseCase:  provisionUC,
		claimUseCase:      claimUC,
		unclaimUseCase:    unclaimUC,
		revokeUseCase:     revokeUC,
		reactivateUseCase: reactivateUC,
		getUseCase:        getUC,
		logger:            log,
	}
}

// ProvisionDeviceRequest registers one physical device at factory time
type ProvisionDeviceRequest struct {
	HWID     string         `json:"hw_id" validate:"required,min=8,max=64"`
	Metadata map[string]any `json:"metadata"`
}

// ClaimDeviceRequest claims a device by its printed serial
type ClaimDeviceRequest struct {
	Serial string `json:"serial" validate:"required,min=6,max=16"`
}

// LifecycleRequest carries the optional reason for an audit entry
type LifecycleRequest struct {
	Reason string `json:"reason"`
}

// DeviceResponse is the external view of a provisioning record
type DeviceResponse struct {
	HWID      string         `json:"hw_id"`
	Serial    string         `json:"serial"`
	ThingName string         `json:"thing_name"`
	Status    string         `json:"status"`
	ClaimedBy string         `json:"claimed_by_uid,omitempty"`
	ClaimedAt *time.Time     `json:"claimed_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// AuditEntryResponse is one audit trail entry in admin responses
type AuditEntryResponse struct {
	Action    string         `json:"action"`
	ActorUID  string         `json:"actor_uid"`
	Timestamp time.Time      `json:"timestamp"`
	Reason    string         `json:"reason,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// OutcomeResponse pairs a closed transition outcome with the record
type OutcomeResponse struct {
	Outcome string          `json:"outcome"`
	Device  *DeviceResponse `json:"device,omitempty"`
}

func deviceResponseFrom(rec *device.Record) *DeviceResponse {
	if rec == nil {
		return nil
	}
	return &DeviceResponse{
		HWID:      rec.HWID,
		Serial:    rec.Serial,
		ThingName: rec.ThingName,
		Status:    string(rec.Status),
		ClaimedBy: rec.ClaimedBy,
		ClaimedAt: rec.ClaimedAt,
		Metadata:  rec.Metadata,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func auditTrailFrom(rec *device.Record) []AuditEntryResponse {
	entries := make([]AuditEntryResponse, 0, len(rec.AuditTrail))
	for _, e := range rec.AuditTrail {
		entries = append(entries, AuditEntryResponse{
			Action:    e.Action,
			ActorUID:  e.ActorUID,
			Timestamp: e.Timestamp,
			Reason:    e.Reason,
			Details:   e.Details,
		})
	}
	return entries
}

// Provision registers a device. Re-provisioning the same hardware id
// returns the existing record with 200 instead of 201.
func (h *DeviceHandler) Provision(c *gin.Context) {
	var req ProvisionDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for device provision", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.provisionUseCase.Execute(c.Request.Context(), usecases.ProvisionDeviceCommand{
		HWID:     req.HWID,
		Metadata: req.Metadata,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	if result.Created {
		utils.CreatedResponse(c, deviceResponseFrom(result.Record), "device provisioned")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "device already provisioned", deviceResponseFrom(result.Record))
}

func (h *DeviceHandler) Claim(c *gin.Context) {
	uid := c.GetString(middleware.ContextKeyUID)

	var req ClaimDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for device claim", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.claimUseCase.Execute(c.Request.Context(), usecases.ClaimDeviceCommand{
		Serial: req.Serial,
		UID:    uid,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	payload := OutcomeResponse{
		Outcome: string(result.Outcome),
		Device:  deviceResponseFrom(result.Record),
	}
	switch result.Outcome {
	case device.ClaimOutcomeClaimed, device.ClaimOutcomeAlreadyOwned:
		utils.SuccessResponse(c, http.StatusOK, "", payload)
	case device.ClaimOutcomeOwnedByOther, device.ClaimOutcomeNotClaimable:
		c.JSON(http.StatusConflict, utils.APIResponse{Success: false, Data: payload})
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "unknown claim outcome")
	}
}

func (h *DeviceHandler) Unclaim(c *gin.Context) {
	uid := c.GetString(middleware.ContextKeyUID)

	var req LifecycleRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.unclaimUseCase.Execute(c.Request.Context(), usecases.UnclaimDeviceCommand{
		HWID:     c.Param("hw_id"),
		ActorUID: uid,
		Reason:   req.Reason,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	payload := OutcomeResponse{
		Outcome: string(result.Outcome),
		Device:  deviceResponseFrom(result.Record),
	}
	switch result.Outcome {
	case device.UnclaimOutcomeUnclaimed:
		utils.SuccessResponse(c, http.StatusOK, "", payload)
	case device.UnclaimOutcomeNotFound:
		c.JSON(http.StatusNotFound, utils.APIResponse{Success: false, Data: payload})
	case device.UnclaimOutcomeNotOwned:
		c.JSON(http.StatusForbidden, utils.APIResponse{Success: false, Data: payload})
	case device.UnclaimOutcomeNotActive:
		c.JSON(http.StatusConflict, utils.APIResponse{Success: false, Data: payload})
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "unknown unclaim outcome")
	}
}

// Revoke disables a device administratively. Revoking an already
// revoked device is reported as such, not as an error.
func (h *DeviceHandler) Revoke(c *gin.Context) {
	uid := c.GetString(middleware.ContextKeyUID)

	var req LifecycleRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.revokeUseCase.Execute(c.Request.Context(), usecases.RevokeDeviceCommand{
		HWID:     c.Param("hw_id"),
		ActorUID: uid,
		Reason:   req.Reason,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	payload := OutcomeResponse{
		Outcome: string(result.Outcome),
		Device:  deviceResponseFrom(result.Record),
	}
	switch result.Outcome {
	case device.RevokeOutcomeRevoked, device.RevokeOutcomeAlreadyRevoked:
		utils.SuccessResponse(c, http.StatusOK, "", payload)
	case device.RevokeOutcomeNotFound:
		c.JSON(http.StatusNotFound, utils.APIResponse{Success: false, Data: payload})
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "unknown revoke outcome")
	}
}

func (h *DeviceHandler) Reactivate(c *gin.Context) {
	uid := c.GetString(middleware.ContextKeyUID)

	var req LifecycleRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.reactivateUseCase.Execute(c.Request.Context(), usecases.ReactivateDeviceCommand{
		HWID:     c.Param("hw_id"),
		ActorUID: uid,
		Reason:   req.Reason,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	payload := OutcomeResponse{
		Outcome: string(result.Outcome),
		Device:  deviceResponseFrom(result.Record),
	}
	switch result.Outcome {
	case device.ReactivateOutcomeReactivated, device.ReactivateOutcomeAlreadyActive:
		utils.SuccessResponse(c, http.StatusOK, "", payload)
	case device.ReactivateOutcomeNotFound:
		c.JSON(http.StatusNotFound, utils.APIResponse{Success: false, Data: payload})
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "unknown reactivate outcome")
	}
}

// Get returns one device. The audit trail is only included for admin
// callers.
func (h *DeviceHandler) Get(c *gin.Context) {
	rec, err := h.getUseCase.Execute(c.Request.Context(), c.Param("hw_id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	uid := c.GetString(middleware.ContextKeyUID)
	admin := c.GetBool(middleware.ContextKeyAdmin)
	if !admin && rec.ClaimedBy != uid {
		utils.ErrorResponse(c, http.StatusForbidden, "not the device owner")
		return
	}

	if admin {
		utils.SuccessResponse(c, http.StatusOK, "", gin.H{
			"device":      deviceResponseFrom(rec),
			"audit_trail": auditTrailFrom(rec),
		})
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", deviceResponseFrom(rec))
}
