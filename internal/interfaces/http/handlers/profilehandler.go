package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/account/usecases"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/account"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/middleware"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/utils"
)

// ProfileHandler handles the caller's own profile document
type ProfileHandler struct {
	getUseCase    *usecases.GetProfileUseCase
	mergeUseCase  *usecases.MergeProfileUseCase
	usageUseCase  *usecases.RecordUsageUseCase
	deleteUseCase *usecases.DeleteProfileUseCase
	logger        logger.Interface
}

func NewProfileHandler(
	getUC *usecases.GetProfileUseCase,
	mergeUC *usecases.MergeProfileUseCase,
	usageUC *usecases.RecordUsageUseCase,
	deleteUC *usecases.DeleteProfileUseCase,
	log logger.Interface,
) *ProfileHandler {
	return &ProfileHandler{
		getUseCase:    getUC,
		mergeUseCase:  mergeUC,
		usageUseCase:  usageUC,
		deleteUseCase: deleteUC,
		logger:        log,
	}
}

// PatchProfileRequest carries user-editable profile fields and
// controller-reported state. At least one section must be present.
type PatchProfileRequest struct {
	Profile map[string]any `json:"profile"`
	State   map[string]any `json:"state"`
}

func (h *ProfileHandler) Get(c *gin.Context) {
	uid := c.GetString(middleware.ContextKeyUID)

	doc, err := h.getUseCase.Execute(c.Request.Context(), uid)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", doc)
}

func (h *ProfileHandler) Patch(c *gin.Context) {
	uid := c.GetString(middleware.ContextKeyUID)

	var req PatchProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for profile patch", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Profile) == 0 && len(req.State) == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "nothing to update")
		return
	}

	doc, err := h.applyPatches(c, uid, req)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "profile updated", doc)
}

func (h *ProfileHandler) applyPatches(c *gin.Context, uid string, req PatchProfileRequest) (*account.Document, error) {
	var doc *account.Document
	var err error
	if len(req.Profile) > 0 {
		doc, err = h.mergeUseCase.Execute(c.Request.Context(), uid, account.ProfilePatch{Fields: req.Profile})
		if err != nil {
			return nil, err
		}
	}
	if len(req.State) > 0 {
		doc, err = h.mergeUseCase.Execute(c.Request.Context(), uid, account.StatePatch{Fields: req.State})
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// RecordUsage bumps the daily and monthly counters for one feature.
func (h *ProfileHandler) RecordUsage(c *gin.Context) {
	uid := c.GetString(middleware.ContextKeyUID)
	feature := c.Param("feature")

	doc, err := h.usageUseCase.Execute(c.Request.Context(), uid, feature)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"usage": doc.Usage})
}

func (h *ProfileHandler) Delete(c *gin.Context) {
	uid := c.GetString(middleware.ContextKeyUID)

	if err := h.deleteUseCase.Execute(c.Request.Context(), uid); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}
