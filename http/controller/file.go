package controller

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/antartrc-jpg/gatebook/http/controller/dto"
	"github.com/antartrc-jpg/gatebook/service"
	"github.com/antartrc-jpg/gatebook/utils"
	"github.com/antartrc-jpg/gatebook/validator"
)

const defaultRecentLimit = 20

func (ctrl *Controller) PresignFile(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PresignRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "invalid request body: "+err.Error())
		return
	}

	result, err := ctrl.Lifecycle.Presign(ctx, req.Filename, req.ContentType, req.SizeBytes)
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[File] Presign rejected for %q: %v", req.Filename, err)
		ctrl.respondError(c, err)
		return
	}

	utils.JSON200(c, dto.PresignResponseDTO{
		FileID:     result.ID.String(),
		StorageKey: result.StorageKey,
		URL:        result.UploadURL,
	})
}

func (ctrl *Controller) ConfirmFile(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ConfirmRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "invalid request body: "+err.Error())
		return
	}

	id, err := uuid.Parse(req.FileID)
	if err != nil {
		utils.JSON400(c, "invalid file_id format")
		return
	}

	result, err := ctrl.Lifecycle.Confirm(ctx, id, req.SHA256Hex)
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[File] Confirm failed for %s: %v", id, err)
		ctrl.respondError(c, err)
		return
	}

	utils.JSON200(c, dto.ConfirmResponseDTO{
		OK:          true,
		SizeBytes:   result.SizeBytes,
		ContentType: result.ContentType,
	})
}

func (ctrl *Controller) ListRecentFiles(c *gin.Context) {
	ctx := c.Request.Context()

	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	views, err := ctrl.Lifecycle.ListRecent(ctx, limit)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[File] Failed to list recent files")
		utils.JSON500(c, "failed to list files")
		return
	}

	utils.JSON200(c, views)
}

func (ctrl *Controller) DownloadFile(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "invalid file id format")
		return
	}

	view, err := ctrl.Lifecycle.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			// Unknown ids answer with a placeholder record rather than 404.
			utils.JSON200(c, service.FileView{ID: id, Filename: "(not found)"})
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[File] Failed to load file %s", id)
		utils.JSON500(c, "failed to load file")
		return
	}

	utils.JSON200(c, view)
}

func (ctrl *Controller) DeleteFile(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "invalid file id format")
		return
	}

	deleted, err := ctrl.Lifecycle.Delete(ctx, id)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[File] Failed to delete file %s", id)
		utils.JSON500(c, "failed to delete file")
		return
	}
	if !deleted {
		ctrl.Infra.Logger.InfoWithContextf(ctx, "[File] Delete of absent id %s is a no-op", id)
	}

	utils.JSON204(c)
}

func (ctrl *Controller) SetFileRetention(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "invalid file id format")
		return
	}

	var req dto.RetentionPatchDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "invalid request body: "+err.Error())
		return
	}

	var retained bool
	switch {
	case req.Retained != nil:
		retained = *req.Retained
	case req.WithinWindow != nil:
		// Legacy inverse flag: within the sweep window means not retained.
		retained = !*req.WithinWindow
	default:
		utils.JSON422(c, "either retained or within_window must be set")
		return
	}

	if err := ctrl.Lifecycle.SetRetention(ctx, id, retained); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			utils.JSON404(c, "file id not found")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[File] Failed to update retention for %s", id)
		utils.JSON500(c, "failed to update retention")
		return
	}

	utils.JSON204(c)
}

// respondError maps lifecycle errors onto HTTP statuses: size violations to
// 413, content-type violations to 415, other validation failures to 400,
// missing ids to 404 and everything else to 500.
func (ctrl *Controller) respondError(c *gin.Context, err error) {
	var vErr *validator.ValidationError
	if errors.As(err, &vErr) {
		switch vErr.Kind {
		case validator.KindSizeTooLarge:
			utils.JSON413(c, vErr.Message)
		case validator.KindContentType:
			utils.JSON415(c, vErr.Message)
		default:
			utils.JSON400(c, vErr.Message)
		}
		return
	}
	if errors.Is(err, service.ErrNotFound) {
		utils.JSON404(c, "file_id unknown / object not found")
		return
	}
	utils.JSON500(c, "internal error")
}
