package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	transmissionDTO "github.com/dispatchcrew/airdispatch/internal/adapter/dto/transmission"
	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/storage"
	"github.com/dispatchcrew/airdispatch/internal/usecase/pipeline"
)

const audioURLExpiry = 15 * time.Minute

// Transmission handles transmission HTTP requests
type Transmission struct {
	pipeline   *pipeline.Service
	tmRepo     repositories.TransmissionRepository
	audioStore *storage.AudioStore
	logger     *zap.Logger
}

// NewTransmissionHandler creates a new transmission handler
func NewTransmissionHandler(pipelineService *pipeline.Service, tmRepo repositories.TransmissionRepository, audioStore *storage.AudioStore, logger *zap.Logger) *Transmission {
	return &Transmission{
		pipeline:   pipelineService,
		tmRepo:     tmRepo,
		audioStore: audioStore,
		logger:     logger,
	}
}

// Ingest handles POST /transmissions, the http_push ingestion surface
func (h *Transmission) Ingest(c echo.Context) error {
	var req transmissionDTO.IngestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	channelID, err := uuid.Parse(req.ChannelID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_channel_id",
			"message": "channel ID must be a valid UUID",
		})
	}
	if !req.EndedAt.After(req.StartedAt) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_time_range",
			"message": "ended_at must be after started_at",
		})
	}

	tm, err := h.pipeline.Ingest(c.Request().Context(), tenantID, channelID, req.AudioRef, req.StartedAt, req.EndedAt)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusAccepted, h.toResponse(c, tm))
}

// UploadAudio handles POST /transmissions/audio. The uploaded segment
// lands in object storage; the returned key is passed as audio_ref on
// a subsequent ingest.
func (h *Transmission) UploadAudio(c echo.Context) error {
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}
	if h.audioStore == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"error":   "storage_unavailable",
			"message": "audio storage is not configured",
		})
	}

	file, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_request",
			"message": "multipart field 'audio' is required",
		})
	}

	src, err := file.Open()
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key, err := h.audioStore.Upload(c.Request().Context(), tenantID, src, file.Size, contentType)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusCreated, map[string]interface{}{
		"audio_ref": key,
	})
}

// GetTransmission handles GET /transmissions/:id
func (h *Transmission) GetTransmission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_transmission_id",
			"message": "transmission ID must be a valid UUID",
		})
	}
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	tm, err := h.tmRepo.FindByID(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if tm.TenantID != tenantID {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error":   "transmission_not_found",
			"message": "transmission not found",
		})
	}
	return HandleSuccess(h.logger, c, http.StatusOK, h.toResponse(c, tm))
}

// ListTransmissions handles GET /transmissions
func (h *Transmission) ListTransmissions(c echo.Context) error {
	var req transmissionDTO.ListRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	filter := repositories.TransmissionFilter{
		Status:   entities.TransmissionStatus(req.Status),
		Priority: entities.Priority(req.Priority),
		Limit:    req.Limit,
	}
	if req.ChannelID != "" {
		channelID, err := uuid.Parse(req.ChannelID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":   "invalid_channel_id",
				"message": "channel ID must be a valid UUID",
			})
		}
		filter.ChannelID = &channelID
	}

	transmissions, err := h.tmRepo.ListByTenant(c.Request().Context(), tenantID, filter)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	resp := transmissionDTO.TransmissionListResponse{
		Transmissions: make([]transmissionDTO.TransmissionResponse, 0, len(transmissions)),
		Total:         len(transmissions),
	}
	for i := range transmissions {
		resp.Transmissions = append(resp.Transmissions, h.toResponse(c, &transmissions[i]))
	}
	return HandleSuccess(h.logger, c, http.StatusOK, resp)
}

// ResetTransmission handles POST /transmissions/:id/reset. Only failed
// transmissions can be reset; they rejoin the queue from pending.
func (h *Transmission) ResetTransmission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_transmission_id",
			"message": "transmission ID must be a valid UUID",
		})
	}
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	tm, err := h.pipeline.Reset(c.Request().Context(), tenantID, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, h.toResponse(c, tm))
}

func (h *Transmission) toResponse(c echo.Context, tm *entities.Transmission) transmissionDTO.TransmissionResponse {
	resp := transmissionDTO.TransmissionResponse{
		ID:                   tm.ID.String(),
		ChannelID:            tm.ChannelID.String(),
		TenantID:             tm.TenantID.String(),
		StartedAt:            tm.StartedAt,
		EndedAt:              tm.EndedAt,
		AudioRef:             tm.AudioRef,
		Transcript:           tm.Transcript,
		TranscriptConfidence: tm.TranscriptConfidence,
		LanguageCode:         tm.LanguageCode,
		Entities:             tm.Entities,
		Intent:               tm.Intent,
		Priority:             string(tm.Priority),
		Tags:                 tm.Tags,
		Status:               string(tm.Status),
		IncidentID:           tm.IncidentID,
		TaskIDs:              tm.TaskIDs,
		ErrorMessage:         tm.ErrorMessage,
		CreatedAt:            tm.CreatedAt,
		UpdatedAt:            tm.UpdatedAt,
	}
	if h.audioStore != nil {
		if u, err := h.audioStore.PresignAudioRef(c.Request().Context(), tm.AudioRef, audioURLExpiry); err == nil {
			resp.AudioURL = u
		}
	}
	return resp
}
