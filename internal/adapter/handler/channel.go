package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	channelDTO "github.com/dispatchcrew/airdispatch/internal/adapter/dto/channel"
	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
)

// Channel handles channel configuration HTTP requests
type Channel struct {
	channelRepo repositories.ChannelRepository
	logger      *zap.Logger
}

// NewChannelHandler creates a new channel handler
func NewChannelHandler(channelRepo repositories.ChannelRepository, logger *zap.Logger) *Channel {
	return &Channel{
		channelRepo: channelRepo,
		logger:      logger,
	}
}

// CreateChannel handles POST /channels
func (h *Channel) CreateChannel(c echo.Context) error {
	var req channelDTO.CreateChannelRequest
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

	sourceConfig := datatypes.JSON(req.SourceConfig)
	if len(sourceConfig) == 0 {
		sourceConfig = datatypes.JSON([]byte(`{}`))
	}

	channel := entities.NewChannel(tenantID, req.Name, req.Talkgroup,
		entities.ChannelSourceType(req.SourceType), sourceConfig)
	if err := h.channelRepo.Create(c.Request().Context(), channel); err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusCreated, toChannelResponse(channel))
}

// GetChannel handles GET /channels/:id
func (h *Channel) GetChannel(c echo.Context) error {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_channel_id",
			"message": "channel ID must be a valid UUID",
		})
	}
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	channel, err := h.channelRepo.FindByID(c.Request().Context(), tenantID, channelID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, toChannelResponse(channel))
}

// ListChannels handles GET /channels
func (h *Channel) ListChannels(c echo.Context) error {
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	channels, err := h.channelRepo.ListByTenant(c.Request().Context(), tenantID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	resp := channelDTO.ChannelListResponse{
		Channels: make([]channelDTO.ChannelResponse, 0, len(channels)),
		Total:    len(channels),
	}
	for i := range channels {
		resp.Channels = append(resp.Channels, toChannelResponse(&channels[i]))
	}
	return HandleSuccess(h.logger, c, http.StatusOK, resp)
}

// UpdateChannel handles PUT /channels/:id
func (h *Channel) UpdateChannel(c echo.Context) error {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_channel_id",
			"message": "channel ID must be a valid UUID",
		})
	}
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	var req channelDTO.UpdateChannelRequest
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

	channel, err := h.channelRepo.FindByID(c.Request().Context(), tenantID, channelID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	channel.Name = req.Name
	channel.Talkgroup = req.Talkgroup
	if len(req.SourceConfig) > 0 {
		channel.SourceConfig = datatypes.JSON(req.SourceConfig)
	}
	if err := h.channelRepo.Update(c.Request().Context(), channel); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, toChannelResponse(channel))
}

// DeactivateChannel handles DELETE /channels/:id. Channels are never
// hard-deleted; existing transmissions keep their channel reference.
func (h *Channel) DeactivateChannel(c echo.Context) error {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_channel_id",
			"message": "channel ID must be a valid UUID",
		})
	}
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	channel, err := h.channelRepo.FindByID(c.Request().Context(), tenantID, channelID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	channel.Deactivate()
	if err := h.channelRepo.Update(c.Request().Context(), channel); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, toChannelResponse(channel))
}

func toChannelResponse(channel *entities.Channel) channelDTO.ChannelResponse {
	return channelDTO.ChannelResponse{
		ID:           channel.ID.String(),
		TenantID:     channel.TenantID.String(),
		Name:         channel.Name,
		Talkgroup:    channel.Talkgroup,
		SourceType:   string(channel.SourceType),
		SourceConfig: []byte(channel.SourceConfig),
		Active:       channel.Active,
		CreatedAt:    channel.CreatedAt,
		UpdatedAt:    channel.UpdatedAt,
	}
}
