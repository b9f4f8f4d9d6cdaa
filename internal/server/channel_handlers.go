package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/gaugehq/gauge/internal/core"
	"github.com/gaugehq/gauge/pkg/models"
)

func (s *Server) parseChannelID(c *fiber.Ctx) (models.ChannelID, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, SendErrorWithType(c, fiber.StatusBadRequest, "Invalid channel id", models.ValidationErrorType)
	}
	return models.ChannelID(id), nil
}

func (s *Server) handleListChannels(c *fiber.Ctx) error {
	channels, err := s.sqlite.ListChannels(c.Context())
	if err != nil {
		s.log.Error("failed to list channels", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to list channels")
	}
	if channels == nil {
		channels = []*models.NotificationChannel{}
	}
	return SendSuccess(c, fiber.StatusOK, channels)
}

func (s *Server) handleCreateChannel(c *fiber.Ctx) error {
	var req models.CreateChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	channel, err := core.CreateChannel(c.Context(), s.sqlite, s.log, &req)
	if err != nil {
		if errors.Is(err, core.ErrInvalidChannelConfiguration) {
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		}
		s.log.Error("failed to create channel", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to create channel")
	}
	return SendSuccess(c, fiber.StatusCreated, channel)
}

func (s *Server) handleGetChannel(c *fiber.Ctx) error {
	id, err := s.parseChannelID(c)
	if err != nil {
		return err
	}

	channel, err := core.GetChannel(c.Context(), s.sqlite, s.log, id)
	if err != nil {
		if errors.Is(err, core.ErrChannelNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Channel not found", models.NotFoundErrorType)
		}
		return SendError(c, fiber.StatusInternalServerError, "Failed to retrieve channel")
	}
	return SendSuccess(c, fiber.StatusOK, channel)
}

func (s *Server) handleUpdateChannel(c *fiber.Ctx) error {
	id, err := s.parseChannelID(c)
	if err != nil {
		return err
	}

	var req models.UpdateChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	channel, err := core.UpdateChannel(c.Context(), s.sqlite, s.log, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidChannelConfiguration):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		case errors.Is(err, core.ErrChannelNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Channel not found", models.NotFoundErrorType)
		default:
			return SendError(c, fiber.StatusInternalServerError, "Failed to update channel")
		}
	}
	return SendSuccess(c, fiber.StatusOK, channel)
}

func (s *Server) handleDeleteChannel(c *fiber.Ctx) error {
	id, err := s.parseChannelID(c)
	if err != nil {
		return err
	}

	if err := core.DeleteChannel(c.Context(), s.sqlite, s.log, id); err != nil {
		if errors.Is(err, core.ErrChannelNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Channel not found", models.NotFoundErrorType)
		}
		return SendError(c, fiber.StatusInternalServerError, "Failed to delete channel")
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
