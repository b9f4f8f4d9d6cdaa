package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/gaugehq/gauge/internal/core"
	"github.com/gaugehq/gauge/pkg/models"
)

func (s *Server) parseAlertID(c *fiber.Ctx) (models.AlertID, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, SendErrorWithType(c, fiber.StatusBadRequest, "Invalid alert id", models.ValidationErrorType)
	}
	return models.AlertID(id), nil
}

func (s *Server) handleListAlerts(c *fiber.Ctx) error {
	alerts, err := s.sqlite.ListAlerts(c.Context())
	if err != nil {
		s.log.Error("failed to list alerts", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to list alerts")
	}
	if alerts == nil {
		alerts = []*models.Alert{}
	}
	return SendSuccess(c, fiber.StatusOK, alerts)
}

func (s *Server) handleCreateAlert(c *fiber.Ctx) error {
	var req models.CreateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	alert, err := core.CreateAlert(c.Context(), s.sqlite, s.log, &req)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAlertConfiguration) {
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		}
		s.log.Error("failed to create alert", "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Failed to create alert")
	}
	return SendSuccess(c, fiber.StatusCreated, alert)
}

func (s *Server) handleGetAlert(c *fiber.Ctx) error {
	id, err := s.parseAlertID(c)
	if err != nil {
		return err
	}

	alert, err := core.GetAlert(c.Context(), s.sqlite, s.log, id)
	if err != nil {
		if errors.Is(err, core.ErrAlertNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		return SendError(c, fiber.StatusInternalServerError, "Failed to retrieve alert")
	}
	return SendSuccess(c, fiber.StatusOK, alert)
}

func (s *Server) handleUpdateAlert(c *fiber.Ctx) error {
	id, err := s.parseAlertID(c)
	if err != nil {
		return err
	}

	var req models.UpdateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	alert, err := core.UpdateAlert(c.Context(), s.sqlite, s.log, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAlertConfiguration):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		case errors.Is(err, core.ErrAlertNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		default:
			return SendError(c, fiber.StatusInternalServerError, "Failed to update alert")
		}
	}
	return SendSuccess(c, fiber.StatusOK, alert)
}

func (s *Server) handleDeleteAlert(c *fiber.Ctx) error {
	id, err := s.parseAlertID(c)
	if err != nil {
		return err
	}

	if err := core.DeleteAlert(c.Context(), s.sqlite, s.log, id); err != nil {
		if errors.Is(err, core.ErrAlertNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		return SendError(c, fiber.StatusInternalServerError, "Failed to delete alert")
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (s *Server) handleAlertHistory(c *fiber.Ctx) error {
	id, err := s.parseAlertID(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", models.DefaultAlertHistoryLimit)

	entries, err := core.ListAlertHistory(c.Context(), s.sqlite, s.log, id, limit)
	if err != nil {
		if errors.Is(err, core.ErrAlertNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		return SendError(c, fiber.StatusInternalServerError, "Failed to list alert history")
	}
	return SendSuccess(c, fiber.StatusOK, entries)
}
