package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/gaugehq/gauge/internal/backends"
	"github.com/gaugehq/gauge/pkg/models"
)

func (s *Server) handleListDatasources(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, s.registry.Statuses(c.Context()))
}

func (s *Server) handleTestDatasource(c *fiber.Ctx) error {
	name := c.Params("name")
	connected, err := s.registry.TestConnection(c.Context(), name)
	if err != nil {
		if errors.Is(err, backends.ErrUnknownDatasource) {
			return SendErrorWithType(c, fiber.StatusNotFound, err.Error(), models.NotFoundErrorType)
		}
		s.log.Error("datasource test failed", "name", name, "error", err)
		return SendError(c, fiber.StatusInternalServerError, "Connection test failed")
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"name": name, "connected": connected})
}

func (s *Server) handleGetDatasourceLogs(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, s.registry.GetLogs(c.Params("name")))
}

func (s *Server) handleClearDatasourceLogs(c *fiber.Ctx) error {
	s.registry.ClearLogs(c.Params("name"))
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"cleared": true})
}

func (s *Server) handleListAvailableMetrics(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, s.registry.ListAvailableMetrics(c.Context()))
}
