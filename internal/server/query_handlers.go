package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/gaugehq/gauge/internal/backends"
	"github.com/gaugehq/gauge/internal/template"
	"github.com/gaugehq/gauge/pkg/models"
)

// queryBody is the query endpoint's request shape: a backend query plus
// optional dashboard variables substituted into the query text.
type queryBody struct {
	models.QueryRequest
	Variables []template.Variable `json:"variables,omitempty"`
}

// handleQuery is the uniform query boundary: one request shape for every
// registered backend, one normalized result shape back.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	var body queryBody
	if err := c.BodyParser(&body); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}
	req := body.QueryRequest
	if req.Query == "" && req.Metric == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest, "query or metric is required", models.ValidationErrorType)
	}

	if req.Query != "" {
		substituted, err := template.Substitute(req.Query, body.Variables)
		if err != nil {
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		}
		req.Query = substituted
	}

	result, err := s.registry.Query(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, backends.ErrUnknownDatasource):
			return SendErrorWithType(c, fiber.StatusNotFound, err.Error(), models.NotFoundErrorType)
		case errors.Is(err, backends.ErrQueryExecution):
			return SendErrorWithType(c, fiber.StatusBadGateway, err.Error(), models.GeneralErrorType)
		default:
			s.log.Error("query failed", "datasource", req.Datasource, "error", err)
			return SendError(c, fiber.StatusInternalServerError, "Query failed")
		}
	}
	return SendSuccess(c, fiber.StatusOK, result)
}
