package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/application/services/supplier"
	"github.com/vsinha/mes/pkg/domain/entities"
)

type auditRequest struct {
	Date time.Time     `json:"date"`
	Type dto.AuditType `json:"type"`
}

func (s *Server) listSuppliers(c *fiber.Ctx) error {
	q := supplier.SupplierQuery{
		Status:                entities.SupplierStatus(c.Query("status")),
		CertificationContains: c.Query("certification"),
	}
	list, err := s.orch.Suppliers.ListSuppliers(c.UserContext(), actorFrom(c), q)
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) registerSupplier(c *fiber.Ctx) error {
	var in supplier.RegistrationInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	created, err := s.orch.Suppliers.Register(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (s *Server) supplierStatistics(c *fiber.Ctx) error {
	stats, err := s.orch.Suppliers.Statistics(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (s *Server) supplierPerformance(c *fiber.Ctx) error {
	from, to, err := queryPeriod(c)
	if err != nil {
		return err
	}
	review, err := s.orch.ReviewSupplier(c.UserContext(), c.Params("code"), from, to)
	if err != nil {
		return err
	}
	return c.JSON(review)
}

func (s *Server) supplierRisk(c *fiber.Ctx) error {
	found, err := s.orch.Store.GetSupplierByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	risk, err := s.orch.Evaluator.RiskAssessment(c.UserContext(), found.ID)
	if err != nil {
		return err
	}
	return c.JSON(risk)
}

func (s *Server) scheduleAudit(c *fiber.Ctx) error {
	var req auditRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	found, err := s.orch.Store.GetSupplierByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	plan, err := s.orch.Suppliers.ScheduleAudit(c.UserContext(), actorFrom(c), found.ID, req.Date, req.Type)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}
