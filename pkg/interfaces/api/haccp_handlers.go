package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/application/services/haccp"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/services"
)

func (s *Server) listCCPs(c *fiber.Ctx) error {
	var productID *uuid.UUID
	if code := c.Query("product"); code != "" {
		product, err := s.orch.Store.GetProductByCode(c.UserContext(), code)
		if err != nil {
			return err
		}
		productID = &product.ID
	}
	ccps, err := s.orch.CCPs.ListCCPs(c.UserContext(), actorFrom(c), productID)
	if err != nil {
		return err
	}
	return c.JSON(ccps)
}

func (s *Server) createCCP(c *fiber.Ctx) error {
	var in haccp.CCPInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	ccp, err := s.orch.CCPs.CreateCCP(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(ccp)
}

func (s *Server) updateCCP(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var in haccp.CCPInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	ccp, err := s.orch.CCPs.UpdateCCP(c.UserContext(), actorFrom(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(ccp)
}

func (s *Server) deactivateCCP(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	ccp, err := s.orch.CCPs.DeactivateCCP(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}
	return c.JSON(ccp)
}

func (s *Server) listLogs(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var q haccp.LogQuery
	var err error

	if code := c.Query("ccp"); code != "" {
		ccp, err := s.orch.Store.GetCCPByCode(ctx, code)
		if err != nil {
			return err
		}
		q.CCPID = &ccp.ID
	}
	if number := c.Query("order"); number != "" {
		order, err := s.orch.Store.GetOrderByNumber(ctx, number)
		if err != nil {
			return err
		}
		q.ProductionOrderID = &order.ID
	}
	if q.From, q.To, err = queryPeriod(c); err != nil {
		return err
	}
	if q.WithinLimits, err = queryBool(c, "within_limits"); err != nil {
		return err
	}
	q.Limit = c.QueryInt("limit", 0)

	logs, err := s.orch.Logs.ListLogs(ctx, actorFrom(c), q)
	if err != nil {
		return err
	}
	return c.JSON(logs)
}

func (s *Server) recordMeasurement(c *fiber.Ctx) error {
	var in haccp.MeasurementInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	log, err := s.orch.Logs.RecordMeasurement(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(log)
}

func (s *Server) recordResolution(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var in haccp.ResolutionInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	log, err := s.orch.Logs.RecordResolution(c.UserContext(), actorFrom(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(log)
}

func (s *Server) alerts(c *fiber.Ctx) error {
	var window time.Duration
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return errs.Validation("api", "invalid window %q", raw)
		}
		window = d
	}
	report, err := s.orch.Alerts.DetectAlerts(c.UserContext(), actorFrom(c), window)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (s *Server) complianceScore(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := services.Authorize(actorFrom(c), services.ActionViewCompliance); err != nil {
		return err
	}

	var filter haccp.ComplianceFilter
	var err error
	if filter.From, filter.To, err = queryPeriod(c); err != nil {
		return err
	}
	if code := c.Query("ccp"); code != "" {
		ccp, err := s.orch.Store.GetCCPByCode(ctx, code)
		if err != nil {
			return err
		}
		filter.CCPID = &ccp.ID
	}
	if number := c.Query("order"); number != "" {
		order, err := s.orch.Store.GetOrderByNumber(ctx, number)
		if err != nil {
			return err
		}
		filter.ProductionOrderID = &order.ID
	}

	score, err := s.orch.Compliance.Score(ctx, filter)
	if err != nil {
		return err
	}
	return c.JSON(score)
}

func (s *Server) complianceReport(c *fiber.Ctx) error {
	from, to, err := queryPeriod(c)
	if err != nil {
		return err
	}
	end := s.orch.Reports.Now()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -30)
	if from != nil {
		start = *from
	}
	report, err := s.orch.Reports.ComplianceReport(c.UserContext(), actorFrom(c), start, end)
	if err != nil {
		return err
	}
	return c.JSON(report)
}
