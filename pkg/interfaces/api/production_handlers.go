package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/application/services/production"
	"github.com/vsinha/mes/pkg/domain/entities"
)

type allocateRequest struct {
	MaterialCode string          `json:"material_code"`
	Quantity     decimal.Decimal `json:"quantity"`
	OrderNumber  string          `json:"order_number"`
}

type completeRequest struct {
	ProducedQuantity decimal.Decimal `json:"produced_quantity"`
}

func (s *Server) allocate(c *fiber.Ctx) error {
	var req allocateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := s.orch.AllocateMaterial(c.UserContext(), actorFrom(c), req.MaterialCode, req.Quantity, req.OrderNumber)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) traceLot(c *fiber.Ctx) error {
	trace, err := s.orch.TraceLot(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	return c.JSON(trace)
}

func (s *Server) traceOrder(c *fiber.Ctx) error {
	trace, err := s.orch.TraceOrder(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	return c.JSON(trace)
}

func (s *Server) productCost(c *fiber.Ctx) error {
	qty, err := queryDecimal(c, "qty", "1")
	if err != nil {
		return err
	}
	cost, err := s.orch.ProductCost(c.UserContext(), c.Params("code"), qty)
	if err != nil {
		return err
	}
	return c.JSON(cost)
}

func (s *Server) costSummary(c *fiber.Ctx) error {
	summary, err := s.orch.Costing.CostSummary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

func (s *Server) listOrders(c *fiber.Ctx) error {
	q := production.OrderQuery{
		Status:   entities.OrderStatus(c.Query("status")),
		Priority: entities.OrderPriority(c.Query("priority")),
	}
	var err error
	if q.From, q.To, err = queryPeriod(c); err != nil {
		return err
	}
	orders, err := s.orch.Production.ListOrders(c.UserContext(), actorFrom(c), q)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

func (s *Server) createOrder(c *fiber.Ctx) error {
	var in production.OrderInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	order, err := s.orch.Production.CreateOrder(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (s *Server) dashboard(c *fiber.Ctx) error {
	dashboard, err := s.orch.Production.Dashboard(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(dashboard)
}

func (s *Server) order(ctx context.Context, number string) (*entities.ProductionOrder, error) {
	return s.orch.Store.GetOrderByNumber(ctx, number)
}

func (s *Server) startOrder(c *fiber.Ctx) error {
	order, err := s.order(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	started, err := s.orch.Production.Start(c.UserContext(), actorFrom(c), order.ID)
	if err != nil {
		return err
	}
	return c.JSON(started)
}

func (s *Server) completeOrder(c *fiber.Ctx) error {
	var req completeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	order, err := s.order(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	completed, err := s.orch.Production.Complete(c.UserContext(), actorFrom(c), order.ID, req.ProducedQuantity)
	if err != nil {
		return err
	}
	return c.JSON(completed)
}

type orderTransition func(ctx context.Context, actor entities.Actor, order *entities.ProductionOrder) (*entities.ProductionOrder, error)

func (s *Server) transition(apply orderTransition) fiber.Handler {
	return func(c *fiber.Ctx) error {
		order, err := s.order(c.UserContext(), c.Params("number"))
		if err != nil {
			return err
		}
		updated, err := apply(c.UserContext(), actorFrom(c), order)
		if err != nil {
			return err
		}
		return c.JSON(updated)
	}
}

func (s *Server) holdOrder(c *fiber.Ctx) error {
	return s.transition(func(ctx context.Context, actor entities.Actor, o *entities.ProductionOrder) (*entities.ProductionOrder, error) {
		return s.orch.Production.Hold(ctx, actor, o.ID)
	})(c)
}

func (s *Server) resumeOrder(c *fiber.Ctx) error {
	return s.transition(func(ctx context.Context, actor entities.Actor, o *entities.ProductionOrder) (*entities.ProductionOrder, error) {
		return s.orch.Production.Resume(ctx, actor, o.ID)
	})(c)
}

func (s *Server) cancelOrder(c *fiber.Ctx) error {
	return s.transition(func(ctx context.Context, actor entities.Actor, o *entities.ProductionOrder) (*entities.ProductionOrder, error) {
		return s.orch.Production.Cancel(ctx, actor, o.ID)
	})(c)
}

func (s *Server) orderEfficiency(c *fiber.Ctx) error {
	order, err := s.order(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	efficiency, err := s.orch.Production.Efficiency(c.UserContext(), order.ID)
	if err != nil {
		return err
	}
	return c.JSON(efficiency)
}
