package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-routing/internal/api/dto"
	"github.com/spec-kit/ticket-routing/internal/service"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util"
)

// AdminHandler covers admin provisioning endpoints.
type AdminHandler struct {
	provision *service.ProvisionService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(provision *service.ProvisionService) *AdminHandler {
	return &AdminHandler{provision: provision}
}

// CreateUser POST /admin/users. Engineers created here join the rotation.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.provision.CreateUser(c.UserContext(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromUser(user)})
}

// QueueLength GET /admin/queue.
func (h *AdminHandler) QueueLength(c *fiber.Ctx) error {
	length, err := h.provision.QueueLength(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"length": length}})
}
