package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/task-service/internal/api/dto"
	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/service"
)

// DepartmentsHandler exposes department endpoints.
type DepartmentsHandler struct {
	departments *service.DepartmentService
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(departments *service.DepartmentService) *DepartmentsHandler {
	return &DepartmentsHandler{departments: departments}
}

// Create handles POST /api/departments.
func (h *DepartmentsHandler) Create(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	dept, err := h.departments.CreateDepartment(c.UserContext(), actor, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": departmentResponse(dept)})
}

// List handles GET /api/departments.
func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	depts, err := h.departments.ListDepartments(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		items = append(items, departmentResponse(&depts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get handles GET /api/departments/:id.
func (h *DepartmentsHandler) Get(c *fiber.Ctx) error {
	dept, err := h.departments.GetDepartment(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departmentResponse(dept)})
}

// Update handles PUT /api/departments/:id.
func (h *DepartmentsHandler) Update(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	var req dto.UpdateDepartmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	dept, err := h.departments.UpdateDepartment(c.UserContext(), actor, c.Params("id"), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departmentResponse(dept)})
}

// Members handles GET /api/departments/:id/users.
func (h *DepartmentsHandler) Members(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	members, err := h.departments.ListMembers(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.WorkerResponse, 0, len(members))
	for i := range members {
		items = append(items, workerResponse(&members[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func departmentResponse(dept *domain.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:          dept.ID,
		Name:        dept.Name,
		Description: dept.Description,
		MemberCount: dept.MemberCount,
		CreatedAt:   dept.CreatedAt,
		UpdatedAt:   dept.UpdatedAt,
	}
}
