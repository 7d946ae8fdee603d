package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/task-service/internal/api/dto"
	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/service"
)

// WorkersHandler exposes login, profile and worker administration endpoints.
type WorkersHandler struct {
	authService *service.AuthService
	workers     *service.WorkerService
}

// NewWorkersHandler constructs handler.
func NewWorkersHandler(authService *service.AuthService, workers *service.WorkerService) *WorkersHandler {
	return &WorkersHandler{authService: authService, workers: workers}
}

// Login handles POST /api/login.
func (h *WorkersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	worker, token, exp, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"worker": workerResponse(worker),
			"auth":   dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Me handles GET /api/me.
func (h *WorkersHandler) Me(c *fiber.Ctx) error {
	worker, err := currentWorker(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workerResponse(worker)})
}

// UpdateMe handles PUT /api/me.
func (h *WorkersHandler) UpdateMe(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	worker, err := h.workers.UpdateProfile(c.UserContext(), actor, service.ProfileInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workerResponse(worker)})
}

// ChangePassword handles PUT /api/me/password.
func (h *WorkersHandler) ChangePassword(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.workers.ChangePassword(c.UserContext(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Create handles POST /api/workers.
func (h *WorkersHandler) Create(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	var req dto.CreateWorkerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	worker, err := h.workers.CreateWorker(c.UserContext(), actor, service.WorkerInput{
		Username:      &req.Username,
		Email:         &req.Email,
		FirstName:     &req.FirstName,
		LastName:      &req.LastName,
		Password:      &req.Password,
		Role:          upperPtr(&req.Role),
		DepartmentID:  req.DepartmentID,
		Qualification: upperPtr(req.Qualification),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": workerResponse(worker)})
}

// List handles GET /api/workers.
func (h *WorkersHandler) List(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	workers, err := h.workers.ListWorkers(c.UserContext(), service.WorkerListFilters{
		Role:         upperPtr(optionalQuery(c, "role")),
		DepartmentID: optionalQuery(c, "department_id"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return err
	}
	items := make([]dto.WorkerResponse, 0, len(workers))
	for i := range workers {
		items = append(items, workerResponse(&workers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get handles GET /api/workers/:id.
func (h *WorkersHandler) Get(c *fiber.Ctx) error {
	worker, err := h.workers.GetWorker(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workerResponse(worker)})
}

// Update handles PUT /api/workers/:id.
func (h *WorkersHandler) Update(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	var req dto.UpdateWorkerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	worker, err := h.workers.UpdateWorker(c.UserContext(), actor, c.Params("id"), service.WorkerInput{
		Username:      req.Username,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Password:      req.Password,
		Role:          upperPtr(req.Role),
		DepartmentID:  req.DepartmentID,
		Qualification: upperPtr(req.Qualification),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workerResponse(worker)})
}

// Delete handles DELETE /api/workers/:id.
func (h *WorkersHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	if err := h.workers.DeleteWorker(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func workerResponse(worker *domain.Worker) dto.WorkerResponse {
	return dto.WorkerResponse{
		ID:            worker.ID,
		Username:      worker.Username,
		Email:         worker.Email,
		FirstName:     worker.FirstName,
		LastName:      worker.LastName,
		Role:          worker.Role,
		DepartmentID:  worker.DepartmentID,
		Qualification: worker.Qualification,
		LastActiveAt:  worker.LastActiveAt,
		CreatedAt:     worker.CreatedAt,
	}
}
