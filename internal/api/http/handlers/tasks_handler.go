package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/task-service/internal/api/dto"
	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/service"
	apperrors "github.com/opsdesk/task-service/pkg/util/errorutil"
)

// TasksHandler manages task endpoints.
type TasksHandler struct {
	tasks      *service.TaskService
	assignment *service.AssignmentService
	location   *time.Location
}

// NewTasksHandler constructs handler. Due dates are read in loc.
func NewTasksHandler(tasks *service.TaskService, assignment *service.AssignmentService, loc *time.Location) *TasksHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TasksHandler{tasks: tasks, assignment: assignment, location: loc}
}

// Create POST /api/tasks.
//
// A task that could not be auto-assigned is still created; the response is 422 with
// the task in "data" next to the error.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	var req dto.CreateTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	input := service.TaskCreateInput{
		Title:                 req.Title,
		Description:           req.Description,
		Priority:              strings.ToUpper(req.Priority),
		Status:                strings.ToUpper(req.Status),
		RequiredQualification: strings.ToUpper(req.RequiredQualification),
		DepartmentID:          req.DepartmentID,
		AssigneeID:            req.AssigneeID,
	}
	if req.DueDate != nil && strings.TrimSpace(*req.DueDate) != "" {
		if input.DueDate, err = parseDate("due_date", *req.DueDate, h.location); err != nil {
			return err
		}
	}

	task, err := h.tasks.CreateTask(c.UserContext(), actor, input)
	if err != nil {
		if task != nil && apperrors.HasCode(err, apperrors.CodeNoEligibleWorker) {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
				"data": taskResponse(task),
				"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
					"details": domainErr.Details,
				},
			})
		}
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": taskResponse(task)})
}

// List GET /api/tasks.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	filter := service.TaskListFilter{
		DepartmentID: optionalQuery(c, "department_id"),
		AssigneeID:   optionalQuery(c, "assignee_id"),
		Statuses:     csvQuery(c, "status"),
		Priorities:   csvQuery(c, "priority"),
		SearchTerm:   optionalQuery(c, "q"),
		Limit:        limit,
		Offset:       offset,
	}
	tasks, err := h.tasks.ListTasks(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, taskResponse(&tasks[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/tasks/:id.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	task, err := h.tasks.GetTask(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponse(task)})
}

// Update PUT /api/tasks/:id.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	patch := service.TaskPatch{
		Title:                 req.Title,
		Description:           req.Description,
		Priority:              upperPtr(req.Priority),
		Status:                upperPtr(req.Status),
		DepartmentID:          req.DepartmentID,
		RequiredQualification: upperPtr(req.RequiredQualification),
		Comments:              req.Comments,
	}
	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			patch.ClearDueDate = true
		} else if patch.DueDate, err = parseDate("due_date", *req.DueDate, h.location); err != nil {
			return err
		}
	}
	if req.AssigneeID != nil {
		if strings.TrimSpace(*req.AssigneeID) == "" {
			patch.ClearAssignee = true
		} else {
			patch.AssigneeID = req.AssigneeID
		}
	}

	task, err := h.tasks.UpdateTask(c.UserContext(), actor, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponse(task)})
}

// Delete DELETE /api/tasks/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	if err := h.tasks.DeleteTask(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Assign POST /api/tasks/:id/assign runs automatic assignment on an unassigned task.
func (h *TasksHandler) Assign(c *fiber.Ctx) error {
	task, err := h.assignment.AssignByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponse(task)})
}

// AddComment POST /api/tasks/:id/comments.
func (h *TasksHandler) AddComment(c *fiber.Ctx) error {
	actor, err := currentWorker(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.tasks.AddComment(c.UserContext(), actor, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /api/tasks/:id/comments.
func (h *TasksHandler) ListComments(c *fiber.Ctx) error {
	comments, err := h.tasks.ListComments(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func taskResponse(task *domain.Task) dto.TaskResponse {
	resp := dto.TaskResponse{
		ID:                    task.ID,
		Title:                 task.Title,
		Description:           task.Description,
		Priority:              task.Priority,
		Status:                task.Status,
		RequiredQualification: task.RequiredQualification,
		DepartmentID:          task.DepartmentID,
		AssigneeID:            task.AssigneeID,
		CreatedByID:           task.CreatedByID,
		CreatedAt:             task.CreatedAt,
		UpdatedAt:             task.UpdatedAt,
	}
	if task.DueDate != nil {
		due := task.DueDateString()
		resp.DueDate = &due
	}
	return resp
}

func commentResponse(comment *domain.TaskComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}

func upperPtr(v *string) *string {
	if v == nil {
		return nil
	}
	up := strings.ToUpper(strings.TrimSpace(*v))
	return &up
}
