package service

import (
	"context"
	"strings"
	"time"

	"family-finance/internal/model"
	"family-finance/internal/repository"
)

// TaskInput represents data required to create or edit a family task.
type TaskInput struct {
	Description string  `json:"description"`
	AssignedTo  *string `json:"assignedTo"`
	DueDate     *string `json:"dueDate"`
}

// EventInput represents a new family calendar entry.
type EventInput struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// TaskService wraps shared family tasks and events. Everything is scoped to
// the caller's family; rows of other families read as not found.
type TaskService struct {
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
	now      func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository, userRepo *repository.UserRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo, userRepo: userRepo, now: time.Now}
}

func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.FamilyTask, error) {
	familyID, err := familyOf(user)
	if err != nil {
		return nil, err
	}
	task := model.FamilyTask{FamilyID: familyID}
	if err := s.applyTask(ctx, familyID, &task, input); err != nil {
		return nil, err
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, user *model.User) ([]model.FamilyTask, error) {
	familyID, err := familyOf(user)
	if err != nil {
		return []model.FamilyTask{}, nil
	}
	return s.taskRepo.ListByFamily(ctx, familyID)
}

// ListActive returns the family's open tasks.
func (s *TaskService) ListActive(ctx context.Context, user *model.User) ([]model.FamilyTask, error) {
	familyID, err := familyOf(user)
	if err != nil {
		return []model.FamilyTask{}, nil
	}
	return s.taskRepo.ListOpen(ctx, familyID)
}

func (s *TaskService) UpdateTask(ctx context.Context, user *model.User, taskID string, input TaskInput) (*model.FamilyTask, error) {
	task, err := s.GetTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.applyTask(ctx, task.FamilyID, task, input); err != nil {
		return nil, err
	}
	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID string) (*model.FamilyTask, error) {
	familyID, err := familyOf(user)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.taskRepo.FindByID(ctx, familyID, taskID)
}

// ToggleTask flips a task between open and done, stamping the completion time.
func (s *TaskService) ToggleTask(ctx context.Context, user *model.User, taskID string) (*model.FamilyTask, error) {
	task, err := s.GetTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.SetCompleted(ctx, task, !task.IsCompleted, s.now().UTC()); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task completely.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID string) error {
	familyID, err := familyOf(user)
	if err != nil {
		return ErrNotFound
	}
	return s.taskRepo.Delete(ctx, familyID, taskID)
}

func (s *TaskService) CreateEvent(ctx context.Context, user *model.User, input EventInput) (*model.FamilyEvent, error) {
	familyID, err := familyOf(user)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	if _, err := time.Parse(time.DateOnly, input.Date); err != nil {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	kind := strings.TrimSpace(input.Type)
	if kind == "" {
		kind = "OTHER"
	}
	event := model.FamilyEvent{
		FamilyID:    familyID,
		Title:       title,
		Date:        input.Date,
		Type:        strings.ToUpper(kind),
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.taskRepo.CreateEvent(ctx, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListEvents returns the family's events; upcoming limits them to today onwards.
func (s *TaskService) ListEvents(ctx context.Context, user *model.User, upcoming bool) ([]model.FamilyEvent, error) {
	familyID, err := familyOf(user)
	if err != nil {
		return []model.FamilyEvent{}, nil
	}
	from := ""
	if upcoming {
		from = s.now().Format(time.DateOnly)
	}
	return s.taskRepo.ListEvents(ctx, familyID, from)
}

func (s *TaskService) DeleteEvent(ctx context.Context, user *model.User, eventID string) error {
	familyID, err := familyOf(user)
	if err != nil {
		return ErrNotFound
	}
	return s.taskRepo.DeleteEvent(ctx, familyID, eventID)
}

func (s *TaskService) applyTask(ctx context.Context, familyID string, task *model.FamilyTask, input TaskInput) error {
	desc := strings.TrimSpace(input.Description)
	if desc == "" {
		return invalid("description", "is required")
	}
	due := input.DueDate
	if due != nil && strings.TrimSpace(*due) == "" {
		due = nil
	}
	if due != nil {
		if _, err := time.Parse(time.DateOnly, *due); err != nil {
			return invalid("dueDate", "must be YYYY-MM-DD")
		}
	}
	assignee := input.AssignedTo
	if assignee != nil && *assignee == "" {
		assignee = nil
	}
	if assignee != nil {
		member, err := s.userRepo.FindByID(ctx, *assignee)
		if err != nil || member.FamilyID == nil || *member.FamilyID != familyID {
			return invalid("assignedTo", "must be a member of the family")
		}
	}
	task.Description = desc
	task.DueDate = due
	task.AssignedTo = assignee
	return nil
}

func familyOf(user *model.User) (string, error) {
	if user.FamilyID == nil || *user.FamilyID == "" {
		return "", invalid("familyId", "user has no family")
	}
	return *user.FamilyID, nil
}
