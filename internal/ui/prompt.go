package ui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/mschirtzinger/todosync/internal/schema"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("aborted")

// TaskInput is what the add prompt collects.
type TaskInput struct {
	Content     string
	Description string
	Due         string
	Priority    int
	ProjectID   string
	Labels      []string
}

// PromptTask asks for a new task interactively. Projects and labels feed
// the select fields; inbox preselects the project.
func PromptTask(projects []schema.Project, labels []schema.Label, inbox string) (TaskInput, error) {
	in := TaskInput{Priority: schema.PriorityDefault, ProjectID: inbox}
	priority := strconv.Itoa(in.Priority)

	projectOpts := make([]huh.Option[string], 0, len(projects))
	for _, p := range projects {
		projectOpts = append(projectOpts, huh.NewOption(p.Name, p.ID))
	}
	labelOpts := make([]huh.Option[string], 0, len(labels))
	for _, l := range labels {
		labelOpts = append(labelOpts, huh.NewOption(l.Name, l.Name))
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Task").
			Value(&in.Content).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("task content is required")
				}
				return nil
			}),
		huh.NewText().
			Title("Description").
			Value(&in.Description),
		huh.NewInput().
			Title("Due").
			Placeholder("tomorrow 5pm").
			Value(&in.Due),
		huh.NewSelect[string]().
			Title("Priority").
			Options(
				huh.NewOption("Priority 1", "4"),
				huh.NewOption("Priority 2", "3"),
				huh.NewOption("Priority 3", "2"),
				huh.NewOption("Priority 4", "1"),
			).
			Value(&priority),
	}
	if len(projectOpts) > 0 {
		fields = append(fields, huh.NewSelect[string]().
			Title("Project").
			Options(projectOpts...).
			Value(&in.ProjectID))
	}
	if len(labelOpts) > 0 {
		fields = append(fields, huh.NewMultiSelect[string]().
			Title("Labels").
			Options(labelOpts...).
			Value(&in.Labels))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return TaskInput{}, ErrAborted
		}
		return TaskInput{}, err
	}

	in.Content = strings.TrimSpace(in.Content)
	in.Due = strings.TrimSpace(in.Due)
	in.Priority, _ = strconv.Atoi(priority)
	return in, nil
}

// Confirm asks a yes/no question.
func Confirm(title string) (bool, error) {
	ok := false
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
