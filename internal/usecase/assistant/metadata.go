package assistant

import (
	"context"
	"fmt"

	"github.com/fieldstash/toolscout/internal/domain"
	"github.com/fieldstash/toolscout/internal/usecase/inventory"
)

// ToolCategories lists the broad categories the assistant can talk about.
func ToolCategories() []string {
	return []string{
		"Hand Tools",
		"Power Tools",
		"Measuring Tools",
		"Safety Equipment",
		"Fasteners",
		"Electrical Tools",
		"Plumbing Tools",
		"Woodworking Tools",
		"Metalworking Tools",
		"Garden Tools",
	}
}

// CommonTasks lists typical jobs users plan with their tools.
func CommonTasks() []string {
	return []string{
		"Hanging a picture",
		"Installing a shelf",
		"Fixing a leaky faucet",
		"Installing a light fixture",
		"Building a deck",
		"Installing drywall",
		"Painting a room",
		"Installing flooring",
		"Electrical work",
		"Plumbing repairs",
	}
}

// ToolAvailability is one catalogued tool relevant to a planned task.
type ToolAvailability struct {
	Name      string
	Count     int
	Sightings []inventory.Sighting
}

// TaskPlan is a structured plan for one task: which relevant tools the
// collection already holds, and prose guidance.
type TaskPlan struct {
	Task           string
	AvailableTools []ToolAvailability
	MissingTools   []string
	Plan           string
}

// PlanTask matches the task description against the inventory and returns a
// structured plan. Relevance uses the same term matching as the planning
// answer, so every listed tool is one the collection actually holds.
func (s *Service) PlanTask(ctx context.Context, task string) (TaskPlan, error) {
	if task == "" {
		return TaskPlan{}, fmt.Errorf("%w: task description is required", domain.ErrValidation)
	}

	sum, err := s.inventory.Summarize(ctx)
	if err != nil {
		return TaskPlan{}, fmt.Errorf("load inventory: %w", err)
	}

	var available []ToolAvailability
	for _, key := range matchingKeys(task, sum) {
		available = append(available, ToolAvailability{
			Name:      sum.Labels[key],
			Count:     sum.Counts[key],
			Sightings: sum.Locations[key],
		})
	}

	return TaskPlan{
		Task:           task,
		AvailableTools: available,
		Plan:           planningAnswer(task, sum),
	}, nil
}
