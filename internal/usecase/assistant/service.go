// Package assistant turns natural-language questions about the tool
// collection into inventory-grounded answers, optionally delivered as an
// ordered stream of chunks.
package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fieldstash/toolscout/internal/usecase/inventory"
)

// Inventory supplies the aggregated collection view answers are built from.
type Inventory interface {
	Summarize(ctx context.Context) (inventory.Summary, error)
}

// Service answers questions about the tool collection.
type Service struct {
	inventory Inventory
}

// New creates an assistant service.
func New(inv Inventory) *Service {
	return &Service{inventory: inv}
}

type intent int

const (
	intentHelp intent = iota
	intentListing
	intentPlanning
	intentRecommendation
)

// Respond produces a complete answer for one message.
func (s *Service) Respond(ctx context.Context, message string) (string, error) {
	sum, err := s.inventory.Summarize(ctx)
	if err != nil {
		return "", fmt.Errorf("load inventory: %w", err)
	}

	switch classify(message) {
	case intentListing:
		return listingAnswer(sum), nil
	case intentPlanning:
		return planningAnswer(message, sum), nil
	case intentRecommendation:
		return recommendationAnswer(sum), nil
	default:
		return helpAnswer(), nil
	}
}

// Stream produces the same answer as Respond, delivered word by word on the
// returned channel in order. The channel is closed when the answer is
// complete or the context is cancelled; a cancelled stream simply stops
// without error.
func (s *Service) Stream(ctx context.Context, message string) (<-chan string, error) {
	answer, err := s.Respond(ctx, message)
	if err != nil {
		return nil, err
	}

	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, word := range strings.Fields(answer) {
			select {
			case ch <- word + " ":
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func classify(message string) intent {
	m := strings.ToLower(message)
	switch {
	case containsAny(m, "inventory", "how many", "what do i have", "what tools", "list"):
		return intentListing
	case containsAny(m, "how to", "how do i", "plan", "task", "project", "install", "build", "fix", "repair"):
		return intentPlanning
	case containsAny(m, "recommend", "suggest", "should i", "need for"):
		return intentRecommendation
	default:
		return intentHelp
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func listingAnswer(sum inventory.Summary) string {
	if sum.TotalDistinctTags == 0 {
		return "Your collection is empty so far. Upload a photo of a tool and I'll start tracking it."
	}

	names := rankedNames(sum)
	var sb strings.Builder
	fmt.Fprintf(&sb, "You have %d distinct tools across %d catalogued photos:\n",
		sum.TotalDistinctTags, sum.TotalEntries)
	for _, name := range names {
		fmt.Fprintf(&sb, "- %s (seen %d time%s)\n",
			sum.Labels[name], sum.Counts[name], plural(sum.Counts[name]))
	}
	return sb.String()
}

func planningAnswer(message string, sum inventory.Summary) string {
	owned := matchingTools(message, sum)
	var sb strings.Builder
	sb.WriteString("Here's how I'd approach that.\n")
	if len(owned) > 0 {
		sb.WriteString("From your collection you already have: ")
		sb.WriteString(strings.Join(owned, ", "))
		sb.WriteString(".\n")
	} else if sum.TotalDistinctTags > 0 {
		sb.WriteString("I didn't spot a directly matching tool in your collection, " +
			"but check the inventory before buying anything.\n")
	}
	sb.WriteString("Break the job into steps, gather the tools for each step first, " +
		"and check each tool's last seen location in your inventory so you know where to find it.")
	return sb.String()
}

func recommendationAnswer(sum inventory.Summary) string {
	if sum.TotalDistinctTags == 0 {
		return "I can't make a recommendation yet because your collection is empty. " +
			"Upload some tool photos first."
	}
	names := rankedNames(sum)
	top := names
	if len(top) > 3 {
		top = top[:3]
	}
	display := make([]string, len(top))
	for i, name := range top {
		display[i] = sum.Labels[name]
	}
	return fmt.Sprintf("Based on what you use most, your go-to tools are %s. "+
		"Start with those; if the job needs something you don't have, "+
		"I can check whether a neighbor's catalogued one nearby.",
		strings.Join(display, ", "))
}

func helpAnswer() string {
	return "I can answer questions about your tool collection. " +
		"Ask me what you have, how to plan a project with your tools, " +
		"or what I'd recommend for a job."
}

// rankedNames returns normalized tag keys ordered by count descending,
// name ascending for equal counts so output is deterministic.
func rankedNames(sum inventory.Summary) []string {
	names := make([]string, 0, len(sum.Counts))
	for name := range sum.Counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if sum.Counts[names[i]] != sum.Counts[names[j]] {
			return sum.Counts[names[i]] > sum.Counts[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

func matchingTools(message string, sum inventory.Summary) []string {
	keys := matchingKeys(message, sum)
	owned := make([]string, len(keys))
	for i, key := range keys {
		owned[i] = sum.Labels[key]
	}
	return owned
}

// matchingKeys returns the normalized tag keys of tools the message
// mentions, by full name or by any word of the name longer than two runes.
func matchingKeys(message string, sum inventory.Summary) []string {
	m := strings.ToLower(message)
	var keys []string
	for _, name := range rankedNames(sum) {
		if strings.Contains(m, name) {
			keys = append(keys, name)
			continue
		}
		for _, word := range strings.Fields(name) {
			if len(word) > 2 && strings.Contains(m, word) {
				keys = append(keys, name)
				break
			}
		}
	}
	return keys
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
