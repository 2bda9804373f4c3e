package chi

import (
	"time"

	domcat "github.com/fieldstash/toolscout/internal/domain/catalog"
	domdetect "github.com/fieldstash/toolscout/internal/domain/detect"
	"github.com/fieldstash/toolscout/internal/domain/fusion"
)

// Error codes returned to clients.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeFileTooLarge     = "file_too_large"
	codeUnsupportedMedia = "unsupported_media_type"
	codeNotFound         = "not_found"
	codeNoReferenceTags  = "no_reference_tags"
	codeInternalError    = "internal_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TagResponse is one detected tag with its confidence.
type TagResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// BackendResponse describes one detector backend's contribution.
type BackendResponse struct {
	Backend      string `json:"backend"`
	Observations int    `json:"observations"`
	Degraded     string `json:"degraded,omitempty"`
}

// EntryResponse is a catalog entry as seen by clients.
type EntryResponse struct {
	ID               string        `json:"id"`
	OriginalFilename string        `json:"original_filename"`
	Tags             []TagResponse `json:"tags"`
	Latitude         float64       `json:"latitude"`
	Longitude        float64       `json:"longitude"`
	CreatedAt        time.Time     `json:"created_at"`
	FileSize         int64         `json:"file_size"`
	MimeType         string        `json:"mime_type"`
	FileURL          string        `json:"file_url"`
	BackupRef        string        `json:"backup_ref,omitempty"`
	DistanceMeters   *float64      `json:"distance_m,omitempty"`
}

// UploadResponse is returned by POST /images.
type UploadResponse struct {
	Entry     EntryResponse     `json:"entry"`
	Detection []BackendResponse `json:"detection"`
}

// DetectResponse is returned by POST /detect.
type DetectResponse struct {
	Tags      []TagResponse     `json:"tags"`
	Detection []BackendResponse `json:"detection"`
}

// SearchLocation echoes the query point of a geo search.
type SearchLocation struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// SearchResponse is returned by the search endpoints. The query term,
// location, and radius are echoed back for client display; location and
// radius_m are null for text-only searches.
type SearchResponse struct {
	Results      []EntryResponse `json:"results"`
	Total        int             `json:"total"`
	Limit        int             `json:"limit"`
	Query        string          `json:"query"`
	Location     *SearchLocation `json:"location"`
	RadiusMeters *float64        `json:"radius_m"`
}

// ToolSummary is one tool in the inventory, with every sighting.
type ToolSummary struct {
	Name      string             `json:"name"`
	Count     int                `json:"count"`
	Sightings []SightingResponse `json:"sightings"`
}

// SightingResponse is one geolocated occurrence of a tool.
type SightingResponse struct {
	EntryID   string    `json:"entry_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	SeenAt    time.Time `json:"seen_at"`
}

// InventoryResponse is returned by GET /inventory.
type InventoryResponse struct {
	TotalEntries      int           `json:"total_entries"`
	TotalDistinctTags int           `json:"total_distinct_tags"`
	Tools             []ToolSummary `json:"tools"`
}

// ChatRequest is the assistant request body.
type ChatRequest struct {
	Message string `json:"message"`
	Stream  bool   `json:"stream,omitempty"`
}

// ChatResponse is the non-streaming assistant reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// CategoriesResponse lists the tool categories the assistant knows.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// TasksResponse lists typical jobs the assistant can plan.
type TasksResponse struct {
	CommonTasks []string `json:"common_tasks"`
}

// PlanTaskRequest is the task-planning request body.
type PlanTaskRequest struct {
	Task string `json:"task"`
}

// ToolAvailabilityResponse is one catalogued tool relevant to a planned task.
type ToolAvailabilityResponse struct {
	Name      string             `json:"name"`
	Count     int                `json:"count"`
	Sightings []SightingResponse `json:"sightings"`
}

// TaskPlanResponse is the structured plan for one task.
type TaskPlanResponse struct {
	Task           string                     `json:"task"`
	AvailableTools []ToolAvailabilityResponse `json:"available_tools"`
	MissingTools   []string                   `json:"missing_tools"`
	Plan           string                     `json:"plan"`
	TotalAvailable int                        `json:"total_available"`
	TotalMissing   int                        `json:"total_missing"`
}

// ModelBackendResponse describes one detector backend's availability.
type ModelBackendResponse struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// ModelsInfoResponse is returned by GET /models/info.
type ModelsInfoResponse struct {
	Backends []ModelBackendResponse `json:"backends"`
}

func tagsToResponse(tags fusion.TagSet) []TagResponse {
	out := make([]TagResponse, 0, tags.Len())
	labels := tags.Labels()
	confidences := tags.Confidences()
	for i := range labels {
		out = append(out, TagResponse{Label: labels[i], Confidence: confidences[i]})
	}
	return out
}

func outcomesToResponse(outcomes []domdetect.Outcome) []BackendResponse {
	out := make([]BackendResponse, len(outcomes))
	for i, o := range outcomes {
		out[i] = BackendResponse{
			Backend:      o.Backend(),
			Observations: len(o.Observations()),
			Degraded:     o.Degraded(),
		}
	}
	return out
}

func entryToResponse(e domcat.Entry) EntryResponse {
	return EntryResponse{
		ID:               e.ID(),
		OriginalFilename: e.OriginalFilename(),
		Tags:             tagsToResponse(e.Tags()),
		Latitude:         e.Latitude(),
		Longitude:        e.Longitude(),
		CreatedAt:        e.CreatedAt(),
		FileSize:         e.FileSize(),
		MimeType:         e.MimeType(),
		FileURL:          "/api/v1/images/" + e.ID() + "/file",
		BackupRef:        e.BackupRef(),
	}
}
