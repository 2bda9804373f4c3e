// Package chi exposes the HTTP API: image ingestion, detection, hybrid
// search, inventory, and the assistant.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fieldstash/toolscout/internal/domain"
	"github.com/fieldstash/toolscout/internal/domain/geo"
	domsearch "github.com/fieldstash/toolscout/internal/domain/search"
	assistantuc "github.com/fieldstash/toolscout/internal/usecase/assistant"
	cataloguc "github.com/fieldstash/toolscout/internal/usecase/catalog"
	healthuc "github.com/fieldstash/toolscout/internal/usecase/health"
	inventoryuc "github.com/fieldstash/toolscout/internal/usecase/inventory"
	searchuc "github.com/fieldstash/toolscout/internal/usecase/search"
)

// multipartMemoryLimit caps the in-memory portion of multipart parsing;
// larger parts spill to temp files.
const multipartMemoryLimit = 4 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// BackendReporter reports detector backend availability by name.
type BackendReporter interface {
	Backends() map[string]bool
}

// Server holds the use case services behind the HTTP handlers.
type Server struct {
	catalog       *cataloguc.Service
	search        *searchuc.Service
	inventory     *inventoryuc.Service
	assistant     *assistantuc.Service
	health        *healthuc.Service
	detectors     BackendReporter
	maxUploadSize int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	catalog *cataloguc.Service,
	search *searchuc.Service,
	inventory *inventoryuc.Service,
	assistant *assistantuc.Service,
	health *healthuc.Service,
	detectors BackendReporter,
	maxUploadSize int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		catalog:       catalog,
		search:        search,
		inventory:     inventory,
		assistant:     assistant,
		health:        health,
		detectors:     detectors,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrFileTooLarge, http.StatusBadRequest, codeFileTooLarge),
		sentinelHandler(domain.ErrUnsupportedMedia, http.StatusBadRequest, codeUnsupportedMedia),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrNoReferenceTags, http.StatusUnprocessableEntity, codeNoReferenceTags),
	}
	return s
}

// Routes mounts every endpoint on the router.
func (s *Server) Routes(r chirouter.Router) {
	r.Route("/api/v1", func(r chirouter.Router) {
		r.Post("/images", s.UploadImage)
		r.Post("/detect", s.DetectImage)
		r.Get("/images/{id}", s.GetImage)
		r.Get("/images/{id}/file", s.GetImageFile)
		r.Get("/search", s.Search)
		r.Post("/search/by-image", s.SearchByImage)
		r.Get("/inventory", s.Inventory)
		r.Post("/assistant/chat", s.Chat)
		r.Get("/assistant/tool-categories", s.ToolCategories)
		r.Get("/assistant/task-requirements", s.TaskRequirements)
		r.Post("/assistant/plan-task", s.PlanTask)
		r.Get("/models/info", s.ModelsInfo)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// UploadImage handles POST /api/v1/images.
func (s *Server) UploadImage(w http.ResponseWriter, r *http.Request) {
	content, filename, ok := s.readImagePart(w, r)
	if !ok {
		return
	}

	lat, err := parseRequiredFloat(r.FormValue("latitude"), "latitude")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	lon, err := parseRequiredFloat(r.FormValue("longitude"), "longitude")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	entry, outcomes, err := s.catalog.Submit(r.Context(), cataloguc.Upload{
		Filename:  filename,
		Content:   content,
		Latitude:  lat,
		Longitude: lon,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/images/"+entry.ID())
	writeJSON(w, http.StatusCreated, UploadResponse{
		Entry:     entryToResponse(entry),
		Detection: outcomesToResponse(outcomes),
	})
}

// DetectImage handles POST /api/v1/detect. Runs detection only; nothing is
// persisted.
func (s *Server) DetectImage(w http.ResponseWriter, r *http.Request) {
	content, filename, ok := s.readImagePart(w, r)
	if !ok {
		return
	}

	tags, outcomes, err := s.catalog.DetectOnly(r.Context(), filename, content)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DetectResponse{
		Tags:      tagsToResponse(tags),
		Detection: outcomesToResponse(outcomes),
	})
}

// GetImage handles GET /api/v1/images/{id}.
func (s *Server) GetImage(w http.ResponseWriter, r *http.Request) {
	entry, err := s.catalog.Get(r.Context(), chirouter.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryToResponse(entry))
}

// GetImageFile handles GET /api/v1/images/{id}/file.
func (s *Server) GetImageFile(w http.ResponseWriter, r *http.Request) {
	entry, rc, err := s.catalog.File(r.Context(), chirouter.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", entry.MimeType())
	w.Header().Set("Content-Length", strconv.FormatInt(entry.FileSize(), 10))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("streaming image file failed",
			zap.String("id", entry.ID()), zap.Error(err))
	}
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	lat, err := parseOptionalFloat(params.Get("lat"), "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	lon, err := parseOptionalFloat(params.Get("lon"), "lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	radius, err := parseOptionalFloat(params.Get("radius_m"), "radius_m")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	limit, err := parseOptionalInt(params.Get("limit"), "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	q, err := domsearch.New(params.Get("query"), lat, lon, deref(radius), derefInt(limit))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	result, err := s.search.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResultToResponse(result))
}

// SearchByImage handles POST /api/v1/search/by-image. The uploaded image is
// run through detection and its tags drive a similarity query.
func (s *Server) SearchByImage(w http.ResponseWriter, r *http.Request) {
	content, filename, ok := s.readImagePart(w, r)
	if !ok {
		return
	}

	lat, err := parseOptionalFloat(r.FormValue("lat"), "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	lon, err := parseOptionalFloat(r.FormValue("lon"), "lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	radius, err := parseOptionalFloat(r.FormValue("radius_m"), "radius_m")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	limit, err := parseOptionalInt(r.FormValue("limit"), "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	tags, _, err := s.catalog.DetectOnly(r.Context(), filename, content)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	q, err := domsearch.NewSimilar(tags.Labels(), lat, lon, deref(radius), derefInt(limit))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	result, err := s.search.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResultToResponse(result))
}

// Inventory handles GET /api/v1/inventory.
func (s *Server) Inventory(w http.ResponseWriter, r *http.Request) {
	sum, err := s.inventory.Summarize(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inventoryToResponse(sum))
}

// Chat handles POST /api/v1/assistant/chat. With stream=true the reply is
// written as chunked plain text in answer order.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Message is required")
		return
	}

	if !req.Stream {
		reply, err := s.assistant.Respond(r.Context(), req.Message)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
		return
	}

	chunks, err := s.assistant.Stream(r.Context(), req.Message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	for chunk := range chunks {
		if _, err := io.WriteString(w, chunk); err != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

// ToolCategories handles GET /api/v1/assistant/tool-categories.
func (s *Server) ToolCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: assistantuc.ToolCategories()})
}

// TaskRequirements handles GET /api/v1/assistant/task-requirements.
func (s *Server) TaskRequirements(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TasksResponse{CommonTasks: assistantuc.CommonTasks()})
}

// PlanTask handles POST /api/v1/assistant/plan-task.
func (s *Server) PlanTask(w http.ResponseWriter, r *http.Request) {
	var req PlanTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	plan, err := s.assistant.PlanTask(r.Context(), req.Task)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskPlanToResponse(plan))
}

// ModelsInfo handles GET /api/v1/models/info.
func (s *Server) ModelsInfo(w http.ResponseWriter, _ *http.Request) {
	backends := s.detectors.Backends()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ModelsInfoResponse{Backends: make([]ModelBackendResponse, 0, len(names))}
	for _, name := range names {
		resp.Backends = append(resp.Backends, ModelBackendResponse{
			Name:      name,
			Available: backends[name],
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// readImagePart parses the multipart form and reads the "image" part,
// enforcing the upload size limit before anything downstream runs. On
// failure it has already written the response.
func (s *Server) readImagePart(w http.ResponseWriter, r *http.Request) (content []byte, filename string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+multipartMemoryLimit)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusBadRequest, codeFileTooLarge,
				fmt.Sprintf("Upload exceeds the %d byte limit", s.maxUploadSize))
			return nil, "", false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid multipart form: "+err.Error())
		return nil, "", false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "An image file part is required")
		return nil, "", false
	}
	defer file.Close()

	content, err = io.ReadAll(io.LimitReader(file, s.maxUploadSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Failed to read upload: "+err.Error())
		return nil, "", false
	}
	if int64(len(content)) > s.maxUploadSize {
		writeError(w, http.StatusBadRequest, codeFileTooLarge,
			fmt.Sprintf("Upload exceeds the %d byte limit", s.maxUploadSize))
		return nil, "", false
	}
	return content, header.Filename, true
}

func searchResultToResponse(result domsearch.Result) SearchResponse {
	q := result.Query()
	entries := result.Entries()
	items := make([]EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = entryToResponse(e)
		if q.HasLocation() {
			d := geo.Distance(q.Latitude(), q.Longitude(), e.Latitude(), e.Longitude())
			items[i].DistanceMeters = &d
		}
	}
	resp := SearchResponse{
		Results: items,
		Total:   result.Total(),
		Limit:   q.Limit(),
		Query:   q.Term(),
	}
	if q.HasLocation() {
		resp.Location = &SearchLocation{Latitude: q.Latitude(), Longitude: q.Longitude()}
		radius := q.RadiusMeters()
		resp.RadiusMeters = &radius
	}
	return resp
}

func inventoryToResponse(sum inventoryuc.Summary) InventoryResponse {
	resp := InventoryResponse{
		TotalEntries:      sum.TotalEntries,
		TotalDistinctTags: sum.TotalDistinctTags,
		Tools:             make([]ToolSummary, 0, len(sum.Counts)),
	}
	for _, key := range rankedToolNames(sum) {
		sightings := make([]SightingResponse, len(sum.Locations[key]))
		for i, sg := range sum.Locations[key] {
			sightings[i] = SightingResponse{
				EntryID:   sg.EntryID,
				Latitude:  sg.Latitude,
				Longitude: sg.Longitude,
				SeenAt:    sg.SeenAt,
			}
		}
		resp.Tools = append(resp.Tools, ToolSummary{
			Name:      sum.Labels[key],
			Count:     sum.Counts[key],
			Sightings: sightings,
		})
	}
	return resp
}

func taskPlanToResponse(plan assistantuc.TaskPlan) TaskPlanResponse {
	resp := TaskPlanResponse{
		Task:           plan.Task,
		AvailableTools: make([]ToolAvailabilityResponse, 0, len(plan.AvailableTools)),
		MissingTools:   plan.MissingTools,
		Plan:           plan.Plan,
		TotalAvailable: len(plan.AvailableTools),
		TotalMissing:   len(plan.MissingTools),
	}
	if resp.MissingTools == nil {
		resp.MissingTools = []string{}
	}
	for _, tool := range plan.AvailableTools {
		sightings := make([]SightingResponse, len(tool.Sightings))
		for i, sg := range tool.Sightings {
			sightings[i] = SightingResponse{
				EntryID:   sg.EntryID,
				Latitude:  sg.Latitude,
				Longitude: sg.Longitude,
				SeenAt:    sg.SeenAt,
			}
		}
		resp.AvailableTools = append(resp.AvailableTools, ToolAvailabilityResponse{
			Name:      tool.Name,
			Count:     tool.Count,
			Sightings: sightings,
		})
	}
	return resp
}

// rankedToolNames orders tool keys by count descending, then name for a
// stable listing.
func rankedToolNames(sum inventoryuc.Summary) []string {
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrFileTooLarge,
		domain.ErrUnsupportedMedia,
		domain.ErrNoReferenceTags,
		domain.ErrDetectorUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func parseRequiredFloat(raw, name string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

func parseOptionalFloat(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &v, nil
}

func parseOptionalInt(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	return &v, nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
