// internal/workers/discovery/discover-places/handler.go
package discoverplaces

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	apperrors "place-discovery/internal/common/errors"
	"place-discovery/internal/common/logger"
	"place-discovery/internal/common/metrics"
	"place-discovery/internal/common/observability"
	"place-discovery/internal/common/validation"
	"place-discovery/internal/discovery"
	"place-discovery/internal/places"
)

const (
	TaskType = "discover-places"
)

//go:embed input.schema.json
var inputSchemaJSON []byte

var inputSchema = validation.MustCompile(inputSchemaJSON)

// Service is the part of discovery.Service the worker uses.
type Service interface {
	Execute(ctx context.Context, req discovery.Request) (*discovery.Result, error)
	Invalidate(ctx context.Context, coords places.Coordinates, category places.Category, viewport *places.Viewport) error
}

type Handler struct {
	config       *Config
	service      Service
	obs          *observability.Observability
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, service Service, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      service,
		obs:          obs,
		errorHandler: apperrors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := parseInput([]byte(job.Variables))
	if err == nil {
		var output *Output
		output, err = h.execute(ctx, input)
		if err == nil {
			h.completeJob(client, job, output)
			h.recordJob(ctx, start, "completed", "")
			return
		}
	}

	code := string(apperrors.CodeOf(err))
	h.errorHandler.HandleJobError(context.Background(), client, job, err)
	h.recordJob(ctx, start, "failed", code)
}

// parseInput validates the job variables against the input schema and decodes them.
func parseInput(variables []byte) (*Input, error) {
	result, err := inputSchema.ValidateBytes(variables)
	if err != nil {
		return nil, apperrors.NewParseError(err)
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewInvalidRequestError(err.Error())
	}

	var input Input
	if err := json.Unmarshal(variables, &input); err != nil {
		return nil, apperrors.NewParseError(fmt.Errorf("parse input: %w", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidRequestError("input cannot be nil")
	}

	category, err := places.ParseCategory(input.Category)
	if err != nil {
		return nil, apperrors.NewInvalidRequestError(err.Error())
	}

	requestID := input.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	req := discovery.Request{
		Coordinates: places.Coordinates{Latitude: input.Latitude, Longitude: input.Longitude},
		Category:    category,
	}
	if input.Viewport != nil {
		req.Viewport = &places.Viewport{Low: input.Viewport.Low, High: input.Viewport.High}
	}

	if input.Refresh {
		if err := h.service.Invalidate(ctx, req.Coordinates, req.Category, req.Viewport); err != nil {
			return nil, err
		}
	}

	result, err := h.service.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	output := &Output{
		RequestID: requestID,
		Category:  string(category),
		FromCache: result.FromCache,
		CacheKey:  result.CacheKey,
		Count:     len(result.Places),
		Places:    make([]PlaceOutput, 0, len(result.Places)),
	}
	for _, p := range result.Places {
		output.Places = append(output.Places, h.toPlaceOutput(p))
	}

	h.logger.Info("discovery completed", map[string]interface{}{
		"requestId": requestID,
		"category":  category,
		"fromCache": result.FromCache,
		"count":     output.Count,
	})
	return output, nil
}

func (h *Handler) toPlaceOutput(p places.ScoredPlace) PlaceOutput {
	c := p.Candidate
	out := PlaceOutput{
		ID:           c.ID,
		Name:         c.Name,
		Address:      c.Address,
		Location:     c.Location,
		Rating:       c.Rating,
		ReviewCount:  c.ReviewCount,
		Description:  c.Description,
		Types:        c.Types,
		Photos:       c.Photos,
		TotalScore:   p.TotalScore,
		DisplayScore: p.DisplayScore(h.config.ScoreFloor),
		Badge:        p.Badge(),
		Breakdown:    p.Breakdown,
		Highlights:   p.Breakdown.Significant(),
	}
	if c.PriceLevel.Known() {
		out.PriceLevel = c.PriceLevel.Symbol()
		out.PriceLabel = c.PriceLevel.Label()
	}
	return out
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) recordJob(ctx context.Context, start time.Time, status, code string) {
	elapsed := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(elapsed.Seconds())
	if status == "completed" {
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	} else {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	}
	h.obs.RecordJobProcessed(ctx, status)
	h.obs.RecordJobDuration(ctx, elapsed, status)
}

// Execute runs the job logic without a Zeebe client.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
