package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geocast/geocast/internal/campaign"
	"github.com/geocast/geocast/internal/config"
	"github.com/geocast/geocast/internal/database"
	"github.com/geocast/geocast/internal/delivery"
	"github.com/geocast/geocast/internal/metrics"
	"github.com/geocast/geocast/internal/models"
	"github.com/geocast/geocast/internal/stats"
	"github.com/geocast/geocast/internal/storage"
	"github.com/geocast/geocast/internal/targeting"
)

// Dependencies holds all external dependencies for the server. DB and
// Redis may be nil; the server then falls back to in-memory stores,
// which is how development mode runs.
type Dependencies struct {
	DB      *database.PostgresDB
	Redis   *database.RedisDB
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server wraps HTTP handlers and the campaign delivery services.
type Server struct {
	campaignService *campaign.Service
	resolver        *targeting.Resolver
	simulator       *delivery.Simulator
	aggregator      *stats.Aggregator
	locations       storage.TargetingLocationStore
	logger          *zap.Logger
	config          *config.Config
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	var (
		campaignStore storage.CampaignStore
		customerStore storage.CustomerStore
		deliveryStore storage.DeliveryStore
		locationStore storage.TargetingLocationStore
	)

	if deps.DB != nil {
		campaignStore = storage.NewPostgresCampaignStore(deps.DB.Pool)
		customerStore = storage.NewPostgresCustomerStore(deps.DB.Pool)
		deliveryStore = storage.NewPostgresDeliveryStore(deps.DB.Pool)
		locationStore = storage.NewPostgresTargetingLocationStore(deps.DB.Pool)
	} else {
		campaignStore = storage.NewInMemoryCampaignStore()
		customerStore = storage.NewInMemoryCustomerStore()
		deliveryStore = storage.NewInMemoryDeliveryStore()
		locationStore = storage.NewInMemoryTargetingLocationStore()
	}

	var counters *stats.Counters
	if deps.Redis != nil {
		counters = stats.NewCounters(deps.Redis.Client)
	}

	resolver := targeting.NewResolver(campaignStore, locationStore, customerStore, deps.Metrics, deps.Config.Targeting.SampleSize)

	policy := delivery.NewRandomOutcome(deps.Config.Delivery.SuccessRate, time.Now().UnixNano())
	simOpts := []delivery.SimulatorOption{
		delivery.WithConcurrency(deps.Config.Delivery.Concurrency),
		delivery.WithTimeout(deps.Config.Delivery.Timeout),
	}
	if counters != nil {
		simOpts = append(simOpts, delivery.WithCounters(counters))
	}
	if deps.Metrics != nil {
		simOpts = append(simOpts, delivery.WithMetrics(deps.Metrics))
	}
	simulator := delivery.NewSimulator(campaignStore, locationStore, customerStore, deliveryStore, resolver, policy, deps.Logger, simOpts...)

	aggregator := stats.NewAggregator(campaignStore, customerStore, deliveryStore, locationStore, counters, deps.Metrics, deps.Logger)

	s := &Server{
		campaignService: campaign.NewService(campaignStore, locationStore, deps.Logger),
		resolver:        resolver,
		simulator:       simulator,
		aggregator:      aggregator,
		locations:       locationStore,
		logger:          deps.Logger,
		config:          deps.Config,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	// Campaign management
	mux.HandleFunc("/campaigns", s.handleCampaigns)
	mux.HandleFunc("/campaigns/", s.handleCampaignByID)

	// Targeting locations
	mux.HandleFunc("/targeting-locations", s.handleTargetingLocations)
	mux.HandleFunc("/targeting-locations/", s.handleTargetingLocationByID)

	// Dashboard
	mux.HandleFunc("/dashboard/summary", s.handleDashboardSummary)
	mux.HandleFunc("/dashboard/hourly", s.handleDashboardHourly)
	mux.HandleFunc("/dashboard/distribution", s.handleDashboardDistribution)
	mux.HandleFunc("/dashboard/recent", s.handleDashboardRecent)

	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	return mux
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ---- Campaigns ----

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.campaignService.List(r.Context())
		if err != nil {
			s.logger.Error("failed to list campaigns", zap.Error(err))
			s.errorResponse(w, "failed to list", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var req campaign.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		c, err := s.campaignService.Create(r.Context(), req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(c)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCampaignByID dispatches /campaigns/{id} and its sub-resources:
// preview-targeting, send and stats.
func (s *Server) handleCampaignByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/campaigns/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}

	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch sub {
	case "":
		s.handleCampaign(w, r, id)
	case "preview-targeting":
		s.handlePreviewTargeting(w, r, id)
	case "send":
		s.handleSend(w, r, id)
	case "stats":
		s.handleCampaignStats(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleCampaign(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		c, err := s.campaignService.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.jsonResponse(w, c)

	case http.MethodPatch, http.MethodPut:
		var body struct {
			Name                *string                `json:"name"`
			Message             *string                `json:"message"`
			Description         *string                `json:"description"`
			TargetingLocationID json.RawMessage        `json:"targeting_location_id"`
			Status              *models.CampaignStatus `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}

		patch := models.CampaignPatch{
			Name:        body.Name,
			Message:     body.Message,
			Description: body.Description,
			Status:      body.Status,
		}
		// Distinguish absent from explicit null: null detaches the
		// targeting location, absence leaves it alone.
		if len(body.TargetingLocationID) > 0 {
			if string(body.TargetingLocationID) == "null" {
				patch.TargetingLocationID = models.ClearString()
			} else {
				var locID string
				if err := json.Unmarshal(body.TargetingLocationID, &locID); err != nil {
					s.errorResponse(w, "invalid targeting_location_id", http.StatusBadRequest)
					return
				}
				patch.TargetingLocationID = models.SetString(locID)
			}
		}

		c, err := s.campaignService.Update(r.Context(), id, patch)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.jsonResponse(w, c)

	case http.MethodDelete:
		if err := s.campaignService.Delete(r.Context(), id); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePreviewTargeting(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	preview, err := s.resolver.Preview(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, preview)
}

// sendResponse is the payload for POST /campaigns/{id}/send. Warning
// is set when some delivery writes failed; the batch itself still
// counts as sent.
type sendResponse struct {
	Campaign *models.Campaign      `json:"campaign"`
	Result   *delivery.BatchResult `json:"result"`
	Warning  string                `json:"warning,omitempty"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := s.simulator.Simulate(r.Context(), id)

	var warning string
	if err != nil {
		var partial *delivery.PartialBatchFailure
		if !errors.As(err, &partial) {
			s.writeError(w, err)
			return
		}
		warning = partial.Error()
	}

	c, err := s.campaignService.CompleteSend(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.jsonResponse(w, sendResponse{Campaign: c, Result: result, Warning: warning})
}

func (s *Server) handleCampaignStats(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cs, err := s.aggregator.CampaignStats(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, cs)
}

// ---- Targeting Locations ----

func (s *Server) handleTargetingLocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	list, err := s.locations.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list targeting locations", zap.Error(err))
		s.errorResponse(w, "failed to list", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, list)
}

func (s *Server) handleTargetingLocationByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/targeting-locations/")
	if id == "" || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	loc, err := s.locations.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, loc)
}

// ---- Dashboard ----

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summary, err := s.aggregator.DashboardSummary(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, summary)
}

func (s *Server) handleDashboardHourly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	day := time.Now().UTC()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			s.errorResponse(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	hourly, err := s.aggregator.HourlyDeliveries(r.Context(), day)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, hourly)
}

func (s *Server) handleDashboardDistribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dist, err := s.aggregator.CustomerDistribution(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, dist)
}

func (s *Server) handleDashboardRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.config.Dashboard.RecentLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			s.errorResponse(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recent, err := s.aggregator.RecentCampaigns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, recent)
}

// ---- Helper Methods ----

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeError maps service errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var invalidState *models.InvalidStateError
	var aggErr *stats.AggregationError

	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.errorResponse(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalidState):
		s.errorResponse(w, err.Error(), http.StatusConflict)
	case errors.As(err, &aggErr):
		s.errorResponse(w, "statistics temporarily unavailable", http.StatusServiceUnavailable)
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
	}
}
