package web

import (
	"embed"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zivoe/ztm/internal/allocator"
	"github.com/zivoe/ztm/internal/config"
	"github.com/zivoe/ztm/internal/logger"
	"github.com/zivoe/ztm/internal/state"
	"github.com/zivoe/ztm/internal/tranche"
	"github.com/zivoe/ztm/internal/types"
	"github.com/zivoe/ztm/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

//go:embed static/*
var staticFiles embed.FS

//go:embed static/index.html
var dashboardHTML []byte

// WebServer handles HTTP requests for tranche protocol data
type WebServer struct {
	router    *mux.Router
	port      string
	reader    tranche.TrancheReader
	startTime time.Time
}

// NewWebServer creates a new web server instance. The tranche reader powers
// the live incentive-quote endpoint; everything else is served from Postgres.
func NewWebServer(port string, reader tranche.TrancheReader) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:    mux.NewRouter(),
		port:      port,
		reader:    reader,
		startTime: time.Now().UTC(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Static files
	staticHandler := http.FileServer(http.FS(staticFiles))
	ws.router.PathPrefix("/static/").Handler(http.StripPrefix("/", staticHandler))

	// Dashboard routes
	ws.router.HandleFunc("/", ws.handleDashboard).Methods("GET")
	ws.router.HandleFunc("/dashboard", ws.handleDashboard).Methods("GET")

	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// Prometheus metrics
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API endpoints. The literal /epochs/latest route must be registered
	// before the {id} route or mux hands "latest" to the ID parser.
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/epochs", ws.handleGetEpochs).Methods("GET")
	api.HandleFunc("/epochs/latest", ws.handleGetLatestEpoch).Methods("GET")
	api.HandleFunc("/epochs/{id}", ws.handleGetEpoch).Methods("GET")
	api.HandleFunc("/parameters", ws.handleGetParameters).Methods("GET")
	api.HandleFunc("/summary", ws.handleGetSummary).Methods("GET")
	api.HandleFunc("/incentives/quote", ws.handleIncentiveQuote).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns comprehensive server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	latest, epochErr := state.GetLatestEpoch()
	var epochInfo map[string]interface{}
	var hasErrors bool

	if epochErr == nil && latest != nil {
		epochInfo = map[string]interface{}{
			"epoch_number":      latest.EpochNumber,
			"last_epoch_time":   latest.Timestamp,
			"last_epoch_branch": latest.Branch,
			"last_epoch_ok":     latest.Success,
		}
		hasErrors = !latest.Success
	} else {
		epochInfo = map[string]interface{}{
			"epoch_number":      0,
			"last_epoch_time":   nil,
			"last_epoch_branch": "",
			"last_epoch_ok":     false,
		}
		// No epochs yet is normal on a fresh deployment; a read error is not.
		hasErrors = epochErr != nil
	}

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
		hasErrors = true
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":            runtime.Version(),
			"goroutines_count":   runtime.NumGoroutine(),
			"total_alloc_bytes":  memStats.TotalAlloc,
			"heap_objects_count": memStats.HeapObjects,
			"alloc_bytes":        memStats.Alloc,
			"sys_bytes":          memStats.Sys,
			"gc_cycles":          memStats.NumGC,
			"uptime_seconds":     int64(time.Since(ws.startTime).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "ztm-tranche-manager",
			"version": "1.0.0",
		},
		"ztm_status": map[string]interface{}{
			"database_healthy":  dbHealthy,
			"has_recent_errors": hasErrors,
			"epoch_info":        epochInfo,
			"mode":              config.Mode,
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleDashboard serves the main dashboard HTML
func (ws *WebServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(dashboardHTML)
}

// handleGetEpochs returns paginated epoch snapshots
func (ws *WebServer) handleGetEpochs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	epochs, err := state.GetRecentEpochs(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent epochs")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve epochs")
		return
	}

	response := map[string]interface{}{
		"epochs": epochs,
		"count":  len(epochs),
		"limit":  limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetEpoch returns a specific epoch by number
func (ws *WebServer) handleGetEpoch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idStr := vars["id"]

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid epoch number")
		return
	}

	epoch, err := state.GetEpochByNumber(id)
	if err != nil {
		webLogger.Error().Err(err).Int64("epoch", id).Msg("Failed to get epoch")
		ws.writeErrorResponse(w, http.StatusNotFound, "Epoch not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, epoch)
}

// handleGetLatestEpoch returns the most recent epoch snapshot
func (ws *WebServer) handleGetLatestEpoch(w http.ResponseWriter, r *http.Request) {
	latest, err := state.GetLatestEpoch()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get latest epoch")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve latest epoch")
		return
	}
	if latest == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "No epochs recorded yet")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, latest)
}

// handleGetParameters returns the active tranche parameter document
func (ws *WebServer) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	params, paramsID, err := state.LoadActiveTrancheParameters("default_tranche_strategy")
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get tranche parameters")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve tranche parameters")
		return
	}

	response := map[string]interface{}{
		"parameters":    params,
		"parameters_id": paramsID,
		"timestamp":     time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetSummary returns protocol summary statistics
func (ws *WebServer) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := state.GetProtocolSummary()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get protocol summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve protocol summary")
		return
	}

	totals, err := state.GetDistributionTotals()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get distribution totals")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve distribution totals")
		return
	}

	response := map[string]interface{}{
		"summary": summary,
		"totals":  totals,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleIncentiveQuote prices a hypothetical deposit against live supplies,
// the live reserve, and the active parameter document. Nothing is mutated:
// the quote is the reward the deposit would have earned had it settled at
// this instant.
func (ws *WebServer) handleIncentiveQuote(w http.ResponseWriter, r *http.Request) {
	if ws.reader == nil {
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Chain reader not available")
		return
	}

	side, err := types.ParseTrancheSide(r.URL.Query().Get("side"))
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "side must be senior or junior")
		return
	}

	decimals, err := config.DecimalsForDenom(config.YieldDenom)
	if err != nil {
		webLogger.Error().Err(err).Msg("Yield denom has no decimals entry")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Deposit denom not configured")
		return
	}

	nativeAmount, err := utils.ParseAmount(r.URL.Query().Get("amount"), decimals)
	if err != nil || !nativeAmount.IsPositive() {
		ws.writeErrorResponse(w, http.StatusBadRequest, "amount must be a positive decimal")
		return
	}

	stdAmount, err := utils.StandardizeAmount(nativeAmount, decimals)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "amount cannot be standardized")
		return
	}

	params, _, err := state.LoadActiveTrancheParameters("default_tranche_strategy")
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load parameters for quote")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load active parameters")
		return
	}

	supplies, err := ws.reader.TrancheSupplies()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to read supplies for quote")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Failed to read tranche supplies")
		return
	}

	reserve, err := ws.reader.AccountBalance(config.DepositAddress, config.IncentiveDenom)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to read incentive reserve for quote")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Failed to read incentive reserve")
		return
	}

	// Rewards already promised to pending grants are not available to a new
	// deposit; the quote prices against the same budget settlement would.
	pendingTotal, err := state.PendingRewardTotal()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to sum pending rewards for quote")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to read pending grants")
		return
	}
	available := reserve.Sub(pendingTotal)
	if available.IsNegative() {
		available = sdkmath.ZeroInt()
	}

	response := map[string]interface{}{
		"side":              side,
		"amount":            nativeAmount.String(),
		"denom":             config.YieldDenom,
		"senior_supply":     supplies.Senior.String(),
		"junior_supply":     supplies.Junior.String(),
		"reserve":           reserve.String(),
		"available_reserve": available.String(),
		"timestamp":         time.Now().UTC(),
	}

	if params.DepositsPaused {
		response["reward"] = "0"
		response["open"] = false
		response["reason"] = "deposits are paused"
		ws.writeJSONResponse(w, http.StatusOK, response)
		return
	}

	if side == types.TrancheJunior {
		open, err := allocator.JuniorDepositOpen(supplies.Junior, supplies.Senior, stdAmount, params.MaxTrancheRatioBips)
		if err != nil {
			webLogger.Error().Err(err).Msg("Junior-open gate failed for quote")
			ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to evaluate junior gate")
			return
		}
		if !open {
			response["reward"] = "0"
			response["open"] = false
			response["reason"] = "junior tranche is at its ratio cap"
			ws.writeJSONResponse(w, http.StatusOK, response)
			return
		}
	}

	reward, err := allocator.CalculateDepositIncentive(side, stdAmount, supplies.Senior, supplies.Junior, available, params)
	if err != nil {
		webLogger.Error().Err(err).Msg("Incentive computation failed for quote")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to compute incentive")
		return
	}

	response["reward"] = reward.String()
	response["open"] = true
	if display, err := utils.DisplayAmount(reward, 18); err == nil {
		response["reward_display"] = display
	}
	// Effective One-scaled rate actually applied after the reserve cap.
	if stdAmount.IsPositive() {
		response["effective_rate"] = reward.Mul(allocator.One).Quo(stdAmount).String()
	} else {
		response["effective_rate"] = sdkmath.ZeroInt().String()
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
