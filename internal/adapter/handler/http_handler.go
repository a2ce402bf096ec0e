package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/core/service"
)

const (
	requestTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

// Services groups the core entry points the transports call into.
type Services struct {
	Auth    *service.AuthService
	Catalog *service.CatalogService
	Stock   *service.StockService
	Sales   *service.SaleCoordinator
	Reports *service.ReportService
}

type HTTPHandler struct {
	svc    Services
	logger *zap.Logger
}

type LoginHTTPRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginHTTPResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

type CreateUniformHTTPRequest struct {
	Garment  string          `json:"garment"`
	Size     string          `json:"size"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type MovementHTTPRequest struct {
	UnitID   int64 `json:"unit_id"`
	Quantity int   `json:"quantity"`
	ActorID  int64 `json:"actor_id"`
}

type MovementHTTPResponse struct {
	Message        string `json:"message"`
	ResultingStock int    `json:"resulting_stock"`
}

type SaleHTTPRequest struct {
	CustomerName string            `json:"customer_name"`
	ActorID      int64             `json:"actor_id"`
	Total        decimal.Decimal   `json:"total"`
	Lines        []domain.SaleLine `json:"lines"`
}

type SaleHTTPResponse struct {
	Message string `json:"message"`
	SaleID  int64  `json:"sale_id"`
}

func NewHTTPHandler(svc Services, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{svc: svc, logger: logger}
}

// Routes builds the chi router. Everything under /api except login needs a
// bearer token.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(h.logger), middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(authenticate(h.svc.Auth))

			r.Get("/uniforms", h.ListUniforms)
			r.Post("/uniforms", h.CreateUniform)
			r.Get("/sales", h.ListSales)
			r.Post("/sales", h.RegisterSale)
			r.Get("/movements", h.ListMovements)
			r.Post("/movements/entry", h.RecordEntry)
			r.Post("/movements/exit", h.RecordExit)
			r.Get("/reports/stock-value", h.StockValue)
		})
	})

	return r
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, user, err := h.svc.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginHTTPResponse{
		Message:  "login successful",
		Username: user.Username,
		Role:     user.Role,
		Token:    token,
	})
}

func (h *HTTPHandler) ListUniforms(w http.ResponseWriter, r *http.Request) {
	units, err := h.svc.Catalog.ListUniforms(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}

func (h *HTTPHandler) CreateUniform(w http.ResponseWriter, r *http.Request) {
	var req CreateUniformHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.svc.Catalog.CreateUniform(r.Context(), domain.UniformUnit{
		Garment:  req.Garment,
		Size:     req.Size,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "uniform created", "id": id})
}

func (h *HTTPHandler) RecordEntry(w http.ResponseWriter, r *http.Request) {
	h.recordMovement(w, r, domain.MovementEntry)
}

func (h *HTTPHandler) RecordExit(w http.ResponseWriter, r *http.Request) {
	h.recordMovement(w, r, domain.MovementExit)
}

func (h *HTTPHandler) recordMovement(w http.ResponseWriter, r *http.Request, kind domain.MovementKind) {
	var req MovementHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	actorID, err := resolveActor(claimsFrom(r.Context()), req.ActorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	record := h.svc.Stock.RecordEntry
	message := "stock updated"
	if kind == domain.MovementExit {
		record = h.svc.Stock.RecordExit
		message = "withdrawal recorded"
	}

	resulting, err := record(r.Context(), req.UnitID, req.Quantity, actorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MovementHTTPResponse{Message: message, ResultingStock: resulting})
}

func (h *HTTPHandler) RegisterSale(w http.ResponseWriter, r *http.Request) {
	var req SaleHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	actorID, err := resolveActor(claimsFrom(r.Context()), req.ActorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	saleID, err := h.svc.Sales.RegisterSale(r.Context(), service.SaleRequest{
		CustomerName:   req.CustomerName,
		ActorID:        actorID,
		Total:          req.Total,
		Lines:          req.Lines,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if errors.Is(err, domain.ErrDuplicateRequest) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   domain.Kind(err),
			"message": "sale already submitted",
			"sale_id": saleID,
		})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SaleHTTPResponse{Message: "sale registered", SaleID: saleID})
}

func (h *HTTPHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.Reports.ListSales(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (h *HTTPHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.svc.Reports.ListMovements(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

func (h *HTTPHandler) StockValue(w http.ResponseWriter, r *http.Request) {
	values, err := h.svc.Reports.StockValuation(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": values})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{
			Error:   domain.Kind(domain.ErrValidation),
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
