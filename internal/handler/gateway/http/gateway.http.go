package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"github.com/krobus00/clob-gateway/internal/entity"
	"github.com/krobus00/clob-gateway/internal/service/credential"
	"github.com/krobus00/clob-gateway/internal/service/hub"
	"github.com/krobus00/clob-gateway/internal/service/order"
)

const (
	defaultMarketsLimit = 400
)

type OrderHTTPRequest struct {
	TokenID    string   `json:"tokenId"`
	Price      float64  `json:"price"`
	Size       float64  `json:"size"`
	Side       string   `json:"side"`
	Expiration null.Int `json:"expiration"`
}

type CancelHTTPRequest struct {
	OrderID string `json:"orderId"`
}

type SuccessResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// ConnectionStateSource snapshots the upstream connection lifecycle.
// Satisfied by *venueconn.Connection.
type ConnectionStateSource interface {
	State() entity.ConnectionState
}

type Handler struct {
	credStore    *credential.Store
	orderGateway *order.Gateway
	venue        entity.VenueConnector
	hub          *hub.Hub
	connState    ConnectionStateSource
	wsUpgrader   wsUpgrader
}

func NewGatewayHTTPHandler(
	credStore *credential.Store,
	orderGateway *order.Gateway,
	venue entity.VenueConnector,
	eventHub *hub.Hub,
	connState ConnectionStateSource,
	allowedOrigins []string,
) *Handler {
	return &Handler{
		credStore:    credStore,
		orderGateway: orderGateway,
		venue:        venue,
		hub:          eventHub,
		connState:    connState,
		wsUpgrader:   newWSUpgrader(allowedOrigins),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", h.Root)
	mux.HandleFunc("/api/credentials", h.Credentials)
	mux.HandleFunc("/api/markets", h.Markets)
	mux.HandleFunc("/api/positions", h.Positions)
	mux.HandleFunc("/api/order", h.PlaceOrder)
	mux.HandleFunc("/api/cancel", h.CancelOrder)
	mux.HandleFunc("/ws", h.Subscribe)
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Status: "error", Error: "not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "API is running",
		"connection": h.connState.State(),
	})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	state := h.connState.State()
	if !state.Streaming() {
		writeJSON(w, http.StatusServiceUnavailable, state)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) Credentials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Status: "error", Error: "method not allowed"})
		return
	}

	creds, ok := h.credStore.Get()
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Error: credential.ErrNotGenerated.Error()})
		return
	}

	writeJSON(w, http.StatusOK, creds)
}

func (h *Handler) Markets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Status: "error", Error: "method not allowed"})
		return
	}

	query := entity.MarketsQuery{
		Limit:    queryInt(r, "limit", defaultMarketsLimit),
		Offset:   queryInt(r, "offset", 0),
		Active:   queryBool(r, "active", true),
		Archived: queryBool(r, "archived", false),
		Closed:   queryBool(r, "closed", false),
	}

	markets, err := h.venue.Markets(r.Context(), query)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Status: "error", Error: err.Error()})
		return
	}

	writeRaw(w, http.StatusOK, markets)
}

func (h *Handler) Positions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Status: "error", Error: "method not allowed"})
		return
	}

	positions, err := h.venue.Positions(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Status: "error", Error: err.Error()})
		return
	}

	writeRaw(w, http.StatusOK, positions)
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Status: "error", Error: "method not allowed"})
		return
	}

	defer r.Body.Close()

	var req OrderHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: "error", Error: "invalid json body"})
		return
	}

	orderReq, err := mapHTTPRequestToOrderRequest(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: "error", Error: err.Error()})
		return
	}

	ack, err := h.orderGateway.Submit(r.Context(), orderReq)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidOrderSide), errors.Is(err, order.ErrMissingTokenID):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: "error", Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Status: "success", Data: ack})
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Status: "error", Error: "method not allowed"})
		return
	}

	defer r.Body.Close()

	var req CancelHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: "error", Error: "invalid json body"})
		return
	}

	ack, err := h.orderGateway.Cancel(r.Context(), entity.CancelRequest{OrderID: req.OrderID})
	if err != nil {
		switch {
		case errors.Is(err, order.ErrMissingOrderID):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: "error", Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Status: "success", Data: ack})
}

func mapHTTPRequestToOrderRequest(req *OrderHTTPRequest) (entity.OrderRequest, error) {
	if strings.TrimSpace(req.TokenID) == "" {
		return entity.OrderRequest{}, order.ErrMissingTokenID
	}

	side, err := entity.ParseOrderSide(req.Side)
	if err != nil {
		return entity.OrderRequest{}, err
	}

	if req.Price <= 0 {
		return entity.OrderRequest{}, errors.New("price must be greater than zero")
	}

	if req.Size <= 0 {
		return entity.OrderRequest{}, errors.New("size must be greater than zero")
	}

	return entity.OrderRequest{
		TokenID:    strings.TrimSpace(req.TokenID),
		Price:      decimal.NewFromFloat(req.Price),
		Size:       decimal.NewFromFloat(req.Size),
		Side:       side,
		Expiration: req.Expiration.Ptr(),
	}, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return value
}

func queryBool(r *http.Request, key string, fallback bool) bool {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return value
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeRaw(w http.ResponseWriter, code int, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(payload)
}
