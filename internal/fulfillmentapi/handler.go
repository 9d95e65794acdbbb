// Package fulfillmentapi is the thin HTTP transport boundary for Google's
// Smart Home fulfillment webhook, modeled directly on the teacher
// library's GoogleFulfillmentHandler: content-type and bearer-token
// checks, JSON decode/encode, and delegation to internal/fulfillment for
// all intent-routing logic.
package fulfillmentapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/faltung/homed-google-bridge/internal/fulfillment"
	"github.com/faltung/homed-google-bridge/internal/gwerr"
	"github.com/faltung/homed-google-bridge/internal/wire"
)

// AccessTokenValidator validates the bearer token Google's fulfillment
// call carries and resolves it to an agentUserId, exactly like the
// teacher library's AccessTokenValidator port.
type AccessTokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// FulfillmentPath is the HTTP path this handler expects to be registered
// at, matching the teacher library's GoogleFulfillmentPath constant.
const FulfillmentPath = "/fulfillment"

// Handler adapts HTTP requests to fulfillment.Router.Handle.
type Handler struct {
	logger      *zap.Logger
	atValidator AccessTokenValidator
	router      *fulfillment.Router
}

// New builds a Handler. If atValidator or router is nil it logs at Fatal
// level, which exits the process, mirroring the teacher library's
// NewService fail-fast behavior on missing collaborators.
func New(logger *zap.Logger, atValidator AccessTokenValidator, router *fulfillment.Router) *Handler {
	if atValidator == nil {
		logger.Fatal("fulfillmentapi: nil access token validator")
	}
	if router == nil {
		logger.Fatal("fulfillmentapi: nil router")
	}
	return &Handler{logger: logger, atValidator: atValidator, router: router}
}

// ServeHTTP implements http.Handler, suitable for mux.Handle(FulfillmentPath, handler).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	contentType := r.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		w.Write([]byte("request not JSON"))
		return
	}

	authHeader := r.Header.Get("Authorization")
	if len(authHeader) == 0 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("access token required"))
		return
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("access token must be bearer"))
		return
	}

	userID, err := h.atValidator.Validate(r.Context(), parts[1])
	if err != nil || userID == "" {
		h.logger.Info("fulfillment token validation failed", zap.Error(err))
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("access token invalid"))
		return
	}

	var req wire.FulfillmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Info("fulfillment request body decode failed", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("JSON deserialization failed"))
		return
	}

	h.logger.Debug("processing fulfillment intent",
		zap.String("request_id", req.RequestID),
		zap.String("user_id", userID))

	resp, err := h.router.Handle(r.Context(), userID, req)
	if err != nil {
		var gwErr *gwerr.Error
		status := http.StatusInternalServerError
		if errors.As(err, &gwErr) && gwErr.Kind == gwerr.InvalidFulfillmentRequest {
			status = http.StatusBadRequest
		}
		h.logger.Info("fulfillment intent failed", zap.String("request_id", req.RequestID), zap.Error(err))
		w.WriteHeader(status)
		w.Write([]byte(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Info("fulfillment response encode failed", zap.Error(err))
	}
}
