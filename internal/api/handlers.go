package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"localagent.ro/sme-agent/internal/auth"
	"localagent.ro/sme-agent/internal/core"
	"localagent.ro/sme-agent/internal/store"
)

type contextKey string

const claimsKey contextKey = "claims"

// RegistryStore is the slice of the store the import endpoint needs.
type RegistryStore interface {
	UpsertCompanies(ctx context.Context, companies []store.Company) (int, error)
	GetCompanyByCUI(ctx context.Context, cui string) (*store.Company, error)
	Stats(ctx context.Context) (*store.ImportStats, error)
}

type APIHandler struct {
	chatService *core.ChatService
	entitlement *core.EntitlementService
	wishlist    *core.WishlistService
	registry    RegistryStore
	logger      *zap.Logger
}

func NewAPIHandler(cs *core.ChatService, ent *core.EntitlementService, wl *core.WishlistService, registry RegistryStore, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		chatService: cs,
		entitlement: ent,
		wishlist:    wl,
		registry:    registry,
		logger:      logger.Named("api"),
	}
}

// OptionalAuth attaches claims when a valid bearer token is present and
// otherwise lets the request through as anonymous.
func (h *APIHandler) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := bearerClaims(r); claims != nil {
			r = r.WithContext(context.WithValue(r.Context(), claimsKey, claims))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a valid bearer token.
func (h *APIHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := bearerClaims(r)
		if claims == nil {
			writeJSONError(w, http.StatusUnauthorized, "Autentificare necesară")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func bearerClaims(r *http.Request) *auth.Claims {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil
	}
	claims, err := auth.ValidateJWT(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return nil
	}
	return claims
}

func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type ChatRequest struct {
	Messages []core.ChatMessage `json:"messages"`
}

// streamFrame is the wire shape of one content delta, matching the upstream
// provider's frame format so clients can consume either directly.
type streamFrame struct {
	Choices []streamChoice `json:"choices"`
}

type streamChoice struct {
	Delta streamDelta `json:"delta"`
}

type streamDelta struct {
	Content string `json:"content"`
}

// ChatHandler enforces the daily quota, then forwards the completion stream
// as text/event-stream frames terminated by a [DONE] frame.
func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Corp de cerere invalid")
		return
	}
	if len(req.Messages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "Lipsesc mesajele")
		return
	}

	// Rate limiting applies only to identified users; anonymous demo traffic
	// is bounded client-side.
	if claims := claimsFrom(r.Context()); claims != nil {
		decision := h.entitlement.Check(r.Context(), claims.UserID, claims.Email)
		if !decision.Allowed {
			h.logger.Info("daily quota exhausted",
				zap.String("user_id", claims.UserID),
				zap.Int("messages_used", decision.MessagesUsed))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":        "Ai atins limita de mesaje zilnice. Fă upgrade la Pro pentru mesaje nelimitate!",
				"rateLimited":  true,
				"messagesUsed": decision.MessagesUsed,
				"remaining":    0,
			})
			return
		}
	}

	upstream, err := h.chatService.Stream(r.Context(), req.Messages)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUpstreamRateLimited):
			writeJSONError(w, http.StatusTooManyRequests, "Prea multe cereri. Te rugăm încearcă din nou.")
		case errors.Is(err, core.ErrUpstreamQuota):
			writeJSONError(w, http.StatusPaymentRequired, "Credite insuficiente.")
		default:
			h.logger.Error("failed to open completion stream", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "Eroare AI gateway")
		}
		return
	}
	defer upstream.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "Streaming nesuportat")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for {
		resp, err := upstream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Headers are already out; log and end the stream.
			h.logger.Warn("completion stream interrupted", zap.Error(err))
			return
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}

		frame := streamFrame{Choices: []streamChoice{{Delta: streamDelta{Content: resp.Choices[0].Delta.Content}}}}
		payload, err := json.Marshal(frame)
		if err != nil {
			h.logger.Error("failed to encode stream frame", zap.Error(err))
			return
		}
		if _, err := w.Write(append(append([]byte("data: "), payload...), '\n', '\n')); err != nil {
			// Client went away; upstream is torn down by the deferred Close
			// and the request context.
			return
		}
		flusher.Flush()
	}

	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}
