package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type AddWishlistRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Price string `json:"price"`
	Image string `json:"image"`
}

func (h *APIHandler) AddWishlistHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req AddWishlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Corp de cerere invalid")
		return
	}
	if req.URL == "" {
		writeJSONError(w, http.StatusBadRequest, "URL-ul produsului este obligatoriu")
		return
	}

	created, item, err := h.wishlist.Add(r.Context(), claims.UserID, req.URL, req.Title, req.Price, req.Image)
	if err != nil {
		h.logger.Error("wishlist add failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Nu s-a putut adăuga produsul")
		return
	}

	if !created {
		// Duplicate add is a no-op, reported distinctly from a failure.
		writeJSON(w, http.StatusOK, map[string]any{
			"added":   false,
			"message": "Acest produs este deja în wishlist-ul tău",
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"added": true,
		"item":  item,
	})
}

func (h *APIHandler) RemoveWishlistHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	productURL := r.URL.Query().Get("url")
	if productURL == "" {
		writeJSONError(w, http.StatusBadRequest, "URL-ul produsului este obligatoriu")
		return
	}

	if err := h.wishlist.Remove(r.Context(), claims.UserID, productURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "Produsul nu este în wishlist")
			return
		}
		h.logger.Error("wishlist remove failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Nu s-a putut șterge produsul")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListWishlistHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	items, err := h.wishlist.List(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("wishlist list failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Nu s-a putut încărca wishlist-ul")
		return
	}
	writeJSON(w, http.StatusOK, items)
}
