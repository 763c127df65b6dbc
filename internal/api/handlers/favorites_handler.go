package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	apiContext "pokewatch/internal/api/context"
	"pokewatch/internal/engine/favorites"
	apiErrors "pokewatch/internal/pkg/errors"
)

type FavoritesHandler struct {
	favorites *favorites.Service
}

func NewFavoritesHandler(svc *favorites.Service) *FavoritesHandler {
	return &FavoritesHandler{favorites: svc}
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	favs := h.favorites.ListSorted(r.URL.Query().Get("sort"))
	if favs == nil {
		favs = []favorites.Favorite{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(favs)
}

type addFavoriteRequest struct {
	Name  string   `json:"name"`
	Image string   `json:"image"`
	Types []string `json:"types"`
}

func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, ok := favoriteID(w, r)
	if !ok {
		return
	}

	var req addFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiErrors.WriteError(w, http.StatusBadRequest, apiErrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Name == "" {
		apiErrors.WriteError(w, http.StatusBadRequest, apiErrors.ErrCodeInvalidInput, "name is required", nil)
		return
	}

	added := h.favorites.Add(favorites.Favorite{
		ID:    id,
		Name:  req.Name,
		Image: req.Image,
		Types: req.Types,
	})
	if !added {
		apiErrors.WriteError(w, http.StatusConflict, apiErrors.ErrCodeConflict, "Already a favorite", nil)
		return
	}

	fav, _ := h.favorites.Get(id)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(fav)
}

func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := favoriteID(w, r)
	if !ok {
		return
	}

	if !h.favorites.Remove(id) {
		apiErrors.WriteError(w, http.StatusNotFound, apiErrors.ErrCodeNotFound, "Not a favorite", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FavoritesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.favorites.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *FavoritesHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.favorites.Export()
	if err != nil {
		apiErrors.WriteError(w, http.StatusInternalServerError, apiErrors.ErrCodeInternal, "Failed to export favorites", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="favorites.json"`)
	w.Write(data)
}

func (h *FavoritesHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		apiErrors.WriteError(w, http.StatusBadRequest, apiErrors.ErrCodeInvalidInput, "Failed to read request body", nil)
		return
	}

	if err := h.favorites.Import(data); err != nil {
		apiErrors.WriteError(w, http.StatusBadRequest, apiErrors.ErrCodeInvalidInput, "Invalid favorites backup", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func favoriteID(w http.ResponseWriter, r *http.Request) (int, bool) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id, err := strconv.Atoi(params.ByName("pokemon_id"))
	if err != nil || id <= 0 {
		apiErrors.WriteError(w, http.StatusBadRequest, apiErrors.ErrCodeInvalidInput, "pokemon_id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
