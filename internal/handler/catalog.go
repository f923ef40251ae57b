package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/smm-storefront/internal/service"
)

// ListCategories возвращает категории каталога.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeList(w, mapSlice(items, toCategory))
}

// ListServices возвращает услуги каталога, опционально по категории.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListServices(r.Context(), r.URL.Query().Get("category_id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeList(w, mapSlice(items, toService))
}

// CreateCategory создаёт категорию каталога.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategory(*c))
}

// RenameCategory переименовывает категорию.
func (h *Handler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.RenameCategory(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategory(*c))
}

// DeleteCategory удаляет категорию вместе с её услугами.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.DeleteCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted_services": removed})
}

// CreateService добавляет услугу в каталог.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if !h.decode(w, r, &req) {
		return
	}

	s, err := h.service.CreateService(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toService(*s))
}

// UpdateService обновляет услугу каталога.
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if !h.decode(w, r, &req) {
		return
	}

	s, err := h.service.UpdateService(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toService(*s))
}

// DeleteService удаляет услугу каталога.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteService(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req serviceRequest) input() service.ServiceInput {
	return service.ServiceInput{
		CategoryID:     req.CategoryID,
		Name:           req.Name,
		Price:          req.Price.String(),
		ProcessingTime: req.ProcessingTime,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
	}
}
