package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/paddock/internal/api"
	"github.com/cloo-solutions/paddock/internal/domain"
)

type CollectionInfoProvider interface {
	Info(ctx context.Context) (domain.CollectionInfo, error)
}

type CollectionHandler struct {
	store CollectionInfoProvider
}

func NewCollectionHandler(store CollectionInfoProvider) *CollectionHandler {
	return &CollectionHandler{store: store}
}

type CollectionResponse struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Count     int64  `json:"count"`
}

func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.store.Info(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, CollectionResponse{
		Name:      info.Name,
		Dimension: info.Dimension,
		Metric:    string(info.Metric),
		Count:     info.Count,
	})
}
