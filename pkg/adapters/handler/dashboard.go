package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
)

type DashboardHandler struct {
	dashboard ports.DashboardService
	features  ports.FeatureService
}

func NewDashboardHandler(dashboard ports.DashboardService, features ports.FeatureService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, features: features}
}

type HistoryResponse struct {
	QRCodes    []domain.QRCode    `json:"qrCodes"`
	ShortLinks []domain.ShortLink `json:"shortUrls"`
}

type FeatureResponse struct {
	Feature   string `json:"feature"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Max       int    `json:"max"`
	Allowed   bool   `json:"allowed"`
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context(), UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load dashboard")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *DashboardHandler) History(w http.ResponseWriter, r *http.Request) {
	codes, links, err := h.dashboard.History(r.Context(), UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load history")
		return
	}
	if codes == nil {
		codes = []domain.QRCode{}
	}
	if links == nil {
		links = []domain.ShortLink{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{QRCodes: codes, ShortLinks: links})
}

func (h *DashboardHandler) Activities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.dashboard.Activities(r.Context(), UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load activities")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Activity{"activities": activities})
}

// FeatureStatus reports whether the caller may still try a premium feature
func (h *DashboardHandler) FeatureStatus(w http.ResponseWriter, r *http.Request) {
	trial, allowed, err := h.features.Status(r.Context(), UserID(r.Context()), r.PathValue("name"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load feature trial")
		return
	}
	writeJSON(w, http.StatusOK, featureResponse(trial, allowed))
}

// UseFeature consumes one trial. Exhausted or anonymous callers get 403.
func (h *DashboardHandler) UseFeature(w http.ResponseWriter, r *http.Request) {
	trial, used, err := h.features.Use(r.Context(), UserID(r.Context()), r.PathValue("name"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to use feature trial")
		return
	}
	status := http.StatusOK
	if !used {
		status = http.StatusForbidden
	}
	writeJSON(w, status, featureResponse(trial, used))
}

func featureResponse(trial *domain.FeatureTrial, allowed bool) FeatureResponse {
	return FeatureResponse{
		Feature:   trial.Feature,
		Used:      trial.TrialCount,
		Remaining: trial.Remaining(),
		Max:       trial.MaxTrials,
		Allowed:   allowed,
	}
}
