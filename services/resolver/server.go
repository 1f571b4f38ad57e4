package resolver

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"deedscout-backend/lib/addressutil"
)

type scrapeRequest struct {
	Addresses []string `json:"addresses"`
}

type scrapeResponse struct {
	Success bool           `json:"success"`
	Summary BatchSummary   `json:"summary"`
	Data    []ScrapeResult `json:"data"`
}

type deedDownloadRequest struct {
	Address string `json:"address"`
	County  string `json:"county"`
	State   string `json:"state"`
}

type deedDownload struct {
	PdfBase64 string `json:"pdfBase64"`
}

type deedDownloadResponse struct {
	Success  bool          `json:"success"`
	Download *deedDownload `json:"download,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// NewHandler mounts the service's HTTP surface. Batch outcomes are
// reported in the body, never via status codes: a batch where every
// address failed is still a 200 with per-address errors.
func NewHandler(service *Service) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Post("/api/scrape", handleScrape(service))
	r.Post("/api/deed/download", handleDeedDownload(service))

	return r
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

func handleScrape(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scrapeRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			writeJson(w, http.StatusBadRequest, scrapeResponse{})
			return
		}

		addresses := make([]addressutil.Address, len(req.Addresses))
		for i, raw := range req.Addresses {
			addresses[i] = addressutil.New(raw, "", "")
		}

		results, summary := service.Run(r.Context(), addresses, false)
		writeJson(w, http.StatusOK, scrapeResponse{
			Success: summary.Failed == 0,
			Summary: summary,
			Data:    results,
		})
	}
}

func handleDeedDownload(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deedDownloadRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil || req.Address == "" || req.County == "" || req.State == "" {
			writeJson(w, http.StatusBadRequest, deedDownloadResponse{
				Error: "body must carry address, county and state",
			})
			return
		}

		addr := addressutil.New(req.Address, req.County, req.State)
		results, _ := service.Run(r.Context(), []addressutil.Address{addr}, true)

		result := results[0]
		if result.Error != "" {
			writeJson(w, http.StatusOK, deedDownloadResponse{Error: result.Error})
			return
		}

		writeJson(w, http.StatusOK, deedDownloadResponse{
			Success: true,
			Download: &deedDownload{
				PdfBase64: base64.StdEncoding.EncodeToString(result.DocumentBytes),
			},
		})
	}
}
