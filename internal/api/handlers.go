package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cityfood/vendorflow/internal/config"
	"github.com/cityfood/vendorflow/internal/eniture"
	"github.com/cityfood/vendorflow/internal/jobs"
	"github.com/cityfood/vendorflow/internal/scraper"
	"github.com/cityfood/vendorflow/internal/tabular"
	"github.com/cityfood/vendorflow/internal/tags"
	"github.com/cityfood/vendorflow/internal/weights"
)

const maxUploadBytes = 100 << 20

type Handlers struct {
	store     *config.Store
	state     *jobs.State
	scrape    *scraper.Service
	tags      *tags.Processor
	weights   *weights.Processor
	eniture   *eniture.SyncJob
	uploadDir string
	logger    *slog.Logger
}

func NewHandlers(store *config.Store, state *jobs.State, scrape *scraper.Service,
	tagsProc *tags.Processor, weightsProc *weights.Processor, enitureSync *eniture.SyncJob,
	uploadDir string, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:     store,
		state:     state,
		scrape:    scrape,
		tags:      tagsProc,
		weights:   weightsProc,
		eniture:   enitureSync,
		uploadDir: uploadDir,
		logger:    logger.With("component", "api"),
	}
}

// Routes mounts every endpoint on a chi router.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/", h.Root)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Post("/stop", h.StopProcessing)
		r.Get("/config", h.GetConfig)
		r.Post("/config", h.UpdateConfig)
		r.Post("/upload", h.UploadFile)
		r.Get("/logs", h.GetLogs)
		r.Post("/scrape", h.StartScrape)
		r.Post("/scrape/file", h.StartScrapeFromFile)
		r.Get("/scrape/results", h.GetScrapeResults)
		r.Post("/tags/process", h.ProcessTags)
		r.Post("/tags/push", h.PushTags)
		r.Post("/weights/process", h.ProcessWeights)
		r.Post("/eniture/sync", h.SyncEniture)
		r.Get("/download/{filename}", h.DownloadFile)
	})
}

func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "VendorFlow API",
		"version": "1.0.0",
	})
}

func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.state.Snapshot())
}

func (h *Handlers) StopProcessing(w http.ResponseWriter, r *http.Request) {
	h.state.Stop()
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "stop_requested"})
}

func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.store.Get())
}

func (h *Handlers) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	cfg, err := h.store.Apply(body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, cfg)
}

func (h *Handlers) UploadFile(w http.ResponseWriter, r *http.Request) {
	path, err := h.saveUpload(r, "file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"path":     path,
		"filename": filepath.Base(path),
	})
}

func (h *Handlers) GetLogs(w http.ResponseWriter, r *http.Request) {
	after := queryInt(r, "after", -1)
	limit := queryInt(r, "limit", 100)
	entries := h.state.LogsAfter(after, limit)
	if entries == nil {
		entries = []jobs.Entry{}
	}
	h.respondJSON(w, http.StatusOK, entries)
}

// ScrapeRequest starts a scrape with an inline model list.
type ScrapeRequest struct {
	Models        []string `json:"models"`
	VariationMode string   `json:"variation_mode"`
	Prefix        string   `json:"prefix"`
	StartRow      int      `json:"start_row"`
	EndRow        int      `json:"end_row"`
}

func (h *Handlers) StartScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Models) == 0 || req.Prefix == "" {
		h.respondError(w, http.StatusBadRequest, "models and prefix are required")
		return
	}
	applyScrapeDefaults(&req)

	if err := h.state.Start("Web Scraping", len(req.Models)); err != nil {
		h.respondError(w, http.StatusConflict, "already processing")
		return
	}

	go h.runScrape(scraper.Request{
		Models:   req.Models,
		Mode:     scraper.Mode(req.VariationMode),
		Prefix:   req.Prefix,
		StartRow: req.StartRow,
		EndRow:   req.EndRow,
	}, false)

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "started", "task": "scraping"})
}

func (h *Handlers) StartScrapeFromFile(w http.ResponseWriter, r *http.Request) {
	path, err := h.saveUpload(r, "file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	modelColumn := r.FormValue("model_column")
	if modelColumn == "" {
		modelColumn = h.store.Get().Scraping.ModelColumn
	}
	prefix := r.FormValue("prefix")
	if prefix == "" {
		h.respondError(w, http.StatusBadRequest, "prefix is required")
		return
	}

	table, err := readTableFile(path)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	models := table.Column(modelColumn)
	if len(models) == 0 {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("column %q not found or empty", modelColumn))
		return
	}

	req := ScrapeRequest{
		Models:        models,
		VariationMode: r.FormValue("variation_mode"),
		Prefix:        prefix,
		StartRow:      formInt(r, "start_row", 1),
		EndRow:        formInt(r, "end_row", 1000),
	}
	applyScrapeDefaults(&req)

	// Auto mode reads the side-loaded specification column from the same
	// sheet the models came from.
	var specs scraper.SpecLookup
	if scraper.Mode(req.VariationMode) == scraper.ModeAuto {
		specs = scraper.BuildSpecLookup(table.Header, table.Rows)
	}

	if err := h.state.Start("Web Scraping", len(models)); err != nil {
		h.respondError(w, http.StatusConflict, "already processing")
		return
	}

	go h.runScrape(scraper.Request{
		Models:   req.Models,
		Mode:     scraper.Mode(req.VariationMode),
		Prefix:   req.Prefix,
		StartRow: req.StartRow,
		EndRow:   req.EndRow,
		Specs:    specs,
	}, true)

	h.respondJSON(w, http.StatusOK, map[string]any{"status": "started", "models_count": len(models)})
}

func (h *Handlers) runScrape(req scraper.Request, export bool) {
	rows := h.scrape.ScrapeModels(context.Background(), req, h.state)

	results := make([]map[string]string, len(rows))
	for i, row := range rows {
		results[i] = row
	}
	h.state.SetResults(results)

	if export && len(rows) > 0 {
		name := fmt.Sprintf("scraped_%s.xlsx", time.Now().Format("20060102_150405"))
		path := filepath.Join(h.uploadDir, name)
		if err := tabular.WriteXLSX(path, tabular.FromRows(rows)); err != nil {
			h.state.AddLog("Failed to save results: "+err.Error(), "error")
		} else {
			h.state.AddLog("Results saved to "+path, "success")
		}
	}

	h.state.Complete()
}

func (h *Handlers) GetScrapeResults(w http.ResponseWriter, r *http.Request) {
	results := h.state.Results()
	if results == nil {
		results = []map[string]string{}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (h *Handlers) ProcessTags(w http.ResponseWriter, r *http.Request) {
	workbookPath, err := h.saveUpload(r, "excel_file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	csvPath, err := h.saveUpload(r, "csv_file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	outputName := r.FormValue("output_name")
	if outputName == "" {
		outputName = "tags_output.csv"
	}
	outputPath := filepath.Join(h.uploadDir, filepath.Base(outputName))

	if err := h.state.Start("Tag Processing", 0); err != nil {
		h.respondError(w, http.StatusConflict, "already processing")
		return
	}

	go func() {
		summary, err := h.tags.ProcessTags(workbookPath, csvPath, outputPath)
		h.finishJob(summary, err, "Tag processing")
	}()

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "started", "output": outputPath})
}

func (h *Handlers) PushTags(w http.ResponseWriter, r *http.Request) {
	path, err := h.saveUpload(r, "file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sheet, err := readTableFile(path)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.state.Start("Tag Push to Shopify", len(sheet.Rows)); err != nil {
		h.respondError(w, http.StatusConflict, "already processing")
		return
	}

	go func() {
		summary, err := h.tags.PushTags(context.Background(), sheet)
		h.finishJob(summary, err, "Tag push")
	}()

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (h *Handlers) ProcessWeights(w http.ResponseWriter, r *http.Request) {
	vendorPath, err := h.saveUpload(r, "vendor_file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	outputPath, err := h.saveUpload(r, "output_file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.state.Start("Weight Processing", 0); err != nil {
		h.respondError(w, http.StatusConflict, "already processing")
		return
	}

	go func() {
		summary, err := h.weights.Process(vendorPath, outputPath)
		h.finishJob(summary, err, "Weight processing")
	}()

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (h *Handlers) SyncEniture(w http.ResponseWriter, r *http.Request) {
	lookupPath, err := h.saveUpload(r, "lookup_file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	weightPath, err := h.saveUpload(r, "weight_file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	lookup, err := readTableFile(lookupPath)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	weightTable, err := tabular.ReadCSV(weightPath)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.state.Start("Eniture Sync", len(lookup.Rows)); err != nil {
		h.respondError(w, http.StatusConflict, "already processing")
		return
	}

	go func() {
		summary, err := h.eniture.Run(context.Background(), lookup, weightTable)
		h.finishJob(summary, err, "Eniture sync")
	}()

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (h *Handlers) DownloadFile(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(chi.URLParam(r, "filename"))
	path := filepath.Join(h.uploadDir, name)
	if _, err := os.Stat(path); err != nil {
		h.respondError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}

// finishJob stores a batch job's summary and releases the job slot.
func (h *Handlers) finishJob(summary any, err error, task string) {
	if err != nil {
		h.state.Fail(task + " error: " + err.Error())
		return
	}
	data, _ := json.Marshal(summary)
	result := map[string]string{"summary": string(data)}
	h.state.SetResults([]map[string]string{result})
	h.state.Complete()
}

// saveUpload stores one multipart file under the upload directory and returns
// its path. File names are flattened to their base to keep uploads inside the
// directory.
func (h *Handlers) saveUpload(r *http.Request, field string) (string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", fmt.Errorf("failed to parse upload: %w", err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("missing file field %q", field)
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	path := filepath.Join(h.uploadDir, filepath.Base(header.Filename))
	if err := writeUpload(path, file); err != nil {
		return "", err
	}
	return path, nil
}

func writeUpload(path string, file multipart.File) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return fmt.Errorf("failed to write upload: %w", err)
	}
	return nil
}

// readTableFile loads a CSV or XLSX upload by extension.
func readTableFile(path string) (*tabular.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		return tabular.ReadXLSX(path)
	default:
		return tabular.ReadCSV(path)
	}
}

func applyScrapeDefaults(req *ScrapeRequest) {
	if req.VariationMode == "" {
		req.VariationMode = "None"
	}
	if req.StartRow < 1 {
		req.StartRow = 1
	}
	if req.EndRow < 1 {
		req.EndRow = 1000
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func formInt(r *http.Request, key string, def int) int {
	if v := r.FormValue(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
