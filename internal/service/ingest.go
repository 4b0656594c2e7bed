// Package service sequences one webhook invocation: validate, flatten,
// authenticate, compare against stored data, and persist when new.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/plansink/plansink/internal/config"
	"github.com/plansink/plansink/internal/dataset"
	"github.com/plansink/plansink/internal/dedup"
	"github.com/plansink/plansink/internal/flatten"
	"github.com/plansink/plansink/internal/logging"
	"github.com/plansink/plansink/internal/metrics"
	"github.com/plansink/plansink/internal/notify"
)

// sourceUnknown tags outcomes reached before the trigger is known.
const sourceUnknown = "UNKNOWN"

// requestDateLayout is the capture timestamp stamped on accepted rows.
const requestDateLayout = "2006-01-02 15:04:05"

// Storage is the file storage collaborator consumed by the orchestrator.
type Storage interface {
	FileID(ctx context.Context, name string) (string, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	Upload(ctx context.Context, name string, data []byte, mimeType string) (string, error)
	Update(ctx context.Context, fileID string, data []byte, mimeType string) error
}

// StorageFactory builds an authenticated storage client for one invocation.
// Credential acquisition happens here so auth failures surface before any
// storage access.
type StorageFactory func(ctx context.Context) (Storage, error)

// Notifier is the fire-and-forget outcome side channel.
type Notifier interface {
	Send(ctx context.Context, level, source, message string)
}

// Result is the outcome envelope of one invocation.
type Result struct {
	Status     string // "success", "skipped" or "error"
	Message    string
	HTTPStatus int
	Data       map[string]any
}

// Service orchestrates webhook ingestion.
type Service struct {
	cfg      *config.Config
	storage  StorageFactory
	notifier Notifier
	logger   *logging.Logger

	now func() time.Time
}

// New wires an ingestion service.
func New(cfg *config.Config, storage StorageFactory, notifier Notifier, logger *logging.Logger) *Service {
	return &Service{
		cfg:      cfg,
		storage:  storage,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Reject records a request rejected before processing started and returns its
// error result. Used by the HTTP layer for method and parse failures.
func (s *Service) Reject(ctx context.Context, httpStatus int, message string) Result {
	return s.errorResult(ctx, httpStatus, sourceUnknown, message)
}

// Process runs the full ingestion sequence for one parsed webhook payload.
func (s *Service) Process(ctx context.Context, payload map[string]any) Result {
	data, _ := payload["data"].(map[string]any)
	flat := flatten.Flatten(data)

	trigger, _ := flat[s.cfg.Ingestion.TriggerField].(string)
	if trigger == "" {
		return s.errorResult(ctx, http.StatusNotFound, sourceUnknown,
			fmt.Sprintf("Failed to extract `%s` from payload", s.cfg.Ingestion.TriggerField))
	}

	trigCfg, err := s.cfg.Trigger(trigger)
	if err != nil {
		return s.errorResult(ctx, http.StatusInternalServerError, trigger,
			fmt.Sprintf("Failed to load config: %v", err))
	}

	if s.cfg.Drive.FolderID == "" {
		return s.errorResult(ctx, http.StatusInternalServerError, trigger,
			"drive folder ID not configured")
	}

	storage, err := s.storage(ctx)
	if err != nil {
		return s.errorResult(ctx, http.StatusInternalServerError, trigger,
			fmt.Sprintf("Failed to initialize storage: %v", err))
	}

	// Advisory audit trail: failures are logged and never block ingestion.
	s.uploadAuditRecords(ctx, storage, trigCfg.FileName, payload, flat)

	parquetID := trigCfg.ParquetFileID
	excelID := trigCfg.ExcelFileID
	if parquetID == "" {
		s.logger.InfoContext(ctx, "parquet file ID not configured, resolving by name",
			"file_name", trigCfg.FileName)
		if parquetID, err = storage.FileID(ctx, dataset.ParquetFormat.FileName(trigCfg.FileName)); err != nil {
			return s.errorResult(ctx, http.StatusInternalServerError, trigger,
				fmt.Sprintf("Failed to resolve parquet file: %v", err))
		}
		if excelID, err = storage.FileID(ctx, dataset.ExcelFormat.FileName(trigCfg.FileName)); err != nil {
			return s.errorResult(ctx, http.StatusInternalServerError, trigger,
				fmt.Sprintf("Failed to resolve excel file: %v", err))
		}
	}

	ds := dataset.New()
	if parquetID != "" {
		blob, err := s.timedDownload(ctx, storage, parquetID)
		if err != nil {
			return s.errorResult(ctx, http.StatusInternalServerError, trigger,
				fmt.Sprintf("Failed to download parquet: %v", err))
		}
		if ds, err = dataset.DecodeParquet(blob); err != nil {
			return s.errorResult(ctx, http.StatusInternalServerError, trigger,
				fmt.Sprintf("Failed to decode parquet: %v", err))
		}
	}

	if !dedup.IsNew(ds, flat, trigCfg.CompareField) {
		return s.skippedResult(ctx, trigger, "Data already exists in file")
	}

	flat["request_date"] = s.now().Format(requestDateLayout)
	ds.Append(stringifyRecord(flat))
	s.logger.InfoContext(ctx, "dataset updated",
		"trigger", trigger, "rows", ds.Len(), "columns", len(ds.Columns))

	outputs := []struct {
		format dataset.Format
		fileID string
	}{
		{dataset.ParquetFormat, parquetID},
		{dataset.ExcelFormat, excelID},
	}

	responseData := make(map[string]any, len(outputs)+1)
	for _, out := range outputs {
		fileID, err := s.persist(ctx, storage, ds, out.format, trigCfg.FileName, out.fileID)
		if err != nil {
			// A prior format in this loop may already be updated; there is
			// no rollback across formats.
			return s.errorResult(ctx, http.StatusInternalServerError, trigger,
				fmt.Sprintf("Failed to upload %s: %v", out.format.Name, err))
		}
		responseData[out.format.Name] = fileID
	}
	responseData["rows"] = ds.Len()

	metrics.RowsAppendedTotal.WithLabelValues(trigger).Inc()
	return s.successResult(ctx, trigger, "Data added", responseData)
}

// persist encodes the dataset in one format and updates the known file or
// creates a new one.
func (s *Service) persist(ctx context.Context, storage Storage, ds *dataset.Dataset,
	format dataset.Format, baseName, fileID string) (string, error) {

	blob, err := format.Encode(ds)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", format.Name, err)
	}

	timer := time.Now()
	defer func() {
		metrics.StorageDuration.WithLabelValues("upload_" + format.Name).
			Observe(time.Since(timer).Seconds())
	}()

	if fileID != "" {
		if err := storage.Update(ctx, fileID, blob, format.MIMEType); err != nil {
			return "", err
		}
		return fileID, nil
	}
	return storage.Upload(ctx, format.FileName(baseName), blob, format.MIMEType)
}

func (s *Service) timedDownload(ctx context.Context, storage Storage, fileID string) ([]byte, error) {
	timer := time.Now()
	defer func() {
		metrics.StorageDuration.WithLabelValues("download").
			Observe(time.Since(timer).Seconds())
	}()
	return storage.Download(ctx, fileID)
}

// uploadAuditRecords stores the raw and flattened payloads as JSON documents
// next to the dataset files.
func (s *Service) uploadAuditRecords(ctx context.Context, storage Storage,
	baseName string, raw map[string]any, flat map[string]any) {

	records := []struct {
		reference string
		document  any
	}{
		{"raw_data", raw},
		{"flat_data", flat},
	}

	for _, rec := range records {
		blob, err := json.MarshalIndent(rec.document, "", "  ")
		if err != nil {
			metrics.AuditUploadFailures.Inc()
			s.logger.WarnContext(ctx, "failed to serialize audit record",
				"reference", rec.reference, "error", err)
			continue
		}
		name := fmt.Sprintf("%s_%s.json", baseName, rec.reference)
		if _, err := storage.Upload(ctx, name, blob, "application/json"); err != nil {
			metrics.AuditUploadFailures.Inc()
			s.logger.WarnContext(ctx, "failed to upload audit record",
				"name", name, "error", err)
		}
	}
}

func stringifyRecord(flat map[string]any) map[string]string {
	row := make(map[string]string, len(flat))
	for k, v := range flat {
		row[k] = flatten.Stringify(v)
	}
	return row
}

func (s *Service) errorResult(ctx context.Context, httpStatus int, trigger, message string) Result {
	s.logger.ErrorContext(ctx, message, "trigger", trigger)
	s.notifier.Send(ctx, notify.LevelError, trigger, message)
	metrics.WebhooksTotal.WithLabelValues(trigger, "error").Inc()
	return Result{Status: "error", Message: message, HTTPStatus: httpStatus}
}

func (s *Service) skippedResult(ctx context.Context, trigger, message string) Result {
	s.logger.InfoContext(ctx, message, "trigger", trigger)
	s.notifier.Send(ctx, notify.LevelSkipped, trigger, message)
	metrics.WebhooksTotal.WithLabelValues(trigger, "skipped").Inc()
	metrics.DuplicatesSkippedTotal.WithLabelValues(trigger).Inc()
	return Result{Status: "skipped", Message: message, HTTPStatus: http.StatusOK}
}

func (s *Service) successResult(ctx context.Context, trigger, message string, data map[string]any) Result {
	s.logger.InfoContext(ctx, message, "trigger", trigger)
	s.notifier.Send(ctx, notify.LevelSuccess, trigger, message)
	metrics.WebhooksTotal.WithLabelValues(trigger, "success").Inc()
	return Result{Status: "success", Message: message, HTTPStatus: http.StatusOK, Data: data}
}
