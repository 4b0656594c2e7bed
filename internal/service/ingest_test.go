package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plansink/plansink/internal/config"
	"github.com/plansink/plansink/internal/dataset"
	"github.com/plansink/plansink/internal/logging"
)

type fakeStorage struct {
	mu     sync.Mutex
	files  map[string][]byte // id -> content
	names  map[string]string // name -> id
	nextID int

	failDownload bool
	failUpdate   bool
	failUploads  func(name string) bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		files: make(map[string][]byte),
		names: make(map[string]string),
	}
}

func (f *fakeStorage) FileID(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names[name], nil
}

func (f *fakeStorage) Download(_ context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDownload {
		return nil, fmt.Errorf("download unavailable")
	}
	data, ok := f.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return data, nil
}

func (f *fakeStorage) Upload(_ context.Context, name string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUploads != nil && f.failUploads(name) {
		return "", fmt.Errorf("upload of %s rejected", name)
	}
	if id, ok := f.names[name]; ok {
		f.files[id] = data
		return id, nil
	}
	f.nextID++
	id := fmt.Sprintf("file-%d", f.nextID)
	f.names[name] = id
	f.files[id] = data
	return id, nil
}

func (f *fakeStorage) Update(_ context.Context, fileID string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate {
		return fmt.Errorf("update rejected")
	}
	if _, ok := f.files[fileID]; !ok {
		return fmt.Errorf("file %s not found", fileID)
	}
	f.files[fileID] = data
	return nil
}

func (f *fakeStorage) dataset(t *testing.T, name string) *dataset.Dataset {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.names[name]
	require.True(t, ok, "file %s not stored", name)
	ds, err := dataset.DecodeParquet(f.files[id])
	require.NoError(t, err)
	return ds
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Send(_ context.Context, level, source, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, fmt.Sprintf("[%s] %s --> %s", level, source, message))
}

func (n *fakeNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}

func testConfig() *config.Config {
	return &config.Config{
		Drive: config.DriveConfig{FolderID: "folder-1"},
		Ingestion: config.IngestionConfig{
			TriggerField: "_context_trigger_key",
		},
		Triggers: map[string]config.TriggerConfig{
			"plan_purchased": {
				FileName:     "plan_sales",
				CompareField: "order_id",
			},
		},
	}
}

func newTestService(cfg *config.Config, storage Storage, notifier Notifier) *Service {
	s := New(cfg,
		func(context.Context) (Storage, error) { return storage, nil },
		notifier,
		logging.New(slog.LevelError, "text"),
	)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func planSalePayload(orderID string) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"_context": map[string]any{"trigger_key": "plan_purchased"},
			"order":    map[string]any{"id": orderID},
			"amount":   float64(10),
		},
	}
}

func TestProcess_NewDataAppended(t *testing.T) {
	storage := newFakeStorage()
	notifier := &fakeNotifier{}
	svc := newTestService(testConfig(), storage, notifier)

	res := svc.Process(context.Background(), planSalePayload("A1"))

	require.Equal(t, "success", res.Status)
	assert.Equal(t, http.StatusOK, res.HTTPStatus)
	assert.Equal(t, "Data added", res.Message)
	assert.Equal(t, 1, res.Data["rows"])
	assert.NotEmpty(t, res.Data["parquet"])
	assert.NotEmpty(t, res.Data["excel"])
	assert.Contains(t, notifier.last(), "[SUCCESS] plan_purchased")

	ds := storage.dataset(t, "plan_sales.parquet")
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, "A1", ds.Cell(0, "order_id"))
	assert.Equal(t, "2026-03-01 12:00:00", ds.Cell(0, "request_date"))

	// Audit copies of raw and flattened payloads were stored too.
	_, hasRaw := storage.names["plan_sales_raw_data.json"]
	_, hasFlat := storage.names["plan_sales_flat_data.json"]
	assert.True(t, hasRaw)
	assert.True(t, hasFlat)
}

func TestProcess_DuplicateSkipped(t *testing.T) {
	storage := newFakeStorage()
	notifier := &fakeNotifier{}
	svc := newTestService(testConfig(), storage, notifier)

	first := svc.Process(context.Background(), planSalePayload("A1"))
	require.Equal(t, "success", first.Status)

	second := svc.Process(context.Background(), planSalePayload("A1"))
	assert.Equal(t, "skipped", second.Status)
	assert.Equal(t, http.StatusOK, second.HTTPStatus)
	assert.Equal(t, "Data already exists in file", second.Message)
	assert.Contains(t, notifier.last(), "[SKIPPED]")

	// Dataset unchanged by the duplicate delivery.
	assert.Equal(t, 1, storage.dataset(t, "plan_sales.parquet").Len())
}

func TestProcess_ChangedComparisonValueAppends(t *testing.T) {
	storage := newFakeStorage()
	svc := newTestService(testConfig(), storage, &fakeNotifier{})

	require.Equal(t, "success", svc.Process(context.Background(), planSalePayload("A1")).Status)
	res := svc.Process(context.Background(), planSalePayload("A2"))

	require.Equal(t, "success", res.Status)
	assert.Equal(t, 2, res.Data["rows"])

	ds := storage.dataset(t, "plan_sales.parquet")
	assert.Equal(t, "A1", ds.Cell(0, "order_id"))
	assert.Equal(t, "A2", ds.Cell(1, "order_id"))
}

func TestProcess_MissingTriggerKey(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(testConfig(), newFakeStorage(), notifier)

	res := svc.Process(context.Background(), map[string]any{
		"data": map[string]any{"order": map[string]any{"id": "A1"}},
	})

	assert.Equal(t, "error", res.Status)
	assert.Equal(t, http.StatusNotFound, res.HTTPStatus)
	assert.Contains(t, res.Message, "_context_trigger_key")
	assert.Contains(t, notifier.last(), "[ERROR] UNKNOWN")
}

func TestProcess_UnknownTrigger(t *testing.T) {
	svc := newTestService(testConfig(), newFakeStorage(), &fakeNotifier{})

	payload := map[string]any{
		"data": map[string]any{
			"_context": map[string]any{"trigger_key": "plan_cancelled"},
		},
	}
	res := svc.Process(context.Background(), payload)

	assert.Equal(t, "error", res.Status)
	assert.Equal(t, http.StatusInternalServerError, res.HTTPStatus)
	assert.Contains(t, res.Message, "unknown trigger")
}

func TestProcess_StorageFactoryFailure(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := New(testConfig(),
		func(context.Context) (Storage, error) { return nil, fmt.Errorf("token is expired") },
		notifier,
		logging.New(slog.LevelError, "text"),
	)

	res := svc.Process(context.Background(), planSalePayload("A1"))

	assert.Equal(t, "error", res.Status)
	assert.Equal(t, http.StatusInternalServerError, res.HTTPStatus)
	assert.Contains(t, res.Message, "Failed to initialize storage")
}

func TestProcess_DownloadFailureIsFatal(t *testing.T) {
	storage := newFakeStorage()
	svc := newTestService(testConfig(), storage, &fakeNotifier{})
	require.Equal(t, "success", svc.Process(context.Background(), planSalePayload("A1")).Status)

	storage.failDownload = true
	res := svc.Process(context.Background(), planSalePayload("A2"))

	assert.Equal(t, "error", res.Status)
	assert.Contains(t, res.Message, "Failed to download parquet")
}

func TestProcess_AuditFailuresAreSwallowed(t *testing.T) {
	storage := newFakeStorage()
	storage.failUploads = func(name string) bool {
		return strings.HasSuffix(name, ".json")
	}
	svc := newTestService(testConfig(), storage, &fakeNotifier{})

	res := svc.Process(context.Background(), planSalePayload("A1"))

	require.Equal(t, "success", res.Status)
	assert.Equal(t, 1, res.Data["rows"])
}

func TestProcess_KnownFileIDsUpdateInPlace(t *testing.T) {
	storage := newFakeStorage()

	// Seed an existing dataset under fixed IDs.
	seed := dataset.New()
	seed.Append(map[string]string{"order_id": "A0"})
	blob, err := seed.EncodeParquet()
	require.NoError(t, err)
	storage.files["pq-1"] = blob
	storage.files["xl-1"] = []byte("old")

	cfg := testConfig()
	cfg.Triggers["plan_purchased"] = config.TriggerConfig{
		FileName:      "plan_sales",
		ParquetFileID: "pq-1",
		ExcelFileID:   "xl-1",
		CompareField:  "order_id",
	}
	svc := newTestService(cfg, storage, &fakeNotifier{})

	res := svc.Process(context.Background(), planSalePayload("A1"))

	require.Equal(t, "success", res.Status)
	assert.Equal(t, "pq-1", res.Data["parquet"])
	assert.Equal(t, "xl-1", res.Data["excel"])
	assert.Equal(t, 2, res.Data["rows"])

	updated, err := dataset.DecodeParquet(storage.files["pq-1"])
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Len())
}

func TestProcess_UploadFailureIsFatal(t *testing.T) {
	storage := newFakeStorage()
	storage.failUploads = func(name string) bool {
		return strings.HasSuffix(name, ".parquet")
	}
	svc := newTestService(testConfig(), storage, &fakeNotifier{})

	res := svc.Process(context.Background(), planSalePayload("A1"))

	assert.Equal(t, "error", res.Status)
	assert.Contains(t, res.Message, "Failed to upload parquet")
}

func TestReject(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(testConfig(), newFakeStorage(), notifier)

	res := svc.Reject(context.Background(), http.StatusMethodNotAllowed, "Method not allowed. Use POST.")

	assert.Equal(t, "error", res.Status)
	assert.Equal(t, http.StatusMethodNotAllowed, res.HTTPStatus)
	assert.Contains(t, notifier.last(), "[ERROR] UNKNOWN")
}
