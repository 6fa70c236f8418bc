// routes/status_handlers.go
package routes

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/binisha8/sales_inventory_etl/ETL/extractors"
	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

// BoundaryResponse структура ответа API для границы инкрементальной загрузки
type BoundaryResponse struct {
	JobName  string     `json:"job_name"`
	Boundary *time.Time `json:"boundary"`
}

// RunsResponse структура ответа API для списка запусков
type RunsResponse struct {
	Runs []models.AuditRecord `json:"runs"`
}

// QuantitySoldResponse структура ответа API для количества проданных единиц
type QuantitySoldResponse struct {
	ProductID    string `json:"product_id"`
	QuantitySold int64  `json:"quantity_sold"`
}

// InventoryResponse структура ответа API для ряда остатков товара
type InventoryResponse struct {
	ProductID string                     `json:"product_id"`
	Snapshots []models.InventorySnapshot `json:"snapshots"`
}

// StatusHandler возвращает сводку состояния задания
func (a *API) StatusHandler(w http.ResponseWriter, r *http.Request) {
	monitor, err := a.audit.StateMonitor(r.Context(), a.jobName)
	if err != nil {
		a.logger.Error("Ошибка при получении состояния задания: %v", err)
		http.Error(w, "Ошибка при получении состояния задания", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, monitor)
}

// RunsHandler возвращает запуски за последние days дней (по умолчанию 7)
func (a *API) RunsHandler(w http.ResponseWriter, r *http.Request) {
	days := 7
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "Неверный формат параметра days", http.StatusBadRequest)
			return
		}
		days = n
	}

	runs, err := a.audit.RecentRuns(r.Context(), a.jobName, days)
	if err != nil {
		a.logger.Error("Ошибка при получении списка запусков: %v", err)
		http.Error(w, "Ошибка при получении списка запусков", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.AuditRecord{}
	}
	a.writeJSON(w, RunsResponse{Runs: runs})
}

// BoundaryHandler возвращает границу последнего успешного запуска
func (a *API) BoundaryHandler(w http.ResponseWriter, r *http.Request) {
	boundary, err := a.audit.LastSuccessfulBoundary(r.Context(), a.jobName)
	if err != nil {
		a.logger.Error("Ошибка при получении границы запуска: %v", err)
		http.Error(w, "Ошибка при получении границы запуска", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, BoundaryResponse{JobName: a.jobName, Boundary: boundary})
}

// QuantitySoldHandler возвращает суммарное количество проданных единиц товара
func (a *API) QuantitySoldHandler(w http.ResponseWriter, r *http.Request) {
	productID, ok := productParam(w, r)
	if !ok {
		return
	}

	total, err := extractors.TotalQuantitySold(r.Context(), a.warehouse, productID)
	if err != nil {
		a.logger.Error("Ошибка при подсчете продаж товара %s: %v", productID, err)
		http.Error(w, "Ошибка при подсчете продаж", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, QuantitySoldResponse{ProductID: productID, QuantitySold: total})
}

// InventoryHandler возвращает ряд остатков товара
func (a *API) InventoryHandler(w http.ResponseWriter, r *http.Request) {
	productID, ok := productParam(w, r)
	if !ok {
		return
	}

	snapshots, err := extractors.SnapshotsForProduct(r.Context(), a.warehouse, productID)
	if err != nil {
		a.logger.Error("Ошибка при получении остатков товара %s: %v", productID, err)
		http.Error(w, "Ошибка при получении остатков", http.StatusInternalServerError)
		return
	}
	if snapshots == nil {
		snapshots = []models.InventorySnapshot{}
	}
	a.writeJSON(w, InventoryResponse{ProductID: productID, Snapshots: snapshots})
}

func productParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	productID := strings.TrimSpace(mux.Vars(r)["id"])
	if productID == "" {
		http.Error(w, "Отсутствует идентификатор товара", http.StatusBadRequest)
		return "", false
	}
	return productID, true
}

func (a *API) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("Ошибка при кодировании ответа: %v", err)
	}
}
