// routes/api_routes.go
package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/binisha8/sales_inventory_etl/ETL/extractors"
	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
)

// API - HTTP-интерфейс статуса загрузки хранилища
type API struct {
	audit     models.AuditRepository
	warehouse extractors.Queryer
	jobName   string
	logger    *utils.ETLLogger
}

// NewAPI создает новый экземпляр API
func NewAPI(audit models.AuditRepository, warehouse extractors.Queryer, jobName string, logger *utils.ETLLogger) *API {
	return &API{
		audit:     audit,
		warehouse: warehouse,
		jobName:   jobName,
		logger:    logger,
	}
}

// SetupRoutes настраивает все маршруты API
func SetupRoutes(router *mux.Router, api *API) {
	router.Use(corsMiddleware)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Журнал запусков
	router.HandleFunc("/api/etl/status", api.StatusHandler).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/etl/runs", api.RunsHandler).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/etl/boundary", api.BoundaryHandler).Methods("GET", "OPTIONS")

	// Отчеты по товарам
	router.HandleFunc("/api/products/{id}/quantity-sold", api.QuantitySoldHandler).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/products/{id}/inventory", api.InventoryHandler).Methods("GET", "OPTIONS")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
