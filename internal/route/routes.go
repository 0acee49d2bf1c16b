package route

import (
	"net/http"
	"os"
	"path/filepath"

	"docscanner/internal/config"
	"docscanner/internal/handler"
	"docscanner/internal/logger"
	"docscanner/internal/middleware"
	"docscanner/internal/repository"
	"docscanner/internal/service"
)

// dynamicHTMLHandler serves /path as <staticDir>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers the upload endpoint, the history API, log viewers,
// auth endpoints and static pages, and wraps the mux with the authentication middleware.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger,
	scanRepo repository.ScanRepository, regionRepo repository.RegionRepository) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Scanning
	mux.HandleFunc("/upload", handler.UploadHandler(manager, cfg, logger))
	mux.HandleFunc("/api/ocr/debug", handler.OCRDebugHandler(manager, cfg, logger))

	// History
	mux.HandleFunc("/api/scans", handler.GetScansHandler(logger, scanRepo, regionRepo))
	mux.HandleFunc("/api/scans/stats", handler.ScanStatsHandler(logger, scanRepo))
	mux.HandleFunc("/api/scans/delete", handler.DeleteScanHandler(logger, scanRepo))
	mux.HandleFunc("/api/scans/clear", handler.ClearScansHandler(logger, scanRepo))
	mux.HandleFunc("/api/events", handler.EventsWebsocketHandler(manager.GetWebsocketService(), logger))

	// Log endpoints
	for _, name := range []string{"info", "warning", "error"} {
		file := name + ".log"
		mux.HandleFunc("/logs/"+name, handler.ShowLogsHandler(cfg, file))
		mux.HandleFunc("/logs/"+name+"/clear", handler.ClearLogsHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /history -> <static>/history.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDirectory))

	// Apply middleware
	return middleware.AuthMiddleware(mux)
}
