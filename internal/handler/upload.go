package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"docscanner/internal/config"
	"docscanner/internal/dto"
	"docscanner/internal/logger"
	"docscanner/internal/service"
)

// readUpload validates and reads the multipart "file" field.
func readUpload(w http.ResponseWriter, r *http.Request, cfg *config.Config) (string, []byte, int, error) {
	if r.ContentLength > cfg.MaxUploadSize {
		return "", nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", cfg.MaxUploadSize)
	}
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", cfg.MaxUploadSize)
		}
		return "", nil, http.StatusBadRequest, errors.New("no file part in request")
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == "/" {
		return "", nil, http.StatusBadRequest, errors.New("no file selected")
	}
	if !cfg.IsAllowedFormat(name) {
		return "", nil, http.StatusBadRequest, fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", cfg.MaxUploadSize)
		}
		return "", nil, http.StatusBadRequest, fmt.Errorf("failed to read upload: %v", err)
	}
	if len(data) == 0 {
		return "", nil, http.StatusBadRequest, errors.New("empty file")
	}
	return name, data, http.StatusOK, nil
}

// UploadHandler handles POST /upload: scans the image and returns the
// classification with the processed image as a data URL.
func UploadHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		name, data, status, err := readUpload(w, r, cfg)
		if err != nil {
			logger.Warning("Rejected upload: %v", err)
			writeError(w, status, err.Error())
			return
		}

		result, err := manager.Scan(r.Context(), data, name)
		if err != nil {
			logger.Error("Scan of %s failed: %v", name, err)
			writeError(w, statusFor(err), err.Error())
			return
		}

		out := result.Output
		regions := service.RegionResults(out)
		resp := dto.ScanResponse{
			ScanID:            result.ScanID,
			Classification:    string(out.Classification.Label),
			Confidence:        out.Classification.Score,
			ProcessedImageURL: dataURL(out.Format, out.Image),
			OutputFormat:      out.Format,
			RegionsRedacted:   len(regions),
			Regions:           regions,
		}
		if err := writeJSON(w, http.StatusOK, resp); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// OCRDebugHandler handles POST /api/ocr/debug and returns a PNG with every
// confident detection outlined.
func OCRDebugHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		_, data, status, err := readUpload(w, r, cfg)
		if err != nil {
			writeError(w, status, err.Error())
			return
		}

		overlay, drawn, err := manager.Debug(r.Context(), data)
		if err != nil {
			logger.Error("OCR debug failed: %v", err)
			writeError(w, statusFor(err), err.Error())
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Detections", fmt.Sprint(drawn))
		w.Write(overlay)
	}
}

// dataURL encodes image bytes as data:image/<format>;base64,...
func dataURL(format string, data []byte) string {
	return "data:image/" + strings.ToLower(format) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
