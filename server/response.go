package server

import (
	"encoding/json"
	"net/http"

	"CampusTrade/logger"
)

// writeJSON 输出统一的 {success, message, data} 响应
func writeJSON(w http.ResponseWriter, status int, payload map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("编码响应失败", logger.ErrorField(err))
	}
}

// writeFail 输出失败响应
func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
