package handler

import (
	"net/http"

	"github.com/academyportal/internal/config"
)

// ConfigHandler отдаёт публичные параметры для клиента.
type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// GetClientConfig — интервал опроса переписки (без авторизации). GET /api/config/client
func (h *ConfigHandler) GetClientConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"poll_interval_seconds": int(h.cfg.Client.PollInterval.Seconds()),
		"cache_ttl_minutes":     h.cfg.Cache.TTLMinutes,
	})
}

// Health — проверка живости.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
