package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"blobarena/world"
)

// API 房间列表/创建、管理员删除房间与运行指标
type API struct {
	store      *world.Store
	router     *Router
	metrics    *Metrics
	log        *zap.SugaredLogger
	identity   IdentityResolver
	adminToken string
	listLimit  int
}

type APIConfig struct {
	AdminToken string
	ListLimit  int
	Identity   IdentityResolver
}

func NewAPI(store *world.Store, router *Router, m *Metrics, log *zap.SugaredLogger, cfg APIConfig) *API {
	if cfg.Identity == nil {
		cfg.Identity = QueryIdentity
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 20
	}
	return &API{
		store:      store,
		router:     router,
		metrics:    m,
		log:        log,
		identity:   cfg.Identity,
		adminToken: cfg.AdminToken,
		listLimit:  cfg.ListLimit,
	}
}

// Register 挂载全部路由
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ws", a.router.HandleWS)
	mux.HandleFunc("/rooms", a.HandleRooms)
	mux.HandleFunc("/admin/rooms/delete", a.HandleAdminDeleteRoom)
	mux.HandleFunc("/metrics", a.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

// HandleRooms
// GET  /rooms            最近的房间（元数据 + 实时人数）
// POST /rooms?vs_bot=1   为当前用户创建房间
func (a *API) HandleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rooms, err := a.store.ListRooms(r.Context(), a.listLimit)
		if err != nil {
			a.log.Errorf("list rooms: %v", err)
			http.Error(w, "list rooms failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
	case http.MethodPost:
		user := a.identity.Resolve(r)
		if user == "" {
			http.Error(w, "login required", http.StatusUnauthorized)
			return
		}
		code, err := a.store.CreateRoom(r.Context(), user, truthy(r.FormValue("vs_bot")))
		if err != nil {
			// 房间码空间耗尽说明生成器有缺陷
			a.log.Errorf("create room: %v", err)
			http.Error(w, "create room failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "code": code})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleAdminDeleteRoom
// POST /admin/rooms/delete?code=ABC123  需要 X-Admin-Token
func (a *API) HandleAdminDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !a.authorized(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	code := world.NormalizeCode(r.FormValue("code"))
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	live := a.router.CloseRoom(r.Context(), code)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "code": code, "live": live})
}

// HandleMetrics 输出运行指标
// GET /metrics
func (a *API) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"rooms":   len(a.store.RoomCodes()),
		"metrics": a.metrics.Snapshot(),
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *API) authorized(r *http.Request) bool {
	if a.adminToken == "" {
		return false
	}
	got := r.Header.Get("X-Admin-Token")
	return subtle.ConstantTimeCompare([]byte(got), []byte(a.adminToken)) == 1
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
