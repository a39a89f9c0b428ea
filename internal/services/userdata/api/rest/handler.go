package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/louisbranch/datapulse/internal/metrics"
	"github.com/louisbranch/datapulse/internal/platform/httpx"
	"github.com/louisbranch/datapulse/internal/services/userdata/storage"
)

// Handler routes user data CRUD plus the health and metrics endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds the route mux. The caller wraps it with the serving
// middleware chain. A nil metrics registry leaves /metrics unrouted.
func NewHandler(service *Service, m *metrics.Metrics, pool metrics.PoolStats) http.Handler {
	h := &Handler{service: service}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /data", h.createUserData)
	mux.HandleFunc("GET /data", h.listUserData)
	mux.HandleFunc("GET /data/{id}", h.getUserData)
	mux.HandleFunc("PUT /data/{id}", h.updateUserData)
	mux.HandleFunc("DELETE /data/{id}", h.deleteUserData)
	mux.HandleFunc("GET /health", h.checkHealth)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler(pool))
	}
	return mux
}

type userDataRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Message *string `json:"message"`
}

type userDataPayload struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   *string   `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func payloadFromRecord(record storage.UserData) userDataPayload {
	return userDataPayload{
		ID:        record.ID,
		Name:      record.Name,
		Email:     record.Email,
		Message:   record.Message,
		CreatedAt: record.CreatedAt,
	}
}

func (h *Handler) createUserData(w http.ResponseWriter, r *http.Request) {
	input, err := decodeUserDataRequest(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	record, err := h.service.CreateUserData(httpx.RequestContext(r), input)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, payloadFromRecord(record))
}

func (h *Handler) listUserData(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	records, err := h.service.ListUserData(httpx.RequestContext(r), skip, limit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	payload := make([]userDataPayload, 0, len(records))
	for _, record := range records {
		payload = append(payload, payloadFromRecord(record))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, payload)
}

func (h *Handler) getUserData(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	record, err := h.service.GetUserData(httpx.RequestContext(r), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, payloadFromRecord(record))
}

func (h *Handler) updateUserData(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	input, err := decodeUserDataRequest(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	record, err := h.service.UpdateUserData(httpx.RequestContext(r), id, input)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, payloadFromRecord(record))
}

func (h *Handler) deleteUserData(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	record, err := h.service.DeleteUserData(httpx.RequestContext(r), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, payloadFromRecord(record))
}

func (h *Handler) checkHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CheckHealth(httpx.RequestContext(r)); err != nil {
		_ = httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"status":   "error",
			"database": "unreachable",
			"detail":   err.Error(),
		})
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "reachable",
	})
}

func decodeUserDataRequest(r *http.Request) (UserDataInput, error) {
	var body userDataRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return UserDataInput{}, httpx.E(httpx.KindInvalidInput, "request body must be valid JSON")
	}
	return UserDataInput{Name: body.Name, Email: body.Email, Message: body.Message}, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, httpx.E(httpx.KindInvalidInput, "id must be an integer")
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, httpx.E(httpx.KindInvalidInput, name+" must be an integer")
	}
	return value, nil
}
