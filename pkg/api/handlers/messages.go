package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/store"
	"chatsync/pkg/utils"
	"chatsync/pkg/validation"
)

// RegisterMessages registers message endpoints.
func RegisterMessages(r *mux.Router, d Deps) {
	h := &messageHandlers{d: d}
	r.HandleFunc("/chats/{id}/messages", h.create).Methods(http.MethodPost)
	r.HandleFunc("/chats/{id}/messages", h.list).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}/messages/{msgID}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}/read", h.markRead).Methods(http.MethodPost)
	r.HandleFunc("/chats/{id}/page-index", h.pageIndex).Methods(http.MethodGet)
}

type messageHandlers struct {
	d Deps
}

func (h *messageHandlers) create(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	var m models.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	m.ChatID = chatID
	if m.ID == "" {
		m.ID = utils.GenID()
	}
	if err := validation.ValidateMessage(m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.d.Store.SaveMessage(m); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("message_created", "chat", chatID, "id", m.ID)
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

// listResponse is the paginated message listing payload.
type listResponse struct {
	Messages    []models.Message `json:"messages"`
	HasMore     bool             `json:"has_more"`
	StartCursor string           `json:"start_cursor,omitempty"`
	EndCursor   string           `json:"end_cursor,omitempty"`
	Cached      bool             `json:"cached"`
}

// list serves the latest window cache-aside, or a cursor query against the
// store when ?before=<msgID> is given.
func (h *messageHandlers) list(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	limit := h.d.PageSize
	if limStr := r.URL.Query().Get("limit"); limStr != "" {
		if n, err := strconv.Atoi(limStr); err == nil && n > 0 {
			limit = n
		}
	}
	before := r.URL.Query().Get("before")
	if before != "" {
		msgs, err := h.d.Store.MessagesBefore(chatID, before, limit)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				utils.JSONError(w, http.StatusNotFound, "cursor not found")
				return
			}
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp := listResponse{Messages: msgs, HasMore: len(msgs) >= limit}
		if len(msgs) > 0 {
			resp.StartCursor = msgs[0].ID
			resp.EndCursor = msgs[len(msgs)-1].ID
		}
		_ = utils.JSONWrite(w, http.StatusOK, resp)
		return
	}

	// latest window: cache first, store on miss
	if p, ok := h.d.Cache.CachedMessagePage(chatID, 0); ok {
		_ = utils.JSONWrite(w, http.StatusOK, listResponse{
			Messages:    p.Messages,
			HasMore:     p.HasMore,
			StartCursor: p.StartCursor,
			EndCursor:   p.EndCursor,
			Cached:      true,
		})
		return
	}
	msgs, err := h.d.Store.LatestWindow(chatID, limit)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	hasMore := len(msgs) >= limit
	h.d.Cache.CacheMessagePage(chatID, 0, msgs, hasMore)
	resp := listResponse{Messages: msgs, HasMore: hasMore}
	if len(msgs) > 0 {
		resp.StartCursor = msgs[0].ID
		resp.EndCursor = msgs[len(msgs)-1].ID
	}
	_ = utils.JSONWrite(w, http.StatusOK, resp)
}

func (h *messageHandlers) get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chatID, msgID := vars["id"], vars["msgID"]
	if m, ok := h.d.Cache.CachedMessage(chatID, msgID); ok {
		_ = utils.JSONWrite(w, http.StatusOK, m)
		return
	}
	m, err := h.d.Store.GetMessage(chatID, msgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "message not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.d.Cache.CacheMessage(m)
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

func (h *messageHandlers) markRead(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(body.IDs) == 0 {
		utils.JSONError(w, http.StatusBadRequest, "ids is required")
		return
	}
	if err := h.d.Store.MarkRead(chatID, body.IDs); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.d.Cache.UpdateReadStatus(chatID, body.IDs)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"updated": body.IDs})
}

// pageIndex returns the full cursor map, or locates the page holding
// ?message=<id>.
func (h *messageHandlers) pageIndex(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	if msgID := r.URL.Query().Get("message"); msgID != "" {
		page, ok := h.d.Cache.FindMessagePage(chatID, msgID)
		if !ok {
			utils.JSONError(w, http.StatusNotFound, "message not in any cached page")
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, map[string]int{"page": page})
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, h.d.Cache.PageIndex(chatID))
}
