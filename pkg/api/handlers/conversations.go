package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/store"
	"chatsync/pkg/utils"
)

// RegisterConversations registers conversation CRUD endpoints.
func RegisterConversations(r *mux.Router, d Deps) {
	h := &conversationHandlers{d: d}
	r.HandleFunc("/chats", h.create).Methods(http.MethodPost)
	r.HandleFunc("/chats", h.list).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}", h.remove).Methods(http.MethodDelete)
}

type conversationHandlers struct {
	d Deps
}

func (h *conversationHandlers) create(w http.ResponseWriter, r *http.Request) {
	var c models.Conversation
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if c.ID == "" {
		c.ID = utils.GenChatID()
	}
	now := time.Now().UTC().UnixNano()
	if c.CreatedTS == 0 {
		c.CreatedTS = now
	}
	c.UpdatedTS = now
	if err := h.d.Store.SaveConversation(c); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("conversation_created", "chat", c.ID, "listing", c.ListingID)
	_ = utils.JSONWrite(w, http.StatusOK, c)
}

func (h *conversationHandlers) list(w http.ResponseWriter, r *http.Request) {
	convos, err := h.d.Store.ListConversations()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"conversations": convos})
}

func (h *conversationHandlers) get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := h.d.Store.GetConversation(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "conversation not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, c)
}

func (h *conversationHandlers) remove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.d.Store.DeleteChat(id); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.d.Cache.ClearChat(id)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "deleted"})
}
