package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"socialchat/internal/domain"
	"socialchat/internal/service"
)

type sendMessageRequest struct {
	ReceiverID *int64 `json:"receiverId"`
	GroupID    *int64 `json:"groupId"`
	Content    string `json:"content"`
}

// handleSendMessage is the REST fallback for sending; it runs the same
// lifecycle (authorization, presence sample, fan-out, push fallback) as the
// socket path.
func handleSendMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		msg, err := msgSvc.Send(r.Context(), currentUser.ID, req.ReceiverID, req.GroupID, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

type markBatchReadRequest struct {
	MessageIDs []int64 `json:"messageIds"`
}

func handleMarkBatchRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markBatchReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := msgSvc.MarkReadBatch(r.Context(), req.MessageIDs); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func handleDirectHistory(historySvc *service.HistoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		otherID, err := strconv.ParseInt(chi.URLParam(r, "otherUserID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
			return
		}
		cursor, limit, err := pageParams(r)
		if err != nil {
			writeError(w, err)
			return
		}

		page, err := historySvc.DirectPage(r.Context(), currentUser.ID, otherID, cursor, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func handleGroupHistory(historySvc *service.HistoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid group id"})
			return
		}
		cursor, limit, err := pageParams(r)
		if err != nil {
			writeError(w, err)
			return
		}

		page, err := historySvc.GroupPage(r.Context(), currentUser.ID, groupID, cursor, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// pageParams parses the cursor and limit query parameters. Unparseable
// values are an input error, not a silent restart from the newest page.
func pageParams(r *http.Request) (cursor int64, limit int, err error) {
	if v := r.URL.Query().Get("cursor"); v != "" {
		cursor, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid cursor %q: %w", v, domain.ErrInvalidInput)
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid limit %q: %w", v, domain.ErrInvalidInput)
		}
	}
	return cursor, limit, nil
}
