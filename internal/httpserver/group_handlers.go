package httpserver

import (
	"encoding/json"
	"net/http"

	"socialchat/internal/domain"
	"socialchat/internal/service"
)

type createGroupRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	MemberIDs   []int64 `json:"memberIds"`
}

func handleCreateGroup(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req createGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		group, err := groupSvc.Create(r.Context(), currentUser.ID, service.GroupCreateInput{
			Name:        req.Name,
			Description: req.Description,
			MemberIDs:   req.MemberIDs,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, group)
	}
}

func handleMyGroups(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		groups, err := groupSvc.MyGroups(r.Context(), currentUser.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, groups)
	}
}

func handlePendingInvites(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		invites, err := groupSvc.PendingInvites(r.Context(), currentUser.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, invites)
	}
}

type respondInviteRequest struct {
	GroupID int64  `json:"groupId"`
	Status  string `json:"status"`
}

func handleRespondInvite(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req respondInviteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		m, err := groupSvc.RespondInvite(r.Context(), currentUser.ID, req.GroupID, req.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		if m == nil {
			writeJSON(w, http.StatusOK, map[string]string{"message": "invitation rejected"})
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

type setPushTokenRequest struct {
	PushToken *string `json:"pushToken"`
}

func handleSetPushToken(users domain.UserRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req setPushTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := users.SetPushToken(r.Context(), currentUser.ID, req.PushToken); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
