package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/megavault/internal/common"
	"github.com/dmitrijs2005/megavault/internal/server/auth"
)

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	token, id, err := h.auth.Login(r.Context(), req.Email, []byte(req.Password))
	if err != nil {
		h.logger.Warn(r.Context(), "login rejected", "email", req.Email)
		h.fail(r.Context(), w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.TokenValidity().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info(r.Context(), "logged in", "email", id.Email)
	writeJSON(w, http.StatusOK, loginResponse{Message: "Logged in", Token: token})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, messageBody{Message: "Logged out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	writeJSON(w, http.StatusOK, id)
}

type storageConfigResponse struct {
	Mode         string `json:"mode"`
	UserFolderID string `json:"userFolderId"`
}

func (h *Handler) storageConfig(w http.ResponseWriter, r *http.Request) {
	sc := h.scopeOf(r)
	writeJSON(w, http.StatusOK, storageConfigResponse{Mode: string(sc.Mode), UserFolderID: sc.FolderID})
}
