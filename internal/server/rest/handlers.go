package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/healthrecords/internal/api"
	"github.com/dmitrijs2005/healthrecords/internal/common"
	"github.com/dmitrijs2005/healthrecords/internal/server/services"
)

const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		fail(w, http.StatusBadRequest, msgInvalidInput, "request body must be a JSON object")
		return false
	}
	return true
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := validateLogin(req); len(errs) > 0 {
		fail(w, http.StatusBadRequest, msgInvalidInput, errs...)
		return
	}

	res, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			fail(w, http.StatusBadRequest, msgInvalidCredentials)
			return
		}
		h.internalError(w, r, err)
		return
	}

	success(w, msgLoginSuccess, toLoginResponse(res))
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshTokenRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := validateRefresh(req); len(errs) > 0 {
		fail(w, http.StatusBadRequest, msgInvalidInput, errs...)
		return
	}

	res, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrInvalidRefreshToken) {
			fail(w, http.StatusBadRequest, msgInvalidRefresh)
			return
		}
		h.internalError(w, r, err)
		return
	}

	success(w, msgRefreshSuccess, toLoginResponse(res))
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshTokenRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := validateRefresh(req); len(errs) > 0 {
		fail(w, http.StatusBadRequest, msgInvalidInput, errs...)
		return
	}

	if !h.sessions.Logout(r.Context(), req.RefreshToken) {
		fail(w, http.StatusBadRequest, msgLogoutFailed)
		return
	}

	success(w, msgLogoutSuccess, &api.Empty{})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	claims, found := claimsFromContext(r.Context())
	if !found {
		fail(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	id, err := claims.UserID()
	if err != nil {
		fail(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	info, err := h.profiles.Profile(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			fail(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		h.internalError(w, r, err)
		return
	}

	success(w, msgProfile, &api.UserInfo{ID: info.ID, Username: info.Username, Email: info.Email, Role: info.Role})
}

func (h *handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error(r.Context(), "request failed", "event", eventUnhandledException,
		"path", r.URL.Path, "method", r.Method, "error", err)

	detail := msgUnexpected
	if h.development {
		detail = err.Error()
	}
	fail(w, http.StatusInternalServerError, msgInternal, detail)
}

func toLoginResponse(res *services.LoginResult) *api.LoginResponse {
	return &api.LoginResponse{
		AccessToken:           res.AccessToken,
		RefreshToken:          res.RefreshToken,
		ExpiresAt:             res.ExpiresAt,
		RefreshTokenExpiresAt: res.RefreshTokenExpiresAt,
		User: api.UserInfo{
			ID:       res.User.ID,
			Username: res.User.Username,
			Email:    res.User.Email,
			Role:     res.User.Role,
		},
	}
}
