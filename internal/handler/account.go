package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/nks-storefront/internal/domain/auth"
	"github.com/xenking/nks-storefront/internal/domain/profile"
)

type credentials struct {
	Email    string
	Password string
	Name     string
}

func decodeCredentials(r *http.Request) (credentials, error) {
	var c credentials
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "email":
			c.Email, err = d.Str()
		case "password":
			c.Password, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadBody.Error())
		return
	}
	sess, err := h.auth.SignIn(r.Context(), c.Email, c.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, auth.ErrAuthFailed.Error())
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeAuthSession(e, sess)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadBody.Error())
		return
	}
	sess, err := h.auth.Register(r.Context(), c.Email, c.Password, c.Name)
	if err != nil {
		writeError(w, http.StatusUnauthorized, auth.ErrAuthFailed.Error())
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeAuthSession(e, sess)
	})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadBody.Error())
		return
	}
	if err := h.auth.ResetPassword(r.Context(), c.Email); err != nil {
		writeError(w, http.StatusUnauthorized, auth.ErrAuthFailed.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var current, next string
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "currentPassword":
			current, err = d.Str()
		case "newPassword":
			next, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadBody.Error())
		return
	}

	id, _ := auth.FromContext(r.Context())
	if err := h.auth.ChangePassword(r.Context(), id, current, next); err != nil {
		writeError(w, http.StatusUnauthorized, auth.ErrAuthFailed.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// logout ends the provider session and drops the in-memory cart. The stored
// cart document stays for the next sign-in.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if err := h.auth.SignOut(r.Context(), id); err != nil {
		writeError(w, http.StatusBadGateway, auth.ErrAuthFailed.Error())
		return
	}
	h.carts.Forget(ownerFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	p := h.profiles.Get(r.Context(), id.UID)
	if p == nil {
		writeError(w, http.StatusNotFound, profile.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProfile(e, p)
	})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var u profile.Update
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			u.Name, err = d.Str()
		case "phone":
			u.Phone, err = d.Str()
		case "address":
			u.Address, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadBody.Error())
		return
	}

	id, _ := auth.FromContext(r.Context())
	p, err := h.profiles.Update(r.Context(), id.UID, u)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			writeError(w, http.StatusNotFound, profile.ErrNotFound.Error())
			return
		}
		zctx.From(r.Context()).Error("Update profile failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProfile(e, p)
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	orders, err := h.orders.History(r.Context(), id.UID)
	if err != nil {
		zctx.From(r.Context()).Error("List orders failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrders(e, orders)
	})
}
