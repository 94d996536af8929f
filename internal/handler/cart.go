package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/nks-storefront/internal/domain/cart"
	"github.com/xenking/nks-storefront/internal/domain/checkout"
	"github.com/xenking/nks-storefront/internal/domain/product"
)

func (h *Handler) manager(r *http.Request) *cart.Manager {
	return h.carts.Get(r.Context(), ownerFrom(r.Context()))
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, m *cart.Manager) {
	s := h.details.Resolve(r.Context(), m.Lines())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSummary(e, s)
	})
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, r, h.manager(r))
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID string
		qty       = 1
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		case "quantity":
			qty, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	productID = strings.TrimSpace(productID)
	if err != nil || productID == "" {
		writeError(w, http.StatusBadRequest, errBadBody.Error())
		return
	}
	if h.details.Fetch(r.Context(), productID) == nil {
		writeError(w, http.StatusNotFound, product.ErrNotFound.Error())
		return
	}

	m := h.manager(r)
	m.Add(productID, qty)
	h.writeCart(w, r, m)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var qty int
	seen := false
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		seen = true
		v, err := d.Int()
		qty = v
		return err
	})
	if err != nil || !seen {
		writeError(w, http.StatusBadRequest, errBadBody.Error())
		return
	}

	m := h.manager(r)
	m.UpdateQuantity(chi.URLParam(r, "id"), qty)
	h.writeCart(w, r, m)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	m := h.manager(r)
	m.Remove(chi.URLParam(r, "id"))
	h.writeCart(w, r, m)
}

func (h *Handler) beginCheckout(w http.ResponseWriter, r *http.Request) {
	m := h.manager(r)
	s := h.details.Resolve(r.Context(), m.Lines())

	sess, err := h.initiator.Begin(s)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		zctx.From(r.Context()).Error("Begin checkout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSession(e, sess)
	})
}

// paymentResponse handles the gateway redirect. Only signed-in shoppers get
// their cart cleared and an order recorded.
func (h *Handler) paymentResponse(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(r.URL.Query().Get("ref_payco"))
	owner := ownerFrom(r.Context())

	req := checkout.Confirmation{
		Reference:      ref,
		TransactionURL: h.transactionURL(r),
		UserID:         owner.UserID,
	}
	if owner.UserID != "" {
		req.Cart = h.carts.Get(r.Context(), owner)
	}

	p, err := h.confirmer.Confirm(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, checkout.ErrTransaction.Error())
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodePayment(e, p)
	})
}

// transactionURL rebuilds the storefront page the gateway redirected to.
func (h *Handler) transactionURL(r *http.Request) string {
	path := "/payment-response"
	if q := r.URL.RawQuery; q != "" {
		path += "?" + q
	}
	return h.publicURL + path
}
