package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/nks-storefront/internal/domain/auth"
	"github.com/xenking/nks-storefront/internal/domain/cart"
	"github.com/xenking/nks-storefront/internal/domain/catalog"
	"github.com/xenking/nks-storefront/internal/domain/checkout"
	"github.com/xenking/nks-storefront/internal/domain/order"
	"github.com/xenking/nks-storefront/internal/domain/product"
	"github.com/xenking/nks-storefront/internal/domain/profile"
)

const maxBody = 64 << 10

var errBadBody = errors.New("invalid request body")

// decodeBody reads a JSON object, calling fn for every field.
func decodeBody(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return errors.Wrap(errBadBody, err.Error())
	}
	d := jx.DecodeBytes(b)
	if d.Next() != jx.Object {
		return errBadBody
	}
	if err := d.Obj(fn); err != nil {
		return errors.Wrap(errBadBody, err.Error())
	}
	return nil
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func encodeStrings(e *jx.Encoder, values []string) {
	e.ArrStart()
	for _, v := range values {
		e.Str(v)
	}
	e.ArrEnd()
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("title")
	e.Str(p.Title)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	encodeMoney(e, p.Price)
	e.FieldStart("netPrice")
	encodeMoney(e, p.NetPrice)
	e.FieldStart("discount")
	encodeMoney(e, p.Discount)
	e.FieldStart("hasDiscount")
	e.Bool(p.HasDiscount())
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("thumbnail")
	e.Str(p.Thumbnail)
	e.FieldStart("reference")
	e.Str(p.Reference)
	e.FieldStart("additionalImages")
	encodeStrings(e, p.AdditionalImages)
	e.FieldStart("compatibleVehicles")
	e.ArrStart()
	for _, v := range p.CompatibleVehicles {
		e.ObjStart()
		e.FieldStart("brand")
		e.Str(v.Brand)
		e.FieldStart("model")
		e.Str(v.Model)
		e.FieldStart("year")
		e.Str(v.Year)
		e.FieldStart("engineSize")
		e.Str(v.EngineSize)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeCatalog(e *jx.Encoder, res catalog.Result) {
	e.ObjStart()
	e.FieldStart("products")
	e.ArrStart()
	for _, p := range res.Visible {
		encodeProduct(e, p)
	}
	e.ArrEnd()

	e.FieldStart("facets")
	e.ObjStart()
	e.FieldStart("brands")
	encodeStrings(e, res.Facets.Brands)
	e.FieldStart("models")
	encodeStrings(e, res.Facets.Models)
	e.FieldStart("engineSizes")
	encodeStrings(e, res.Facets.EngineSizes)
	e.FieldStart("years")
	encodeStrings(e, res.Facets.Years)
	e.FieldStart("references")
	encodeStrings(e, res.Facets.References)
	e.ObjEnd()

	e.FieldStart("priceRange")
	e.ObjStart()
	e.FieldStart("min")
	encodeMoney(e, res.Bounds.Min)
	e.FieldStart("max")
	encodeMoney(e, res.Bounds.Max)
	e.ObjEnd()
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s cart.Summary) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range s.Items {
		e.ObjStart()
		e.FieldStart("product")
		encodeProduct(e, it.Product)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("subtotal")
		encodeMoney(e, it.Subtotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("totalItems")
	e.Int(s.TotalItems)
	e.FieldStart("totalPrice")
	encodeMoney(e, s.Total)
	e.ObjEnd()
}

// encodeSession uses the field names the payment widget expects.
func encodeSession(e *jx.Encoder, s *checkout.Session) {
	e.ObjStart()
	e.FieldStart("key")
	e.Str(s.Key)
	e.FieldStart("test")
	e.Bool(s.Test)
	e.FieldStart("data")
	e.ObjStart()
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("description")
	e.Str(s.Description)
	e.FieldStart("invoice")
	e.Str(s.Invoice)
	e.FieldStart("currency")
	e.Str(s.Currency)
	e.FieldStart("amount")
	encodeMoney(e, s.Amount)
	e.FieldStart("tax_base")
	e.Str(s.TaxBase)
	e.FieldStart("tax")
	e.Str(s.Tax)
	e.FieldStart("country")
	e.Str(s.Country)
	e.FieldStart("external")
	e.Bool(s.External)
	e.FieldStart("response")
	e.Str(s.Response)
	e.FieldStart("confirmation")
	e.Str(s.Confirmation)
	e.FieldStart("rejected")
	e.Str(s.Rejected)
	e.FieldStart("cancel_url")
	e.Str(s.CancelURL)
	e.FieldStart("methodsDisable")
	encodeStrings(e, s.MethodsDisable)
	e.ObjEnd()
	e.ObjEnd()
}

func encodePayment(e *jx.Encoder, p *checkout.Payment) {
	e.ObjStart()
	e.FieldStart("reference")
	e.Str(p.Reference)
	e.FieldStart("state")
	e.Str(p.State)
	e.FieldStart("accepted")
	e.Bool(p.Accepted())
	e.FieldStart("invoiceId")
	e.Str(p.InvoiceID)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("amount")
	encodeMoney(e, p.Amount)
	e.FieldStart("currency")
	e.Str(p.Currency)
	e.FieldStart("paymentType")
	e.Str(p.PaymentType)
	e.FieldStart("transactionDate")
	e.Str(p.TransactionDate)
	e.ObjEnd()
}

func encodeAuthSession(e *jx.Encoder, s *auth.Session) {
	e.ObjStart()
	e.FieldStart("token")
	e.Str(s.Token)
	e.FieldStart("uid")
	e.Str(s.Identity.UID)
	e.FieldStart("email")
	e.Str(s.Identity.Email)
	if !s.ExpiresAt.IsZero() {
		e.FieldStart("expiresAt")
		e.Str(s.ExpiresAt.UTC().Format(time.RFC3339))
	}
	e.ObjEnd()
}

func encodeProfile(e *jx.Encoder, p *profile.Profile) {
	e.ObjStart()
	e.FieldStart("email")
	e.Str(p.Email)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("phone")
	e.Str(p.Phone)
	e.FieldStart("address")
	e.Str(p.Address)
	e.FieldStart("incomplete")
	e.Bool(p.Incomplete())
	e.ObjEnd()
}

func encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.ArrStart()
	for _, o := range orders {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(o.ID)
		e.FieldStart("transactionId")
		e.Str(o.TransactionID)
		e.FieldStart("transactionDate")
		e.Str(o.TransactionDate)
		e.FieldStart("paymentStatus")
		e.Str(o.PaymentStatus)
		e.FieldStart("totalAmount")
		encodeMoney(e, o.TotalAmount)
		e.FieldStart("transactionUrl")
		e.Str(o.TransactionURL)
		e.FieldStart("createdAt")
		e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
		e.FieldStart("products")
		e.ArrStart()
		for _, it := range o.Products {
			e.ObjStart()
			e.FieldStart("title")
			e.Str(it.Title)
			e.FieldStart("quantity")
			e.Int(it.Quantity)
			e.FieldStart("price")
			encodeMoney(e, it.Price)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	}
	e.ArrEnd()
}
