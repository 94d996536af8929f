package firebase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/nks-storefront/internal/domain/auth"
)

const maxBody = 1 << 20

// APIError is an Identity Toolkit error such as INVALID_PASSWORD or
// EMAIL_EXISTS.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity toolkit: %d %s", e.Status, e.Message)
}

type identityClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type encoder interface {
	encode(e *jx.Encoder)
}

type passwordRequest struct {
	Email    string
	Password string
}

func (r passwordRequest) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("email")
	e.Str(r.Email)
	e.FieldStart("password")
	e.Str(r.Password)
	e.FieldStart("returnSecureToken")
	e.Bool(true)
	e.ObjEnd()
}

type oobRequest struct {
	RequestType string
	Email       string
}

func (r oobRequest) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("requestType")
	e.Str(r.RequestType)
	e.FieldStart("email")
	e.Str(r.Email)
	e.ObjEnd()
}

type identityResponse struct {
	IDToken   string
	LocalID   string
	Email     string
	ExpiresIn time.Duration
	issuedAt  time.Time
}

func (r *identityResponse) session() *auth.Session {
	return &auth.Session{
		Token: r.IDToken,
		Identity: auth.Identity{
			UID:   r.LocalID,
			Email: r.Email,
		},
		ExpiresAt: r.issuedAt.Add(r.ExpiresIn),
	}
}

// call POSTs body to {baseURL}:{method}?key=apiKey.
func (c *identityClient) call(ctx context.Context, method string, body encoder) (*identityResponse, error) {
	var e jx.Encoder
	body.encode(&e)

	u := c.baseURL + ":" + method + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(e.Bytes()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	issuedAt := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, method)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp.StatusCode, raw)
	}

	res := &identityResponse{issuedAt: issuedAt}
	if err := decodeIdentityResponse(raw, res); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return res, nil
}

func decodeIdentityResponse(raw []byte, res *identityResponse) error {
	return jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "idToken":
			v, err := d.Str()
			res.IDToken = v
			return err
		case "localId":
			v, err := d.Str()
			res.LocalID = v
			return err
		case "email":
			v, err := d.Str()
			res.Email = v
			return err
		case "expiresIn":
			v, err := d.Str()
			if err != nil {
				return err
			}
			secs, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrap(err, "expiresIn")
			}
			res.ExpiresIn = time.Duration(secs) * time.Second
			return nil
		default:
			return d.Skip()
		}
	})
}

func decodeAPIError(status int, raw []byte) error {
	apiErr := &APIError{Status: status}
	_ = jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		if key != "error" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "message" {
				return d.Skip()
			}
			v, err := d.Str()
			apiErr.Message = v
			return err
		})
	})
	return apiErr
}
