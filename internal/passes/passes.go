package passes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/AbrahamRP97/neighnet-go/internal/api"
	"github.com/AbrahamRP97/neighnet-go/internal/logging"
	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

// TTL is the validity window for every pass, signed or unsigned.
const TTL = 24 * time.Hour

// SignedTyp tags server-issued envelopes.
const SignedTyp = "NNP/1"

var (
	// ErrMissingVisitor indicates issuance was attempted without a visitor
	// selection.
	ErrMissingVisitor = errors.New("passes: no visitor selected")
	// ErrIncompleteProfile indicates the issuing resident's name or house
	// number is missing.
	ErrIncompleteProfile = errors.New("passes: resident name and house number are required")
)

// Meta is the resident context embedded in every pass.
type Meta struct {
	NombreResidente string `json:"nombreResidente"`
	NumeroCasa      string `json:"numeroCasa"`
}

// Pass is a time-bounded visitor authorization. The two variants are kept
// distinct so callers can surface the trust level instead of hiding it.
type Pass interface {
	// Payload renders the literal JSON string encoded into the QR image.
	Payload() (string, error)
	// Signed reports whether the pass carries a server-issued envelope.
	Signed() bool
}

// SignedPass wraps a server-issued envelope verbatim. The envelope is never
// decoded or validated client-side; signing and verification belong to the
// backend.
type SignedPass struct {
	V        int             `json:"v"`
	Typ      string          `json:"typ"`
	Envelope json.RawMessage `json:"envelope"`
}

// Payload implements Pass.
func (p SignedPass) Payload() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode signed pass: %w", err)
	}
	return string(raw), nil
}

// Signed implements Pass.
func (SignedPass) Signed() bool { return true }

// UnsignedPass is the locally constructed fallback envelope.
type UnsignedPass struct {
	V           int       `json:"v"`
	IDQR        string    `json:"id_qr"`
	VisitanteID string    `json:"visitante_id"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Meta        Meta      `json:"meta"`
}

// Payload implements Pass.
func (p UnsignedPass) Payload() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode unsigned pass: %w", err)
	}
	return string(raw), nil
}

// Signed implements Pass.
func (UnsignedPass) Signed() bool { return false }

// Issuer obtains visitor passes, preferring the backend signing service and
// falling back to local unsigned construction whenever that service cannot
// deliver an envelope. The fallback keeps issuance usable while the signing
// service is down; callers decide whether to surface the reduced trust.
type Issuer struct {
	client *api.Client
	eps    api.Endpoints

	NowFunc  func() time.Time
	RandFunc func(n int) int
}

// NewIssuer constructs an Issuer against the passes endpoint.
func NewIssuer(client *api.Client, eps api.Endpoints) *Issuer {
	return &Issuer{client: client, eps: eps}
}

type issueRequest struct {
	VisitanteID string `json:"visitante_id"`
	TTLHours    int    `json:"ttl_hours"`
	Meta        Meta   `json:"meta"`
}

type issueResponse struct {
	Envelope json.RawMessage `json:"envelope"`
	Pass     json.RawMessage `json:"pass"`
}

// Issue produces a pass for the selected visitor. Preconditions: a visitor
// and the resident's own name and house number must be present.
func (i *Issuer) Issue(ctx context.Context, visitante models.Visitante, prof models.Profile) (Pass, error) {
	if visitante.ID == "" {
		return nil, ErrMissingVisitor
	}
	if prof.Nombre == "" || prof.NumeroCasa == "" {
		return nil, ErrIncompleteProfile
	}

	meta := Meta{NombreResidente: prof.Nombre, NumeroCasa: prof.NumeroCasa}

	var resp issueResponse
	err := i.client.Post(ctx, i.eps.Passes, issueRequest{
		VisitanteID: visitante.ID,
		TTLHours:    int(TTL / time.Hour),
		Meta:        meta,
	}, &resp)

	envelope := resp.Envelope
	if len(envelope) == 0 {
		envelope = resp.Pass
	}

	if err == nil && len(envelope) > 0 {
		return SignedPass{V: 2, Typ: SignedTyp, Envelope: envelope}, nil
	}

	if err != nil {
		logging.FromContext(ctx).Warn("signed pass issuance failed, falling back to unsigned", "error", err)
	} else {
		logging.FromContext(ctx).Warn("signed pass response carried no envelope, falling back to unsigned")
	}

	now := i.now()
	return UnsignedPass{
		V:           1,
		IDQR:        fmt.Sprintf("%d-%d", now.UnixMilli(), i.randInt(1000)),
		VisitanteID: visitante.ID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(TTL),
		Meta:        meta,
	}, nil
}

func (i *Issuer) now() time.Time {
	if i.NowFunc != nil {
		return i.NowFunc()
	}
	return time.Now().UTC()
}

func (i *Issuer) randInt(n int) int {
	if i.RandFunc != nil {
		return i.RandFunc(n)
	}
	return rand.Intn(n)
}
