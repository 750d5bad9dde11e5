package passes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AbrahamRP97/neighnet-go/internal/api"
	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

func newTestIssuer(t *testing.T, handler http.Handler) *Issuer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := api.New(server.Client(), api.TokenFunc(func() string { return "tok" }))
	issuer := NewIssuer(client, api.Endpoints{Passes: server.URL + "/api/passes"})
	issuer.NowFunc = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	issuer.RandFunc = func(int) int { return 42 }
	return issuer
}

var (
	testVisitante = models.Visitante{ID: "v1", Nombre: "Carlos"}
	testProfile   = models.Profile{Nombre: "Ana", NumeroCasa: "12B"}
)

func TestIssuePreconditions(t *testing.T) {
	issuer := newTestIssuer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("precondition failures must not reach the network")
	}))

	if _, err := issuer.Issue(context.Background(), models.Visitante{}, testProfile); !errors.Is(err, ErrMissingVisitor) {
		t.Fatalf("expected ErrMissingVisitor, got %v", err)
	}
	if _, err := issuer.Issue(context.Background(), testVisitante, models.Profile{Nombre: "Ana"}); !errors.Is(err, ErrIncompleteProfile) {
		t.Fatalf("expected ErrIncompleteProfile, got %v", err)
	}
}

func TestIssueSignedPass(t *testing.T) {
	issuer := newTestIssuer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req issueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.VisitanteID != "v1" || req.TTLHours != 24 {
			t.Errorf("unexpected request %+v", req)
		}
		if req.Meta.NombreResidente != "Ana" || req.Meta.NumeroCasa != "12B" {
			t.Errorf("unexpected meta %+v", req.Meta)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"envelope":"eyJhbGciOiJIUzI1NiJ9.payload.sig"}`)
	}))

	pass, err := issuer.Issue(context.Background(), testVisitante, testProfile)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !pass.Signed() {
		t.Fatal("expected a signed pass")
	}

	payload, err := pass.Payload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	var decoded struct {
		V        int    `json:"v"`
		Typ      string `json:"typ"`
		Envelope string `json:"envelope"`
	}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.V != 2 || decoded.Typ != SignedTyp {
		t.Fatalf("unexpected header v=%d typ=%q", decoded.V, decoded.Typ)
	}
	if decoded.Envelope != "eyJhbGciOiJIUzI1NiJ9.payload.sig" {
		t.Fatalf("envelope must be carried verbatim, got %q", decoded.Envelope)
	}
}

func TestIssueAcceptsLegacyPassField(t *testing.T) {
	issuer := newTestIssuer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"pass":"legacy.envelope.sig"}`)
	}))

	pass, err := issuer.Issue(context.Background(), testVisitante, testProfile)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !pass.Signed() {
		t.Fatal("legacy pass field still yields a signed pass")
	}
}

func TestIssueFallsBackToUnsignedOnServerError(t *testing.T) {
	issuer := newTestIssuer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	pass, err := issuer.Issue(context.Background(), testVisitante, testProfile)
	if err != nil {
		t.Fatalf("fallback must not surface the server error, got %v", err)
	}
	assertUnsigned(t, pass)
}

func TestIssueFallsBackToUnsignedOnEmptyEnvelope(t *testing.T) {
	issuer := newTestIssuer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	}))

	pass, err := issuer.Issue(context.Background(), testVisitante, testProfile)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	assertUnsigned(t, pass)
}

func assertUnsigned(t *testing.T, pass Pass) {
	t.Helper()
	if pass.Signed() {
		t.Fatal("expected an unsigned fallback pass")
	}

	payload, err := pass.Payload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	var decoded UnsignedPass
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if decoded.V != 1 {
		t.Fatalf("unsigned passes are v:1, got %d", decoded.V)
	}
	wantID := fmt.Sprintf("%d-42", issued.UnixMilli())
	if decoded.IDQR != wantID {
		t.Fatalf("expected id_qr %q, got %q", wantID, decoded.IDQR)
	}
	if decoded.VisitanteID != "v1" {
		t.Fatalf("unexpected visitante_id %q", decoded.VisitanteID)
	}
	if !decoded.IssuedAt.Equal(issued) {
		t.Fatalf("unexpected issued_at %v", decoded.IssuedAt)
	}
	if !decoded.ExpiresAt.Equal(issued.Add(TTL)) {
		t.Fatalf("expiry must be exactly issued+%v, got %v", TTL, decoded.ExpiresAt)
	}
	if decoded.Meta.NombreResidente != "Ana" || decoded.Meta.NumeroCasa != "12B" {
		t.Fatalf("unexpected meta %+v", decoded.Meta)
	}
	if strings.Contains(payload, "envelope") {
		t.Fatal("unsigned payload must not carry an envelope field")
	}
}
