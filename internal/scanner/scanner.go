package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AbrahamRP97/neighnet-go/internal/api"
	"github.com/AbrahamRP97/neighnet-go/internal/logging"
	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

// Cooldown is how long scanning stays disabled after a scan request settles,
// so the camera re-seeing the same code does not fire duplicates.
const Cooldown = 3 * time.Second

var (
	// ErrMalformedScan indicates the scanned string was not a well-formed
	// pass payload. Scanning re-arms immediately.
	ErrMalformedScan = errors.New("scanner: malformed code")
	// ErrCoolingDown indicates a scan arrived while disabled; it is dropped
	// without any request.
	ErrCoolingDown = errors.New("scanner: cooling down")
)

// Result carries the server's classification of a scan. Tipo is whatever
// direction the backend decided; the client only echoes it.
type Result struct {
	Tipo    string
	Message string
}

// Scanner posts scan events to the vigilancia service. The entry/exit state
// machine lives entirely server-side; the client sends exactly one POST per
// accepted scan and mirrors the response.
type Scanner struct {
	client  *api.Client
	eps     api.Endpoints
	NowFunc func() time.Time

	mu       sync.Mutex
	inFlight bool
	rearmAt  time.Time
}

// New constructs a Scanner.
func New(client *api.Client, eps api.Endpoints) *Scanner {
	return &Scanner{client: client, eps: eps}
}

// scanPayload is the flat legacy shape the guard scanner expects, distinct
// from the enveloped payloads the pass generator produces.
type scanPayload struct {
	IDUnico     string `json:"idUnico"`
	VisitanteID string `json:"visitanteId"`
}

type scanRequest struct {
	IDQR        string `json:"id_qr"`
	VisitanteID string `json:"visitante_id"`
}

type scanResponse struct {
	Message string `json:"message"`
}

// HandleScan processes one raw scanned string. Malformed payloads are
// rejected with scanning re-armed immediately; well-formed ones trigger a
// single POST and then the fixed cooldown, whether the request succeeded or
// not.
func (s *Scanner) HandleScan(ctx context.Context, raw string) (Result, error) {
	s.mu.Lock()
	if s.inFlight || s.now().Before(s.rearmAt) {
		s.mu.Unlock()
		return Result{}, ErrCoolingDown
	}
	s.inFlight = true
	s.mu.Unlock()

	var payload scanPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		s.rearm(false)
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedScan, err)
	}
	if payload.IDUnico == "" || payload.VisitanteID == "" {
		s.rearm(false)
		return Result{}, fmt.Errorf("%w: missing idUnico or visitanteId", ErrMalformedScan)
	}

	var resp scanResponse
	err := s.client.Post(ctx, s.eps.Vigilancia+"/scan", scanRequest{
		IDQR:        payload.IDUnico,
		VisitanteID: payload.VisitanteID,
	}, &resp)
	s.rearm(true)
	if err != nil {
		return Result{}, err
	}

	result := Result{Tipo: classify(resp.Message), Message: resp.Message}
	logging.FromContext(ctx).Info("scan registered", "idQr", payload.IDUnico, "tipo", result.Tipo)
	return result, nil
}

// rearm clears the in-flight flag. Settled requests additionally hold the
// cooldown window; malformed scans do not.
func (s *Scanner) rearm(withCooldown bool) {
	s.mu.Lock()
	s.inFlight = false
	if withCooldown {
		s.rearmAt = s.now().Add(Cooldown)
	}
	s.mu.Unlock()
}

func (s *Scanner) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now()
}

func classify(message string) string {
	switch {
	case strings.Contains(message, models.TipoEntrada):
		return models.TipoEntrada
	case strings.Contains(message, models.TipoSalida):
		return models.TipoSalida
	default:
		return ""
	}
}
