package passes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

// ErrNoPass indicates a badge or share was requested before a pass was
// generated.
var ErrNoPass = errors.New("passes: no pass generated yet")

// qrSize is the rendered QR image edge in pixels.
const qrSize = 512

// Badge is the shareable visitor credential: the QR image plus the
// human-readable card the guard sees.
type Badge struct {
	QRPath   string
	CardPath string
}

// WriteBadge renders the pass payload as a QR PNG and a sidecar card with
// the resident, house, visitor, and validity window. Files land under dir,
// named after the visitor.
func WriteBadge(pass Pass, prof models.Profile, visitante models.Visitante, dir string) (Badge, error) {
	if pass == nil {
		return Badge{}, ErrNoPass
	}

	payload, err := pass.Payload()
	if err != nil {
		return Badge{}, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Badge{}, fmt.Errorf("create badge dir: %w", err)
	}

	stem := badgeStem(visitante.Nombre)
	qrPath := filepath.Join(dir, stem+".png")
	cardPath := filepath.Join(dir, stem+".txt")

	if err := qrcode.WriteFile(payload, qrcode.Medium, qrSize, qrPath); err != nil {
		return Badge{}, fmt.Errorf("render qr: %w", err)
	}

	trust := "Pase sin firma"
	if pass.Signed() {
		trust = "Pase firmado"
	}

	card := fmt.Sprintf(`NeighNet - Pase de visitante
Residente: %s
Casa: %s
Visitante: %s
%s
Válido por 24 horas desde su emisión (%s)
`, prof.Nombre, prof.NumeroCasa, visitante.Nombre, trust,
		time.Now().Format("2006-01-02 15:04"))

	if err := os.WriteFile(cardPath, []byte(card), 0o644); err != nil {
		return Badge{}, fmt.Errorf("write badge card: %w", err)
	}

	return Badge{QRPath: qrPath, CardPath: cardPath}, nil
}

func badgeStem(nombre string) string {
	stem := strings.ToLower(strings.TrimSpace(nombre))
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, stem)
	stem = strings.Trim(stem, "-")
	if stem == "" {
		stem = "visitante"
	}
	return "pase-" + stem
}
