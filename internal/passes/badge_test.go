package passes

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

func TestWriteBadge(t *testing.T) {
	dir := t.TempDir()
	pass := UnsignedPass{
		V:           1,
		IDQR:        "1748700000000-42",
		VisitanteID: "v1",
		IssuedAt:    time.Now().UTC(),
		ExpiresAt:   time.Now().UTC().Add(TTL),
		Meta:        Meta{NombreResidente: "Ana", NumeroCasa: "12B"},
	}

	badge, err := WriteBadge(pass, models.Profile{Nombre: "Ana", NumeroCasa: "12B"},
		models.Visitante{ID: "v1", Nombre: "Carlos Pérez"}, dir)
	if err != nil {
		t.Fatalf("write badge: %v", err)
	}

	qr, err := os.ReadFile(badge.QRPath)
	if err != nil {
		t.Fatalf("read qr: %v", err)
	}
	if len(qr) < 8 || string(qr[1:4]) != "PNG" {
		t.Fatal("qr file is not a PNG")
	}
	if !strings.HasSuffix(badge.QRPath, "pase-carlos-p-rez.png") {
		t.Fatalf("unexpected qr path %q", badge.QRPath)
	}

	card, err := os.ReadFile(badge.CardPath)
	if err != nil {
		t.Fatalf("read card: %v", err)
	}
	for _, want := range []string{"Ana", "12B", "Carlos Pérez", "Pase sin firma"} {
		if !strings.Contains(string(card), want) {
			t.Fatalf("card missing %q:\n%s", want, card)
		}
	}
}

func TestWriteBadgeWithoutPass(t *testing.T) {
	if _, err := WriteBadge(nil, models.Profile{}, models.Visitante{}, t.TempDir()); err != ErrNoPass {
		t.Fatalf("expected ErrNoPass, got %v", err)
	}
}

func TestBadgeStem(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Carlos Pérez", "pase-carlos-p-rez"},
		{"  MARIA  ", "pase-maria"},
		{"!!!", "pase-visitante"},
		{"", "pase-visitante"},
	}
	for _, tc := range cases {
		if got := badgeStem(tc.in); got != tc.want {
			t.Errorf("badgeStem(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
