package visitantes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AbrahamRP97/neighnet-go/internal/api"
	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := api.New(server.Client(), api.TokenFunc(func() string { return "tok" }))
	return NewService(client, api.Endpoints{Visitantes: server.URL + "/api/visitantes"})
}

func TestCreateRequiresNombre(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("validation failures must not reach the network")
	}))

	if _, err := svc.Create(context.Background(), models.Visitante{Nombre: "   "}); !errors.Is(err, ErrNombreRequired) {
		t.Fatalf("expected ErrNombreRequired, got %v", err)
	}
	if err := svc.Update(context.Background(), models.Visitante{ID: "v1"}); !errors.Is(err, ErrNombreRequired) {
		t.Fatalf("expected ErrNombreRequired on update, got %v", err)
	}
}

func TestCreateReturnsServerAssignedID(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v models.Visitante
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			t.Errorf("decode: %v", err)
		}
		v.ID = "v-nuevo"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(v)
	}))

	created, err := svc.Create(context.Background(), models.Visitante{Nombre: "Carlos", Placa: "HAB-1234"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "v-nuevo" || created.Placa != "HAB-1234" {
		t.Fatalf("unexpected visitor %+v", created)
	}
}

func TestListDecodesRoster(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/visitantes" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":"v1","nombre":"Carlos"},{"id":"v2","nombre":"Maria"}]`)
	}))

	roster, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(roster) != 2 || roster[1].Nombre != "Maria" {
		t.Fatalf("unexpected roster %+v", roster)
	}
}
