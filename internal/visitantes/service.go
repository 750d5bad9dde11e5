package visitantes

import (
	"context"
	"errors"
	"strings"

	"github.com/AbrahamRP97/neighnet-go/internal/api"
	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

// ErrNombreRequired indicates a visitor was submitted without a name.
var ErrNombreRequired = errors.New("visitantes: nombre is required")

// Service manages the resident's visitor roster.
type Service struct {
	client *api.Client
	eps    api.Endpoints
}

// NewService wires the visitor CRUD against the visitantes endpoint.
func NewService(client *api.Client, eps api.Endpoints) *Service {
	return &Service{client: client, eps: eps}
}

// List returns the resident's registered visitors.
func (s *Service) List(ctx context.Context) ([]models.Visitante, error) {
	var out []models.Visitante
	if err := s.client.Get(ctx, s.eps.Visitantes, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create registers a new visitor.
func (s *Service) Create(ctx context.Context, v models.Visitante) (models.Visitante, error) {
	if strings.TrimSpace(v.Nombre) == "" {
		return models.Visitante{}, ErrNombreRequired
	}
	var created models.Visitante
	if err := s.client.Post(ctx, s.eps.Visitantes, v, &created); err != nil {
		return models.Visitante{}, err
	}
	return created, nil
}

// Update mutates an existing visitor.
func (s *Service) Update(ctx context.Context, v models.Visitante) error {
	if strings.TrimSpace(v.Nombre) == "" {
		return ErrNombreRequired
	}
	return s.client.Put(ctx, s.eps.Visitantes+"/"+v.ID, v, nil)
}

// Delete removes a visitor from the roster.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, s.eps.Visitantes+"/"+id)
}

// AdminService reads the community-wide rosters available to administrators.
// Its visitor projection additionally carries residente_id.
type AdminService struct {
	client *api.Client
	eps    api.Endpoints
}

// NewAdminService wires the admin roster listings.
func NewAdminService(client *api.Client, eps api.Endpoints) *AdminService {
	return &AdminService{client: client, eps: eps}
}

// Visitantes lists every registered visitor with its owning resident.
func (s *AdminService) Visitantes(ctx context.Context) ([]models.Visitante, error) {
	var out []models.Visitante
	if err := s.client.Get(ctx, s.eps.Admin+"/visitantes", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Residentes lists the community's resident accounts.
func (s *AdminService) Residentes(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	if err := s.client.Get(ctx, s.eps.Admin+"/residentes", &out); err != nil {
		return nil, err
	}
	return out, nil
}
