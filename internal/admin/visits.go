package admin

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/AbrahamRP97/neighnet-go/internal/api"
	"github.com/AbrahamRP97/neighnet-go/internal/models"
	"github.com/AbrahamRP97/neighnet-go/internal/uploads"
)

// VisitFilter narrows the audit listing. Zero values are omitted from the
// query.
type VisitFilter struct {
	From   time.Time
	To     time.Time
	Estado string
	Limit  int
}

// Service exposes the visit audit views. The listing is a read-only
// projection; evidence_status is computed and owned server-side.
type Service struct {
	client   *api.Client
	eps      api.Endpoints
	uploader *uploads.Uploader
}

// NewService wires the admin visit review against the admin and vigilancia
// endpoints.
func NewService(client *api.Client, eps api.Endpoints, uploader *uploads.Uploader) *Service {
	return &Service{client: client, eps: eps, uploader: uploader}
}

// ListVisits returns visit records matching the filter.
func (s *Service) ListVisits(ctx context.Context, filter VisitFilter) ([]models.Visit, error) {
	query := url.Values{}
	if !filter.From.IsZero() {
		query.Set("from", filter.From.Format(time.RFC3339))
	}
	if !filter.To.IsZero() {
		query.Set("to", filter.To.Format(time.RFC3339))
	}
	if filter.Estado != "" {
		query.Set("estado", filter.Estado)
	}
	if filter.Limit > 0 {
		query.Set("limit", fmt.Sprint(filter.Limit))
	}

	target := s.eps.Admin + "/visitas"
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var resp struct {
		Items []models.Visit `json:"items"`
	}
	if err := s.client.Get(ctx, target, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// AttachEvidence uploads the cédula and placa photos concurrently and, only
// when both uploads succeed, attaches their URLs to the visit. Any upload
// failure aborts the attach with no partial commit.
func (s *Service) AttachEvidence(ctx context.Context, visitID, cedulaPath, placaPath string) error {
	cedulaURL, placaURL, err := s.uploader.UploadEvidencePair(ctx, cedulaPath, placaPath)
	if err != nil {
		return err
	}

	return s.client.Put(ctx, s.eps.Vigilancia+"/visitas/"+visitID+"/evidencia", map[string]string{
		"cedula_url": cedulaURL,
		"placa_url":  placaURL,
	}, nil)
}
