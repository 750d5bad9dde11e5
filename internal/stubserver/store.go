package stubserver

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness
	// constraint.
	ErrConflict = errors.New("record conflict")
)

// account is a stub user record: profile plus credential state.
type account struct {
	models.Profile
	PasswordHash  string
	Rol           string
	PhoneVerified bool
	PhoneCode     string
	ResetToken    string
}

// storedPost keeps the post together with a monotonically decreasing sort
// key so cursor pagination is stable.
type storedPost struct {
	models.Post
	Seq int64
}

// memoryStore is the stub backend's entire state, guarded by one mutex. It
// emulates the remote contract closely enough for client integration tests.
type memoryStore struct {
	mu         sync.Mutex
	accounts   map[string]*account // by id
	byEmail    map[string]string   // correo -> id
	posts      []storedPost        // newest first
	seq        int64
	visitantes map[string]*models.Visitante
	visits     []*models.Visit
	lastTipo   map[string]string // id_qr -> last registered tipo
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts:   make(map[string]*account),
		byEmail:    make(map[string]string),
		visitantes: make(map[string]*models.Visitante),
		lastTipo:   make(map[string]string),
	}
}

func (m *memoryStore) createAccount(a *account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[a.Correo]; exists {
		return ErrConflict
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m.accounts[a.ID] = a
	m.byEmail[a.Correo] = a.ID
	return nil
}

func (m *memoryStore) accountByEmail(correo string) (*account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[correo]
	if !ok {
		return nil, ErrNotFound
	}
	return m.accounts[id], nil
}

func (m *memoryStore) accountByID(id string) (*account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *memoryStore) accountByResetToken(token string) (*account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ResetToken != "" && a.ResetToken == token {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryStore) deleteAccount(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byEmail, a.Correo)
	delete(m.accounts, id)
	return nil
}

func (m *memoryStore) residentes() []models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Profile, 0, len(m.accounts))
	for _, a := range m.accounts {
		if a.Rol == "residente" {
			out = append(out, a.Profile)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out
}

func (m *memoryStore) addPost(p models.Post) models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	m.posts = append([]storedPost{{Post: p, Seq: m.seq}}, m.posts...)
	return p
}

// pagePosts returns up to limit posts after the cursor, plus the cursor for
// the following page ("" when exhausted).
func (m *memoryStore) pagePosts(cursor string, limit int) ([]models.Post, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := 0
	if cursor != "" {
		after, err := strconv.ParseInt(cursor, 10, 64)
		if err == nil {
			for i, p := range m.posts {
				if p.Seq < after {
					start = i
					break
				}
				start = len(m.posts)
			}
		}
	}

	end := start + limit
	if end > len(m.posts) {
		end = len(m.posts)
	}

	items := make([]models.Post, 0, end-start)
	for _, p := range m.posts[start:end] {
		items = append(items, p.Post)
	}

	next := ""
	if end < len(m.posts) && len(items) > 0 {
		next = strconv.FormatInt(m.posts[end-1].Seq, 10)
	}
	return items, next
}

func (m *memoryStore) updatePost(id string, mutate func(*models.Post)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.posts {
		if m.posts[i].ID == id {
			mutate(&m.posts[i].Post)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memoryStore) postOwner(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.posts {
		if m.posts[i].ID == id {
			return m.posts[i].Usuario.ID, nil
		}
	}
	return "", ErrNotFound
}

func (m *memoryStore) deletePost(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.posts {
		if m.posts[i].ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memoryStore) saveVisitante(v *models.Visitante) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	m.visitantes[v.ID] = v
}

func (m *memoryStore) visitantesFor(residenteID string) []models.Visitante {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Visitante
	for _, v := range m.visitantes {
		if residenteID == "" || v.ResidenteID == residenteID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out
}

func (m *memoryStore) deleteVisitante(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.visitantes[id]; !ok {
		return ErrNotFound
	}
	delete(m.visitantes, id)
	return nil
}

// registerScan flips the entry/exit state for an id_qr and records the
// visit. This is the state machine the client deliberately does not own.
func (m *memoryStore) registerScan(idQR, visitanteID, guardID string) *models.Visit {
	m.mu.Lock()
	defer m.mu.Unlock()

	tipo := models.TipoEntrada
	if m.lastTipo[idQR] == models.TipoEntrada {
		tipo = models.TipoSalida
	}
	m.lastTipo[idQR] = tipo

	now := time.Now().UTC()
	visit := &models.Visit{
		ID:          uuid.NewString(),
		IDQR:        idQR,
		VisitanteID: visitanteID,
		GuardID:     guardID,
		Tipo:        tipo,
		FechaHora:   now,
		ExpiresAt:   now.Add(24 * time.Hour),
	}
	m.visits = append(m.visits, visit)
	return visit
}

func (m *memoryStore) attachEvidence(visitID, cedulaURL, placaURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.visits {
		if v.ID == visitID {
			v.CedulaURL = cedulaURL
			v.PlacaURL = placaURL
			return nil
		}
	}
	return ErrNotFound
}

func (m *memoryStore) listVisits(from, to time.Time, estado string, limit int) []models.Visit {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Visit, 0, len(m.visits))
	for _, v := range m.visits {
		if !from.IsZero() && v.FechaHora.Before(from) {
			continue
		}
		if !to.IsZero() && v.FechaHora.After(to) {
			continue
		}
		projected := *v
		projected.EvidenceStatus = evidenceStatus(v)
		if estado != "" && projected.EvidenceStatus != estado {
			continue
		}
		out = append(out, projected)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// evidenceStatus is the server-side completeness computation: exits carry no
// evidence requirement at all.
func evidenceStatus(v *models.Visit) string {
	if v.Tipo == models.TipoSalida {
		return models.EvidenceNA
	}
	switch {
	case v.CedulaURL != "" && v.PlacaURL != "":
		return models.EvidenceComplete
	case v.CedulaURL == "" && v.PlacaURL == "":
		return models.EvidencePending
	case v.CedulaURL == "":
		return models.EvidenceMissingCedula
	default:
		return models.EvidenceMissingPlaca
	}
}
