package models

import "time"

// Session holds the persisted device credentials for the logged-in resident.
// Each field maps to an independent entry in the local key-value store.
type Session struct {
	UserID   string
	UserName string
	UserRole string
	Token    string
}

// HasToken reports whether a bearer credential is available.
func (s Session) HasToken() bool {
	return s.Token != ""
}

// Profile is the account record returned by the auth service.
type Profile struct {
	ID            string `json:"id"`
	Nombre        string `json:"nombre"`
	Correo        string `json:"correo"`
	Telefono      string `json:"telefono"`
	NumeroCasa    string `json:"numero_casa"`
	FotoURL       string `json:"foto_url"`
	AvatarVersion int    `json:"avatar_version"`
	UpdatedAt     string `json:"updated_at"`
}

// PostUser is the author projection embedded in feed posts.
type PostUser struct {
	ID      string `json:"id"`
	Nombre  string `json:"nombre"`
	FotoURL string `json:"foto_url"`
}

// Post is a single feed entry. ImagenURL carries the legacy single-image
// field kept for older clients; ImagenesURL is the full list.
type Post struct {
	ID          string   `json:"id"`
	Mensaje     string   `json:"mensaje"`
	ImagenURL   string   `json:"imagen_url,omitempty"`
	ImagenesURL []string `json:"imagenes_url,omitempty"`
	CreatedAt   string   `json:"created_at"`
	Usuario     PostUser `json:"usuarios"`
}

// Visitante is a visitor registered by a resident. ResidenteID is only
// populated on the admin projection.
type Visitante struct {
	ID             string `json:"id"`
	Nombre         string `json:"nombre"`
	Identidad      string `json:"identidad"`
	Placa          string `json:"placa"`
	MarcaVehiculo  string `json:"marca_vehiculo"`
	ModeloVehiculo string `json:"modelo_vehiculo"`
	ColorVehiculo  string `json:"color_vehiculo"`
	ResidenteID    string `json:"residente_id,omitempty"`
}

// Visit direction classifications assigned by the vigilancia service.
const (
	TipoEntrada = "Entrada"
	TipoSalida  = "Salida"
)

// Evidence completeness states, computed and owned server-side.
const (
	EvidenceComplete      = "complete"
	EvidenceMissingCedula = "missing_cedula"
	EvidenceMissingPlaca  = "missing_placa"
	EvidencePending       = "pending"
	EvidenceNA            = "n/a"
)

// Visit is the read-only audit projection shown on the admin review screens.
type Visit struct {
	ID             string    `json:"id"`
	IDQR           string    `json:"id_qr"`
	VisitanteID    string    `json:"visitante_id"`
	GuardID        string    `json:"guard_id"`
	Tipo           string    `json:"tipo"`
	FechaHora      time.Time `json:"fecha_hora"`
	ExpiresAt      time.Time `json:"expires_at"`
	CedulaURL      string    `json:"cedula_url,omitempty"`
	PlacaURL       string    `json:"placa_url,omitempty"`
	EvidenceStatus string    `json:"evidence_status"`
}
