package dto

// Límites de paginación de los listados del ledger.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Códigos de error de la API.
const (
	CodeValidation = "VALIDATION"
	CodeInternal   = "INTERNAL"
)

// PageRequest ventana limit/offset sobre un listado ordenado del ledger.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPage normaliza la ventana: Limit en [1, MaxPageLimit] y Offset no negativo.
func (p *PageRequest) DefaultPage() {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultPageLimit
	case p.Limit > MaxPageLimit:
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse ventana aplicada y cantidad de filas devueltas en ella.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// NewPageResponse describe la página servida con count filas.
func NewPageResponse(p PageRequest, count int) PageResponse {
	return PageResponse{Limit: p.Limit, Offset: p.Offset, Count: count}
}

// ErrorResponse cuerpo de error HTTP. Message nunca expone detalles internos.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
