package hacienda

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/pkg/config"
)

// ── Puerto (interfaz) ──────────────────────────────────────────────────────────

// SubmitRequest datos de la entrega de un comprobante a la recepción.
type SubmitRequest struct {
	Clave               string
	Date                time.Time
	IssuerIDType        string
	IssuerID            string
	ReceiverIDType      string // vacío en tiquetes sin receptor
	ReceiverID          string
	ConsecutivoReceptor string // solo Mensaje Receptor
	XML                 []byte // comprobante firmado, sin codificar
}

// SubmitResult resultado de la entrega. Hacienda responde 202 cuando encola
// el comprobante; cualquier otro estado trae el motivo en el cuerpo.
type SubmitResult struct {
	Status int
	Body   string
}

// StatusResult resultado de la consulta de estado de una clave.
type StatusResult struct {
	HTTPStatus  int
	IndEstado   string // valor de ind-estado tal cual lo devuelve el API
	ResponseXML []byte // respuesta-xml decodificada (MensajeHacienda)
}

// API define el puerto de salida hacia la recepción de comprobantes.
// La implementación concreta usa el API REST v4.3; para tests se inyecta un mock.
type API interface {
	// Submit entrega el comprobante (o Mensaje Receptor) a la recepción.
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)
	// QueryStatus consulta el estado de una clave. Para mensajes receptor la
	// clave viaja compuesta: "{clave}-{consecutivo}".
	QueryStatus(ctx context.Context, key string) (*StatusResult, error)
}

// ── Implementación REST ────────────────────────────────────────────────────────

// RESTClient implementa API contra la recepción v4.3, con token OAuth del IDP
// cacheado hasta su vencimiento.
type RESTClient struct {
	cfg        config.HaciendaConfig
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ API = (*RESTClient)(nil)

// NewRESTClient construye el cliente con un timeout de red generoso (60 s):
// la recepción puede tardar varios segundos bajo carga.
func NewRESTClient(cfg config.HaciendaConfig) *RESTClient {
	return &RESTClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type submitPayload struct {
	Clave               string         `json:"clave"`
	Fecha               string         `json:"fecha"`
	Emisor              payloadParty   `json:"emisor"`
	Receptor            *payloadParty  `json:"receptor,omitempty"`
	ComprobanteXML      string         `json:"comprobanteXml"`
	ConsecutivoReceptor string         `json:"consecutivoReceptor,omitempty"`
}

type payloadParty struct {
	TipoIdentificacion   string `json:"tipoIdentificacion"`
	NumeroIdentificacion string `json:"numeroIdentificacion"`
}

// Submit entrega el comprobante a POST {api}/recepcion.
func (c *RESTClient) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	payload := submitPayload{
		Clave: req.Clave,
		Fecha: req.Date.Format("2006-01-02T15:04:05-07:00"),
		Emisor: payloadParty{
			TipoIdentificacion:   req.IssuerIDType,
			NumeroIdentificacion: req.IssuerID,
		},
		ComprobanteXML:      base64.StdEncoding.EncodeToString(req.XML),
		ConsecutivoReceptor: req.ConsecutivoReceptor,
	}
	if req.ReceiverID != "" {
		payload.Receptor = &payloadParty{
			TipoIdentificacion:   req.ReceiverIDType,
			NumeroIdentificacion: req.ReceiverID,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("hacienda: serializando la entrega: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/recepcion", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return &SubmitResult{Status: resp.StatusCode, Body: string(respBody)}, nil
}

type statusPayload struct {
	IndEstado    string `json:"ind-estado"`
	RespuestaXML string `json:"respuesta-xml"`
}

// QueryStatus consulta GET {api}/recepcion/{key}. Un 400 es una respuesta
// válida del API (clave no encontrada) y no un error de transporte.
func (c *RESTClient) QueryStatus(ctx context.Context, key string) (*StatusResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"/recepcion/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	result := &StatusResult{HTTPStatus: resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		return result, nil
	}

	var payload statusPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decodificando estado: %v", domain.ErrTransport, err)
	}
	result.IndEstado = payload.IndEstado
	if payload.RespuestaXML != "" {
		decoded, err := base64.StdEncoding.DecodeString(payload.RespuestaXML)
		if err != nil {
			return nil, fmt.Errorf("%w: respuesta-xml no es base64: %v", domain.ErrTransport, err)
		}
		result.ResponseXML = decoded
	}
	return result, nil
}

type tokenPayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token devuelve un token vigente del IDP, pidiendo uno nuevo solo cuando el
// cacheado está por vencer.
func (c *RESTClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {c.cfg.ClientID},
		"username":   {c.cfg.Username},
		"password":   {c.cfg.Password},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: idp: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &domain.UnexpectedStatusError{Status: resp.StatusCode, Body: string(body)}
	}

	var payload tokenPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decodificando token: %v", domain.ErrTransport, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: el idp no devolvió access_token", domain.ErrTransport)
	}

	c.accessToken = payload.AccessToken
	// Margen de 30 s para no usar un token al borde del vencimiento.
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - 30*time.Second)
	return c.accessToken, nil
}
