package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/N8Nexus-ai/product/platform/apperr"
	"github.com/N8Nexus-ai/product/platform/logger"
)

const (
	defaultRegistryBaseURL = "https://www.receitaws.com.br/v1"
	defaultHTTPTimeout     = 10 * time.Second
	cnpjLength             = 14
)

// RegistryClient queries the Brazilian company registry (ReceitaWS) by CNPJ.
type RegistryClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewRegistryClient creates a registry client. An empty baseURL falls back
// to the public ReceitaWS endpoint.
func NewRegistryClient(baseURL string, timeout time.Duration, log *logger.Logger) *RegistryClient {
	if baseURL == "" {
		baseURL = defaultRegistryBaseURL
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &RegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// registryResponse mirrors the ReceitaWS payload.
type registryResponse struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	CNPJ             string `json:"cnpj"`
	Nome             string `json:"nome"`
	Fantasia         string `json:"fantasia"`
	CapitalSocial    string `json:"capital_social"`
	Porte            string `json:"porte"`
	NaturezaJuridica string `json:"natureza_juridica"`
	Abertura         string `json:"abertura"`
	Situacao         string `json:"situacao"`
	Logradouro       string `json:"logradouro"`
	Numero           string `json:"numero"`
	Municipio        string `json:"municipio"`
	UF               string `json:"uf"`
	CEP              string `json:"cep"`
	AtividadePrincipal []struct {
		Text string `json:"text"`
		Code string `json:"code"`
	} `json:"atividade_principal"`
}

// NormalizeCNPJ strips formatting and validates the 14-digit shape.
// Validation happens before any network call.
func NormalizeCNPJ(taxID string) (string, error) {
	digits := stripNonDigits(taxID)
	if len(digits) != cnpjLength {
		return "", apperr.Validation(fmt.Sprintf("CNPJ must have %d digits", cnpjLength))
	}
	return digits, nil
}

// LookupCNPJ fetches registry data for a tax id. A non-OK or error-status
// provider response yields (nil, nil): the registry is treated as
// unavailable, never as a failure.
func (c *RegistryClient) LookupCNPJ(ctx context.Context, taxID string) (*CompanyRegistry, error) {
	cnpj, err := NormalizeCNPJ(taxID)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/cnpj/%s", c.baseURL, cnpj)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("registry_lookup_unavailable", "status", resp.StatusCode, "cnpj", cnpj)
		return nil, nil
	}

	var payload registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}

	if strings.EqualFold(payload.Status, "ERROR") {
		c.log.Warn("registry_lookup_rejected", "cnpj", cnpj, "message", payload.Message)
		return nil, nil
	}

	registry := &CompanyRegistry{
		CNPJ:           cnpj,
		LegalName:      payload.Nome,
		TradeName:      payload.Fantasia,
		Capital:        payload.CapitalSocial,
		Size:           payload.Porte,
		LegalNature:    payload.NaturezaJuridica,
		OpeningDate:    payload.Abertura,
		RegistryStatus: payload.Situacao,
	}
	if payload.Logradouro != "" || payload.Municipio != "" {
		registry.Address = &Address{
			Street:  payload.Logradouro,
			Number:  payload.Numero,
			City:    payload.Municipio,
			State:   payload.UF,
			ZipCode: payload.CEP,
		}
	}
	if len(payload.AtividadePrincipal) > 0 {
		registry.MainActivity = payload.AtividadePrincipal[0].Text
	}

	return registry, nil
}
