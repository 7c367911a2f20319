// Package enrichment augments leads with externally sourced facts: company
// registry data, email and phone validity, and social profile lookups.
package enrichment

// Facet keys inside the lead's enriched-data blob.
const (
	FacetCompanyRegistry = "cnpj"
	FacetEmailValidation = "emailValidation"
	FacetPhoneValidation = "phoneValidation"
	FacetSocialProfile   = "linkedin"
)

// CompanyRegistry is the registry lookup facet, sourced from ReceitaWS.
type CompanyRegistry struct {
	CNPJ            string   `json:"cnpj"`
	LegalName       string   `json:"razaoSocial"`
	TradeName       string   `json:"nomeFantasia,omitempty"`
	Capital         string   `json:"capitalSocial,omitempty"`
	Size            string   `json:"porte,omitempty"`
	LegalNature     string   `json:"naturezaJuridica,omitempty"`
	OpeningDate     string   `json:"dataAbertura,omitempty"`
	Address         *Address `json:"endereco,omitempty"`
	MainActivity    string   `json:"atividadePrincipal,omitempty"`
	RegistryStatus  string   `json:"situacao,omitempty"`
}

// Address is the registered company address.
type Address struct {
	Street   string `json:"logradouro,omitempty"`
	Number   string `json:"numero,omitempty"`
	City     string `json:"municipio,omitempty"`
	State    string `json:"uf,omitempty"`
	ZipCode  string `json:"cep,omitempty"`
}

// EmailValidation is the email classification facet.
type EmailValidation struct {
	Valid      bool   `json:"valid"`
	Disposable bool   `json:"disposable"`
	Role       bool   `json:"role"`
	Free       bool   `json:"free"`
	Domain     string `json:"domain,omitempty"`
	Score      int    `json:"score"`
}

// PhoneValidation is the phone classification facet.
type PhoneValidation struct {
	Valid    bool   `json:"valid"`
	Country  string `json:"country"`
	LineType string `json:"lineType"`
	Carrier  string `json:"carrier"`
	Digits   string `json:"digits,omitempty"`
}

// SocialProfile is the social lookup facet.
type SocialProfile struct {
	Network    string `json:"network"`
	ProfileURL string `json:"profileUrl"`
	Username   string `json:"username,omitempty"`
}

// Result holds the facets one enrichment pass produced. Absent facets were
// either skipped or failed; both are normal outcomes.
type Result struct {
	CompanyRegistry *CompanyRegistry `json:"cnpj,omitempty"`
	EmailValidation *EmailValidation `json:"emailValidation,omitempty"`
	PhoneValidation *PhoneValidation `json:"phoneValidation,omitempty"`
	SocialProfile   *SocialProfile   `json:"linkedin,omitempty"`
}

// Facets lists the keys present in the result.
func (r Result) Facets() []string {
	var facets []string
	if r.CompanyRegistry != nil {
		facets = append(facets, FacetCompanyRegistry)
	}
	if r.EmailValidation != nil {
		facets = append(facets, FacetEmailValidation)
	}
	if r.PhoneValidation != nil {
		facets = append(facets, FacetPhoneValidation)
	}
	if r.SocialProfile != nil {
		facets = append(facets, FacetSocialProfile)
	}
	return facets
}

// Empty reports whether the pass produced no facets at all.
func (r Result) Empty() bool {
	return len(r.Facets()) == 0
}
