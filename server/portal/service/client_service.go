package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/techfranca/francaverso/server/portal/domain"
	"github.com/techfranca/francaverso/server/portal/repository"
)

// ClientStore is the slice of the client repository the CRM flows need.
type ClientStore interface {
	List(ctx context.Context, filter repository.ClientFilter) ([]domain.Client, error)
	Create(ctx context.Context, c domain.Client) (domain.Client, error)
	Update(ctx context.Context, c domain.Client) (domain.Client, error)
	Delete(ctx context.Context, id string) error
	ListCredentials(ctx context.Context, clientID string) ([]domain.ClientCredential, error)
	ReplaceCredentials(ctx context.Context, clientID string, creds []domain.ClientCredential) ([]domain.ClientCredential, error)
	DeleteCredential(ctx context.Context, id string) error
}

// ClientInput carries the raw form values. Money and date fields arrive as
// the strings the spreadsheet-style form produces ("R$ 1.234,56", "", dates
// in either ISO or BR order) and are coerced here.
type ClientInput struct {
	NomeEmpresa         string `json:"nome_empresa"`
	NomeCliente         string `json:"nome_cliente"`
	Email               string `json:"email"`
	Numero              string `json:"numero"`
	Genero              string `json:"genero"`
	Aniversario         string `json:"aniversario"`
	CnpjCpf             string `json:"cnpj_cpf"`
	Tag                 string `json:"tag"`
	Segmento            string `json:"segmento"`
	Nicho               string `json:"nicho"`
	CanalVenda          string `json:"canal_venda"`
	ServicosContratados string `json:"servicos_contratados"`
	ValorServico        string `json:"valor_servico"`
	FaturamentoMedio    string `json:"faturamento_medio"`
	ModeloPagamento     string `json:"modelo_pagamento"`
	DiaPagamento        string `json:"dia_pagamento"`
	Endereco            string `json:"endereco"`
	NumeroEndereco      string `json:"numero_endereco"`
	Cidade              string `json:"cidade"`
	Estado              string `json:"estado"`
	Cep                 string `json:"cep"`
	Status              string `json:"status"`
	DataInicio          string `json:"data_inicio"`
	DataEncerramento    string `json:"data_encerramento"`
}

// CredentialInput is one row of the access-credentials editor.
type CredentialInput struct {
	CredentialType string `json:"credential_type"`
	PlatformName   string `json:"platform_name"`
	Login          string `json:"login"`
	Password       string `json:"password"`
	Notes          string `json:"notes"`
}

type ClientService struct {
	store ClientStore
}

func NewClientService(store ClientStore) *ClientService {
	return &ClientService{store: store}
}

func (s *ClientService) List(ctx context.Context, status, segmento, search string) ([]domain.Client, error) {
	return s.store.List(ctx, repository.ClientFilter{Status: status, Segmento: segmento, Search: search})
}

func (s *ClientService) Create(ctx context.Context, input ClientInput) (domain.Client, error) {
	client, err := sanitizeClientInput(input)
	if err != nil {
		return domain.Client{}, err
	}
	return s.store.Create(ctx, client)
}

func (s *ClientService) Update(ctx context.Context, id string, input ClientInput) (domain.Client, error) {
	client, err := sanitizeClientInput(input)
	if err != nil {
		return domain.Client{}, err
	}
	client.ID = id
	return s.store.Update(ctx, client)
}

func (s *ClientService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *ClientService) ListCredentials(ctx context.Context, clientID string) ([]domain.ClientCredential, error) {
	return s.store.ListCredentials(ctx, clientID)
}

// SaveCredentials replaces the client's credential set with the valid rows of
// the submitted editor state. Blank filler rows are silently dropped.
func (s *ClientService) SaveCredentials(ctx context.Context, clientID string, inputs []CredentialInput) ([]domain.ClientCredential, error) {
	return s.store.ReplaceCredentials(ctx, clientID, filterValidCredentials(inputs))
}

func (s *ClientService) DeleteCredential(ctx context.Context, id string) error {
	return s.store.DeleteCredential(ctx, id)
}

func sanitizeClientInput(input ClientInput) (domain.Client, error) {
	nomeEmpresa := strings.TrimSpace(input.NomeEmpresa)
	if nomeEmpresa == "" {
		return domain.Client{}, fmt.Errorf("%w: nome_empresa is required", domain.ErrInvalidInput)
	}

	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = domain.ClientStatusActive
	}
	if status != domain.ClientStatusActive && status != domain.ClientStatusInactive {
		return domain.Client{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}

	valorServico, err := parseMoney(input.ValorServico)
	if err != nil {
		return domain.Client{}, fmt.Errorf("%w: valor_servico: %s", domain.ErrInvalidInput, err)
	}
	faturamentoMedio, err := parseMoney(input.FaturamentoMedio)
	if err != nil {
		return domain.Client{}, fmt.Errorf("%w: faturamento_medio: %s", domain.ErrInvalidInput, err)
	}
	aniversario, err := parseDate(input.Aniversario)
	if err != nil {
		return domain.Client{}, fmt.Errorf("%w: aniversario: %s", domain.ErrInvalidInput, err)
	}
	dataInicio, err := parseDate(input.DataInicio)
	if err != nil {
		return domain.Client{}, fmt.Errorf("%w: data_inicio: %s", domain.ErrInvalidInput, err)
	}
	dataEncerramento, err := parseDate(input.DataEncerramento)
	if err != nil {
		return domain.Client{}, fmt.Errorf("%w: data_encerramento: %s", domain.ErrInvalidInput, err)
	}
	diaPagamento, err := parseDay(input.DiaPagamento)
	if err != nil {
		return domain.Client{}, fmt.Errorf("%w: dia_pagamento: %s", domain.ErrInvalidInput, err)
	}

	return domain.Client{
		NomeEmpresa:         nomeEmpresa,
		NomeCliente:         optionalString(input.NomeCliente),
		Email:               optionalString(input.Email),
		Numero:              optionalString(input.Numero),
		Genero:              optionalString(input.Genero),
		Aniversario:         aniversario,
		CnpjCpf:             optionalString(input.CnpjCpf),
		Tag:                 optionalString(input.Tag),
		Segmento:            optionalString(input.Segmento),
		Nicho:               optionalString(input.Nicho),
		CanalVenda:          optionalString(input.CanalVenda),
		ServicosContratados: optionalString(input.ServicosContratados),
		ValorServico:        valorServico,
		FaturamentoMedio:    faturamentoMedio,
		ModeloPagamento:     optionalString(input.ModeloPagamento),
		DiaPagamento:        diaPagamento,
		Endereco:            optionalString(input.Endereco),
		NumeroEndereco:      optionalString(input.NumeroEndereco),
		Cidade:              optionalString(input.Cidade),
		Estado:              optionalString(input.Estado),
		Cep:                 optionalString(input.Cep),
		Status:              status,
		DataInicio:          dataInicio,
		DataEncerramento:    dataEncerramento,
	}, nil
}

// filterValidCredentials keeps rows that name a platform and carry at least a
// login or a password; the type defaults to "custom".
func filterValidCredentials(inputs []CredentialInput) []domain.ClientCredential {
	out := make([]domain.ClientCredential, 0, len(inputs))
	for _, in := range inputs {
		platform := strings.TrimSpace(in.PlatformName)
		login := strings.TrimSpace(in.Login)
		password := strings.TrimSpace(in.Password)
		if platform == "" || (login == "" && password == "") {
			continue
		}
		credType := strings.TrimSpace(in.CredentialType)
		if credType == "" {
			credType = "custom"
		}
		out = append(out, domain.ClientCredential{
			CredentialType: credType,
			PlatformName:   platform,
			Login:          optionalString(login),
			Password:       optionalString(password),
			Notes:          optionalString(in.Notes),
		})
	}
	return out
}

// parseMoney accepts "R$ 1.234,56", "1234.56" and "1234"; empty means unset.
func parseMoney(raw string) (*float64, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil, nil
	}
	cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "R$"))
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return &value, nil
}

// parseDate accepts ISO (2006-01-02) and BR (02/01/2006) dates; empty means
// unset.
func parseDate(raw string) (*time.Time, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", raw)
}

func parseDay(raw string) (*int, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil, nil
	}
	day, err := strconv.Atoi(cleaned)
	if err != nil || day < 1 || day > 31 {
		return nil, fmt.Errorf("invalid day %q", raw)
	}
	return &day, nil
}

func optionalString(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
