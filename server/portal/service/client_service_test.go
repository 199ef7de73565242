package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techfranca/francaverso/server/portal/domain"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
		nil_ bool
		err  bool
	}{
		{name: "formatted brl", in: "R$ 1.234,56", want: 1234.56},
		{name: "comma decimal", in: "1234,50", want: 1234.5},
		{name: "dot decimal", in: "1234.56", want: 1234.56},
		{name: "integer", in: "1500", want: 1500},
		{name: "empty is unset", in: "   ", nil_: true},
		{name: "garbage", in: "abc", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMoney(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.nil_ {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 0.001)
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2024-03-15")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *got)

	got, err = parseDate("15/03/2024")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.March, got.Month())

	got, err = parseDate("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseDate("15-03-2024")
	assert.Error(t, err)
}

func TestSanitizeClientInput(t *testing.T) {
	client, err := sanitizeClientInput(ClientInput{
		NomeEmpresa:  "  Padaria Central  ",
		ValorServico: "R$ 2.500,00",
		DiaPagamento: "10",
		DataInicio:   "2024-01-02",
		Email:        "",
	})
	require.NoError(t, err)

	assert.Equal(t, "Padaria Central", client.NomeEmpresa)
	assert.Equal(t, domain.ClientStatusActive, client.Status)
	require.NotNil(t, client.ValorServico)
	assert.InDelta(t, 2500.0, *client.ValorServico, 0.001)
	require.NotNil(t, client.DiaPagamento)
	assert.Equal(t, 10, *client.DiaPagamento)
	assert.Nil(t, client.Email)
	require.NotNil(t, client.DataInicio)
}

func TestSanitizeClientInputValidation(t *testing.T) {
	_, err := sanitizeClientInput(ClientInput{NomeEmpresa: "  "})
	assert.Error(t, err)

	_, err = sanitizeClientInput(ClientInput{NomeEmpresa: "X", Status: "Pausado"})
	assert.Error(t, err)

	_, err = sanitizeClientInput(ClientInput{NomeEmpresa: "X", DiaPagamento: "40"})
	assert.Error(t, err)

	_, err = sanitizeClientInput(ClientInput{NomeEmpresa: "X", ValorServico: "muito"})
	assert.Error(t, err)
}

func TestFilterValidCredentials(t *testing.T) {
	out := filterValidCredentials([]CredentialInput{
		{PlatformName: "Meta Ads", Login: "conta@cliente.com", Password: "s3cret"},
		{PlatformName: "Google Ads", Password: "only-pass"},
		{PlatformName: "Sem Acesso"},
		{Login: "orfao@cliente.com", Password: "x"},
		{PlatformName: "  ", Login: "x"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "Meta Ads", out[0].PlatformName)
	assert.Equal(t, "custom", out[0].CredentialType)
	assert.Equal(t, "Google Ads", out[1].PlatformName)
	assert.Nil(t, out[1].Login)
	require.NotNil(t, out[1].Password)
}
