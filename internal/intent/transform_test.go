package intent

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromModelJSON(t *testing.T) {
	tests := []struct {
		name string
		obj  map[string]interface{}
		want Intent
	}{
		{
			name: "valid expense",
			obj: map[string]interface{}{
				"tipo": "gasto", "valor": 45.9, "descricao": "Mercado",
				"categoria_sugerida": "Alimentação", "metodo_pagamento": "pix",
				"status": "ok",
			},
			want: Intent{
				Kind:              KindExpense,
				Amount:            decimal.RequireFromString("45.90"),
				Description:       "Mercado",
				SuggestedCategory: "Alimentação",
				PaymentMethod:     "pix",
			},
		},
		{
			name: "valid income with string amount",
			obj: map[string]interface{}{
				"tipo": "receita", "valor": "1.200,50", "descricao": "Salário",
				"status": "ok",
			},
			want: Intent{
				Kind:        KindIncome,
				Amount:      decimal.RequireFromString("1200.50"),
				Description: "Salário",
			},
		},
		{
			name: "balance query carries no amount",
			obj:  map[string]interface{}{"tipo": "consulta_saldo", "status": "ok"},
			want: Intent{Kind: KindBalance},
		},
		{
			name: "statement query",
			obj:  map[string]interface{}{"tipo": "consulta_extrato", "status": "ok"},
			want: Intent{Kind: KindStatement},
		},
		{
			name: "declared incomplete wins over fields",
			obj: map[string]interface{}{
				"tipo": "gasto", "valor": 10.0, "descricao": "algo",
				"status": "incompleto",
			},
			want: Incomplete(),
		},
		{
			name: "zero amount downgrades",
			obj:  map[string]interface{}{"tipo": "gasto", "valor": 0.0, "descricao": "Mercado", "status": "ok"},
			want: Incomplete(),
		},
		{
			name: "negative amount downgrades",
			obj:  map[string]interface{}{"tipo": "gasto", "valor": -12.5, "descricao": "Mercado", "status": "ok"},
			want: Incomplete(),
		},
		{
			name: "non numeric amount downgrades",
			obj:  map[string]interface{}{"tipo": "gasto", "valor": "muito", "descricao": "Mercado", "status": "ok"},
			want: Incomplete(),
		},
		{
			name: "empty description downgrades",
			obj:  map[string]interface{}{"tipo": "gasto", "valor": 20.0, "descricao": "  ", "status": "ok"},
			want: Incomplete(),
		},
		{
			name: "unknown tipo downgrades",
			obj:  map[string]interface{}{"tipo": "piada", "valor": 20.0, "descricao": "x", "status": "ok"},
			want: Incomplete(),
		},
		{
			name: "missing tipo downgrades",
			obj:  map[string]interface{}{"valor": 20.0, "descricao": "x"},
			want: Incomplete(),
		},
		{
			name: "amount of wrong type downgrades",
			obj:  map[string]interface{}{"tipo": "gasto", "valor": true, "descricao": "x", "status": "ok"},
			want: Incomplete(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromModelJSON(tt.obj)
			if got.Kind != tt.want.Kind ||
				!got.Amount.Equal(tt.want.Amount) ||
				got.Description != tt.want.Description ||
				got.SuggestedCategory != tt.want.SuggestedCategory ||
				got.PaymentMethod != tt.want.PaymentMethod {
				t.Errorf("FromModelJSON() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"45,90", "45.9", false},
		{"1.234,56", "1234.56", false},
		{"R$ 50", "50", false},
		{"45.90", "45.9", false},
		{"1.234", "1234", false},
		{"1.234.567", "1234567", false},
		{"R$ 1.200", "1200", false},
		{"1234.56", "1234.56", false},
		{"0", "", true},
		{"-10", "", true},
		{"abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain object", `{"tipo":"gasto"}`, `{"tipo":"gasto"}`},
		{"json fence", "```json\n{\"tipo\":\"gasto\"}\n```", `{"tipo":"gasto"}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around object", "Claro! Aqui está: {\"a\":1} Espero que ajude.", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
