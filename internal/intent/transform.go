package intent

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FromModelJSON converts the loose JSON object returned by the model into
// a validated Intent. The model output uses the pt-BR field vocabulary
// (tipo, valor, descricao, categoria_sugerida, metodo_pagamento, status).
// Any schema mismatch, missing amount or empty description downgrades to
// KindIncomplete rather than guessing.
func FromModelJSON(obj map[string]interface{}) Intent {
	status, _ := getStringField(obj, "status")
	if strings.EqualFold(strings.TrimSpace(status), "incompleto") {
		return Incomplete()
	}

	tipo, err := getStringField(obj, "tipo")
	if err != nil {
		return Incomplete()
	}

	var kind Kind
	switch strings.ToLower(strings.TrimSpace(tipo)) {
	case "receita":
		kind = KindIncome
	case "gasto", "despesa":
		kind = KindExpense
	case "consulta_saldo":
		return Intent{Kind: KindBalance}
	case "consulta_extrato":
		return Intent{Kind: KindStatement}
	default:
		return Incomplete()
	}

	amount, err := getAmountField(obj, "valor")
	if err != nil {
		return Incomplete()
	}

	desc, err := getStringField(obj, "descricao")
	if err != nil || strings.TrimSpace(desc) == "" {
		return Incomplete()
	}

	category, _ := getStringField(obj, "categoria_sugerida")
	method, _ := getStringField(obj, "metodo_pagamento")

	return Intent{
		Kind:              kind,
		Amount:            amount,
		Description:       strings.TrimSpace(desc),
		SuggestedCategory: strings.TrimSpace(category),
		PaymentMethod:     strings.TrimSpace(method),
	}
}

func getStringField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
	return s, nil
}

// getAmountField accepts the number shapes models actually emit: a JSON
// number, or a string in either pt-BR or plain decimal formatting.
func getAmountField(m map[string]interface{}, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("missing field %q", key)
	}
	switch val := v.(type) {
	case float64:
		d := decimal.NewFromFloat(val).Round(2)
		if !d.IsPositive() {
			return decimal.Zero, fmt.Errorf("field %q is not positive", key)
		}
		return d, nil
	case string:
		return ParseAmount(val)
	default:
		return decimal.Zero, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

// cleanModelJSON strips Markdown fences and surrounding prose the model
// sometimes wraps its JSON object in despite instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost object if junk remains around it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
