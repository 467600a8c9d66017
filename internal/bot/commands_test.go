package bot

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantKind CommandKind
		wantCode string
	}{
		{name: "delete plain", text: "excluir TXN-20250314-A1B2C3", wantKind: CmdDelete, wantCode: "TXN-20250314-A1B2C3"},
		{name: "delete with preamble", text: "por favor excluir TXN-20250314-A1B2C3 obrigado", wantKind: CmdDelete, wantCode: "TXN-20250314-A1B2C3"},
		{name: "delete lowercase code", text: "excluir txn-20250314-a1b2c3", wantKind: CmdDelete, wantCode: "TXN-20250314-A1B2C3"},
		{name: "delete with markdown", text: "excluir *TXN-20250314-A1B2C3*", wantKind: CmdDelete, wantCode: "TXN-20250314-A1B2C3"},
		{name: "edit", text: "editar TXN-20250314-A1B2C3", wantKind: CmdEdit, wantCode: "TXN-20250314-A1B2C3"},
		{name: "edit slash form", text: "/editar TXN-20250314-A1B2C3", wantKind: CmdEdit, wantCode: "TXN-20250314-A1B2C3"},
		{name: "edit with trailing words is not a command", text: "editar TXN-20250314-A1B2C3 agora", wantKind: CmdNone},
		{name: "balance", text: "saldo", wantKind: CmdBalance},
		{name: "balance uppercase", text: "SALDO", wantKind: CmdBalance},
		{name: "balance slash form", text: "/saldo", wantKind: CmdBalance},
		{name: "balance in a sentence is not a command", text: "qual o meu saldo?", wantKind: CmdNone},
		{name: "statement", text: "extrato", wantKind: CmdStatement},
		{name: "statement with whitespace", text: "  Extrato  ", wantKind: CmdStatement},
		{name: "free text", text: "gastei 50 no mercado", wantKind: CmdNone},
		{name: "malformed code ignored", text: "excluir TXN-123-ABC", wantKind: CmdNone},
		{name: "empty", text: "", wantKind: CmdNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCommand(tt.text)
			if got.Kind != tt.wantKind {
				t.Errorf("ParseCommand(%q).Kind = %v, want %v", tt.text, got.Kind, tt.wantKind)
			}
			if got.Code != tt.wantCode {
				t.Errorf("ParseCommand(%q).Code = %q, want %q", tt.text, got.Code, tt.wantCode)
			}
		})
	}
}
