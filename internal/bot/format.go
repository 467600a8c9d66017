package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/saldin/whatsapp-gateway/internal/finance"
	"github.com/saldin/whatsapp-gateway/internal/storage"
)

// User-facing replies, one per outcome of the error taxonomy. The channel
// is pt-BR; markdown emphasis is stripped by the dispatcher before send.
const (
	MsgLinkAccount = "❌ Olá! Parece que seu número não está identificado. Vincule seu WhatsApp no app Saldin (Configurações > WhatsApp)."
	MsgAudioError  = "❌ Erro ao transcrever seu áudio. Tente falar mais claro ou enviar por texto."
	MsgImageError  = "❌ Erro ao analisar a imagem. Tente enviar uma foto mais nítida do comprovante."
	MsgIncomplete  = "🤔 Não entendi. Pode detalhar? (Ex: 'Gastei 50 no almoço')"
	MsgNotFound    = "❌ Transação não encontrada. Confira o código e tente novamente."
	MsgRecordError = "❌ Erro ao registrar sua transação. Tente novamente em instantes."
	MsgRetryLater  = "❌ Não consegui processar sua mensagem agora. Tente novamente em instantes."

	MsgEmptyStatement = "📄 Nenhuma transação recente."
	MsgEditCancelled  = "✏️ Edição cancelada."
	MsgInvalidAmount  = "❌ Valor inválido. Envie apenas o número (Ex: 45,90)."
)

// FormatCurrency renders a pt-BR currency string: R$ 1.234,56.
func FormatCurrency(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)

	parts := strings.SplitN(s, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := "R$ " + b.String() + "," + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// BalanceMessage renders the balance query reply.
func BalanceMessage(balance decimal.Decimal) string {
	return fmt.Sprintf("💰 Seu saldo atual é: *%s*", FormatCurrency(balance))
}

// StatementMessage renders the last-N statement.
func StatementMessage(entries []storage.LedgerEntry) string {
	if len(entries) == 0 {
		return MsgEmptyStatement
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📄 *Extrato (Últimas %d):*\n\n", len(entries))
	for _, e := range entries {
		icon := "🔴"
		if e.Direction == storage.Income {
			icon = "🟢"
		}
		fmt.Fprintf(&b, "%s *%s*\n   %s em %s\n   🔑 %s\n\n",
			icon, e.Description, FormatCurrency(e.Amount), e.CreatedAt.Format("02/01/2006"), e.TransactionCode)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ConfirmationMessage renders a recorded or edited transaction.
func ConfirmationMessage(c *finance.Confirmation) string {
	title := "✅ *Gasto registrado!*"
	if c.Direction == storage.Income {
		title = "✅ *Receita registrada!*"
	}

	var b strings.Builder
	b.WriteString(title + "\n\n")
	fmt.Fprintf(&b, "💵 Valor: %s\n", FormatCurrency(c.Amount))
	fmt.Fprintf(&b, "📝 Descrição: %s\n", c.Description)
	fmt.Fprintf(&b, "📅 Data: %s\n", c.CreatedAt.Format("02/01/2006"))
	if c.CategoryName != "" {
		fmt.Fprintf(&b, "🏷️ Categoria: %s\n", c.CategoryName)
	}
	fmt.Fprintf(&b, "🏦 Conta: %s\n", c.AccountLabel)
	fmt.Fprintf(&b, "🔑 Código: %s\n", c.Code)
	if c.NewBalance != nil {
		fmt.Fprintf(&b, "\n📊 Saldo atual: %s\n", FormatCurrency(*c.NewBalance))
	}
	fmt.Fprintf(&b, "\nPara excluir: envie \"excluir %s\"", c.Code)
	return b.String()
}

// EditedMessage renders the end-of-edit confirmation.
func EditedMessage(c *finance.Confirmation) string {
	var b strings.Builder
	b.WriteString("✏️ *Transação atualizada!*\n\n")
	fmt.Fprintf(&b, "💵 Valor: %s\n", FormatCurrency(c.Amount))
	fmt.Fprintf(&b, "📝 Descrição: %s\n", c.Description)
	if c.CategoryName != "" {
		fmt.Fprintf(&b, "🏷️ Categoria: %s\n", c.CategoryName)
	}
	fmt.Fprintf(&b, "🔑 Código: %s", c.Code)
	return b.String()
}

// DeletedMessage confirms a soft delete.
func DeletedMessage(code string) string {
	return fmt.Sprintf("🗑️ Transação *%s* excluída.", code)
}

// Edit-flow prompts, issued one field at a time in fixed order.
func PromptAmount(code string) string {
	return fmt.Sprintf("✏️ Editando *%s*.\nQual o novo valor? (Ex: 45,90)", code)
}

func PromptDescription() string {
	return "Qual a nova descrição?"
}

func PromptCategory() string {
	return "Qual a nova categoria?"
}
