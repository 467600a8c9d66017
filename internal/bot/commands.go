package bot

import (
	"regexp"
	"strings"

	"github.com/saldin/whatsapp-gateway/internal/textnorm"
)

// CommandKind identifies a deterministic text command. Balance and
// statement stay keyword-matched instead of going through the classifier:
// they are latency-sensitive and must not depend on an external
// classification call succeeding.
type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdDelete
	CmdEdit
	CmdBalance
	CmdStatement
)

// Command is a parsed text command. Code is set for delete and edit.
type Command struct {
	Kind CommandKind
	Code string
}

// Matching happens on folded text (lowercase, no diacritics, no markdown),
// so the patterns are lowercase-only.
var (
	deleteRe    = regexp.MustCompile(`excluir.*?(txn-\d{8}-[a-z0-9]{6})`)
	editRe      = regexp.MustCompile(`^/?editar\s+(txn-\d{8}-[a-z0-9]{6})\s*$`)
	balanceRe   = regexp.MustCompile(`^/?saldo$`)
	statementRe = regexp.MustCompile(`^/?extrato$`)
)

// ParseCommand matches text against the stateless command table. The
// router consults the edit-flow continuation between the edit command and
// the rest of this table: a fresh edit overrides an open session, while
// every other in-flow answer is consumed as a field value rather than
// misread as a command.
func ParseCommand(text string) Command {
	folded := strings.TrimSpace(textnorm.Fold(text))

	if m := editRe.FindStringSubmatch(folded); m != nil {
		return Command{Kind: CmdEdit, Code: strings.ToUpper(m[1])}
	}
	if m := deleteRe.FindStringSubmatch(folded); m != nil {
		return Command{Kind: CmdDelete, Code: strings.ToUpper(m[1])}
	}
	if balanceRe.MatchString(folded) {
		return Command{Kind: CmdBalance}
	}
	if statementRe.MatchString(folded) {
		return Command{Kind: CmdStatement}
	}
	return Command{Kind: CmdNone}
}
