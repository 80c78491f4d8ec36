package meta

import (
	"fmt"
	"strings"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// Summary renders the profile settings as plain text. Unset values are omitted.
func Summary(profile *domain.UserProfile) string {
	var sb strings.Builder

	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", label, value)
		}
	}

	line("Name", profile.DisplayName)
	line("Default currency", profile.DefaultCurrency)
	line("Default account", profile.DefaultAccount)
	line("Default fund", profile.DefaultFund)
	line("Accounts", strings.Join(profile.Accounts, ", "))
	line("Funds", strings.Join(profile.Funds, ", "))
	line("Linked users", strings.Join(profile.LinkedUsers, ", "))

	if len(profile.Instructions) > 0 {
		sb.WriteString("Instructions:\n")
		for i, instr := range profile.Instructions {
			fmt.Fprintf(&sb, "  %d. %s\n", i, instr)
		}
	}

	return sb.String()
}
