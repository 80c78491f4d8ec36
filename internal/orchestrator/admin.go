package orchestrator

import (
	"context"
	"strings"
)

// AdminHelp lists the administrative commands.
const AdminHelp = `🛠️ Admin Commands:

/debug on  — enable debug mode (show internal data)
/debug off — disable debug mode
/reset     — delete user and start fresh
/note TEXT — save note to logs for developer
/info      — show this help

ps: TEXT   — same as /note (save feedback to logs)`

// Admin replies.
const (
	DebugOnReply  = "🔧 Debug mode ON — you'll see internal data with each response"
	DebugOffReply = "🔧 Debug mode OFF"
	ResetReply    = "🗑️ User deleted. Send any message to start fresh!"
	NoteReply     = "📝 Noted! (saved to logs for developer)"
)

var (
	helpCommands  = wordSet("/info", "/help", "/commands")
	resetCommands = wordSet("/reset", "/restart", "/clear")
	debugOn       = wordSet("on", "1", "true")
	debugOff      = wordSet("off", "0", "false")
)

// isAdminMessage reports whether message uses the administrative prefix convention.
func isAdminMessage(message string) bool {
	return strings.HasPrefix(message, "/") || strings.HasPrefix(strings.ToLower(message), "ps:")
}

// handleAdmin handles slash commands and ps: notes without consulting the
// interpreter. Unknown slash commands fall through to the normal pipeline.
func (o *Orchestrator) handleAdmin(ctx context.Context, t *turn) bool {
	if !isAdminMessage(t.message) {
		return false
	}
	lower := strings.ToLower(t.message)

	switch {
	case helpCommands.has(lower):
		t.respond(StageAdmin, AdminHelp, true)

	case lower == "/debug" || strings.HasPrefix(lower, "/debug "):
		arg := strings.TrimSpace(strings.TrimPrefix(lower, "/debug"))
		switch {
		case debugOn.has(arg):
			t.profile.Debug = true
			t.respond(StageAdmin, DebugOnReply, true)
		case debugOff.has(arg):
			t.profile.Debug = false
			t.respond(StageAdmin, DebugOffReply, true)
		default:
			status := "OFF"
			if t.profile.Debug {
				status = "ON"
			}
			t.respond(StageAdmin, "🔧 Debug mode: "+status+"\nUse: /debug on or /debug off", true)
		}

	case resetCommands.has(lower):
		t.deleteProfile = true
		t.log.Info().Msg("[ADMIN] user deleted by reset command")
		t.respond(StageAdmin, ResetReply, true)

	case strings.HasPrefix(lower, "/note"):
		o.logNote(t, strings.TrimSpace(t.message[len("/note"):]))

	case strings.HasPrefix(lower, "ps:"):
		o.logNote(t, strings.TrimSpace(t.message[len("ps:"):]))

	default:
		return false
	}
	return true
}

func (o *Orchestrator) logNote(t *turn, note string) {
	t.log.Warn().
		Str("tag", "user_feedback").
		Str("note", note).
		Msg("user feedback")
	t.respond(StageAdmin, NoteReply, true)
}

// vocabulary is a closed set of recognised lower-case tokens.
type vocabulary map[string]struct{}

func wordSet(words ...string) vocabulary {
	v := make(vocabulary, len(words))
	for _, w := range words {
		v[w] = struct{}{}
	}
	return v
}

func (v vocabulary) has(s string) bool {
	_, ok := v[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
