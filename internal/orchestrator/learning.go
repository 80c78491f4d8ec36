package orchestrator

import "context"

// LearningDeclinedReply answers a negative reply to a learning suggestion.
const LearningDeclinedReply = "👌 OK, not remembering"

var (
	affirmative = wordSet("да", "yes", "ок", "окей", "ok", "okay", "конечно", "запомни", "сохрани",
		"ага", "угу", "давай", "го", "1", "+")
	negative = wordSet("нет", "no", "не надо", "не нужно", "отмена", "cancel", "0", "-", "неа", "не")
)

// handleLearning answers a pending "remember this?" question. A message
// outside both vocabularies drops the suggestion and continues as an
// ordinary message.
func (o *Orchestrator) handleLearning(ctx context.Context, t *turn) bool {
	suggestion := t.profile.PendingSuggestion
	if suggestion == "" {
		return false
	}

	switch {
	case affirmative.has(t.message):
		t.profile.AddInstruction(suggestion)
		t.profile.PendingSuggestion = ""
		o.tracker.Clear(t.profile)
		t.log.Info().Str("instruction", suggestion).Msg("learning: instruction saved")
		t.respond(StageLearning, "✅ Remembered: \""+suggestion+"\"", true)
		return true

	case negative.has(t.message):
		t.profile.PendingSuggestion = ""
		o.tracker.Clear(t.profile)
		t.log.Info().Msg("learning: suggestion declined")
		t.respond(StageLearning, LearningDeclinedReply, true)
		return true

	default:
		t.profile.PendingSuggestion = ""
		t.log.Debug().Msg("learning: no answer, treating as new message")
		return false
	}
}
