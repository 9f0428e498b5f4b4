package negotiator

import "fmt"

func partySystemPrompt(party, topic string) string {
	return fmt.Sprintf(
		"You are %s, negotiating the following matter: %s. "+
			"Argue for your side firmly but stay open to reasonable compromise. "+
			"Answer with your position only, no preamble.", party, topic)
}

func mediatorSystemPrompt(topic string) string {
	return fmt.Sprintf(
		"You are a neutral mediator drafting the final agreement for: %s. "+
			"Reply with a JSON object of the form {\"agreement\": \"...\"} where the "+
			"agreement text contains numbered clauses, one per line, formatted as "+
			"\"1. Title: terms\".", topic)
}

func openingPrompt(party, topic, background string) string {
	prompt := fmt.Sprintf("State your opening position on %q as %s.", topic, party)
	if background != "" {
		prompt += "\n\nConversation so far between the parties:\n" + background
	}
	return prompt
}

func counterPrompt(party, topic, lastProposal string) string {
	return fmt.Sprintf(
		"The other side's latest position on %q is:\n\n%s\n\n"+
			"Respond as %s with a counter-proposal that moves toward agreement.",
		topic, lastProposal, party)
}

func finalPrompt(topic, rounds string) string {
	return fmt.Sprintf(
		"The exchange on %q concluded as follows:\n\n%s\n\n"+
			"Draft the final agreement both parties can accept.", topic, rounds)
}
