package command

import "fmt"

// Trigger marks a chat message as a bot command.
const Trigger = "!llama"

// Usage is the help reply, byte for byte.
const Usage = `Usage: !llama <COMMAND>

Commands:
  ask <MODEL> <PROMPT>   Send <PROMPT> to <MODEL>. See ` + "`list`" + ` for a listing of supported models.
  list                   List supported models.
  help                   Display this help message.
`

// MissingArgsReply answers an ask without both a model and a prompt.
const MissingArgsReply = "Please provide a model and a prompt."

func unknownCommandReply(word string) string {
	return fmt.Sprintf("%s is not a valid command. Run `%s help` for a list of valid commands.", word, Trigger)
}

func unsupportedModelReply(model string) string {
	return fmt.Sprintf("%s is an unsupported model. Run `%s list` for a list of supported models.", model, Trigger)
}

func listReply(models string) string { return "Supported models: " + models }
