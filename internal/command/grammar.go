package command

import (
	"errors"
	"strings"
	"unicode"
)

// Command is one of the closed set of bot commands.
type Command int

const (
	Ask Command = iota + 1
	Help
	List
)

var commandWords = map[string]Command{
	"ask":  Ask,
	"help": Help,
	"list": List,
}

func (c Command) String() string {
	switch c {
	case Ask:
		return "ask"
	case Help:
		return "help"
	case List:
		return "list"
	default:
		return "unknown"
	}
}

// UnknownCommandError carries a command word outside the command set.
// Its message is the reply shown to the user.
type UnknownCommandError struct{ Word string }

func (e *UnknownCommandError) Error() string { return unknownCommandReply(e.Word) }

// IsUnknownCommand reports whether err is an UnknownCommandError.
func IsUnknownCommand(err error) bool {
	var ue *UnknownCommandError
	return errors.As(err, &ue)
}

// Parse splits raw into a command word and payload at the first whitespace run and
// resolves the word. Matching is case-sensitive. An empty payload means none was given.
func Parse(raw string) (Command, string, error) {
	word, payload := splitFirst(strings.TrimSpace(raw))
	cmd, ok := commandWords[word]
	if !ok {
		return 0, "", &UnknownCommandError{Word: word}
	}
	return cmd, payload, nil
}

// splitFirst cuts s at its first whitespace run. rest is empty when s has no
// whitespace. Leading whitespace in s yields an empty head.
func splitFirst(s string) (head, rest string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
