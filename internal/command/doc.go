// Package command maps trigger-stripped chat text onto the bot's command set and
// produces the reply for each command.
//
//   - grammar.go: Command, Parse and the unknown-command error.
//   - executor.go: Executor, the ask/help/list behaviour and the Querier seam.
//   - errors.go: InferenceError, the only hard error an execution can return.
//   - usage.go: fixed reply texts.
//
// User mistakes (unknown command, missing arguments, unsupported model) are
// replies, not errors. Only a failed call to the inference service is an error.
package command
