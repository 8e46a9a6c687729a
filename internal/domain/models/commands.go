package models

import "strings"

// CommandType enumerates the shop-owner commands understood over WhatsApp.
type CommandType string

const (
	CommandDues    CommandType = "dues"
	CommandStock   CommandType = "stock"
	CommandReport  CommandType = "report"
	CommandHelp    CommandType = "help"
	CommandUnknown CommandType = "unknown"
)

// Command represents a parsed instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	normalized := strings.TrimSpace(strings.ToLower(message))
	cmd := Command{Type: CommandUnknown, Raw: message}

	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return cmd
	}

	switch head := strings.TrimPrefix(tokens[0], "/"); head {
	case string(CommandDues), "summary":
		cmd.Type = CommandDues
	case string(CommandStock):
		cmd.Type = CommandStock
	case string(CommandReport):
		cmd.Type = CommandReport
	case string(CommandHelp), "start":
		cmd.Type = CommandHelp
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
