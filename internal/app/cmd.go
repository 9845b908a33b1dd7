package app

// Command is the application launch mode.
type Command string

const (
	// CommandServe starts the API gateway.
	CommandServe Command = "serve"
	// CommandMigrate runs the database migrations.
	CommandMigrate Command = "migrate"
	// CommandHealthcheck probes the running gateway.
	// For Docker health checks in distroless images.
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand parses the subcommand from command-line arguments.
// Empty or unknown arguments fall back to CommandServe.
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
