package main

import (
	"gradesync-backend/cmd/gradesync-cli/commands"
	"gradesync-backend/internal/components/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
