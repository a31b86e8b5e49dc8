package main

import (
	"attendance-backend/cmd/attendance-cli/commands"
	"attendance-backend/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
