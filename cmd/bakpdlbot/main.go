package main

import (
	"bakpdlbot/cmd/bakpdlbot/commands"
	"bakpdlbot/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
