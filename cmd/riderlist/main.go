package main

import (
	"bakpdlbot/cmd/riderlist/commands"
	"bakpdlbot/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
