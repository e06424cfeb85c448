package main

import (
	"arena-sheets/cmd/arena-sheets/commands"
	"arena-sheets/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
