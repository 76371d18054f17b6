package main

import (
	"os"

	"casefeed/cmd/casefeed/commands"
	"casefeed/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	code := commands.ExecuteContext(ctx)
	cancel()
	os.Exit(code)
}
