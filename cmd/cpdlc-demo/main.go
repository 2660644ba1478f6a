// Command cpdlc-demo exercises the client and msglist packages from a
// terminal: log on to a peer, send a message, or watch thread updates as
// they happen.
package main

import (
	"os"

	"github.com/skiselkov/cpdlc/cmd/cpdlc-demo/internal/cli"
)

func main() {
	os.Exit(int(cli.Run()))
}
