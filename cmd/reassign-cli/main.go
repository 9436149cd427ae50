// Command reassign-cli drives checkpoint state reassignment restores from
// the command line, either in-process against a local restore ledger or
// against a remote reassignd daemon over gRPC.
package main

import (
	"github.com/flowstate/reassigner/cmd/reassign-cli/cmd"
)

func main() {
	cmd.Execute()
}
