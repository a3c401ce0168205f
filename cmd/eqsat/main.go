// Command eqsat compiles rewrite rules and saturates terms with them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/eqsat/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
