// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"os"

	"github.com/ik5/audstream/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
