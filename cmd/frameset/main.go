// Command frameset stores and inspects multi-table datasets.
package main

import "github.com/leapstack-labs/frameset/internal/cli"

func main() {
	cli.Execute()
}
