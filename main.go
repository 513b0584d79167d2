// Command dataforge runs the staged image/caption preprocessing pipeline
// described by a YAML config file.
package main

import "github.com/forgekiln/dataforge/cmd"

func main() {
	cmd.Execute()
}
