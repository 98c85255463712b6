// Command topoedit replays edit scripts on block topologies, renders them and
// serves shared workspaces over HTTP.
package main

func main() {
	Execute()
}
