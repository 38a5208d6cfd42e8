// Command anlog drives an anlog pipeline from the command line: it emits
// sample events through a configured set of sinks and inspects or expires
// rotated log directories.
package main

func main() {
	Execute()
}
