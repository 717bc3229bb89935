// Binary distribute sends a fixed APT reward from the admin account to every address in a file.
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:]))
}
