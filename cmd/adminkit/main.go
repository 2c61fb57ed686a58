// Command adminkit serves a configuration-driven admin API in front of an
// existing REST backend.
package main

func main() {
	Execute()
}
