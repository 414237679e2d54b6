// Command pricectl seeds pricing catalogs and prices cases from the shell.
package main

func main() {
	Execute()
}
