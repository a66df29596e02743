// Command shiftctl is the terminal front end of the payroll engine.
package main

func main() {
	Execute()
}
