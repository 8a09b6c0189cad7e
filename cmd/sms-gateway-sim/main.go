// Command sms-gateway-sim runs an in-memory SMS gateway simulator.
package main

import "github.com/tyrion/nucleus-sms-bridge/cmd/sms-gateway-sim/cmd"

func main() {
	cmd.Execute()
}
